package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Delivery modes.
const (
	ModeWebhook = "webhook"
	ModePoll    = "poll"
)

// Telegram treats bans shorter than 30 seconds or longer than 366 days as
// permanent.
const (
	MinBanDuration = 30 * time.Second
	MaxBanDuration = 366 * 24 * time.Hour
)

// Config holds the complete joinguard configuration.
type Config struct {
	Token    string `yaml:"token"    env:"BOT_TOKEN"`
	Mode     string `yaml:"mode"     env:"JOINGUARD_MODE"`     // webhook or poll
	Language string `yaml:"language" env:"JOINGUARD_LANGUAGE"` // BCP 47 tag of the bot texts

	Captcha  CaptchaConfig  `yaml:"captcha"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Server   ServerConfig   `yaml:"server"`
	Telegram TelegramConfig `yaml:"telegram"`
	Poll     PollConfig     `yaml:"poll"`
}

// CaptchaConfig describes the challenge shown to joining users.
type CaptchaConfig struct {
	Timeout     time.Duration `yaml:"timeout"      env:"CAPTCHA_TIMEOUT"`
	BanDuration time.Duration `yaml:"ban_duration" env:"BAN_DURATION"`
	Alphabet    []string      `yaml:"alphabet"     env:"JOINGUARD_ALPHABET" envSeparator:","`
	Correct     string        `yaml:"correct"      env:"JOINGUARD_CORRECT"`
	Size        int           `yaml:"size"         env:"JOINGUARD_CHALLENGE_SIZE"` // 0 shows the whole alphabet
}

// WebhookConfig holds the webhook registration.
type WebhookConfig struct {
	URL            string `yaml:"url"             env:"WEBHOOK_URL"`
	Secret         string `yaml:"secret"          env:"JOINGUARD_WEBHOOK_SECRET"`
	Path           string `yaml:"path"            env:"JOINGUARD_WEBHOOK_PATH"`
	MaxConnections int    `yaml:"max_connections" env:"JOINGUARD_WEBHOOK_MAX_CONNECTIONS"`
	DropPending    bool   `yaml:"drop_pending"    env:"JOINGUARD_WEBHOOK_DROP_PENDING"`
}

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	Host       string `yaml:"host"        env:"JOINGUARD_HOST"`
	Port       int    `yaml:"port"        env:"PORT"`
	AdminToken string `yaml:"admin_token" env:"JOINGUARD_ADMIN_TOKEN"` // Bearer token for /api/v1; empty leaves it open
	DBPath     string `yaml:"db_path"     env:"JOINGUARD_DB"`          // SQLite audit log; empty disables it
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// TelegramConfig holds Bot API client settings.
type TelegramConfig struct {
	APIURL         string        `yaml:"api_url"         env:"JOINGUARD_API_URL"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"JOINGUARD_REQUEST_TIMEOUT"`
	RateLimit      float64       `yaml:"rate_limit"      env:"JOINGUARD_RATE_LIMIT"`
	RateBurst      int           `yaml:"rate_burst"      env:"JOINGUARD_RATE_BURST"`
	MaxAttempts    int           `yaml:"max_attempts"    env:"JOINGUARD_MAX_ATTEMPTS"`
}

// PollConfig holds long-polling settings.
type PollConfig struct {
	Wait    time.Duration `yaml:"wait"    env:"JOINGUARD_POLL_WAIT"`
	Workers int           `yaml:"workers" env:"JOINGUARD_POLL_WORKERS"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Mode:     ModeWebhook,
		Language: "ru",
		Captcha: CaptchaConfig{
			Timeout:     60 * time.Second,
			BanDuration: 30 * time.Minute,
			Alphabet:    []string{"🥩", "🍆", "💦", "🧼"},
			Correct:     "🍆",
		},
		Webhook: WebhookConfig{
			Path:           "/webhook",
			MaxConnections: 40,
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Telegram: TelegramConfig{
			APIURL:         "https://api.telegram.org",
			RequestTimeout: 30 * time.Second,
			RateLimit:      30,
			RateBurst:      5,
			MaxAttempts:    5,
		},
		Poll: PollConfig{
			Wait:    50 * time.Second,
			Workers: 8,
		},
	}
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Token == "" {
		add("bot token is required (BOT_TOKEN)")
	}
	switch c.Mode {
	case ModeWebhook:
		if c.Webhook.URL == "" {
			add("webhook mode requires a webhook url (WEBHOOK_URL)")
		}
	case ModePoll:
	default:
		add("unknown mode %q, want %s or %s", c.Mode, ModeWebhook, ModePoll)
	}
	if !supportedLanguage(c.Language) {
		add("unsupported language %q", c.Language)
	}

	if c.Captcha.Timeout <= 0 {
		add("captcha timeout must be positive, got %s", c.Captcha.Timeout)
	}
	if c.Captcha.BanDuration < MinBanDuration || c.Captcha.BanDuration > MaxBanDuration {
		add("ban duration %s out of range [%s, %s]", c.Captcha.BanDuration, MinBanDuration, MaxBanDuration)
	}
	errs = append(errs, validateAlphabet(c.Captcha)...)

	if c.Webhook.Path == "" || c.Webhook.Path[0] != '/' {
		add("webhook path %q must start with /", c.Webhook.Path)
	}
	if c.Webhook.MaxConnections < 0 || c.Webhook.MaxConnections > 100 {
		add("webhook max connections %d out of range [0, 100]", c.Webhook.MaxConnections)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		add("port %d out of range", c.Server.Port)
	}
	if c.Telegram.RateLimit < 0 {
		add("rate limit must not be negative")
	}
	if c.Telegram.MaxAttempts < 1 {
		add("max attempts must be at least 1, got %d", c.Telegram.MaxAttempts)
	}
	if c.Mode == ModePoll {
		if c.Poll.Workers < 1 {
			add("poll workers must be at least 1, got %d", c.Poll.Workers)
		}
		if c.Poll.Wait < 0 {
			add("poll wait must not be negative")
		}
	}

	return errors.Join(errs...)
}

func validateAlphabet(c CaptchaConfig) []error {
	var errs []error
	if len(c.Alphabet) < 4 {
		errs = append(errs, fmt.Errorf("alphabet needs at least 4 tokens, got %d", len(c.Alphabet)))
	}
	seen := make(map[string]bool, len(c.Alphabet))
	for _, tok := range c.Alphabet {
		if tok == "" {
			errs = append(errs, errors.New("alphabet contains an empty token"))
			continue
		}
		if seen[tok] {
			errs = append(errs, fmt.Errorf("alphabet contains %q twice", tok))
		}
		seen[tok] = true
	}
	if !seen[c.Correct] {
		errs = append(errs, fmt.Errorf("correct token %q is not in the alphabet", c.Correct))
	}
	if c.Size != 0 && (c.Size < 2 || c.Size > len(c.Alphabet)) {
		errs = append(errs, fmt.Errorf("challenge size %d out of range [2, %d]", c.Size, len(c.Alphabet)))
	}
	return errs
}

func supportedLanguage(lang string) bool {
	switch lang {
	case "ru", "en":
		return true
	}
	return false
}
