package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.Token = "123:abc"
	cfg.Webhook.URL = "https://bot.example.com/webhook"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Captcha.Timeout != 60*time.Second {
		t.Errorf("timeout = %s, want 60s", cfg.Captcha.Timeout)
	}
	if cfg.Captcha.BanDuration != 30*time.Minute {
		t.Errorf("ban = %s, want 30m", cfg.Captcha.BanDuration)
	}
	if cfg.Server.Addr() != ":8080" {
		t.Errorf("addr = %q, want :8080", cfg.Server.Addr())
	}
	if err := validConfig().Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"no token", func(c *Config) { c.Token = "" }, "bot token"},
		{"webhook without url", func(c *Config) { c.Webhook.URL = "" }, "webhook url"},
		{"poll without url", func(c *Config) { c.Mode = ModePoll; c.Webhook.URL = "" }, ""},
		{"unknown mode", func(c *Config) { c.Mode = "push" }, "unknown mode"},
		{"unknown language", func(c *Config) { c.Language = "de" }, "language"},
		{"zero timeout", func(c *Config) { c.Captcha.Timeout = 0 }, "timeout"},
		{"short ban", func(c *Config) { c.Captcha.BanDuration = 10 * time.Second }, "ban duration"},
		{"endless ban", func(c *Config) { c.Captcha.BanDuration = 400 * 24 * time.Hour }, "ban duration"},
		{"small alphabet", func(c *Config) { c.Captcha.Alphabet = []string{"a", "b", "🍆"} }, "at least 4"},
		{"duplicate token", func(c *Config) { c.Captcha.Alphabet = []string{"a", "a", "b", "🍆"} }, "twice"},
		{"empty token", func(c *Config) { c.Captcha.Alphabet = []string{"a", "", "b", "🍆"} }, "empty token"},
		{"correct missing", func(c *Config) { c.Captcha.Correct = "z" }, "not in the alphabet"},
		{"size too small", func(c *Config) { c.Captcha.Size = 1 }, "size"},
		{"size too large", func(c *Config) { c.Captcha.Size = 9 }, "size"},
		{"bad path", func(c *Config) { c.Webhook.Path = "hook" }, "path"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "port"},
		{"no attempts", func(c *Config) { c.Telegram.MaxAttempts = 0 }, "max attempts"},
		{"poll without workers", func(c *Config) { c.Mode = ModePoll; c.Poll.Workers = 0 }, "workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Captcha.Timeout = -time.Second
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"bot token", "webhook url", "timeout"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q misses %q", err, want)
		}
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	err := applyEnv(&cfg, env.Options{Environment: map[string]string{
		"BOT_TOKEN":          "123:abc",
		"WEBHOOK_URL":        "https://bot.example.com/webhook",
		"PORT":               "9000",
		"CAPTCHA_TIMEOUT":    "90",
		"BAN_DURATION":       "1h",
		"JOINGUARD_ALPHABET": "a,b,c,d",
		"JOINGUARD_CORRECT":  "c",
		"JOINGUARD_MODE":     "poll",
	}})
	if err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if cfg.Token != "123:abc" || cfg.Webhook.URL != "https://bot.example.com/webhook" {
		t.Errorf("token/url = %q/%q", cfg.Token, cfg.Webhook.URL)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Captcha.Timeout != 90*time.Second {
		t.Errorf("timeout = %s, want 90s", cfg.Captcha.Timeout)
	}
	if cfg.Captcha.BanDuration != time.Hour {
		t.Errorf("ban = %s, want 1h", cfg.Captcha.BanDuration)
	}
	if strings.Join(cfg.Captcha.Alphabet, "") != "abcd" || cfg.Captcha.Correct != "c" {
		t.Errorf("alphabet = %v correct = %q", cfg.Captcha.Alphabet, cfg.Captcha.Correct)
	}
	if cfg.Mode != ModePoll {
		t.Errorf("mode = %q, want poll", cfg.Mode)
	}
	// Untouched values keep their defaults.
	if cfg.Language != "ru" || cfg.Poll.Workers != 8 {
		t.Errorf("defaults lost: language=%q workers=%d", cfg.Language, cfg.Poll.Workers)
	}
}

func TestApplyEnv_BadDuration(t *testing.T) {
	cfg := DefaultConfig()
	err := applyEnv(&cfg, env.Options{Environment: map[string]string{"CAPTCHA_TIMEOUT": "soon"}})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"60", time.Minute},
		{" 1800 ", 30 * time.Minute},
		{"90s", 90 * time.Second},
		{"1h30m", 90 * time.Minute},
	}
	for _, tt := range tests {
		got, err := parseDuration(tt.in)
		if err != nil {
			t.Errorf("parseDuration(%q): %v", tt.in, err)
			continue
		}
		if got.(time.Duration) != tt.want {
			t.Errorf("parseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "joinguard.yaml")
	data := `
token: "123:abc"
mode: poll
language: en
captcha:
  timeout: 2m
  alphabet: ["🐱", "🐶", "🐭", "🐹", "🐰"]
  correct: "🐶"
  size: 3
server:
  port: 9090
  db_path: /var/lib/joinguard/audit.db
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	if err := LoadFile(path, &cfg); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Mode != ModePoll || cfg.Language != "en" {
		t.Errorf("mode/language = %q/%q", cfg.Mode, cfg.Language)
	}
	if cfg.Captcha.Timeout != 2*time.Minute || cfg.Captcha.Size != 3 || len(cfg.Captcha.Alphabet) != 5 {
		t.Errorf("captcha = %+v", cfg.Captcha)
	}
	if cfg.Captcha.BanDuration != 30*time.Minute {
		t.Errorf("ban = %s, want default 30m", cfg.Captcha.BanDuration)
	}
	if cfg.Server.Port != 9090 || cfg.Server.DBPath != "/var/lib/joinguard/audit.db" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFile_SecondsDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "joinguard.yaml")
	data := `
captcha:
  timeout: 60
  ban_duration: 1h
telegram:
  request_timeout: 15
poll:
  wait: 25
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	if err := LoadFile(path, &cfg); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	tests := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"captcha.timeout", cfg.Captcha.Timeout, 60 * time.Second},
		{"captcha.ban_duration", cfg.Captcha.BanDuration, time.Hour},
		{"telegram.request_timeout", cfg.Telegram.RequestTimeout, 15 * time.Second},
		{"poll.wait", cfg.Poll.Wait, 25 * time.Second},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %s, want %s", tt.name, tt.got, tt.want)
		}
	}
	if cfg.Captcha.Correct != "🍆" || cfg.Server.Port != 8080 {
		t.Errorf("untouched keys changed: correct=%q port=%d", cfg.Captcha.Correct, cfg.Server.Port)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	if err := LoadFile(filepath.Join(dir, "missing.yaml"), &cfg); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("captcha:\n  colour: red\n"), 0o600)
	if err := LoadFile(bad, &cfg); err == nil {
		t.Error("expected error for unknown key")
	}

	empty := filepath.Join(dir, "empty.yaml")
	os.WriteFile(empty, nil, 0o600)
	if err := LoadFile(empty, &cfg); err != nil {
		t.Errorf("empty file: %v", err)
	}
}
