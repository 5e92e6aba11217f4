package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/me/joinguard/internal/admission"
	"github.com/me/joinguard/internal/challenge"
	"github.com/me/joinguard/internal/config"
	"github.com/me/joinguard/internal/logging"
	"github.com/me/joinguard/internal/messages"
	"github.com/me/joinguard/internal/poller"
	"github.com/me/joinguard/internal/server"
	"github.com/me/joinguard/internal/store"
	"github.com/me/joinguard/internal/telegram"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds how long in-flight webhook requests may take.
const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var (
		mode       string
		port       int
		dbPath     string
		language   string
		webhookURL string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot",
		Long: `Run the bot. In webhook mode the webhook is registered with Telegram and
updates are served on the configured path; in poll mode updates are pulled with
getUpdates. The admin API is served on the same port in both modes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("mode") {
				cfg.Mode = mode
			}
			if flags.Changed("port") {
				cfg.Server.Port = port
			}
			if flags.Changed("db") {
				cfg.Server.DBPath = dbPath
			}
			if flags.Changed("language") {
				cfg.Language = language
			}
			if flags.Changed("webhook-url") {
				cfg.Webhook.URL = webhookURL
			}
			if flags.Changed("token") {
				cfg.Server.AdminToken = flagAdminToken
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration:\n%w", err)
			}

			log := logging.NewLogger(logging.ParseLevel(flagLogLevel), flagLogFormat,
				cfg.Token, cfg.Webhook.Secret, cfg.Server.AdminToken)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, log, nil)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", config.ModeWebhook, "Update delivery: webhook or poll")
	cmd.Flags().IntVar(&port, "port", 8080, "HTTP port (or PORT env)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite audit log path; empty disables it")
	cmd.Flags().StringVar(&language, "language", "ru", "Language of bot messages (ru, en)")
	cmd.Flags().StringVar(&webhookURL, "webhook-url", "", "Public webhook URL (or WEBHOOK_URL env)")

	return cmd
}

// runServe wires the bot from cfg and runs it until ctx is cancelled or a
// component fails. A nil ln listens on cfg.Server.Addr().
func runServe(ctx context.Context, cfg config.Config, log *slog.Logger, ln net.Listener) error {
	gen, err := challenge.NewGenerator(challenge.Config{
		Alphabet: cfg.Captcha.Alphabet,
		Correct:  cfg.Captcha.Correct,
		Size:     cfg.Captcha.Size,
	})
	if err != nil {
		return err
	}
	texts, err := messages.New(cfg.Language)
	if err != nil {
		return err
	}
	tg, err := newTelegramClient(cfg, log)
	if err != nil {
		return err
	}

	me, err := tg.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("check bot token: %w", err)
	}
	log.Info("bot authenticated", "bot_id", me.ID, "username", me.Username)

	var ctrlOpts []admission.Option
	srvOpts := []server.Option{server.WithAdminToken(cfg.Server.AdminToken)}
	if cfg.Server.DBPath != "" {
		st, err := store.NewSQLiteStore(cfg.Server.DBPath, log)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate audit log: %w", err)
		}
		ctrlOpts = append(ctrlOpts, admission.WithRecorder(st))
		srvOpts = append(srvOpts, server.WithStore(st))
	} else {
		log.Info("audit log disabled")
	}
	if cfg.Mode == config.ModeWebhook {
		srvOpts = append(srvOpts, server.WithWebhook(cfg.Webhook.Path, cfg.Webhook.Secret))
	}

	ctrl := admission.New(admission.Config{
		Timeout:     cfg.Captcha.Timeout,
		BanDuration: cfg.Captcha.BanDuration,
	}, gen, telegram.NewGateway(tg, log), texts, log, ctrlOpts...)
	defer ctrl.Stop()

	srv := server.New(ctrl, log, srvOpts...)
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if ln == nil {
		if ln, err = net.Listen("tcp", httpServer.Addr); err != nil {
			return fmt.Errorf("listen %s: %w", httpServer.Addr, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", "addr", ln.Addr().String(), "mode", cfg.Mode)
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	switch cfg.Mode {
	case config.ModeWebhook:
		g.Go(func() error {
			if err := tg.SetWebhook(gctx, webhookConfig(cfg)); err != nil {
				return fmt.Errorf("register webhook: %w", err)
			}
			log.Info("webhook registered", "url", cfg.Webhook.URL)
			return nil
		})
	case config.ModePoll:
		p := poller.New(tg, ctrl, poller.Config{
			Wait:        cfg.Poll.Wait,
			Workers:     cfg.Poll.Workers,
			DropPending: cfg.Webhook.DropPending,
		}, log)
		g.Go(func() error {
			return p.Run(gctx)
		})
	}

	err = g.Wait()
	log.Info("server stopped", "pending_sessions", ctrl.Stats().PendingSessions)
	return err
}

func newTelegramClient(cfg config.Config, log *slog.Logger) (*telegram.Client, error) {
	retry := telegram.DefaultRetryPolicy()
	retry.MaxAttempts = cfg.Telegram.MaxAttempts
	return telegram.NewClient(telegram.ClientConfig{
		APIURL:         cfg.Telegram.APIURL,
		Token:          cfg.Token,
		RequestTimeout: cfg.Telegram.RequestTimeout,
		RateLimit:      cfg.Telegram.RateLimit,
		RateBurst:      cfg.Telegram.RateBurst,
		Retry:          retry,
	}, log)
}

func webhookConfig(cfg config.Config) telegram.WebhookConfig {
	return telegram.WebhookConfig{
		URL:                cfg.Webhook.URL,
		SecretToken:        cfg.Webhook.Secret,
		MaxConnections:     cfg.Webhook.MaxConnections,
		DropPendingUpdates: cfg.Webhook.DropPending,
	}
}
