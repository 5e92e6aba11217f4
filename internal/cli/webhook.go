package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/me/joinguard/internal/config"
	"github.com/me/joinguard/internal/telegram"
	"github.com/spf13/cobra"
)

func newWebhookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Manage the bot's Telegram webhook",
	}
	cmd.AddCommand(newWebhookSetCmd(), newWebhookDeleteCmd(), newWebhookInfoCmd())
	return cmd
}

// botClient loads configuration and returns a Bot API client for it.
func botClient() (config.Config, *telegram.Client, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, nil, err
	}
	if cfg.Token == "" {
		return cfg, nil, fmt.Errorf("bot token is required (BOT_TOKEN env or token in config)")
	}
	tg, err := newTelegramClient(cfg, logger)
	return cfg, tg, err
}

func newWebhookSetCmd() *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Register the webhook URL with Telegram",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, tg, err := botClient()
			if err != nil {
				return err
			}
			if url != "" {
				cfg.Webhook.URL = url
			}
			if cfg.Webhook.URL == "" {
				return fmt.Errorf("webhook URL is required (--url or WEBHOOK_URL env)")
			}
			if err := tg.SetWebhook(cmd.Context(), webhookConfig(cfg)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Webhook set to %s\n", cfg.Webhook.URL)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "Public webhook URL")
	return cmd
}

func newWebhookDeleteCmd() *cobra.Command {
	var drop bool
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove the webhook",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tg, err := botClient()
			if err != nil {
				return err
			}
			if err := tg.DeleteWebhook(cmd.Context(), drop); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Webhook deleted")
			return nil
		},
	}
	cmd.Flags().BoolVar(&drop, "drop-pending", false, "Discard updates queued at Telegram")
	return cmd
}

func newWebhookInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the current webhook registration",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tg, err := botClient()
			if err != nil {
				return err
			}
			info, err := tg.GetWebhookInfo(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			url := info.URL
			if url == "" {
				url = "(none, polling)"
			}
			fmt.Fprintf(out, "URL:             %s\n", url)
			fmt.Fprintf(out, "Pending updates: %s\n", humanize.Comma(int64(info.PendingUpdateCount)))
			if info.MaxConnections > 0 {
				fmt.Fprintf(out, "Max connections: %d\n", info.MaxConnections)
			}
			if info.LastErrorDate > 0 {
				fmt.Fprintf(out, "Last error:      %s (%s)\n", info.LastErrorMessage,
					humanize.Time(time.Unix(info.LastErrorDate, 0)))
			}
			return nil
		},
	}
}
