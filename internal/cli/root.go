// Package cli implements the joinguard command line: the bot server itself
// plus webhook management and admin queries against a running instance.
package cli

import (
	"log/slog"
	"os"

	"github.com/me/joinguard/internal/logging"
	"github.com/spf13/cobra"
)

var (
	flagServer     string
	flagAdminToken string
	flagConfig     string
	flagDebug      bool
	flagLogLevel   string
	flagLogFormat  string

	logger *slog.Logger
	client *Client
)

// defaultServer returns the admin API URL, checking JOINGUARD_SERVER first.
func defaultServer() string {
	if s := os.Getenv("JOINGUARD_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

// NewRootCmd creates the root cobra command for the joinguard CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "joinguard",
		Short: "joinguard: captcha gate for Telegram groups",
		Long:  "joinguard mutes users joining a Telegram group until they solve a challenge, and removes them for a while if they fail or ignore it.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.NewLogger(logging.ParseLevel(flagLogLevel), flagLogFormat, flagAdminToken)
			client = NewClient(flagServer, flagAdminToken, logger)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagServer, "server", defaultServer(), "joinguard admin API URL (or JOINGUARD_SERVER env)")
	root.PersistentFlags().StringVar(&flagAdminToken, "token", os.Getenv("JOINGUARD_ADMIN_TOKEN"), "Admin API bearer token (or JOINGUARD_ADMIN_TOKEN env)")
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to YAML config file")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newServeCmd(),
		newWebhookCmd(),
		newStatusCmd(),
		newOutcomesCmd(),
	)

	return root
}
