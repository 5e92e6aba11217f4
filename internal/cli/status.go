package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

type healthView struct {
	Status          string `json:"status"`
	Version         string `json:"version"`
	Uptime          string `json:"uptime"`
	Delivery        string `json:"delivery"`
	PendingSessions int    `json:"pending_sessions"`
	ArmedTimers     int    `json:"armed_timers"`
	Store           string `json:"store"`
}

type pendingView struct {
	GroupID     int64     `json:"group_id"`
	UserID      int64     `json:"user_id"`
	UserName    string    `json:"user_name"`
	ChallengeID string    `json:"challenge_id"`
	CreatedAt   time.Time `json:"created_at"`
}

func newStatusCmd() *cobra.Command {
	var showSessions bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of a running bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get("/api/v1/health", nil)
			if err != nil {
				return err
			}
			var h healthView
			if err := json.Unmarshal(resp.Data, &h); err != nil {
				return fmt.Errorf("parse health: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Status:    %s (v%s, up %s)\n", h.Status, h.Version, h.Uptime)
			fmt.Fprintf(out, "Delivery:  %s\n", h.Delivery)
			fmt.Fprintf(out, "Audit log: %s\n", h.Store)
			fmt.Fprintf(out, "Pending:   %d sessions, %d timers armed\n", h.PendingSessions, h.ArmedTimers)

			if !showSessions || h.PendingSessions == 0 {
				return nil
			}

			resp, err = client.Get("/api/v1/sessions", nil)
			if err != nil {
				return err
			}
			var sessions []pendingView
			if err := json.Unmarshal(resp.Data, &sessions); err != nil {
				return fmt.Errorf("parse sessions: %w", err)
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "%-16s  %-12s  %-24s  %s\n", "GROUP", "USER", "NAME", "JOINED")
			for _, s := range sessions {
				fmt.Fprintf(out, "%-16d  %-12d  %-24s  %s\n",
					s.GroupID, s.UserID, truncate(s.UserName, 24), humanize.Time(s.CreatedAt))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showSessions, "sessions", false, "List pending sessions")
	return cmd
}

// truncate shortens s to n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
