package cli

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/me/joinguard/pkg/model"
	"github.com/spf13/cobra"
)

func newOutcomesCmd() *cobra.Command {
	var (
		groupID int64
		outcome string
		limit   int
		offset  int
		summary bool
	)

	cmd := &cobra.Command{
		Use:   "outcomes",
		Short: "Show the audit log of resolved challenges",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if groupID != 0 {
				q.Set("group_id", strconv.FormatInt(groupID, 10))
			}
			out := cmd.OutOrStdout()

			if summary {
				resp, err := client.Get("/api/v1/outcomes/summary", q)
				if err != nil {
					return err
				}
				var counts map[model.Outcome]int
				if err := json.Unmarshal(resp.Data, &counts); err != nil {
					return fmt.Errorf("parse summary: %w", err)
				}
				for _, o := range []model.Outcome{model.OutcomeVerified, model.OutcomeRejected, model.OutcomeExpired} {
					fmt.Fprintf(out, "%-10s %s\n", o, humanize.Comma(int64(counts[o])))
				}
				return nil
			}

			if outcome != "" {
				q.Set("outcome", outcome)
			}
			q.Set("limit", strconv.Itoa(limit))
			q.Set("offset", strconv.Itoa(offset))

			resp, err := client.Get("/api/v1/outcomes", q)
			if err != nil {
				return err
			}
			var recs []model.OutcomeRecord
			if err := json.Unmarshal(resp.Data, &recs); err != nil {
				return fmt.Errorf("parse outcomes: %w", err)
			}
			if len(recs) == 0 {
				fmt.Fprintln(out, "No outcomes recorded.")
				return nil
			}

			fmt.Fprintf(out, "%-16s  %-12s  %-24s  %-10s  %s\n", "GROUP", "USER", "NAME", "OUTCOME", "RESOLVED")
			for _, r := range recs {
				fmt.Fprintf(out, "%-16d  %-12d  %-24s  %-10s  %s\n",
					r.GroupID, r.UserID, truncate(r.UserName, 24), r.Outcome, humanize.Time(r.ResolvedAt))
			}
			if p := resp.Pagination; p != nil {
				fmt.Fprintf(out, "\nShowing %d of %d", len(recs), p.Total)
				if p.HasMore {
					fmt.Fprintf(out, " (use --offset %d for more)", p.Offset+p.Limit)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&groupID, "group", 0, "Only this group")
	cmd.Flags().StringVar(&outcome, "outcome", "", "Only this outcome (VERIFIED, REJECTED, EXPIRED)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Max results")
	cmd.Flags().IntVar(&offset, "offset", 0, "Offset for pagination")
	cmd.Flags().BoolVar(&summary, "summary", false, "Show counts per outcome instead of entries")
	return cmd
}
