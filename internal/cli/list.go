package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/message-inserter/message-inserter/internal/store"
)

func newListCmd(a *app) *cobra.Command {
	var region string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all messages",
		Long:  `List all messages with their region, status and view counts.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *store.SQLiteStore) error {
				ctx := context.Background()

				msgs, err := s.ListMessages(ctx)
				if err != nil {
					return fmt.Errorf("failed to list messages: %w", err)
				}

				out := cmd.OutOrStdout()
				if region != "" {
					msgs = inRegion(msgs, region)
				}

				if len(msgs) == 0 {
					fmt.Fprintln(out, "No messages yet.")
					fmt.Fprintln(out)
					fmt.Fprintln(out, "Create one with 'mi create' or load a file with 'mi import'.")
					return nil
				}

				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tTITLE\tREGION\tTYPE\tSTATUS\tORDER\tVIEWS\tDISMISSALS\tUPDATED")

				for _, m := range msgs {
					stats, err := s.GetMessageStats(ctx, m.ID)
					if err != nil {
						return fmt.Errorf("failed to get stats for message %d: %w", m.ID, err)
					}

					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
						m.ID,
						truncate(m.Title, 32),
						m.Region,
						m.Type,
						strings.ToUpper(string(m.Status)),
						m.MenuOrder,
						humanize.Comma(int64(stats.Views)),
						humanize.Comma(int64(stats.Dismissals)),
						humanize.Time(m.UpdatedAt),
					)
				}

				return w.Flush()
			})
		},
	}

	cmd.Flags().StringVarP(&region, "region", "r", "", "only list messages in this region")

	return cmd
}

func inRegion(msgs []*store.Message, region string) []*store.Message {
	var out []*store.Message
	for _, m := range msgs {
		if m.Region == region {
			out = append(out, m)
		}
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
