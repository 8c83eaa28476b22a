package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/message-inserter/message-inserter/internal/stats"
	"github.com/message-inserter/message-inserter/internal/store"
)

func newStatsCmd(a *app) *cobra.Command {
	var confidence float64

	cmd := &cobra.Command{
		Use:   "stats [id]",
		Short: "Show views and dismissals",
		Long: `Show unique views, dismissals and the dismiss rate with its Wilson
confidence interval. Without an id, every message is listed.

Examples:
  mi stats
  mi stats 3 --confidence 0.99`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !(confidence > 0 && confidence < 1) {
				return fmt.Errorf("--confidence must be between 0 and 1, got %g", confidence)
			}

			return a.withStore(func(s *store.SQLiteStore) error {
				ctx := context.Background()
				out := cmd.OutOrStdout()

				var msgs []*store.Message
				if len(args) == 1 {
					id, err := parseID(args[0])
					if err != nil {
						return err
					}
					m, err := s.GetMessage(ctx, id)
					if err != nil {
						return notFound(id, err)
					}
					msgs = []*store.Message{m}
				} else {
					var err error
					if msgs, err = s.ListMessages(ctx); err != nil {
						return fmt.Errorf("failed to list messages: %w", err)
					}
				}

				if len(msgs) == 0 {
					fmt.Fprintln(out, "No messages yet.")
					return nil
				}

				printStatsHeader(out, confidence)
				for _, m := range msgs {
					ms, err := s.GetMessageStats(ctx, m.ID)
					if err != nil {
						return fmt.Errorf("failed to get stats: %w", err)
					}
					printStatsRow(out, m, stats.AnalyzeAt(ms, confidence))
				}
				return nil
			})
		},
	}

	cmd.Flags().Float64Var(&confidence, "confidence", stats.DefaultConfidence, "confidence level of the interval, between 0 and 1")

	return cmd
}

func printStatsHeader(w io.Writer, confidence float64) {
	fmt.Fprintf(w, "ID    MESSAGE           VIEWS    DISMISSALS  RATE     %.4g%% CI\n", confidence*100)
	fmt.Fprintln(w, strings.Repeat("─", 66))
}

func printStatsRow(w io.Writer, m *store.Message, r stats.Result) {
	ciStr := fmt.Sprintf("[%.1f%%, %.1f%%]", r.CILower*100, r.CIUpper*100)
	if r.Views == 0 {
		ciStr = "N/A"
	}

	fmt.Fprintf(w, "%-4d  %-16s  %-7s  %-10s  %-7s  %s\n",
		m.ID,
		truncate(m.Title, 16),
		humanize.Comma(int64(r.Views)),
		humanize.Comma(int64(r.Dismissals)),
		formatPercent(r.DismissRate),
		ciStr,
	)
}

func formatPercent(rate float64) string {
	if rate == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.2f%%", rate*100)
}
