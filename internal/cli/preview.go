package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/message-inserter/message-inserter/internal/display"
	"github.com/message-inserter/message-inserter/internal/store"
)

type previewOptions struct {
	region     string
	visits     int
	conditions string
	dismissed  string
	shown      string
	at         string
}

func newPreviewCmd(a *app) *cobra.Command {
	var opts previewOptions

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show which messages a visitor would see in a region",
		Long: `Evaluate every message in a region against a simulated visitor and
report which would render and why the others are skipped.

Examples:
  mi preview --region popup --visits 3
  mi preview --region article_bottom --conditions is_single --dismissed 4,7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := opts.input()
			if err != nil {
				return err
			}

			return a.withStore(func(s *store.SQLiteStore) error {
				msgs, err := s.ListMessages(context.Background())
				if err != nil {
					return fmt.Errorf("failed to list messages: %w", err)
				}
				msgs = inRegion(msgs, opts.region)

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "REGION: %s\n", opts.region)
				fmt.Fprintf(out, "VISIT: %d\n", in.Visits)
				pages := "none"
				if opts.conditions != "" {
					pages = strings.Join(splitList(opts.conditions), ", ")
				}
				fmt.Fprintf(out, "PAGE CONDITIONS: %s\n", pages)
				fmt.Fprintln(out)

				if len(msgs) == 0 {
					fmt.Fprintln(out, "No messages in this region.")
					return nil
				}

				rendered := make(map[int64]bool)
				for _, m := range display.Select(msgs, opts.region, in) {
					rendered[m.ID] = true
				}

				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tTITLE\tRESULT")
				for _, m := range msgs {
					fmt.Fprintf(w, "%d\t%s\t%s\n", m.ID, truncate(m.Title, 32), previewResult(m, in, rendered[m.ID]))
				}
				return w.Flush()
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.region, "region", "r", "", "region to evaluate (required)")
	f.IntVar(&opts.visits, "visits", 1, "the visitor's visit count")
	f.StringVarP(&opts.conditions, "conditions", "c", "", "comma-separated page conditionals true on the page")
	f.StringVar(&opts.dismissed, "dismissed", "", "comma-separated message ids the visitor has dismissed")
	f.StringVar(&opts.shown, "shown", "", "comma-separated popup ids already shown this session")
	f.StringVar(&opts.at, "at", "", "evaluate at this time (RFC 3339, default now)")
	cmd.MarkFlagRequired("region")

	return cmd
}

func (o previewOptions) input() (display.Input, error) {
	if o.visits < 1 {
		return display.Input{}, fmt.Errorf("--visits must be at least 1")
	}

	dismissed, err := parseIDs(o.dismissed)
	if err != nil {
		return display.Input{}, err
	}
	shown, err := parseIDs(o.shown)
	if err != nil {
		return display.Input{}, err
	}

	now := time.Now()
	if o.at != "" {
		at, err := parseTime("at", o.at)
		if err != nil {
			return display.Input{}, err
		}
		now = *at
	}

	return display.Input{
		Now:        now,
		Visits:     o.visits,
		Conditions: display.Conditions(splitList(o.conditions)...),
		Dismissed:  func(id int64) bool { return dismissed[id] },
		Shown:      func(id int64) bool { return shown[id] },
	}, nil
}

func previewResult(m *store.Message, in display.Input, rendered bool) string {
	if rendered {
		return "renders"
	}
	d := display.Evaluate(m, in)
	if d.Eligible {
		return "eligible, but the popup region shows one message"
	}
	return "skipped: " + string(d.Reason)
}
