package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/message-inserter/message-inserter/internal/breakpoint"
	"github.com/message-inserter/message-inserter/internal/store"
)

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a message's settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return a.withStore(func(s *store.SQLiteStore) error {
				m, err := s.GetMessage(context.Background(), id)
				if err != nil {
					return notFound(id, err)
				}
				printMessage(cmd.OutOrStdout(), m)
				return nil
			})
		},
	}
}

func printMessage(w io.Writer, m *store.Message) {
	fmt.Fprintf(w, "MESSAGE: %d %s\n", m.ID, m.Title)
	fmt.Fprintf(w, "REGION: %s\n", m.Region)
	fmt.Fprintf(w, "TYPE: %s\n", m.Type)
	fmt.Fprintf(w, "STATUS: %s\n", m.Status)
	fmt.Fprintf(w, "ORDER: %d\n", m.MenuOrder)

	conditions := "any page"
	if len(m.Conditionals) > 0 {
		conditions = strings.Join(m.Conditionals, " or ")
	}
	fmt.Fprintf(w, "PAGES: %s\n", conditions)

	if m.Session != nil {
		fmt.Fprintf(w, "VISITS: %s %d\n", m.Session.Operator, m.Session.Threshold)
	}
	if m.Dismissible() {
		fmt.Fprintf(w, "DISMISS: %s\n", formatExpiry(m.DismissDays, m.DismissHours))
	}
	if m.ShowOnce {
		fmt.Fprintln(w, "SHOW ONCE: per browser session")
	}
	if m.StartsAt != nil {
		fmt.Fprintf(w, "STARTS: %s\n", m.StartsAt.Format("2006-01-02 15:04 MST"))
	}
	if m.EndsAt != nil {
		fmt.Fprintf(w, "ENDS: %s\n", m.EndsAt.Format("2006-01-02 15:04 MST"))
	}
	if m.Type == store.TypeBanner {
		fmt.Fprintf(w, "COLORS: background=%s text=%s\n", orNone(m.BannerColors.Background), orNone(m.BannerColors.Text))
	}
	fmt.Fprintf(w, "UPDATED: %s\n", humanize.Time(m.UpdatedAt))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "SCREEN SIZES")
	fmt.Fprintln(w, strings.Repeat("─", 60))
	for i, size := range m.ScreenSizes {
		q := breakpoint.MediaQuery(size.MinWidth, size.MaxWidth)
		if q == "" {
			q = "all widths"
		}
		fmt.Fprintf(w, "%d  %s\n", i, q)
		if size.ImageURL != "" {
			fmt.Fprintf(w, "   image: %s", size.ImageURL)
			if size.ImageAlt != "" {
				fmt.Fprintf(w, " (%s)", size.ImageAlt)
			}
			fmt.Fprintln(w)
		}
		if size.Content != "" {
			fmt.Fprintf(w, "   content: %s\n", truncate(size.Content, 60))
		}
		if size.LinkURL != "" {
			fmt.Fprintf(w, "   link: %s\n", size.LinkURL)
		}
		if size.Button != nil {
			fmt.Fprintf(w, "   button: %s -> %s\n", size.Button.Text, size.Button.URL)
		}
	}
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
