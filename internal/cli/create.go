package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/message-inserter/message-inserter/internal/breakpoint"
	"github.com/message-inserter/message-inserter/internal/store"
)

type createOptions struct {
	title        string
	region       string
	msgType      string
	content      string
	imageURL     string
	imageAlt     string
	linkURL      string
	buttonText   string
	buttonURL    string
	minWidth     int
	maxWidth     int
	conditions   string
	visits       string
	dismissDays  int
	dismissHours int
	showOnce     bool
	menuOrder    int
	background   string
	textColor    string
	startsAt     string
	endsAt       string
	publish      bool
}

func newCreateCmd(a *app) *cobra.Command {
	var opts createOptions

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a message",
		Long: `Create a message with a single screen-size variant. Use 'mi import' to
load messages with several variants from a YAML file.

New messages are drafts unless --publish is given.

Examples:
  mi create --title "Newsletter" --region popup --type image \
    --image /img/join.png --alt "Join" --button-text Subscribe --button-url /join \
    --visits ">=3" --dismiss-days 7 --publish
  mi create --title "Sale" --region sitewide_banner --type banner \
    --content "20% off today" --bg "#cc0000" --fg "#ffffff" --dismiss-hours 12`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.promptMissing(); err != nil {
				return err
			}

			m, err := opts.message()
			if err != nil {
				return err
			}

			return a.withStore(func(s *store.SQLiteStore) error {
				created, err := s.CreateMessage(context.Background(), m)
				if err != nil {
					return fmt.Errorf("failed to create message: %w", err)
				}

				a.logger.Debug("message created", zap.Int64("message_id", created.ID))
				printCreated(cmd.OutOrStdout(), created)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.title, "title", "t", "", "message title (required)")
	f.StringVarP(&opts.region, "region", "r", "", "region name, e.g. popup, homepage_top, sitewide_banner")
	f.StringVar(&opts.msgType, "type", "", "message type: image, editor or banner")
	f.StringVar(&opts.content, "content", "", "HTML content (editor) or text (banner)")
	f.StringVar(&opts.imageURL, "image", "", "image URL (image type)")
	f.StringVar(&opts.imageAlt, "alt", "", "image alt text")
	f.StringVar(&opts.linkURL, "link", "", "URL the message links to")
	f.StringVar(&opts.buttonText, "button-text", "", "call-to-action button label")
	f.StringVar(&opts.buttonURL, "button-url", "", "call-to-action button URL")
	f.IntVar(&opts.minWidth, "min-width", -1, "minimum viewport width in px")
	f.IntVar(&opts.maxWidth, "max-width", -1, "maximum viewport width in px")
	f.StringVar(&opts.conditions, "conditions", "", "comma-separated page conditionals (any must match)")
	f.StringVar(&opts.visits, "visits", "", `visit count rule, e.g. ">=3" or "<=1"`)
	f.IntVar(&opts.dismissDays, "dismiss-days", 0, "days a dismissal lasts")
	f.IntVar(&opts.dismissHours, "dismiss-hours", 0, "hours a dismissal lasts")
	f.BoolVar(&opts.showOnce, "show-once", false, "show a popup at most once per browser session")
	f.IntVar(&opts.menuOrder, "order", 0, "display order within the region")
	f.StringVar(&opts.background, "bg", "", "banner background colour")
	f.StringVar(&opts.textColor, "fg", "", "banner text colour")
	f.StringVar(&opts.startsAt, "starts", "", "start time (RFC 3339)")
	f.StringVar(&opts.endsAt, "ends", "", "end time (RFC 3339)")
	f.BoolVar(&opts.publish, "publish", false, "publish immediately")

	return cmd
}

// promptMissing asks for region and type when run from a terminal.
func (o *createOptions) promptMissing() error {
	if !interactive() {
		return nil
	}

	if o.region == "" {
		region, err := promptRegion()
		if err != nil {
			return err
		}
		o.region = region
	}

	if o.msgType == "" {
		types := []string{string(store.TypeImage), string(store.TypeEditor), string(store.TypeBanner)}
		idx, err := promptSelect("Message type", types)
		if err != nil {
			return err
		}
		o.msgType = types[idx]
	}

	return nil
}

func (o *createOptions) message() (*store.Message, error) {
	m := &store.Message{
		Title:        o.title,
		Region:       o.region,
		Type:         store.MessageType(o.msgType),
		Status:       store.StatusDraft,
		MenuOrder:    o.menuOrder,
		Conditionals: splitList(o.conditions),
		DismissDays:  o.dismissDays,
		DismissHours: o.dismissHours,
		ShowOnce:     o.showOnce,
		BannerColors: store.BannerColors{Background: o.background, Text: o.textColor},
	}
	if o.publish {
		m.Status = store.StatusPublished
	}

	size := store.ScreenSize{
		ImageURL: o.imageURL,
		ImageAlt: o.imageAlt,
		Content:  o.content,
		LinkURL:  o.linkURL,
	}
	if o.minWidth >= 0 {
		size.MinWidth = &o.minWidth
	}
	if o.maxWidth >= 0 {
		size.MaxWidth = &o.maxWidth
	}
	if o.buttonText != "" || o.buttonURL != "" {
		size.Button = &store.Button{Text: o.buttonText, URL: o.buttonURL}
	}
	m.ScreenSizes = []store.ScreenSize{size}

	if o.visits != "" {
		rule, err := parseVisitRule(o.visits)
		if err != nil {
			return nil, err
		}
		m.Session = rule
	}

	var err error
	if m.StartsAt, err = parseTime("starts", o.startsAt); err != nil {
		return nil, err
	}
	if m.EndsAt, err = parseTime("ends", o.endsAt); err != nil {
		return nil, err
	}

	return m, nil
}

// parseVisitRule parses ">=3" or "<=1".
func parseVisitRule(s string) (*store.SessionRule, error) {
	s = strings.ReplaceAll(s, " ", "")
	for _, op := range []string{store.OpAtLeast, store.OpAtMost} {
		if rest, ok := strings.CutPrefix(s, op); ok {
			n, err := strconv.Atoi(rest)
			if err != nil {
				return nil, fmt.Errorf("invalid visit count in %q", s)
			}
			return &store.SessionRule{Operator: op, Threshold: n}, nil
		}
	}
	return nil, fmt.Errorf(`invalid visit rule %q: use ">=N" or "<=N"`, s)
}

func parseTime(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s time %q: use RFC 3339, e.g. 2024-06-01T00:00:00Z", name, value)
	}
	return &t, nil
}

func printCreated(w io.Writer, m *store.Message) {
	fmt.Fprintf(w, "Created message %d '%s' in region %s (%s, %s)\n", m.ID, m.Title, m.Region, m.Type, m.Status)
	for i, size := range m.ScreenSizes {
		q := breakpoint.MediaQuery(size.MinWidth, size.MaxWidth)
		if q == "" {
			q = "all widths"
		}
		fmt.Fprintf(w, "  %d: %s\n", i, q)
	}
	if m.Session != nil {
		fmt.Fprintf(w, "  Visits: %s %d\n", m.Session.Operator, m.Session.Threshold)
	}
	if m.Dismissible() {
		fmt.Fprintf(w, "  Dismiss: %s\n", formatExpiry(m.DismissDays, m.DismissHours))
	}
	if m.Status == store.StatusDraft {
		fmt.Fprintf(w, "\nPublish with: mi status %d published\n", m.ID)
	}
}

func formatExpiry(days, hours int) string {
	if days == 0 && hours == 0 {
		return "until the browser closes"
	}
	return fmt.Sprintf("%dd %dh", days, hours)
}
