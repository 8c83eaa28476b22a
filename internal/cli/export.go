package cli

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/message-inserter/message-inserter/internal/messagefile"
	"github.com/message-inserter/message-inserter/internal/store"
)

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export messages or raw event data",
	}

	cmd.AddCommand(newExportMessagesCmd(a), newExportEventsCmd(a))
	return cmd
}

func newExportMessagesCmd(a *app) *cobra.Command {
	var region string

	cmd := &cobra.Command{
		Use:   "messages",
		Short: "Export messages as a YAML message file",
		Long: `Export messages in the format read by 'mi import'.

Example:
  mi export messages > messages.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *store.SQLiteStore) error {
				msgs, err := s.ListMessages(context.Background())
				if err != nil {
					return fmt.Errorf("failed to list messages: %w", err)
				}
				if region != "" {
					msgs = inRegion(msgs, region)
				}
				return messagefile.Write(cmd.OutOrStdout(), msgs)
			})
		},
	}

	cmd.Flags().StringVarP(&region, "region", "r", "", "only export messages in this region")

	return cmd
}

func newExportEventsCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "events <id>",
		Short: "Export raw view and dismiss events for a message",
		Long: `Export raw event data in CSV or JSON format.

Examples:
  mi export events 3 --format csv > popup-events.csv
  mi export events 3 --format json > popup-events.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "csv" && format != "json" {
				return fmt.Errorf("invalid format: must be 'csv' or 'json'")
			}

			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return a.withStore(func(s *store.SQLiteStore) error {
				ctx := context.Background()

				if _, err := s.GetMessage(ctx, id); err != nil {
					return notFound(id, err)
				}

				events, err := s.GetEvents(ctx, id)
				if err != nil {
					return fmt.Errorf("failed to get events: %w", err)
				}

				if format == "csv" {
					return exportCSV(cmd.OutOrStdout(), events)
				}
				return exportJSON(cmd.OutOrStdout(), id, events)
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "csv", "output format (csv or json)")

	return cmd
}

func exportCSV(out io.Writer, events []*store.Event) error {
	w := csv.NewWriter(out)

	if err := w.Write([]string{"timestamp", "message_id", "event_type", "visitor_id"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, e := range events {
		row := []string{
			strconv.FormatInt(e.CreatedAt.Unix(), 10),
			strconv.FormatInt(e.MessageID, 10),
			e.EventType,
			e.VisitorID,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

type jsonExport struct {
	MessageID int64       `json:"message_id"`
	Events    []jsonEvent `json:"events"`
}

type jsonEvent struct {
	Timestamp int64  `json:"timestamp"`
	EventType string `json:"event_type"`
	VisitorID string `json:"visitor_id"`
}

func exportJSON(out io.Writer, id int64, events []*store.Event) error {
	export := jsonExport{
		MessageID: id,
		Events:    make([]jsonEvent, len(events)),
	}

	for i, e := range events {
		export.Events[i] = jsonEvent{
			Timestamp: e.CreatedAt.Unix(),
			EventType: e.EventType,
			VisitorID: e.VisitorID,
		}
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}
