package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/message-inserter/message-inserter/internal/store"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <draft|published>",
		Short: "Publish or unpublish a message",
		Long: `Set a message's status. Only published messages are served.

Example:
  mi status 3 published
  mi status 3 draft`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(store.StatusDraft), string(store.StatusPublished)},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			status := store.MessageStatus(args[1])
			if status != store.StatusDraft && status != store.StatusPublished {
				return fmt.Errorf("invalid status %q: use draft or published", args[1])
			}

			return a.withStore(func(s *store.SQLiteStore) error {
				ctx := context.Background()

				m, err := s.GetMessage(ctx, id)
				if err != nil {
					return notFound(id, err)
				}

				if m.Status == status {
					fmt.Fprintf(cmd.OutOrStdout(), "Message %d is already %s\n", id, status)
					return nil
				}

				if err := s.SetStatus(ctx, id, status); err != nil {
					return fmt.Errorf("failed to set status: %w", err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Message %d '%s' is now %s\n", id, m.Title, status)
				return nil
			})
		},
	}
}
