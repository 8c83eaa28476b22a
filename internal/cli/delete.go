package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/message-inserter/message-inserter/internal/store"
)

func newDeleteCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a message and its events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return a.withStore(func(s *store.SQLiteStore) error {
				ctx := context.Background()

				m, err := s.GetMessage(ctx, id)
				if err != nil {
					return notFound(id, err)
				}

				if !yes {
					if !interactive() {
						return fmt.Errorf("refusing to delete without --yes")
					}
					if !promptConfirm(fmt.Sprintf("Delete message %d '%s'", m.ID, m.Title)) {
						fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
						return nil
					}
				}

				if err := s.DeleteMessage(ctx, id); err != nil {
					return fmt.Errorf("failed to delete message: %w", err)
				}

				a.logger.Info("message deleted", zap.Int64("message_id", id))
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted message %d '%s'\n", m.ID, m.Title)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")

	return cmd
}
