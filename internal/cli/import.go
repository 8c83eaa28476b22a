package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/message-inserter/message-inserter/internal/messagefile"
	"github.com/message-inserter/message-inserter/internal/store"
)

func newImportCmd(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Create messages from a YAML file",
		Long: `Create every message listed in a YAML message file. Use "-" to read
from stdin. The whole file is validated before anything is written.

Example file:
  messages:
    - title: Newsletter popup
      region: popup
      type: image
      status: published
      session: {operator: ">=", threshold: 3}
      dismiss: {days: 7}
      screen_sizes:
        - max_width: 767
          image_url: /img/small.png
        - min_width: 768
          image_url: /img/large.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", args[0], err)
				}
				defer f.Close()
				r = f
			}

			msgs, err := messagefile.Read(r)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if dryRun {
				fmt.Fprintf(out, "%d messages are valid\n", len(msgs))
				return nil
			}

			return a.withStore(func(s *store.SQLiteStore) error {
				ctx := context.Background()
				for _, m := range msgs {
					created, err := s.CreateMessage(ctx, m)
					if err != nil {
						return fmt.Errorf("failed to create %q: %w", m.Title, err)
					}
					fmt.Fprintf(out, "Created message %d '%s' (%s, %s)\n", created.ID, created.Title, created.Region, created.Status)
				}
				a.logger.Info("messages imported", zap.Int("count", len(msgs)), zap.String("file", args[0]))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the file without writing")

	return cmd
}
