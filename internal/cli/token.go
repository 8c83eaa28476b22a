package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newTokenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Show admin API URL with access token",
		Long: `Show the admin API URL with the running server's access token.

Use this when you've scrolled past the startup message or need to
call the admin API from a script.

Example:
  mi token`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(a.tokenFilePath())
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("no server running. Start with: mi")
				}
				return fmt.Errorf("failed to read token file: %w", err)
			}

			token := strings.TrimSpace(string(data))
			if token == "" {
				return fmt.Errorf("token file is empty. Restart the server with: mi")
			}

			serverURL := a.savedServerURL()
			if serverURL == "" {
				serverURL = fmt.Sprintf("http://localhost:%d", a.cfg.Port)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Admin API: %s/admin/api/messages?token=%s\n", serverURL, token)
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Or send the header: Authorization: Bearer %s\n", token)
			return nil
		},
	}
}
