package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/message-inserter/message-inserter/internal/snippets"
	"github.com/message-inserter/message-inserter/internal/store"
)

func newInitCmd(a *app) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Start the server and show integration instructions",
		Long: `Start the message-inserter server and show how to embed a region.

Pick your framework and a region, and init prints the embed code for it
before starting the server.

Example:
  mi init
  mi init --port 8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.port == 0 {
				opts.port = a.cfg.Port
			}
			if opts.token == "" {
				opts.token = a.cfg.AdminToken
			}

			fw := snippets.FrameworkHTML
			region := store.RegionPopup
			if interactive() {
				var err error
				if fw, err = promptFramework(); err != nil {
					return err
				}
				if region, err = promptRegion(); err != nil {
					return err
				}
			}

			return a.withStore(func(s *store.SQLiteStore) error {
				srv, err := a.newServer(cmd.Context(), s, opts)
				if err != nil {
					return err
				}

				serverURL := opts.publicURL
				if serverURL == "" {
					serverURL = fmt.Sprintf("http://localhost:%d", opts.port)
				}
				if err := printStartupInstructions(cmd.OutOrStdout(), fw, region, serverURL, srv.Token()); err != nil {
					return err
				}

				return a.run(cmd.Context(), srv)
			})
		},
	}

	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "port to listen on (default $MI_PORT or 8080)")
	cmd.Flags().StringVar(&opts.publicURL, "public-url", "", "public URL of this server")
	cmd.Flags().StringVar(&opts.token, "token", "", "fixed admin token (default $MI_ADMIN_TOKEN, else random per start)")

	return cmd
}

func printStartupInstructions(w io.Writer, fw snippets.Framework, region, serverURL, token string) error {
	files, err := snippets.Generate(fw, snippets.Config{Region: region, ServerURL: serverURL})
	if err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Server running at %s\n", serverURL)
	fmt.Fprintf(w, "Admin API: %s/admin/api/messages?token=%s\n", serverURL, token)
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "1. Deploy message-inserter to get a public URL")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "   Options: Fly.io, Cloudflare Tunnel, VPS with Caddy")
	fmt.Fprintln(w, "   Set MI_SECURE_COOKIES=true when serving over HTTPS to another domain")
	fmt.Fprintln(w)

	fmt.Fprintf(w, "2. Add the %q region to your site\n", region)
	fmt.Fprintln(w)
	printSnippets(w, files)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "3. Create a message for it")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "   mi create --title \"Hello\" --region %s --type editor --content \"<p>Hello!</p>\" --publish\n", region)
	fmt.Fprintln(w)

	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  list             List all messages")
	fmt.Fprintln(w, "  preview          Check which messages a visitor would see")
	fmt.Fprintln(w, "  stats [id]       Show views and dismissals")
	fmt.Fprintln(w, "  token            Show admin API URL")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Press Ctrl+C to stop")
	return nil
}

func promptFramework() (snippets.Framework, error) {
	names := map[snippets.Framework]string{
		snippets.FrameworkHTML:   "HTML (vanilla JavaScript)",
		snippets.FrameworkReact:  "React / Next.js",
		snippets.FrameworkVue:    "Vue",
		snippets.FrameworkSvelte: "Svelte",
		snippets.FrameworkPHP:    "WordPress / PHP",
	}

	items := make([]string, len(snippets.Frameworks))
	for i, fw := range snippets.Frameworks {
		items[i] = names[fw]
	}

	idx, err := promptSelect("Your framework", items)
	if err != nil {
		return "", err
	}
	return snippets.Frameworks[idx], nil
}

func promptRegion() (string, error) {
	idx, err := promptSelect("Region", store.Regions)
	if err != nil {
		return "", err
	}
	return store.Regions[idx], nil
}
