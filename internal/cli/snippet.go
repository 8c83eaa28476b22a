package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/message-inserter/message-inserter/internal/snippets"
	"github.com/message-inserter/message-inserter/internal/store"
)

func newSnippetCmd(a *app) *cobra.Command {
	var (
		framework  string
		serverURL  string
		conditions string
	)

	cmd := &cobra.Command{
		Use:   "snippet <region>",
		Short: "Generate embed code for a region",
		Long: `Generate copy-paste-ready code that renders a region on your site.

--conditions lists the page conditionals that are true where the snippet
is placed (is_front_page, is_single, ...). The PHP snippet computes them
from WordPress template tags instead.

Examples:
  mi snippet popup --framework html --server-url https://mi.example.com
  mi snippet article_bottom --framework react --conditions is_single`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			region := args[0]

			fw := snippets.Framework(framework)
			if framework == "" {
				if !interactive() {
					return fmt.Errorf("--framework is required (html, react, vue, svelte, php)")
				}
				var err error
				if fw, err = promptFramework(); err != nil {
					return err
				}
			}
			if !knownFramework(fw) {
				return fmt.Errorf("unknown framework %q (html, react, vue, svelte, php)", framework)
			}

			url := serverURL
			if url == "" {
				url = a.savedServerURL()
			}
			if url == "" && interactive() {
				var err error
				if url, err = promptString("Server URL", fmt.Sprintf("http://localhost:%d", a.cfg.Port)); err != nil {
					return err
				}
			}
			if url == "" {
				url = fmt.Sprintf("http://localhost:%d", a.cfg.Port)
			}

			files, err := snippets.Generate(fw, snippets.Config{
				Region:     region,
				ServerURL:  url,
				Conditions: splitList(conditions),
			})
			if err != nil {
				return fmt.Errorf("failed to generate snippet: %w", err)
			}

			printSnippets(cmd.OutOrStdout(), files)
			return nil
		},
	}

	cmd.Flags().StringVarP(&framework, "framework", "f", "", "framework (html, react, vue, svelte, php)")
	cmd.Flags().StringVarP(&serverURL, "server-url", "s", "", "server URL (e.g., https://mi.example.com)")
	cmd.Flags().StringVarP(&conditions, "conditions", "c", "", "comma-separated page conditionals true on the embedding page")

	return cmd
}

func knownFramework(fw snippets.Framework) bool {
	for _, f := range snippets.Frameworks {
		if f == fw {
			return true
		}
	}
	return false
}

// savedServerURL returns the public URL recorded by 'mi serve --public-url'.
func (a *app) savedServerURL() string {
	var url string
	_ = a.withStore(func(s *store.SQLiteStore) error {
		v, err := s.GetSetting(context.Background(), serverURLSetting)
		url = v
		return err
	})
	return strings.TrimRight(url, "/")
}

func printSnippets(w io.Writer, files []snippets.SnippetFile) {
	for i, file := range files {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, strings.Repeat("=", 62))
		fmt.Fprintf(w, " %s\n", file.Filename)
		fmt.Fprintln(w, strings.Repeat("=", 62))
		fmt.Fprintln(w)
		fmt.Fprintln(w, file.Content)
	}
}
