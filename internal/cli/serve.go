package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/message-inserter/message-inserter/internal/dismiss"
	"github.com/message-inserter/message-inserter/internal/server"
	"github.com/message-inserter/message-inserter/internal/session"
	"github.com/message-inserter/message-inserter/internal/store"
)

type serveOptions struct {
	port      int
	publicURL string
	token     string
}

func newServeCmd(a *app) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the message-inserter HTTP server.

The server provides:
  - Embed script at /mi.js
  - Rendered regions at /regions/{region}
  - Dismiss endpoint at /dismiss/{id}
  - Admin JSON API under /admin/api (token protected)
  - Health check at /health

Example:
  mi serve --port 8080 --public-url https://mi.example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.port == 0 {
				opts.port = a.cfg.Port
			}
			if opts.token == "" {
				opts.token = a.cfg.AdminToken
			}
			return a.withStore(func(s *store.SQLiteStore) error {
				srv, err := a.newServer(cmd.Context(), s, opts)
				if err != nil {
					return err
				}
				printServerBanner(cmd.OutOrStdout(), opts.port, srv.Token())
				return a.run(cmd.Context(), srv)
			})
		},
	}

	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "port to listen on (default $MI_PORT or 8080)")
	cmd.Flags().StringVar(&opts.publicURL, "public-url", "", "public URL of this server, used by 'mi token' and snippets")
	cmd.Flags().StringVar(&opts.token, "token", "", "fixed admin token (default $MI_ADMIN_TOKEN, else random per start)")

	return cmd
}

// newServer wires the configured cookie behaviour into a server.
func (a *app) newServer(ctx context.Context, s *store.SQLiteStore, opts serveOptions) (*server.Server, error) {
	if opts.publicURL != "" {
		if err := s.SetSetting(contextOrBackground(ctx), serverURLSetting, opts.publicURL); err != nil {
			return nil, fmt.Errorf("failed to save public URL: %w", err)
		}
	}

	counter := session.NewCounter(
		session.WithInterval(a.cfg.VisitInterval),
		session.WithMaxAge(a.cfg.CookieMaxAge()),
		session.WithDomain(a.cfg.CookieDomain),
		session.WithSecure(a.cfg.SecureCookies),
	)
	tracker := dismiss.Tracker{Domain: a.cfg.CookieDomain, Secure: a.cfg.SecureCookies}

	return server.New(s, opts.port, a.tokenFilePath(),
		server.WithLogger(a.logger),
		server.WithCounter(counter),
		server.WithTracker(tracker),
		server.WithToken(opts.token),
	), nil
}

// run serves until interrupted.
func (a *app) run(parent context.Context, srv *server.Server) error {
	ctx, stop := signal.NotifyContext(contextOrBackground(parent), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		a.logger.Error("server stopped", zap.Error(err))
		return err
	}
	return nil
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func printServerBanner(w io.Writer, port int, token string) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Server running at http://localhost:%d\n", port)
	fmt.Fprintf(w, "Admin API: http://localhost:%d/admin/api/messages?token=%s\n", port, token)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Press Ctrl+C to stop")
}
