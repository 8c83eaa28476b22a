package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/message-inserter/message-inserter/internal/dismiss"
	"github.com/message-inserter/message-inserter/internal/session"
	"github.com/message-inserter/message-inserter/internal/store"
)

type Server struct {
	store     store.Store
	port      int
	token     string
	tokenFile string
	router    *http.ServeMux
	startTime time.Time

	counter *session.Counter
	tracker dismiss.Tracker
	logger  *zap.Logger
	now     func() time.Time
}

type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithCounter sets the visit counter used for region requests.
func WithCounter(c *session.Counter) Option {
	return func(s *Server) { s.counter = c }
}

func WithTracker(t dismiss.Tracker) Option {
	return func(s *Server) { s.tracker = t }
}

// WithToken fixes the admin token instead of generating one.
func WithToken(token string) Option {
	return func(s *Server) {
		if token != "" {
			s.token = token
		}
	}
}

// WithClock replaces time.Now for display and dismissal decisions.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func New(s store.Store, port int, tokenFile string, opts ...Option) *Server {
	srv := &Server{
		store:     s,
		port:      port,
		token:     generateToken(),
		tokenFile: tokenFile,
		router:    http.NewServeMux(),
		startTime: time.Now(),
		counter:   session.NewCounter(),
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(srv)
	}

	srv.setupRoutes()
	return srv
}

func (s *Server) setupRoutes() {
	// Public endpoints
	s.router.HandleFunc("/health", s.handleHealth)
	s.router.HandleFunc("/mi.js", s.handleClientJS)
	s.router.HandleFunc("/regions/{region}", s.handleRegion)
	s.router.HandleFunc("/dismiss/{id}", s.handleDismiss)
	s.router.HandleFunc("/api/messages", s.handleMessagesAPI)

	// Admin endpoints (protected)
	s.router.Handle("/admin/api/messages", s.authMiddleware(http.HandlerFunc(s.handleAdminMessages)))
	s.router.Handle("/admin/api/messages/{id}", s.authMiddleware(http.HandlerFunc(s.handleAdminMessage)))
	s.router.Handle("/admin/api/messages/{id}/status", s.authMiddleware(http.HandlerFunc(s.handleAdminStatus)))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	// Write token to file for the token command
	if s.tokenFile != "" {
		if err := os.WriteFile(s.tokenFile, []byte(s.token), 0600); err != nil {
			s.logger.Warn("failed to write token file", zap.String("path", s.tokenFile), zap.Error(err))
		}
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("message-inserter listening", zap.Int("port", s.port))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}

func (s *Server) Token() string {
	return s.token
}

func (s *Server) Store() store.Store {
	return s.store
}

func (s *Server) StartTime() time.Time {
	return s.startTime
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func generateToken() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	return hex.EncodeToString(bytes)
}
