package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/message-inserter/message-inserter/internal/breakpoint"
	"github.com/message-inserter/message-inserter/internal/dismiss"
	"github.com/message-inserter/message-inserter/internal/display"
	"github.com/message-inserter/message-inserter/internal/render"
	"github.com/message-inserter/message-inserter/internal/session"
	"github.com/message-inserter/message-inserter/internal/store"
)

const visitorCookieName = "mi_vid"

type HealthResponse struct {
	Status        string `json:"status"`
	MessagesCount int    `json:"messages_count"`
	DBSizeBytes   int64  `json:"db_size_bytes,omitempty"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	msgs, err := s.store.ListMessages(ctx)
	if err != nil {
		s.logger.Error("health check failed", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := HealthResponse{
		Status:        "ok",
		MessagesCount: len(msgs),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	}

	if db, ok := s.store.(interface{ DB() *sql.DB }); ok {
		row := db.DB().QueryRowContext(ctx, "SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()")
		if err := row.Scan(&response.DBSizeBytes); err != nil {
			s.logger.Debug("database size unavailable", zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// handleRegion renders the messages eligible for a region and advances the
// visitor's session cookies.
func (s *Server) handleRegion(w http.ResponseWriter, r *http.Request) {
	setCORS(w, r, "GET, OPTIONS")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	region := r.PathValue("region")
	q := r.URL.Query()

	width := 0
	if v := q.Get("width"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			width = parsed
		}
	}

	ctx := r.Context()
	visit := s.counter.Track(w, r)

	msgs, err := s.store.ListMessagesByRegion(ctx, region)
	if err != nil {
		s.logger.Error("failed to load region", zap.String("region", region), zap.Error(err))
		http.Error(w, "Failed to load messages", http.StatusInternalServerError)
		return
	}

	in := display.Input{
		Now:        s.now(),
		Visits:     visit.Count,
		Conditions: display.Conditions(strings.Split(q.Get("conditions"), ",")...),
		Dismissed:  func(id int64) bool { return dismiss.Closed(r, id) },
		Shown:      func(id int64) bool { return dismiss.Shown(r, id) },
	}
	candidates := msgs
	if width > 0 {
		candidates = fitting(msgs, width)
	}
	selected := display.Select(candidates, region, in)

	html, err := render.Region(region, selected, render.Options{Width: width})
	if err != nil {
		s.logger.Error("failed to render region", zap.String("region", region), zap.Error(err))
		http.Error(w, "Failed to render messages", http.StatusInternalServerError)
		return
	}

	vid := s.visitorID(w, r)
	for _, m := range selected {
		if m.Region == store.RegionPopup {
			s.tracker.MarkShown(w, m.ID)
		}
		if err := s.store.RecordEvent(ctx, m.ID, store.EventView, vid); err != nil {
			s.logger.Warn("failed to record view", zap.Int64("message_id", m.ID), zap.Error(err))
		}
	}

	s.logger.Debug("region rendered",
		zap.String("region", region),
		zap.Int("visits", visit.Count),
		zap.Int("candidates", len(msgs)),
		zap.Int("rendered", len(selected)))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Write([]byte(html))
}

// handleDismiss suppresses a message for the visitor until its dismiss
// expiry passes.
func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	setCORS(w, r, "POST, OPTIONS")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid message id", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	m, err := s.store.GetMessage(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Message not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("failed to load message", zap.Int64("message_id", id), zap.Error(err))
		http.Error(w, "Failed to load message", http.StatusInternalServerError)
		return
	}

	s.tracker.Dismiss(w, m.ID, m.DismissDays, m.DismissHours, s.now())

	if err := s.store.RecordEvent(ctx, m.ID, store.EventDismiss, s.visitorID(w, r)); err != nil {
		s.logger.Warn("failed to record dismissal", zap.Int64("message_id", m.ID), zap.Error(err))
	}

	w.WriteHeader(http.StatusNoContent)
}

// messageResponse is the public view of a message.
type messageResponse struct {
	ID          int64              `json:"id"`
	Title       string             `json:"title"`
	Region      string             `json:"region"`
	Type        string             `json:"type"`
	ScreenSizes []screenSizeOutput `json:"screen_sizes"`
	Dismissible bool               `json:"dismissible"`
}

type screenSizeOutput struct {
	store.ScreenSize
	MediaQuery string `json:"media_query,omitempty"`
}

// handleMessagesAPI lists the published messages of a region.
func (s *Server) handleMessagesAPI(w http.ResponseWriter, r *http.Request) {
	setCORS(w, r, "GET, OPTIONS")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	region := r.URL.Query().Get("region")
	if region == "" {
		http.Error(w, "region parameter required", http.StatusBadRequest)
		return
	}

	msgs, err := s.store.ListMessagesByRegion(r.Context(), region)
	if err != nil {
		s.logger.Error("failed to list messages", zap.String("region", region), zap.Error(err))
		http.Error(w, "Failed to fetch messages", http.StatusInternalServerError)
		return
	}

	// Return empty array instead of null
	response := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		sizes := make([]screenSizeOutput, len(m.ScreenSizes))
		for i, size := range m.ScreenSizes {
			sizes[i] = screenSizeOutput{ScreenSize: size, MediaQuery: breakpoint.MediaQuery(size.MinWidth, size.MaxWidth)}
		}
		response = append(response, messageResponse{
			ID:          m.ID,
			Title:       m.Title,
			Region:      m.Region,
			Type:        string(m.Type),
			ScreenSizes: sizes,
			Dismissible: m.Dismissible(),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// visitorID returns the visitor's id cookie, issuing one when absent.
func (s *Server) visitorID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(visitorCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     visitorCookieName,
		Value:    id,
		Path:     "/",
		Domain:   s.tracker.Domain,
		MaxAge:   int(s.counter.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   s.tracker.Secure,
		SameSite: session.SameSite(s.tracker.Secure),
	})
	return id
}

// fitting drops messages with no variant for the viewport width.
func fitting(msgs []*store.Message, width int) []*store.Message {
	out := msgs[:0:0]
	for _, m := range msgs {
		if _, ok := breakpoint.Select(m.ScreenSizes, width); ok {
			out = append(out, m)
		}
	}
	return out
}

// setCORS allows credentialed requests from the embedding site.
func setCORS(w http.ResponseWriter, r *http.Request, methods string) {
	h := w.Header()
	if origin := r.Header.Get("Origin"); origin != "" {
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Add("Vary", "Origin")
	} else {
		h.Set("Access-Control-Allow-Origin", "*")
	}
	h.Set("Access-Control-Allow-Methods", methods)
	h.Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
