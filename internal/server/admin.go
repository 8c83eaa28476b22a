package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/message-inserter/message-inserter/internal/stats"
	"github.com/message-inserter/message-inserter/internal/store"
)

// messageJSON is the admin wire form of a message.
type messageJSON struct {
	ID           int64              `json:"id,omitempty"`
	Title        string             `json:"title"`
	Region       string             `json:"region"`
	Type         string             `json:"type"`
	Status       string             `json:"status,omitempty"`
	MenuOrder    int                `json:"menu_order"`
	Conditionals []string           `json:"conditionals"`
	ScreenSizes  []store.ScreenSize `json:"screen_sizes"`
	Session      *store.SessionRule `json:"session,omitempty"`
	DismissDays  int                `json:"dismiss_days"`
	DismissHours int                `json:"dismiss_hours"`
	ShowOnce     bool               `json:"show_once"`
	Colors       store.BannerColors `json:"colors"`
	StartsAt     *time.Time         `json:"starts_at,omitempty"`
	EndsAt       *time.Time         `json:"ends_at,omitempty"`
	CreatedAt    *time.Time         `json:"created_at,omitempty"`
	UpdatedAt    *time.Time         `json:"updated_at,omitempty"`
	Stats        *stats.Result      `json:"stats,omitempty"`
}

func toJSON(m *store.Message) messageJSON {
	conditionals := m.Conditionals
	if conditionals == nil {
		conditionals = []string{}
	}
	created, updated := m.CreatedAt, m.UpdatedAt
	return messageJSON{
		ID:           m.ID,
		Title:        m.Title,
		Region:       m.Region,
		Type:         string(m.Type),
		Status:       string(m.Status),
		MenuOrder:    m.MenuOrder,
		Conditionals: conditionals,
		ScreenSizes:  m.ScreenSizes,
		Session:      m.Session,
		DismissDays:  m.DismissDays,
		DismissHours: m.DismissHours,
		ShowOnce:     m.ShowOnce,
		Colors:       m.BannerColors,
		StartsAt:     m.StartsAt,
		EndsAt:       m.EndsAt,
		CreatedAt:    &created,
		UpdatedAt:    &updated,
	}
}

func (j messageJSON) toMessage() *store.Message {
	return &store.Message{
		ID:           j.ID,
		Title:        j.Title,
		Region:       j.Region,
		Type:         store.MessageType(j.Type),
		Status:       store.MessageStatus(j.Status),
		MenuOrder:    j.MenuOrder,
		Conditionals: j.Conditionals,
		ScreenSizes:  j.ScreenSizes,
		Session:      j.Session,
		DismissDays:  j.DismissDays,
		DismissHours: j.DismissHours,
		ShowOnce:     j.ShowOnce,
		BannerColors: j.Colors,
		StartsAt:     j.StartsAt,
		EndsAt:       j.EndsAt,
	}
}

// handleAdminMessages lists (GET) or creates (POST) messages.
func (s *Server) handleAdminMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		msgs, err := s.store.ListMessages(ctx)
		if err != nil {
			s.adminError(w, err)
			return
		}
		out := make([]messageJSON, 0, len(msgs))
		for _, m := range msgs {
			out = append(out, toJSON(m))
		}
		writeJSON(w, http.StatusOK, out)

	case http.MethodPost:
		var body messageJSON
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid JSON body", http.StatusBadRequest)
			return
		}
		body.ID = 0
		created, err := s.store.CreateMessage(ctx, body.toMessage())
		if err != nil {
			s.adminError(w, err)
			return
		}
		s.logger.Info("message created", zap.Int64("message_id", created.ID), zap.String("region", created.Region))
		writeJSON(w, http.StatusCreated, toJSON(created))

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleAdminMessage reads, replaces or deletes one message.
func (s *Server) handleAdminMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		m, err := s.store.GetMessage(ctx, id)
		if err != nil {
			s.adminError(w, err)
			return
		}
		ms, err := s.store.GetMessageStats(ctx, id)
		if err != nil {
			s.adminError(w, err)
			return
		}
		out := toJSON(m)
		result := stats.Analyze(ms)
		out.Stats = &result
		writeJSON(w, http.StatusOK, out)

	case http.MethodPut:
		existing, err := s.store.GetMessage(ctx, id)
		if err != nil {
			s.adminError(w, err)
			return
		}
		var body messageJSON
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid JSON body", http.StatusBadRequest)
			return
		}
		m := body.toMessage()
		m.ID = id
		if m.Status == "" {
			m.Status = existing.Status
		}
		if err := s.store.UpdateMessage(ctx, m); err != nil {
			s.adminError(w, err)
			return
		}
		updated, err := s.store.GetMessage(ctx, id)
		if err != nil {
			s.adminError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toJSON(updated))

	case http.MethodDelete:
		if err := s.store.DeleteMessage(ctx, id); err != nil {
			s.adminError(w, err)
			return
		}
		s.logger.Info("message deleted", zap.Int64("message_id", id))
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleAdminStatus publishes or unpublishes a message.
func (s *Server) handleAdminStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if err := s.store.SetStatus(r.Context(), id, store.MessageStatus(body.Status)); err != nil {
		s.adminError(w, err)
		return
	}

	s.logger.Info("message status changed", zap.Int64("message_id", id), zap.String("status", body.Status))
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": body.Status})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "Invalid message id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// adminError maps store errors onto status codes.
func (s *Server) adminError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "Message not found", http.StatusNotFound)
	case errors.Is(err, store.ErrInvalid):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		s.logger.Error("admin request failed", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
