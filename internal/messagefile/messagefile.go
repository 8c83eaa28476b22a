// Package messagefile reads and writes messages as YAML documents for bulk
// import and export.
package messagefile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/message-inserter/message-inserter/internal/store"
)

// File is the top-level YAML document.
type File struct {
	Messages []Entry `yaml:"messages"`
}

// Entry is one message as written by hand.
type Entry struct {
	Title        string             `yaml:"title"`
	Region       string             `yaml:"region"`
	Type         string             `yaml:"type"`
	Status       string             `yaml:"status,omitempty"`
	MenuOrder    int                `yaml:"menu_order,omitempty"`
	Conditionals []string           `yaml:"conditionals,omitempty"`
	ScreenSizes  []store.ScreenSize `yaml:"screen_sizes"`
	Session      *store.SessionRule `yaml:"session,omitempty"`
	Dismiss      *Expiry            `yaml:"dismiss,omitempty"`
	ShowOnce     bool               `yaml:"show_once,omitempty"`
	Colors       store.BannerColors `yaml:"colors,omitempty"`
	StartsAt     *time.Time         `yaml:"starts_at,omitempty"`
	EndsAt       *time.Time         `yaml:"ends_at,omitempty"`
}

type Expiry struct {
	Days  int `yaml:"days,omitempty"`
	Hours int `yaml:"hours,omitempty"`
}

// Read decodes a message file and validates every entry. Errors name the
// offending entry.
func Read(r io.Reader) ([]*store.Message, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse message file: %w", err)
	}

	msgs := make([]*store.Message, 0, len(f.Messages))
	for i, e := range f.Messages {
		m := e.toMessage()
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("message %d (%q): %w", i+1, e.Title, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// Write encodes msgs as a message file.
func Write(w io.Writer, msgs []*store.Message) error {
	f := File{Messages: make([]Entry, len(msgs))}
	for i, m := range msgs {
		f.Messages[i] = fromMessage(m)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("failed to encode message file: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode message file: %w", err)
	}

	_, err := w.Write(buf.Bytes())
	return err
}

func (e Entry) toMessage() *store.Message {
	m := &store.Message{
		Title:        e.Title,
		Region:       e.Region,
		Type:         store.MessageType(e.Type),
		Status:       store.MessageStatus(e.Status),
		MenuOrder:    e.MenuOrder,
		Conditionals: e.Conditionals,
		ScreenSizes:  e.ScreenSizes,
		Session:      e.Session,
		ShowOnce:     e.ShowOnce,
		BannerColors: e.Colors,
		StartsAt:     e.StartsAt,
		EndsAt:       e.EndsAt,
	}
	if m.Status == "" {
		m.Status = store.StatusDraft
	}
	if e.Dismiss != nil {
		m.DismissDays = e.Dismiss.Days
		m.DismissHours = e.Dismiss.Hours
	}
	return m
}

func fromMessage(m *store.Message) Entry {
	e := Entry{
		Title:        m.Title,
		Region:       m.Region,
		Type:         string(m.Type),
		Status:       string(m.Status),
		MenuOrder:    m.MenuOrder,
		Conditionals: m.Conditionals,
		ScreenSizes:  m.ScreenSizes,
		Session:      m.Session,
		ShowOnce:     m.ShowOnce,
		Colors:       m.BannerColors,
		StartsAt:     m.StartsAt,
		EndsAt:       m.EndsAt,
	}
	if m.DismissDays > 0 || m.DismissHours > 0 {
		e.Dismiss = &Expiry{Days: m.DismissDays, Hours: m.DismissHours}
	}
	return e
}
