package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ Store = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    region TEXT NOT NULL,
    type TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'draft',
    menu_order INTEGER NOT NULL DEFAULT 0,
    conditionals TEXT NOT NULL DEFAULT '[]',
    screen_sizes TEXT NOT NULL,
    session_operator TEXT,
    session_threshold INTEGER,
    dismiss_days INTEGER NOT NULL DEFAULT 0,
    dismiss_hours INTEGER NOT NULL DEFAULT 0,
    show_once INTEGER NOT NULL DEFAULT 0,
    banner_background TEXT NOT NULL DEFAULT '',
    banner_text TEXT NOT NULL DEFAULT '',
    starts_at INTEGER,
    ends_at INTEGER,
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    updated_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE INDEX IF NOT EXISTS idx_messages_region ON messages(region, status);

CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    message_id INTEGER NOT NULL,
    event_type TEXT NOT NULL,
    visitor_id TEXT NOT NULL,
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    FOREIGN KEY (message_id) REFERENCES messages(id)
);

CREATE INDEX IF NOT EXISTS idx_events_message ON events(message_id, event_type);
CREATE UNIQUE INDEX IF NOT EXISTS idx_events_dedup ON events(message_id, visitor_id, event_type);

CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

const messageColumns = `id, title, region, type, status, menu_order, conditionals, screen_sizes,
	session_operator, session_threshold, dismiss_days, dismiss_hours, show_once,
	banner_background, banner_text, starts_at, ends_at, created_at, updated_at`

func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db, path: dbPath}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file the store was opened with.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) CreateMessage(ctx context.Context, m *Message) (*Message, error) {
	msg := *m
	if msg.Status == "" {
		msg.Status = StatusDraft
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	cols, err := encodeMessage(&msg)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (title, region, type, status, menu_order, conditionals, screen_sizes,
			session_operator, session_threshold, dismiss_days, dismiss_hours, show_once,
			banner_background, banner_text, starts_at, ends_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.Title, msg.Region, string(msg.Type), string(msg.Status), msg.MenuOrder,
		cols.conditionals, cols.screenSizes, cols.operator, cols.threshold,
		msg.DismissDays, msg.DismissHours, msg.ShowOnce,
		msg.BannerColors.Background, msg.BannerColors.Text, cols.startsAt, cols.endsAt, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	msg.ID = id
	msg.CreatedAt = time.Unix(now, 0)
	msg.UpdatedAt = time.Unix(now, 0)
	return &msg, nil
}

func (s *SQLiteStore) GetMessage(ctx context.Context, id int64) (*Message, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)

	m, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return m, nil
}

func (s *SQLiteStore) ListMessages(ctx context.Context) ([]*Message, error) {
	return s.queryMessages(ctx,
		`SELECT `+messageColumns+` FROM messages ORDER BY region, menu_order, id`)
}

// ListMessagesByRegion returns the published messages for a region in
// display order.
func (s *SQLiteStore) ListMessagesByRegion(ctx context.Context, region string) ([]*Message, error) {
	return s.queryMessages(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE region = ? AND status = 'published'
		 ORDER BY menu_order, id`, region)
}

func (s *SQLiteStore) queryMessages(ctx context.Context, query string, args ...any) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	return messages, nil
}

func (s *SQLiteStore) UpdateMessage(ctx context.Context, m *Message) error {
	if err := m.Validate(); err != nil {
		return err
	}

	cols, err := encodeMessage(m)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	result, err := s.db.ExecContext(ctx,
		`UPDATE messages SET title = ?, region = ?, type = ?, status = ?, menu_order = ?,
			conditionals = ?, screen_sizes = ?, session_operator = ?, session_threshold = ?,
			dismiss_days = ?, dismiss_hours = ?, show_once = ?, banner_background = ?, banner_text = ?,
			starts_at = ?, ends_at = ?, updated_at = ?
		 WHERE id = ?`,
		m.Title, m.Region, string(m.Type), string(m.Status), m.MenuOrder,
		cols.conditionals, cols.screenSizes, cols.operator, cols.threshold,
		m.DismissDays, m.DismissHours, m.ShowOnce, m.BannerColors.Background, m.BannerColors.Text,
		cols.startsAt, cols.endsAt, now, m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}

	if err := requireRow(result); err != nil {
		return err
	}
	m.UpdatedAt = time.Unix(now, 0)
	return nil
}

func (s *SQLiteStore) SetStatus(ctx context.Context, id int64, status MessageStatus) error {
	if status != StatusDraft && status != StatusPublished {
		return invalid("unknown status %q", status)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE messages SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update message status: %w", err)
	}

	return requireRow(result)
}

func (s *SQLiteStore) DeleteMessage(ctx context.Context, id int64) error {
	// First delete related events
	_, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE message_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete events: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	return requireRow(result)
}

func (s *SQLiteStore) RecordEvent(ctx context.Context, messageID int64, eventType string, visitorID string) error {
	if eventType != EventView && eventType != EventDismiss {
		return fmt.Errorf("unknown event type %q", eventType)
	}

	// Use INSERT OR IGNORE for deduplication via unique index
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO events (message_id, event_type, visitor_id, created_at)
		 VALUES (?, ?, ?, ?)`,
		messageID, eventType, visitorID, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}

	return nil
}

func (s *SQLiteStore) GetMessageStats(ctx context.Context, messageID int64) (MessageStats, error) {
	stats := MessageStats{MessageID: messageID}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(DISTINCT CASE WHEN event_type = 'view' THEN visitor_id END),
			COUNT(DISTINCT CASE WHEN event_type = 'dismiss' THEN visitor_id END)
		FROM events
		WHERE message_id = ?
	`, messageID).Scan(&stats.Views, &stats.Dismissals)
	if err != nil {
		return stats, fmt.Errorf("failed to get message stats: %w", err)
	}

	return stats, nil
}

func (s *SQLiteStore) GetEvents(ctx context.Context, messageID int64) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, message_id, event_type, visitor_id, created_at
		 FROM events WHERE message_id = ? ORDER BY created_at DESC, id DESC`,
		messageID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.MessageID, &e.EventType, &e.VisitorID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.CreatedAt = time.Unix(createdAt, 0)
		events = append(events, &e)
	}

	return events, rows.Err()
}

func (s *SQLiteStore) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting: %w", err)
	}
	return value, nil
}

func (s *SQLiteStore) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}
	return nil
}

// DB returns the underlying database connection for health checks
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*Message, error) {
	var m Message
	var conditionalsJSON, screenSizesJSON string
	var operator sql.NullString
	var threshold, startsAt, endsAt sql.NullInt64
	var createdAt, updatedAt int64

	err := row.Scan(&m.ID, &m.Title, &m.Region, &m.Type, &m.Status, &m.MenuOrder,
		&conditionalsJSON, &screenSizesJSON, &operator, &threshold,
		&m.DismissDays, &m.DismissHours, &m.ShowOnce,
		&m.BannerColors.Background, &m.BannerColors.Text,
		&startsAt, &endsAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(conditionalsJSON), &m.Conditionals); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conditionals: %w", err)
	}
	if err := json.Unmarshal([]byte(screenSizesJSON), &m.ScreenSizes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal screen sizes: %w", err)
	}

	if operator.Valid && threshold.Valid {
		m.Session = &SessionRule{Operator: operator.String, Threshold: int(threshold.Int64)}
	}
	if startsAt.Valid {
		t := time.Unix(startsAt.Int64, 0)
		m.StartsAt = &t
	}
	if endsAt.Valid {
		t := time.Unix(endsAt.Int64, 0)
		m.EndsAt = &t
	}

	m.CreatedAt = time.Unix(createdAt, 0)
	m.UpdatedAt = time.Unix(updatedAt, 0)

	return &m, nil
}

type encodedColumns struct {
	conditionals string
	screenSizes  string
	operator     sql.NullString
	threshold    sql.NullInt64
	startsAt     sql.NullInt64
	endsAt       sql.NullInt64
}

func encodeMessage(m *Message) (encodedColumns, error) {
	var cols encodedColumns

	conditionals := m.Conditionals
	if conditionals == nil {
		conditionals = []string{}
	}
	b, err := json.Marshal(conditionals)
	if err != nil {
		return cols, fmt.Errorf("failed to marshal conditionals: %w", err)
	}
	cols.conditionals = string(b)

	b, err = json.Marshal(m.ScreenSizes)
	if err != nil {
		return cols, fmt.Errorf("failed to marshal screen sizes: %w", err)
	}
	cols.screenSizes = string(b)

	if m.Session != nil {
		cols.operator = sql.NullString{String: m.Session.Operator, Valid: true}
		cols.threshold = sql.NullInt64{Int64: int64(m.Session.Threshold), Valid: true}
	}
	if m.StartsAt != nil {
		cols.startsAt = sql.NullInt64{Int64: m.StartsAt.Unix(), Valid: true}
	}
	if m.EndsAt != nil {
		cols.endsAt = sql.NullInt64{Int64: m.EndsAt.Unix(), Valid: true}
	}

	return cols, nil
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
