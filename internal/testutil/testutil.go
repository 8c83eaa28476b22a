package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/message-inserter/message-inserter/internal/store"
)

// SetupTestStore creates a test database and returns the store.
// Uses t.TempDir() for automatic cleanup on test completion.
func SetupTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})

	return s
}

// Ints returns a pointer to v, for screen size bounds.
func Ints(v int) *int {
	return &v
}

// EditorMessage builds a valid published editor message for region.
func EditorMessage(region, content string) *store.Message {
	return &store.Message{
		Title:       content,
		Region:      region,
		Type:        store.TypeEditor,
		Status:      store.StatusPublished,
		ScreenSizes: []store.ScreenSize{{Content: content}},
	}
}

// CreateMessage stores m and fails the test on error.
func CreateMessage(t *testing.T, s store.Store, m *store.Message) *store.Message {
	t.Helper()

	created, err := s.CreateMessage(context.Background(), m)
	if err != nil {
		t.Fatalf("CreateMessage failed: %v", err)
	}
	return created
}
