package store_test

import (
	"context"
	"testing"

	"github.com/message-inserter/message-inserter/internal/store"
	"github.com/message-inserter/message-inserter/internal/testutil"
)

func TestGetSetting(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	if err := s.SetSetting(ctx, "server_url", "https://messages.example.com"); err != nil {
		t.Fatalf("failed to set setting: %v", err)
	}

	value, err := s.GetSetting(ctx, "server_url")
	if err != nil {
		t.Fatalf("failed to get setting: %v", err)
	}

	if value != "https://messages.example.com" {
		t.Errorf("got %q, want %q", value, "https://messages.example.com")
	}
}

func TestGetSetting_NotFound(t *testing.T) {
	s := testutil.SetupTestStore(t)

	_, err := s.GetSetting(context.Background(), "nonexistent")
	if err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSetSetting_Update(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	if err := s.SetSetting(ctx, "framework", "react"); err != nil {
		t.Fatalf("failed to set setting: %v", err)
	}
	if err := s.SetSetting(ctx, "framework", "vue"); err != nil {
		t.Fatalf("failed to update setting: %v", err)
	}

	value, err := s.GetSetting(ctx, "framework")
	if err != nil {
		t.Fatalf("failed to get setting: %v", err)
	}

	if value != "vue" {
		t.Errorf("got %q, want %q", value, "vue")
	}
}
