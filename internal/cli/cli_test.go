package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/message-inserter/message-inserter/internal/snippets"
	"github.com/message-inserter/message-inserter/internal/store"
)

// run executes the root command against dbPath and returns its output.
func run(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("MI_LOG_LEVEL", "error")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--db", dbPath, "--env-file", ""}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func testDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "mi.db")
}

func mustRun(t *testing.T, dbPath string, args ...string) string {
	t.Helper()
	out, err := run(t, dbPath, args...)
	if err != nil {
		t.Fatalf("%v failed: %v\n%s", args, err, out)
	}
	return out
}

func TestCreateAndList(t *testing.T) {
	db := testDB(t)

	out := mustRun(t, db, "create", "--title", "Newsletter", "--region", "popup", "--type", "image",
		"--image", "/img/join.png", "--button-text", "Join", "--button-url", "/join",
		"--visits", ">=3", "--dismiss-days", "7", "--publish")

	for _, want := range []string{"Created message 1 'Newsletter'", "Visits: >= 3", "Dismiss: 7d 0h"} {
		if !strings.Contains(out, want) {
			t.Errorf("create output missing %q:\n%s", want, out)
		}
	}

	out = mustRun(t, db, "list")
	for _, want := range []string{"Newsletter", "popup", "image", "PUBLISHED"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}
}

func TestCreate_DraftByDefault(t *testing.T) {
	db := testDB(t)

	out := mustRun(t, db, "create", "--title", "Later", "--region", "homepage_top", "--type", "editor", "--content", "<p>Hi</p>")

	if !strings.Contains(out, "draft") || !strings.Contains(out, "mi status 1 published") {
		t.Errorf("expected draft hint, got:\n%s", out)
	}
}

func TestCreate_RejectsInvalidMessage(t *testing.T) {
	db := testDB(t)

	if _, err := run(t, db, "create", "--title", "No image", "--region", "popup", "--type", "image"); err == nil {
		t.Error("expected error for image message without image URL")
	}
	if _, err := run(t, db, "create", "--title", "Bad", "--region", "popup", "--type", "editor",
		"--content", "x", "--visits", "3"); err == nil {
		t.Error("expected error for visit rule without operator")
	}
}

func TestList_Empty(t *testing.T) {
	out := mustRun(t, testDB(t), "list")

	if !strings.Contains(out, "No messages yet.") {
		t.Errorf("expected empty notice, got:\n%s", out)
	}
}

func TestShow(t *testing.T) {
	db := testDB(t)
	mustRun(t, db, "create", "--title", "Sale", "--region", "sitewide_banner", "--type", "banner",
		"--content", "20% off", "--bg", "#cc0000", "--fg", "#ffffff", "--max-width", "767", "--conditions", "is_front_page,is_home")

	out := mustRun(t, db, "show", "1")

	for _, want := range []string{"MESSAGE: 1 Sale", "PAGES: is_front_page or is_home", "COLORS: background=#cc0000", "(max-width: 767px)", "content: 20% off"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}

	if _, err := run(t, db, "show", "42"); err == nil || !strings.Contains(err.Error(), "message 42 not found") {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestStatus(t *testing.T) {
	db := testDB(t)
	mustRun(t, db, "create", "--title", "Hi", "--region", "homepage_top", "--type", "editor", "--content", "hi")

	out := mustRun(t, db, "status", "1", "published")
	if !strings.Contains(out, "is now published") {
		t.Errorf("unexpected output:\n%s", out)
	}

	out = mustRun(t, db, "status", "1", "published")
	if !strings.Contains(out, "already published") {
		t.Errorf("unexpected output:\n%s", out)
	}

	if _, err := run(t, db, "status", "1", "archived"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestDelete(t *testing.T) {
	db := testDB(t)
	mustRun(t, db, "create", "--title", "Bye", "--region", "homepage_top", "--type", "editor", "--content", "bye")

	out := mustRun(t, db, "delete", "1", "--yes")
	if !strings.Contains(out, "Deleted message 1 'Bye'") {
		t.Errorf("unexpected output:\n%s", out)
	}

	if _, err := run(t, db, "delete", "1", "--yes"); err == nil {
		t.Error("expected error deleting a missing message")
	}
}

const importFile = `messages:
  - title: Newsletter popup
    region: popup
    type: image
    status: published
    dismiss:
      days: 7
    screen_sizes:
      - max_width: 767
        image_url: /img/small.png
      - min_width: 768
        image_url: /img/large.png
  - title: Related reading
    region: article_bottom
    type: editor
    conditionals: [is_single]
    screen_sizes:
      - content: <p>More like this</p>
`

func TestImportExport(t *testing.T) {
	db := testDB(t)
	path := filepath.Join(t.TempDir(), "messages.yaml")
	if err := os.WriteFile(path, []byte(importFile), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	out := mustRun(t, db, "import", path)
	if !strings.Contains(out, "Created message 1 'Newsletter popup' (popup, published)") {
		t.Errorf("unexpected import output:\n%s", out)
	}
	if !strings.Contains(out, "Created message 2 'Related reading' (article_bottom, draft)") {
		t.Errorf("unexpected import output:\n%s", out)
	}

	out = mustRun(t, db, "export", "messages", "--region", "popup")
	for _, want := range []string{"title: Newsletter popup", "max_width: 767", "days: 7"} {
		if !strings.Contains(out, want) {
			t.Errorf("export output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Related reading") {
		t.Error("region filter not applied")
	}
}

func TestImport_DryRunWritesNothing(t *testing.T) {
	db := testDB(t)
	path := filepath.Join(t.TempDir(), "messages.yaml")
	if err := os.WriteFile(path, []byte(importFile), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	out := mustRun(t, db, "import", path, "--dry-run")
	if !strings.Contains(out, "2 messages are valid") {
		t.Errorf("unexpected output:\n%s", out)
	}

	out = mustRun(t, db, "list")
	if !strings.Contains(out, "No messages yet.") {
		t.Errorf("dry run created messages:\n%s", out)
	}
}

func TestImport_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("messages:\n  - title: Broken\n    region: popup\n    type: video\n"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	_, err := run(t, testDB(t), "import", path)
	if err == nil || !strings.Contains(err.Error(), `message 1 ("Broken")`) {
		t.Errorf("expected error naming the entry, got %v", err)
	}
}

func TestPreview(t *testing.T) {
	db := testDB(t)
	mustRun(t, db, "create", "--title", "Returning", "--region", "popup", "--type", "editor",
		"--content", "welcome back", "--visits", ">=3", "--publish")
	mustRun(t, db, "create", "--title", "Everyone", "--region", "popup", "--type", "editor",
		"--content", "hello", "--order", "1", "--publish")
	mustRun(t, db, "create", "--title", "Also everyone", "--region", "popup", "--type", "editor",
		"--content", "hello again", "--order", "2", "--publish")

	out := mustRun(t, db, "preview", "--region", "popup", "--visits", "1")

	lines := strings.Split(out, "\n")
	expect := map[string]string{
		"Returning":     "skipped: visit count rule not met",
		"Everyone":      "renders",
		"Also everyone": "eligible, but the popup region shows one message",
	}
	for title, want := range expect {
		found := false
		for _, line := range lines {
			if strings.Contains(line, title+"  ") && strings.Contains(line, want) {
				found = true
			}
		}
		if !found {
			t.Errorf("expected %q to be %q:\n%s", title, want, out)
		}
	}

	out = mustRun(t, db, "preview", "--region", "popup", "--visits", "3", "--dismissed", "1")
	if !strings.Contains(out, "skipped: dismissed") {
		t.Errorf("expected dismissed popup to be skipped:\n%s", out)
	}
}

func TestStatsAndExportEvents(t *testing.T) {
	db := testDB(t)
	mustRun(t, db, "create", "--title", "Popup", "--region", "popup", "--type", "editor", "--content", "hi", "--publish")

	s, err := store.Open(db)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	ctx := context.Background()
	for _, vid := range []string{"a", "b", "c", "d"} {
		if err := s.RecordEvent(ctx, 1, store.EventView, vid); err != nil {
			t.Fatalf("RecordEvent failed: %v", err)
		}
	}
	if err := s.RecordEvent(ctx, 1, store.EventDismiss, "a"); err != nil {
		t.Fatalf("RecordEvent failed: %v", err)
	}
	s.Close()

	out := mustRun(t, db, "stats", "1")
	if !strings.Contains(out, "25.00%") {
		t.Errorf("expected 25%% dismiss rate:\n%s", out)
	}
	if !strings.Contains(out, "95% CI") {
		t.Errorf("expected 95%% interval by default:\n%s", out)
	}

	out = mustRun(t, db, "stats", "1", "--confidence", "0.99")
	if !strings.Contains(out, "99% CI") {
		t.Errorf("expected 99%% interval header:\n%s", out)
	}
	if _, err := run(t, db, "stats", "1", "--confidence", "1.5"); err == nil {
		t.Error("expected error for confidence outside (0, 1)")
	}

	out = mustRun(t, db, "export", "events", "1", "--format", "csv")
	if !strings.HasPrefix(out, "timestamp,message_id,event_type,visitor_id\n") {
		t.Errorf("unexpected csv header:\n%s", out)
	}
	if got := strings.Count(out, "\n"); got != 6 {
		t.Errorf("expected header plus 5 rows, got %d lines", got)
	}

	out = mustRun(t, db, "export", "events", "1", "--format", "json")
	if !strings.Contains(out, `"event_type": "dismiss"`) {
		t.Errorf("unexpected json export:\n%s", out)
	}

	if _, err := run(t, db, "export", "events", "1", "--format", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestSnippet(t *testing.T) {
	out := mustRun(t, testDB(t), "snippet", "article_bottom", "--framework", "html",
		"--server-url", "https://mi.example.com/", "--conditions", "is_single")

	for _, want := range []string{
		`<script src="https://mi.example.com/mi.js" defer></script>`,
		`data-mi-region="article_bottom"`,
		`data-mi-conditions="is_single"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("snippet output missing %q:\n%s", want, out)
		}
	}

	if _, err := run(t, testDB(t), "snippet", "popup", "--framework", "angular"); err == nil {
		t.Error("expected error for unknown framework")
	}
}

func TestToken(t *testing.T) {
	db := testDB(t)

	if _, err := run(t, db, "token"); err == nil || !strings.Contains(err.Error(), "no server running") {
		t.Errorf("expected no server error, got %v", err)
	}

	if err := os.WriteFile(filepath.Join(filepath.Dir(db), ".mi-token"), []byte("abc123\n"), 0o600); err != nil {
		t.Fatalf("failed to write token: %v", err)
	}

	out := mustRun(t, db, "token")
	if !strings.Contains(out, "http://localhost:8080/admin/api/messages?token=abc123") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestPrintStartupInstructions(t *testing.T) {
	var buf bytes.Buffer
	if err := printStartupInstructions(&buf, snippets.FrameworkPHP, "homepage_middle", "http://localhost:8080", "tok"); err != nil {
		t.Fatalf("printStartupInstructions failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Admin API: http://localhost:8080/admin/api/messages?token=tok",
		"message-region.php",
		`data-mi-region="homepage_middle"`,
		"--region homepage_middle",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestParseVisitRule(t *testing.T) {
	tests := []struct {
		in      string
		op      string
		n       int
		wantErr bool
	}{
		{in: ">=3", op: ">=", n: 3},
		{in: "<= 1", op: "<=", n: 1},
		{in: "=3", wantErr: true},
		{in: ">=x", wantErr: true},
	}

	for _, tt := range tests {
		rule, err := parseVisitRule(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseVisitRule(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseVisitRule(%q): %v", tt.in, err)
			continue
		}
		if rule.Operator != tt.op || rule.Threshold != tt.n {
			t.Errorf("parseVisitRule(%q) = %+v", tt.in, rule)
		}
	}
}
