package display_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/message-inserter/message-inserter/internal/display"
	"github.com/message-inserter/message-inserter/internal/store"
)

var now = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

func message(id int64, region string) *store.Message {
	return &store.Message{
		ID:          id,
		Title:       "message",
		Region:      region,
		Type:        store.TypeEditor,
		Status:      store.StatusPublished,
		ScreenSizes: []store.ScreenSize{{Content: "hi"}},
	}
}

func ids(set ...int64) func(int64) bool {
	return func(id int64) bool {
		for _, s := range set {
			if s == id {
				return true
			}
		}
		return false
	}
}

func TestEvaluate_Rules(t *testing.T) {
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	tests := []struct {
		name   string
		mutate func(m *store.Message)
		in     display.Input
		want   display.Reason
	}{
		{"plain message", func(m *store.Message) {}, display.Input{}, display.ReasonEligible},
		{"draft", func(m *store.Message) { m.Status = store.StatusDraft }, display.Input{}, display.ReasonUnpublished},
		{"not started", func(m *store.Message) { m.StartsAt = &after }, display.Input{}, display.ReasonNotStarted},
		{"started", func(m *store.Message) { m.StartsAt = &before }, display.Input{}, display.ReasonEligible},
		{"ended", func(m *store.Message) { m.EndsAt = &before }, display.Input{}, display.ReasonEnded},
		{"ends exactly now", func(m *store.Message) { m.EndsAt = &now }, display.Input{}, display.ReasonEnded},
		{
			"conditional missing",
			func(m *store.Message) { m.Conditionals = []string{"is_front_page"} },
			display.Input{Conditions: display.Conditions("is_single")},
			display.ReasonConditions,
		},
		{
			"any conditional matches",
			func(m *store.Message) { m.Conditionals = []string{"is_front_page", "is_single"} },
			display.Input{Conditions: display.Conditions("is_single")},
			display.ReasonEligible,
		},
		{
			"visits below threshold",
			func(m *store.Message) { m.Session = &store.SessionRule{Operator: ">=", Threshold: 3} },
			display.Input{Visits: 2},
			display.ReasonSession,
		},
		{
			"visits reach threshold",
			func(m *store.Message) { m.Session = &store.SessionRule{Operator: ">=", Threshold: 3} },
			display.Input{Visits: 3},
			display.ReasonEligible,
		},
		{
			"visits above ceiling",
			func(m *store.Message) { m.Session = &store.SessionRule{Operator: "<=", Threshold: 2} },
			display.Input{Visits: 3},
			display.ReasonSession,
		},
		{
			"dismissed popup",
			func(m *store.Message) { m.Region = store.RegionPopup },
			display.Input{Dismissed: ids(1)},
			display.ReasonDismissed,
		},
		{
			"dismissed inline without expiry ignores cookie",
			func(m *store.Message) {},
			display.Input{Dismissed: ids(1)},
			display.ReasonEligible,
		},
		{
			"dismissed banner with expiry",
			func(m *store.Message) { m.DismissDays = 2 },
			display.Input{Dismissed: ids(1)},
			display.ReasonDismissed,
		},
		{
			"other message dismissed",
			func(m *store.Message) { m.Region = store.RegionPopup },
			display.Input{Dismissed: ids(2)},
			display.ReasonEligible,
		},
		{
			"show once popup already shown",
			func(m *store.Message) { m.Region = store.RegionPopup; m.ShowOnce = true },
			display.Input{Shown: ids(1)},
			display.ReasonShown,
		},
		{
			"repeatable popup already shown",
			func(m *store.Message) { m.Region = store.RegionPopup },
			display.Input{Shown: ids(1)},
			display.ReasonEligible,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := message(1, "homepage_middle")
			tt.mutate(m)
			if tt.in.Now.IsZero() {
				tt.in.Now = now
			}

			got := display.Evaluate(m, tt.in)
			assert.Equal(t, tt.want, got.Reason)
			assert.Equal(t, tt.want == display.ReasonEligible, got.Eligible)
		})
	}
}

func TestEvaluate_FirstFailingRuleReported(t *testing.T) {
	m := message(1, store.RegionPopup)
	m.Status = store.StatusDraft
	m.Session = &store.SessionRule{Operator: ">=", Threshold: 10}

	got := display.Evaluate(m, display.Input{Now: now, Dismissed: ids(1)})
	assert.Equal(t, display.ReasonUnpublished, got.Reason)
}

func TestCompare(t *testing.T) {
	assert.True(t, display.Compare(5, ">=", 5))
	assert.False(t, display.Compare(4, ">=", 5))
	assert.True(t, display.Compare(1, "<=", 1))
	assert.False(t, display.Compare(2, "<=", 1))
	assert.False(t, display.Compare(5, "==", 5))
}

func TestSelect_PopupYieldsOne(t *testing.T) {
	gated := message(1, store.RegionPopup)
	gated.Session = &store.SessionRule{Operator: ">=", Threshold: 5}
	first := message(2, store.RegionPopup)
	second := message(3, store.RegionPopup)

	got := display.Select([]*store.Message{gated, first, second}, store.RegionPopup, display.Input{Now: now, Visits: 1})

	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)
}

func TestSelect_InlineRegionKeepsOrder(t *testing.T) {
	a := message(1, "homepage_middle")
	b := message(2, "homepage_middle")
	c := message(3, "homepage_middle")
	c.Status = store.StatusDraft
	other := message(4, "article_top")

	got := display.Select([]*store.Message{a, b, c, other}, "homepage_middle", display.Input{Now: now})

	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(2), got[1].ID)
}

func TestConditions(t *testing.T) {
	set := display.Conditions("is_home", "", "is_page")

	assert.Len(t, set, 2)
	assert.True(t, set["is_home"])
	assert.True(t, set["is_page"])
}
