// Package display decides which messages are eligible for a region given
// the visitor's cookie state and the page being viewed.
package display

import (
	"strings"
	"time"

	"github.com/message-inserter/message-inserter/internal/store"
)

type Reason string

const (
	ReasonEligible    Reason = "eligible"
	ReasonUnpublished Reason = "unpublished"
	ReasonNotStarted  Reason = "not started"
	ReasonEnded       Reason = "ended"
	ReasonConditions  Reason = "page conditions not met"
	ReasonSession     Reason = "visit count rule not met"
	ReasonDismissed   Reason = "dismissed"
	ReasonShown       Reason = "already shown"
)

type Decision struct {
	Eligible bool
	Reason   Reason
}

// Input is everything the gate knows about the current request.
type Input struct {
	Now        time.Time
	Visits     int
	Conditions map[string]bool

	// Dismissed and Shown report the per-message cookie flags. Nil means
	// none are set.
	Dismissed func(id int64) bool
	Shown     func(id int64) bool
}

// Conditions builds the condition set from a list of names.
func Conditions(names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			set[n] = true
		}
	}
	return set
}

// Evaluate applies the message rules in order and reports the first that
// fails.
func Evaluate(m *store.Message, in Input) Decision {
	if m.Status != store.StatusPublished {
		return deny(ReasonUnpublished)
	}

	if m.StartsAt != nil && in.Now.Before(*m.StartsAt) {
		return deny(ReasonNotStarted)
	}
	if m.EndsAt != nil && !in.Now.Before(*m.EndsAt) {
		return deny(ReasonEnded)
	}

	if len(m.Conditionals) > 0 && !anyCondition(m.Conditionals, in.Conditions) {
		return deny(ReasonConditions)
	}

	if m.Session != nil && !Compare(in.Visits, m.Session.Operator, m.Session.Threshold) {
		return deny(ReasonSession)
	}

	if m.Dismissible() && in.Dismissed != nil && in.Dismissed(m.ID) {
		return deny(ReasonDismissed)
	}

	if m.Region == store.RegionPopup && m.ShowOnce && in.Shown != nil && in.Shown(m.ID) {
		return deny(ReasonShown)
	}

	return Decision{Eligible: true, Reason: ReasonEligible}
}

// Compare evaluates "visits op threshold". Unknown operators never match.
func Compare(visits int, op string, threshold int) bool {
	switch op {
	case store.OpAtLeast:
		return visits >= threshold
	case store.OpAtMost:
		return visits <= threshold
	default:
		return false
	}
}

// Select returns the eligible messages for region in the order given. The
// popup region yields at most one message.
func Select(msgs []*store.Message, region string, in Input) []*store.Message {
	var out []*store.Message
	for _, m := range msgs {
		if m.Region != region {
			continue
		}
		if !Evaluate(m, in).Eligible {
			continue
		}
		out = append(out, m)
		if region == store.RegionPopup {
			break
		}
	}
	return out
}

func anyCondition(want []string, have map[string]bool) bool {
	for _, c := range want {
		if have[c] {
			return true
		}
	}
	return false
}

func deny(r Reason) Decision {
	return Decision{Reason: r}
}
