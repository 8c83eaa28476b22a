// Package stats summarizes how often visitors dismiss a message.
package stats

import (
	"math"

	"github.com/message-inserter/message-inserter/internal/store"
)

// DefaultConfidence is the level Analyze reports the dismiss-rate range at.
const DefaultConfidence = 0.95

// Result is the dismissal analysis for one message.
type Result struct {
	MessageID   int64   `json:"message_id"`
	Views       int     `json:"views"`
	Dismissals  int     `json:"dismissals"`
	DismissRate float64 `json:"dismiss_rate"`
	Confidence  float64 `json:"confidence"`
	CILower     float64 `json:"ci_lower"`
	CIUpper     float64 `json:"ci_upper"`
}

// Analyze computes the dismiss rate with its range at DefaultConfidence.
func Analyze(s store.MessageStats) Result {
	return AnalyzeAt(s, DefaultConfidence)
}

// AnalyzeAt computes the dismiss rate and the Wilson score range the true
// rate falls in at the given two-sided confidence. Levels outside (0, 1)
// fall back to DefaultConfidence.
func AnalyzeAt(s store.MessageStats, confidence float64) Result {
	if !(confidence > 0 && confidence < 1) {
		confidence = DefaultConfidence
	}

	r := Result{
		MessageID:  s.MessageID,
		Views:      s.Views,
		Dismissals: s.Dismissals,
		Confidence: confidence,
	}
	if s.Views == 0 {
		return r
	}

	// Views and dismissals are deduplicated independently.
	dismissed := math.Min(float64(s.Dismissals), float64(s.Views))
	views := float64(s.Views)
	r.DismissRate = dismissed / views

	z := math.Sqrt2 * math.Erfinv(confidence)
	zz := z * z / views
	mid := (r.DismissRate + zz/2) / (1 + zz)
	half := z / (1 + zz) * math.Sqrt(r.DismissRate*(1-r.DismissRate)/views+zz/(4*views))

	r.CILower = math.Max(0, mid-half)
	r.CIUpper = math.Min(1, mid+half)
	return r
}
