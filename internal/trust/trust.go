// Package trust holds the bounded reputation score gating match
// participation.
package trust

import (
	"errors"
	"time"
)

// Score bounds and the participation threshold.
const (
	MinScore  = -5
	MaxScore  = 5
	Threshold = 0
)

var ErrNotFound = errors.New("trust: not found")

// Score is a user's reputation value, always clamped to [MinScore, MaxScore].
type Score int

// Clamp forces s into the allowed range.
func (s Score) Clamp() Score {
	if s < MinScore {
		return MinScore
	}
	if s > MaxScore {
		return MaxScore
	}
	return s
}

// Inc returns the score after a successful match completion.
func (s Score) Inc() Score { return (s + 1).Clamp() }

// Dec returns the score after a bad-match signal.
func (s Score) Dec() Score { return (s - 1).Clamp() }

// Eligible reports whether the score permits match participation.
func (s Score) Eligible() bool { return s >= Threshold }

// Standing is a user's persisted trust record. Users without a record are
// treated as holding the zero score.
type Standing struct {
	UserID    string    `json:"user_id"`
	Score     Score     `json:"score"`
	UpdatedAt time.Time `json:"updated_at"`
}
