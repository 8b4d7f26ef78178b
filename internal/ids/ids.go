// Package ids generates lexicographically sortable identifiers for
// persisted entities (matches, notifications, materials).
package ids

import (
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a new ULID string. Safe for concurrent use.
func New() string {
	return NewAt(time.Now())
}

// NewAt returns a ULID whose timestamp component is taken from t, so ids
// sort consistently with created_at.
func NewAt(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
