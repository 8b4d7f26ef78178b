// Package notify owns the notification record, its delivery pipeline and
// the title/body templates for every notification kind the platform sends.
package notify

import (
	"errors"
	"time"
)

// Type enumerates the closed set of notification kinds exposed to clients.
type Type string

const (
	TypeUserPromoted         Type = "USER_PROMOTED"
	TypeMaterialApproved     Type = "MATERIAL_APPROVED"
	TypeMaterialRejected     Type = "MATERIAL_REJECTED"
	TypeMatchCompleted       Type = "MATCH_COMPLETED"
	TypeMatchRequestReceived Type = "MATCH_REQUEST_RECEIVED"
	TypeSystem               Type = "SYSTEM"
)

// Valid reports whether t is a member of the closed type set.
func (t Type) Valid() bool {
	switch t {
	case TypeUserPromoted, TypeMaterialApproved, TypeMaterialRejected,
		TypeMatchCompleted, TypeMatchRequestReceived, TypeSystem:
		return true
	}
	return false
}

// Notification is a persisted, per-user message. Created exactly once by
// the Dispatcher; after that only the read flag may change, and only the
// owning user may delete it.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      Type      `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	RelatedID string    `json:"related_id,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrNotFound    = errors.New("notify: not found")
	ErrForbidden   = errors.New("notify: forbidden")
	ErrInvalidType = errors.New("notify: invalid notification type")
)
