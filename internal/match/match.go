// Package match implements the bilateral exchange lifecycle: an immutable
// Match record, the pure state transitions over it, and the service that
// persists transitions and notifies the counterpart.
package match

import (
	"errors"
	"time"
)

// TTL is the fixed window between creation and expiry. Set once at
// creation, never extended.
const TTL = 24 * time.Hour

// Status is the lifecycle state of a match.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusAccepted  Status = "ACCEPTED"
	StatusRejected  Status = "REJECTED"
	StatusCompleted Status = "COMPLETED"
	StatusExpired   Status = "EXPIRED"
)

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	switch s {
	case StatusRejected, StatusCompleted, StatusExpired:
		return true
	}
	return false
}

var (
	ErrNotFound          = errors.New("match: not found")
	ErrForbidden         = errors.New("match: forbidden")
	ErrInvalidTransition = errors.New("match: invalid transition")
	ErrExpired           = errors.New("match: expired")
	ErrSelfMatch         = errors.New("match: requester and receiver are the same user")
	ErrNotOwner          = errors.New("match: requester does not own the material")
	ErrNotApproved       = errors.New("match: material is not approved for matching")
	ErrInsufficientTrust = errors.New("match: trust score below participation threshold")
	ErrNotParticipant    = errors.New("match: user is not a participant")
)

// Match is a proposed or ongoing exchange of two materials between two
// users. It is an immutable value: transitions return a new Match and the
// caller persists the replacement. Participant and material identities
// never change after creation; only the status does.
type Match struct {
	ID                  string    `json:"id,omitempty"`
	RequesterID         string    `json:"requester_id"`
	ReceiverID          string    `json:"receiver_id"`
	RequesterMaterialID string    `json:"requester_material_id"`
	ReceiverMaterialID  string    `json:"receiver_material_id"`
	Status              Status    `json:"status"`
	CreatedAt           time.Time `json:"created_at"`
	ExpiredAt           time.Time `json:"expired_at"`
}

// New builds a PENDING match with expiry fixed at now+TTL. The id is
// assigned by the store on first save.
func New(requesterID, requesterMaterialID, receiverID, receiverMaterialID string, now time.Time) Match {
	created := now.UTC()
	return Match{
		RequesterID:         requesterID,
		ReceiverID:          receiverID,
		RequesterMaterialID: requesterMaterialID,
		ReceiverMaterialID:  receiverMaterialID,
		Status:              StatusPending,
		CreatedAt:           created,
		ExpiredAt:           created.Add(TTL),
	}
}

// IsParticipant reports whether userID is either side of the match.
func (m Match) IsParticipant(userID string) bool {
	return userID == m.RequesterID || userID == m.ReceiverID
}

// OtherParticipant returns the counterpart of userID.
func (m Match) OtherParticipant(userID string) (string, error) {
	switch userID {
	case m.RequesterID:
		return m.ReceiverID, nil
	case m.ReceiverID:
		return m.RequesterID, nil
	}
	return "", ErrNotParticipant
}

// MaterialOf returns the material userID contributes to the match.
func (m Match) MaterialOf(userID string) (string, error) {
	switch userID {
	case m.RequesterID:
		return m.RequesterMaterialID, nil
	case m.ReceiverID:
		return m.ReceiverMaterialID, nil
	}
	return "", ErrNotParticipant
}

// Active reports whether the match is still live: PENDING or ACCEPTED and
// not past its expiry instant.
func (m Match) Active(now time.Time) bool {
	if m.Status != StatusPending && m.Status != StatusAccepted {
		return false
	}
	return !now.After(m.ExpiredAt)
}

// Accept transitions PENDING -> ACCEPTED. An accept attempted after the
// expiry instant yields the EXPIRED match together with ErrExpired; the
// caller persists that side effect even though the intended transition was
// refused.
func (m Match) Accept(now time.Time) (Match, error) {
	if m.Status != StatusPending {
		return m, ErrInvalidTransition
	}
	if now.After(m.ExpiredAt) {
		m.Status = StatusExpired
		return m, ErrExpired
	}
	m.Status = StatusAccepted
	return m, nil
}

// Reject transitions PENDING -> REJECTED. Rejection is permitted past the
// expiry instant; only acceptance is expiry-gated.
func (m Match) Reject() (Match, error) {
	if m.Status != StatusPending {
		return m, ErrInvalidTransition
	}
	m.Status = StatusRejected
	return m, nil
}

// Complete transitions ACCEPTED -> COMPLETED.
func (m Match) Complete() (Match, error) {
	if m.Status != StatusAccepted {
		return m, ErrInvalidTransition
	}
	m.Status = StatusCompleted
	return m, nil
}

// Expire forces EXPIRED from any non-terminal state.
func (m Match) Expire() (Match, error) {
	if m.Status.Terminal() {
		return m, ErrInvalidTransition
	}
	m.Status = StatusExpired
	return m, nil
}
