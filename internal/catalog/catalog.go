// Package catalog exposes the study-material records the matcher reads:
// uploader, subject, exam type and moderation status. Upload and file
// storage live elsewhere; this is the matchable view plus moderation.
package catalog

import (
	"context"
	"errors"
	"time"
)

// Approval is a material's moderation status. Only approved materials are
// matchable.
type Approval string

const (
	ApprovalPending  Approval = "PENDING"
	ApprovalApproved Approval = "APPROVED"
	ApprovalRejected Approval = "REJECTED"
)

// Material is the matchable view of an uploaded study artifact.
type Material struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	Subject   string    `json:"subject"`
	ExamType  string    `json:"exam_type"`
	Approval  Approval  `json:"approval"`
	CreatedAt time.Time `json:"created_at"`
}

// Approved reports whether the material may appear in matching.
func (m Material) Approved() bool { return m.Approval == ApprovalApproved }

var (
	ErrNotFound = errors.New("catalog: not found")
)

// Store describes catalog persistence. The matcher only reads; moderation
// flips the approval status.
type Store interface {
	Find(ctx context.Context, id string) (Material, error)
	FindApprovedBySubjectExam(ctx context.Context, subject, examType string) ([]Material, error)
	Save(ctx context.Context, m Material) (Material, error)
	SetApproval(ctx context.Context, id string, a Approval) error
}
