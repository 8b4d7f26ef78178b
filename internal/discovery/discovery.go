// Package discovery finds exchange partners: approved materials sharing a
// subject and exam type with the requester's artifact.
package discovery

import (
	"context"
	"errors"

	"studyswap.org/internal/catalog"
)

var ErrNoMatchingArtifact = errors.New("discovery: partner has no matching artifact")

// Service enumerates candidate partner materials from the catalog.
type Service struct {
	catalog catalog.Store
}

func NewService(c catalog.Store) *Service {
	return &Service{catalog: c}
}

// FindPartnerArtifact returns the partner's material in the requester
// artifact's subject/exam-type peer group. When the partner holds several,
// the most recent wins so the choice is deterministic.
func (s *Service) FindPartnerArtifact(ctx context.Context, partnerUserID, requesterArtifactID string) (catalog.Material, error) {
	own, err := s.catalog.Find(ctx, requesterArtifactID)
	if err != nil {
		return catalog.Material{}, err
	}
	peers, err := s.catalog.FindApprovedBySubjectExam(ctx, own.Subject, own.ExamType)
	if err != nil {
		return catalog.Material{}, err
	}
	for _, m := range peers {
		if m.OwnerID == partnerUserID {
			return m, nil
		}
	}
	return catalog.Material{}, ErrNoMatchingArtifact
}

// FindCandidates lists approved materials in the peer group of the
// requester's artifact, excluding the requester's own uploads. Order is
// newest first and deterministic for a fixed catalog snapshot.
func (s *Service) FindCandidates(ctx context.Context, requesterUserID, requesterArtifactID string) ([]catalog.Material, error) {
	own, err := s.catalog.Find(ctx, requesterArtifactID)
	if err != nil {
		return nil, err
	}
	peers, err := s.catalog.FindApprovedBySubjectExam(ctx, own.Subject, own.ExamType)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Material, 0, len(peers))
	for _, m := range peers {
		if m.OwnerID == requesterUserID || m.ID == requesterArtifactID {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}
