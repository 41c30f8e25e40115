package service

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"sketchsync/internal/domain"
	"sketchsync/internal/repository"
	"sketchsync/internal/wire"
)

// Broadcaster delivers store events to connected viewers.
type Broadcaster interface {
	Broadcast(message *wire.Message, excludeViewerID string) error
}

type PointService struct {
	repo        repository.PointRepository
	broadcaster Broadcaster
	logger      *slog.Logger

	// serialises the read-compare-write in Append and the wipe in Reset
	mu sync.Mutex
}

func NewPointService(repo repository.PointRepository, broadcaster Broadcaster) *PointService {
	return &PointService{
		repo:        repo,
		broadcaster: broadcaster,
		logger:      slog.With("component", "point_service"),
	}
}

// Append stores points and returns the accepted subset in id order. A point
// is accepted when its id is new, or when the stored point with that id is
// identical (replays are idempotent). Conflicting points are dropped.
func (s *PointService) Append(viewerID string, points domain.PointSequence) (domain.PointSequence, error) {
	if err := checkBatch(points); err != nil {
		return nil, err
	}

	s.mu.Lock()
	accepted := make(domain.PointSequence, 0, len(points))
	var fresh domain.PointSequence
	for i := range points {
		p := points[i]

		existing, err := s.repo.FindByID(p.ID)
		switch {
		case err == nil:
			if existing.SameAs(p) {
				accepted = append(accepted, p)
			} else {
				s.logger.Warn("rejecting conflicting point", "id", p.ID, "viewer", viewerID)
			}
			continue
		case !errors.Is(err, repository.ErrPointNotFound):
			s.mu.Unlock()
			return nil, err
		}

		if err := s.repo.Put(&p); err != nil {
			s.mu.Unlock()
			return nil, err
		}
		accepted = append(accepted, p)
		fresh = append(fresh, p)
	}
	s.mu.Unlock()

	accepted = accepted.Dedupe()

	if len(fresh) > 0 {
		s.broadcastPoints(viewerID, fresh)
	}

	return accepted, nil
}

func (s *PointService) List() (domain.PointSequence, error) {
	points, err := s.repo.List()
	if err != nil {
		return nil, err
	}
	points.SortByID()
	return points, nil
}

func (s *PointService) Reset(viewerID string) (*domain.Ack, error) {
	s.mu.Lock()
	cleared, err := s.repo.DeleteAll()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	ack := &domain.Ack{
		Cleared: cleared,
		ResetAt: time.Now(),
	}

	s.logger.Info("store reset", "cleared", cleared, "viewer", viewerID)

	if s.broadcaster != nil {
		msg, err := wire.NewMessage(wire.TypeReset, &wire.ResetPayload{
			ViewerID: viewerID,
			Cleared:  cleared,
		})
		if err == nil {
			s.broadcaster.Broadcast(msg, viewerID)
		}
	}

	return ack, nil
}

func (s *PointService) broadcastPoints(viewerID string, points domain.PointSequence) {
	if s.broadcaster == nil {
		return
	}

	points.SortByID()
	msg, err := wire.NewMessage(wire.TypePointsAdded, &wire.PointsAddedPayload{
		ViewerID: viewerID,
		Points:   points,
	})
	if err != nil {
		s.logger.Error("failed to build broadcast", "err", err)
		return
	}

	if err := s.broadcaster.Broadcast(msg, viewerID); err != nil {
		s.logger.Error("failed to broadcast points", "err", err)
	}
}

// checkBatch rejects a request that names the same id twice with different content.
func checkBatch(points domain.PointSequence) error {
	seen := make(map[int64]domain.Point, len(points))
	for _, p := range points {
		if prev, ok := seen[p.ID]; ok && !prev.SameAs(p) {
			return &ValidationError{Reason: fmt.Sprintf("point %d appears twice with different content", p.ID)}
		}
		seen[p.ID] = p
	}
	return nil
}
