package repository

import (
	"errors"
	"sync"

	"sketchsync/internal/domain"
)

var ErrPointNotFound = errors.New("point not found")

// PointRepository persists points keyed by id. Put overwrites.
type PointRepository interface {
	FindByID(id int64) (*domain.Point, error)
	Put(point *domain.Point) error
	List() (domain.PointSequence, error)
	DeleteAll() (int, error)
}

type memoryPointRepository struct {
	mu     sync.RWMutex
	points map[int64]domain.Point
}

func NewMemoryPointRepository() PointRepository {
	return &memoryPointRepository{
		points: make(map[int64]domain.Point),
	}
}

func (r *memoryPointRepository) FindByID(id int64) (*domain.Point, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.points[id]
	if !ok {
		return nil, ErrPointNotFound
	}
	return &p, nil
}

func (r *memoryPointRepository) Put(point *domain.Point) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.points[point.ID] = *point
	return nil
}

func (r *memoryPointRepository) List() (domain.PointSequence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	points := make(domain.PointSequence, 0, len(r.points))
	for _, p := range r.points {
		points = append(points, p)
	}
	points.SortByID()
	return points, nil
}

func (r *memoryPointRepository) DeleteAll() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.points)
	r.points = make(map[int64]domain.Point)
	return n, nil
}
