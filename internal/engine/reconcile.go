package engine

import "sketchsync/internal/domain"

// Reconciler holds the confirmed sequence: every point the store has
// acknowledged, one entry per id, sorted by id after every call. It is not
// safe for concurrent use.
type Reconciler struct {
	confirmed domain.PointSequence
	index     map[int64]struct{}
}

func NewReconciler() *Reconciler {
	return &Reconciler{index: make(map[int64]struct{})}
}

// Seed replaces the confirmed sequence with points.
func (r *Reconciler) Seed(points domain.PointSequence) {
	r.confirmed = nil
	r.index = make(map[int64]struct{}, len(points))
	r.Merge(points)
}

// Merge adds newly confirmed points. Ids already present are skipped, so
// merging is idempotent and order-independent.
func (r *Reconciler) Merge(points domain.PointSequence) int {
	added := 0
	for _, p := range points {
		if _, ok := r.index[p.ID]; ok {
			continue
		}
		r.index[p.ID] = struct{}{}
		r.confirmed = append(r.confirmed, p)
		added++
	}
	if added > 0 {
		r.confirmed.SortByID()
	}
	return added
}

func (r *Reconciler) Clear() {
	r.confirmed = nil
	r.index = make(map[int64]struct{})
}

// Confirmed returns a sorted copy of the confirmed sequence.
func (r *Reconciler) Confirmed() domain.PointSequence {
	return r.confirmed.Clone()
}

func (r *Reconciler) Len() int {
	return len(r.confirmed)
}
