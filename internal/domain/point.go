package domain

import (
	"sort"
	"time"
)

// Point is a single captured sample or a segment separator. ID is the only
// ordering and identity key. Separators carry null coordinates.
type Point struct {
	ID             int64    `json:"id" validate:"min=0"`
	X              *float64 `json:"x"`
	Y              *float64 `json:"y"`
	IsEndOfSegment bool     `json:"isEndOfSegment"`
}

func NewPoint(id int64, x, y float64) Point {
	return Point{ID: id, X: &x, Y: &y}
}

func NewSeparator(id int64) Point {
	return Point{ID: id, IsEndOfSegment: true}
}

// Drawable reports whether the point has coordinates and is not a separator.
func (p Point) Drawable() bool {
	return !p.IsEndOfSegment && p.X != nil && p.Y != nil
}

// SameAs compares two points by value, following coordinate pointers.
func (p Point) SameAs(o Point) bool {
	if p.ID != o.ID || p.IsEndOfSegment != o.IsEndOfSegment {
		return false
	}
	return sameCoord(p.X, o.X) && sameCoord(p.Y, o.Y)
}

func sameCoord(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// PointSequence is an ordered list of points. Separators split it into strokes.
type PointSequence []Point

// Clone returns a copy that shares no backing array with s.
func (s PointSequence) Clone() PointSequence {
	if s == nil {
		return nil
	}
	out := make(PointSequence, len(s))
	copy(out, s)
	return out
}

// SortByID sorts s in place by ascending id.
func (s PointSequence) SortByID() {
	sort.SliceStable(s, func(i, j int) bool { return s[i].ID < s[j].ID })
}

// Sorted returns a sorted copy of s.
func (s PointSequence) Sorted() PointSequence {
	out := s.Clone()
	out.SortByID()
	return out
}

// Dedupe returns a sorted copy of s holding the first occurrence of each id.
func (s PointSequence) Dedupe() PointSequence {
	seen := make(map[int64]struct{}, len(s))
	out := make(PointSequence, 0, len(s))
	for _, p := range s {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	out.SortByID()
	return out
}

// Equal reports whether both sequences hold identical elements once sorted by id.
func (s PointSequence) Equal(o PointSequence) bool {
	if len(s) != len(o) {
		return false
	}
	a, b := s.Sorted(), o.Sorted()
	for i := range a {
		if !a[i].SameAs(b[i]) {
			return false
		}
	}
	return true
}

// MaxID returns the largest id in s, or -1 when s is empty.
func (s PointSequence) MaxID() int64 {
	max := int64(-1)
	for _, p := range s {
		if p.ID > max {
			max = p.ID
		}
	}
	return max
}

// Strokes splits s into maximal runs of drawable points.
func (s PointSequence) Strokes() []PointSequence {
	var strokes []PointSequence
	var current PointSequence
	for _, p := range s {
		if !p.Drawable() {
			if len(current) > 0 {
				strokes = append(strokes, current)
				current = nil
			}
			continue
		}
		current = append(current, p)
	}
	if len(current) > 0 {
		strokes = append(strokes, current)
	}
	return strokes
}

// Ack is returned by the store after a reset.
type Ack struct {
	Cleared int       `json:"cleared"`
	ResetAt time.Time `json:"reset_at"`
}

// ViewerIDHeader identifies the client behind a store request so its own
// echoes are not broadcast back to it.
const ViewerIDHeader = "X-Viewer-ID"
