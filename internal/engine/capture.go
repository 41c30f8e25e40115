package engine

import "sketchsync/internal/domain"

type CaptureState int

const (
	Idle CaptureState = iota
	Dragging
)

func (s CaptureState) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// Capture turns pointer events into points. It owns the optimistic
// sequence and the id counter. It is not safe for concurrent use.
type Capture struct {
	state       CaptureState
	justStarted bool
	nextID      int64
	optimistic  domain.PointSequence
}

func NewCapture() *Capture {
	return &Capture{}
}

func (c *Capture) State() CaptureState {
	return c.state
}

// NextID is the id the next captured point will get.
func (c *Capture) NextID() int64 {
	return c.nextID
}

func (c *Capture) Down() {
	c.state = Dragging
	c.justStarted = true
}

func (c *Capture) Up() {
	c.state = Idle
}

// Move records a sample while dragging and returns the new points: the
// sample, preceded by a separator when it opens a stroke that is not the
// first in the sequence. Moves while idle are ignored.
func (c *Capture) Move(x, y float64) domain.PointSequence {
	if c.state != Dragging {
		return nil
	}

	var emitted domain.PointSequence
	if c.justStarted && len(c.optimistic) > 0 {
		emitted = append(emitted, domain.NewSeparator(c.take()))
	}
	c.justStarted = false

	emitted = append(emitted, domain.NewPoint(c.take(), x, y))
	c.optimistic = append(c.optimistic, emitted...)
	return emitted
}

func (c *Capture) take() int64 {
	id := c.nextID
	c.nextID++
	return id
}

// Optimistic returns a copy of every point captured or seeded this session.
func (c *Capture) Optimistic() domain.PointSequence {
	return c.optimistic.Clone()
}

// Reset empties the optimistic sequence and restarts ids at zero.
func (c *Capture) Reset() {
	c.optimistic = nil
	c.nextID = 0
	c.justStarted = true
}

// Replace swaps the optimistic sequence for points (sorted by id) and moves
// the id counter past them. The counter never moves backwards.
func (c *Capture) Replace(points domain.PointSequence) {
	c.optimistic = points.Sorted()
	c.advance(int64(len(points)))
	c.advance(points.MaxID() + 1)
}

func (c *Capture) advance(n int64) {
	if n > c.nextID {
		c.nextID = n
	}
}
