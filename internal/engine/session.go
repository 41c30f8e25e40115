// Package engine keeps a drawing session in sync with the point store.
//
// A Session captures pointer input into an optimistic sequence, batches new
// points through a Throttle and merges what the store accepts into the
// confirmed sequence. Renderers read both through Snapshot.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"sketchsync/internal/domain"
	"sketchsync/internal/transport"
)

const DefaultFlushInterval = 200 * time.Millisecond

// Store is the remote side of a session. *transport.Client implements it.
type Store interface {
	Append(ctx context.Context, points domain.PointSequence) (domain.PointSequence, error)
	List(ctx context.Context) (domain.PointSequence, error)
	Clear(ctx context.Context) (*domain.Ack, error)
}

// View is a point-in-time copy of both sequences, each sorted by id.
type View struct {
	Optimistic domain.PointSequence
	Confirmed  domain.PointSequence
}

type Session struct {
	store    Store
	logger   *slog.Logger
	throttle *Throttle
	interval time.Duration
	after    AfterFunc

	ctx     context.Context
	cancel  context.CancelFunc
	flights sync.WaitGroup

	mu         sync.Mutex
	capture    *Capture
	reconciler *Reconciler
	pending    domain.PointSequence
	closed     bool
	// epoch changes on every reset so confirmations from earlier flushes can be told apart.
	epoch uint64
}

type SessionOption func(*Session)

func WithFlushInterval(d time.Duration) SessionOption {
	return func(s *Session) { s.interval = d }
}

func WithAfterFunc(f AfterFunc) SessionOption {
	return func(s *Session) { s.after = f }
}

func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

func NewSession(store Store, opts ...SessionOption) *Session {
	s := &Session{
		store:      store,
		logger:     slog.Default(),
		interval:   DefaultFlushInterval,
		capture:    NewCapture(),
		reconciler: NewReconciler(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "session")
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.throttle = NewThrottle(s.interval, s.flush, s.after)
	return s
}

func (s *Session) Down() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capture.Down()
}

func (s *Session) Up() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capture.Up()
}

// Move records a pointer sample. New points are queued and a flush is
// requested; a move while the pointer is up does nothing.
func (s *Session) Move(x, y float64) {
	s.mu.Lock()
	emitted := s.capture.Move(x, y)
	s.pending = append(s.pending, emitted...)
	s.mu.Unlock()

	// a leading flush takes s.mu, so trigger only after unlocking
	if len(emitted) > 0 {
		s.throttle.Trigger()
	}
}

// Flush sends whatever is pending now instead of waiting for the throttle window.
func (s *Session) Flush() {
	s.flush()
}

func (s *Session) flush() {
	s.mu.Lock()
	if s.closed || len(s.pending) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.pending
	s.pending = nil
	epoch := s.epoch
	s.flights.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.flights.Done()

		accepted, err := s.store.Append(s.ctx, batch)
		if err != nil {
			s.logger.Error("flush failed", "points", len(batch), "err", err)
			return
		}
		if len(accepted) < len(batch) {
			s.logger.Warn("store rejected points", "sent", len(batch), "accepted", len(accepted))
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.epoch != epoch {
			s.logger.Info("dropping confirmation from before reset", "points", len(accepted))
			return
		}
		s.reconciler.Merge(accepted)
	}()
}

// Refresh pulls the store's points and seeds both views with them. Local
// points the store does not have yet stay in the optimistic view.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	epoch := s.epoch
	s.mu.Unlock()

	points, err := s.store.List(ctx)
	if err != nil {
		s.logger.Error("refresh failed", "err", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		s.logger.Info("dropping refresh from before reset", "points", len(points))
		return nil
	}

	s.reconciler.Seed(points)
	confirmed := s.reconciler.Confirmed()
	s.capture.Replace(append(confirmed, s.capture.Optimistic()...).Dedupe())
	return nil
}

// Reset clears both views at once, then asks the store to clear. Pending
// points are dropped and confirmations still in flight are ignored.
func (s *Session) Reset(ctx context.Context) (*domain.Ack, error) {
	s.clearLocal()

	ack, err := s.store.Clear(ctx)
	if err != nil {
		s.logger.Error("reset failed", "err", err)
		return nil, err
	}
	return ack, nil
}

func (s *Session) clearLocal() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	s.pending = nil
	s.capture.Reset()
	s.reconciler.Clear()
}

// HandleEvent applies a feed event written by another viewer.
func (s *Session) HandleEvent(ev transport.Event) {
	switch ev.Type {
	case transport.EventPointsAdded:
		s.mu.Lock()
		s.reconciler.Merge(ev.Points)
		// the next local stroke must start with a separator
		s.capture.Replace(append(s.capture.Optimistic(), ev.Points...).Dedupe())
		s.mu.Unlock()

	case transport.EventReset:
		s.logger.Info("store reset by another viewer", "viewer_id", ev.ViewerID)
		s.clearLocal()

	case transport.EventResync:
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		s.flights.Add(1)
		s.mu.Unlock()

		go func() {
			defer s.flights.Done()
			_ = s.Refresh(s.ctx)
		}()
	}
}

// Snapshot returns both sequences. Either may be empty, never unsorted.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	return View{
		Optimistic: s.capture.Optimistic().Sorted(),
		Confirmed:  s.reconciler.Confirmed(),
	}
}

func (s *Session) State() CaptureState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capture.State()
}

// Pending is the number of points waiting for the next flush.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Wait blocks until every dispatched flush and resync has finished or ctx
// ends. Calls still in flight when ctx ends keep running until Close.
func (s *Session) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.flights.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the throttle and cancels store calls still in flight. Call
// Flush and Wait first to deliver pending points. Events and flushes after
// Close are ignored.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.throttle.Stop()
	s.cancel()
	s.flights.Wait()
}
