package progress

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultStep is the percent added by one Poll.
const DefaultStep = 10

// ErrNotFound is returned by a Store when the key has never been written.
var ErrNotFound = errors.New("key not found")

// Store is the durable key-value capability the tracker persists into.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Tracker is the state holder for one analysis job. All methods are safe for
// concurrent use; every mutation is persisted and then broadcast to
// subscribers.
type Tracker struct {
	mu        sync.Mutex
	state     State
	listeners map[int]func(State)
	nextID    int
	version   uint64

	persistMu sync.Mutex
	persisted uint64

	notifyMu sync.Mutex
	notified uint64

	store          Store
	step           int
	persistTimeout time.Duration
	logger         *slog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithStep sets the percent added by Poll.
func WithStep(step int) Option {
	return func(t *Tracker) {
		if step > 0 {
			t.step = step
		}
	}
}

// WithLogger sets the logger used for persistence failures.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithPersistTimeout bounds each store call.
func WithPersistTimeout(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.persistTimeout = d
		}
	}
}

// New creates a tracker and rehydrates it from store. A missing or
// undecodable document yields the initial state; only store I/O errors are
// returned.
func New(ctx context.Context, store Store, opts ...Option) (*Tracker, error) {
	t := &Tracker{
		state:          Initial(),
		listeners:      make(map[int]func(State)),
		store:          store,
		step:           DefaultStep,
		persistTimeout: 5 * time.Second,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}

	data, err := store.Get(ctx, StorageKey)
	switch {
	case errors.Is(err, ErrNotFound):
		return t, nil
	case err != nil:
		return nil, err
	}

	s, err := decodeState(data)
	if err != nil {
		t.logger.Warn("discarding persisted progress state", "key", StorageKey, "error", err)
		return t, nil
	}
	t.state = s
	return t, nil
}

// State returns the current snapshot.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Subscribe registers fn to receive new snapshots in order. A snapshot that
// is already older than one delivered is skipped. Deliveries are serialized,
// so fn must not mutate the tracker itself. The returned func removes it.
func (t *Tracker) Subscribe(fn func(State)) (unsubscribe func()) {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.listeners, id)
		t.mu.Unlock()
	}
}

// Start moves an idle tracker to Running. It does nothing in other phases.
func (t *Tracker) Start() {
	t.update(func(s *State) bool {
		if s.Phase != Idle {
			return false
		}
		s.Phase = Running
		return true
	})
}

// Complete marks the job finished and raises the notification. Used when
// completion is confirmed outside of Poll/Advance. On a job that is already
// completed it only raises the notification again.
func (t *Tracker) Complete() {
	t.update(func(s *State) bool {
		if s.Phase == Completed {
			if s.NotificationVisible {
				return false
			}
			s.NotificationVisible = true
			return true
		}
		complete(s)
		return true
	})
}

// SetJobID records the local id of the active job.
func (t *Tracker) SetJobID(id int64) {
	t.update(func(s *State) bool {
		if s.JobID == id {
			return false
		}
		s.JobID = id
		return true
	})
}

// SetAnalysisID records the backend's opaque id of the active job.
func (t *Tracker) SetAnalysisID(id string) {
	t.update(func(s *State) bool {
		if s.AnalysisID == id {
			return false
		}
		s.AnalysisID = id
		return true
	})
}

// Poll is one heartbeat tick: while running below 100 it adds the fixed step
// and completes the job once 100 is reached.
func (t *Tracker) Poll() {
	t.update(func(s *State) bool {
		if s.Phase != Running || s.Percent >= 100 {
			return false
		}
		s.Percent = clampPercent(s.Percent + t.step)
		if s.Percent >= 100 {
			complete(s)
		}
		return true
	})
}

// Advance raises the percent to a value reported by the job. Values not above
// the current percent are ignored.
func (t *Tracker) Advance(percent int) {
	t.update(func(s *State) bool {
		if s.Phase != Running {
			return false
		}
		p := clampPercent(percent)
		if p <= s.Percent {
			return false
		}
		s.Percent = p
		if p >= 100 {
			complete(s)
		}
		return true
	})
}

// Fail moves a running job to Errored and raises the notification.
func (t *Tracker) Fail(err error) {
	msg := "analysis failed"
	if err != nil {
		msg = err.Error()
	}
	t.update(func(s *State) bool {
		if s.Phase != Running {
			return false
		}
		s.Phase = Errored
		s.Err = msg
		s.NotificationVisible = true
		return true
	})
}

// Reset restores the initial state.
func (t *Tracker) Reset() {
	t.update(func(s *State) bool {
		if *s == Initial() {
			return false
		}
		*s = Initial()
		return true
	})
}

// SetNotificationVisible shows or hides the notification.
func (t *Tracker) SetNotificationVisible(visible bool) {
	t.update(func(s *State) bool {
		if s.NotificationVisible == visible {
			return false
		}
		s.NotificationVisible = visible
		return true
	})
}

func complete(s *State) {
	s.Phase = Completed
	// A completed job always reads 100, also when confirmed by Complete
	// before the bar got there.
	s.Percent = 100
	s.Err = ""
	s.NotificationVisible = true
}

// update applies fn under the lock; when fn reports a change the new state is
// persisted and broadcast outside the lock.
func (t *Tracker) update(fn func(*State) bool) {
	t.mu.Lock()
	if !fn(&t.state) {
		t.mu.Unlock()
		return
	}
	t.version++
	version := t.version
	snapshot := t.state
	listeners := make([]func(State), 0, len(t.listeners))
	for _, l := range t.listeners {
		listeners = append(listeners, l)
	}
	t.mu.Unlock()

	t.persist(version, snapshot)
	t.notify(version, snapshot, listeners)
}

// notify hands s to listeners unless a newer snapshot was delivered first.
func (t *Tracker) notify(version uint64, s State, listeners []func(State)) {
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()
	if version <= t.notified {
		return
	}
	t.notified = version
	for _, l := range listeners {
		l(s)
	}
}

// persist writes s unless a newer snapshot has already been written.
func (t *Tracker) persist(version uint64, s State) {
	t.persistMu.Lock()
	defer t.persistMu.Unlock()
	if version <= t.persisted {
		return
	}

	data, err := encodeState(s)
	if err != nil {
		t.logger.Error("encoding progress state", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.persistTimeout)
	defer cancel()
	if err := t.store.Set(ctx, StorageKey, data); err != nil {
		t.logger.Error("persisting progress state", "key", StorageKey, "error", err)
		return
	}
	t.persisted = version
}
