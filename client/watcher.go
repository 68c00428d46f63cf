package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
)

// DefaultTickInterval is the countdown granularity.
const DefaultTickInterval = time.Second

// ErrWatcherStarted is returned by a second Start on the same watcher.
// Remounting UI owners must stop the previous watcher first, otherwise two
// tickers could race to fire logout.
var ErrWatcherStarted = errors.New("expiry watcher already started", errors.CategoryOperation).
	WithTextCode("WATCHER_STARTED")

// ExpiryWatcher polls a Session once per interval. While time remains it
// reports the countdown; the first tick at or past expiry clears the session,
// invokes the logout callback, and stops the loop. The fired guard is an
// explicit field, not a closure-captured bool, so cancellation and remount
// stay safe.
type ExpiryWatcher struct {
	session  *Session
	interval time.Duration
	onTick   func(remaining time.Duration)
	onExpire func()

	mu      sync.Mutex
	fired   bool
	started bool

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

type WatcherOption func(*ExpiryWatcher)

// WithTickInterval overrides the 1s default, mostly for tests.
func WithTickInterval(interval time.Duration) WatcherOption {
	return func(w *ExpiryWatcher) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

// WithOnTick sets the countdown observer. remaining is always > 0 when the
// observer runs.
func WithOnTick(fn func(remaining time.Duration)) WatcherOption {
	return func(w *ExpiryWatcher) {
		w.onTick = fn
	}
}

func NewExpiryWatcher(session *Session, onExpire func(), opts ...WatcherOption) *ExpiryWatcher {
	w := &ExpiryWatcher{
		session:  session,
		interval: DefaultTickInterval,
		onExpire: onExpire,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}

	return w
}

// Start launches the tick loop. The loop ends when logout fires, Stop is
// called, or ctx is canceled. Starting twice is an error.
func (w *ExpiryWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return ErrWatcherStarted
	}
	w.started = true
	w.mu.Unlock()

	go w.run(ctx)
	return nil
}

// Stop cancels the watcher. Idempotent; safe to call whether or not logout
// already fired.
func (w *ExpiryWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Done is closed when the tick loop has exited.
func (w *ExpiryWatcher) Done() <-chan struct{} {
	return w.done
}

// Fired reports whether the logout callback has run.
func (w *ExpiryWatcher) Fired() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fired
}

func (w *ExpiryWatcher) run(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			if w.tick(ctx) {
				return
			}
		}
	}
}

// tick performs a single poll. Returns true when the loop should stop.
//
//	remaining > 0                  -> report countdown
//	remaining <= 0, session valid  -> clear, fire logout once, stop
//	remaining <= 0, already clear  -> no-op
func (w *ExpiryWatcher) tick(ctx context.Context) bool {
	w.mu.Lock()
	if w.fired {
		w.mu.Unlock()
		return true
	}
	w.mu.Unlock()

	if remaining := w.session.Remaining(); remaining > 0 {
		if w.onTick != nil {
			w.onTick(remaining)
		}
		return false
	}

	// A session with no token was cleared elsewhere; nothing to do and
	// nothing to fire.
	if w.session.Token() == "" {
		return false
	}

	w.mu.Lock()
	if w.fired {
		w.mu.Unlock()
		return true
	}
	w.fired = true
	w.mu.Unlock()

	_ = w.session.Clear(ctx)
	if w.onExpire != nil {
		w.onExpire()
	}
	return true
}

// FormatCountdown renders a remaining duration as HH:MM:SS for the session
// countdown display. Negative durations clamp to 00:00:00.
func FormatCountdown(remaining time.Duration) string {
	if remaining < 0 {
		remaining = 0
	}

	total := int64(remaining / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
