// Package monitor runs the polling loops: one independent loop per
// tracked target, with a global concurrency bound on the in-flight
// fetch→parse→detect pipelines.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/AbdullahP/pokealert/internal/detect"
	"github.com/AbdullahP/pokealert/internal/fetch"
	"github.com/AbdullahP/pokealert/internal/filter"
	"github.com/AbdullahP/pokealert/internal/metrics"
	"github.com/AbdullahP/pokealert/internal/parser"
	"github.com/AbdullahP/pokealert/internal/store"
	domain "github.com/AbdullahP/pokealert/pkg/types"
)

// Publisher receives rendered notifications for delivery.
type Publisher interface {
	Queue(ctx context.Context, n *domain.Notification) error
}

// Monitor owns the per-target polling loops.
type Monitor struct {
	store     store.Store
	fetcher   fetch.Client
	parser    *parser.Parser
	filter    *filter.Filter
	detector  *detect.Detector
	publisher Publisher
	logger    *slog.Logger
	status    *StatusRecorder

	defaultInterval time.Duration
	minInterval     time.Duration
	errorBackoff    time.Duration

	// Bounds simultaneous fetch→parse→detect pipelines across all loops.
	sem chan struct{}

	// Polling loops derive from baseCtx, never from a caller's context,
	// so a loop started from an HTTP handler outlives the request.
	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu    sync.Mutex
	loops map[string]*loop
}

type loop struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures the Monitor.
type Option func(*Monitor)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) {
		m.logger = l
	}
}

// WithIntervals sets the default poll interval, the minimum floor, and
// the error backoff.
func WithIntervals(def, min, errBackoff time.Duration) Option {
	return func(m *Monitor) {
		m.defaultInterval = def
		m.minInterval = min
		m.errorBackoff = errBackoff
	}
}

// WithMaxConcurrent bounds simultaneous in-flight check pipelines.
func WithMaxConcurrent(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.sem = make(chan struct{}, n)
		}
	}
}

// New creates a Monitor.
func New(
	s store.Store,
	fetcher fetch.Client,
	p *parser.Parser,
	f *filter.Filter,
	d *detect.Detector,
	pub Publisher,
	opts ...Option,
) *Monitor {
	m := &Monitor{
		store:           s,
		fetcher:         fetcher,
		parser:          p,
		filter:          f,
		detector:        d,
		publisher:       pub,
		logger:          slog.Default(),
		status:          NewStatusRecorder(),
		defaultInterval: time.Minute,
		minInterval:     30 * time.Second,
		errorBackoff:    2 * time.Minute,
		sem:             make(chan struct{}, 10),
		loops:           make(map[string]*loop),
	}
	m.baseCtx, m.baseCancel = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Status exposes per-target monitoring health.
func (m *Monitor) Status() *StatusRecorder {
	return m.status
}

// Start launches a polling loop for every given target. Targets already
// running are left alone.
func (m *Monitor) Start(targets []domain.TrackedTarget) {
	for i := range targets {
		m.StartTarget(targets[i])
	}
}

// StartTarget launches the polling loop for one target. A second call
// for the same target ID is a no-op.
func (m *Monitor) StartTarget(target domain.TrackedTarget) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, running := m.loops[target.ID]; running {
		return
	}

	loopCtx, cancel := context.WithCancel(m.baseCtx)
	l := &loop{cancel: cancel, done: make(chan struct{})}
	m.loops[target.ID] = l
	m.status.Register(target)
	metrics.ActiveTargets.Inc()

	go m.run(loopCtx, target, l)
	m.logger.Info("started polling target", "target_id", target.ID, "url", target.URL)
}

// Stop cancels one target's loop and waits for it to exit.
func (m *Monitor) Stop(id string) {
	m.mu.Lock()
	l, ok := m.loops[id]
	if ok {
		delete(m.loops, id)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	l.cancel()
	<-l.done
	m.status.Deactivate(id)
	metrics.ActiveTargets.Dec()
	m.logger.Info("stopped polling target", "target_id", id)
}

// StopAll cancels every loop and waits for all of them to exit. The
// monitor cannot start new loops afterwards.
func (m *Monitor) StopAll() {
	m.baseCancel()
	m.mu.Lock()
	loops := m.loops
	m.loops = make(map[string]*loop)
	m.mu.Unlock()

	for id, l := range loops {
		l.cancel()
		<-l.done
		m.status.Deactivate(id)
		metrics.ActiveTargets.Dec()
	}
	m.logger.Info("stopped all polling targets", "count", len(loops))
}

// run is one target's polling loop. Iteration failures are logged and
// answered with a longer sleep; they never terminate the loop.
func (m *Monitor) run(ctx context.Context, target domain.TrackedTarget, l *loop) {
	defer close(l.done)

	for {
		sleep := m.resolveInterval(ctx, target)

		if err := m.check(ctx, target); err != nil {
			if ctx.Err() != nil {
				return
			}
			m.logger.Warn("target check failed",
				"target_id", target.ID, "url", target.URL, "error", err)
			// The failure sleep always exceeds the normal interval, even
			// when a per-domain override stretches it past the backoff.
			sleep += m.errorBackoff
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}
	}
}

// resolveInterval picks the poll interval: per-domain override first,
// then the target's own interval, then the default — never below the
// configured floor.
func (m *Monitor) resolveInterval(ctx context.Context, target domain.TrackedTarget) time.Duration {
	interval := m.defaultInterval

	if site := siteOf(target.URL); site != "" {
		if override, ok, err := m.store.IntervalForDomain(ctx, site); err == nil && ok {
			interval = override
		} else if target.Interval > 0 {
			interval = target.Interval
		}
	} else if target.Interval > 0 {
		interval = target.Interval
	}

	if interval < m.minInterval {
		interval = m.minInterval
	}
	return interval
}

func siteOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// acquire takes a global concurrency slot, honoring cancellation so
// StopAll never deadlocks on loops waiting for a slot.
func (m *Monitor) acquire(ctx context.Context) error {
	select {
	case m.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for pipeline slot: %w", ctx.Err())
	}
}

func (m *Monitor) release() {
	<-m.sem
}
