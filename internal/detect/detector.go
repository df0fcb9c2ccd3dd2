// Package detect compares fresh item snapshots against the last
// persisted state and emits change events on stock transitions.
package detect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AbdullahP/pokealert/internal/metrics"
	"github.com/AbdullahP/pokealert/internal/store"
	domain "github.com/AbdullahP/pokealert/pkg/types"
)

// Detector persists snapshots and detects stock-status transitions.
// Detection and persistence are serialized per item ID so racing checks
// of the same item can never both observe the same prior state and emit
// duplicate events.
type Detector struct {
	store   store.Store
	logger  *slog.Logger
	nowFunc func() time.Time
	idFunc  func() string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// DetectorOption configures the Detector.
type DetectorOption func(*Detector)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) DetectorOption {
	return func(d *Detector) {
		d.logger = l
	}
}

// WithNowFunc overrides the time function for testing.
func WithNowFunc(f func() time.Time) DetectorOption {
	return func(d *Detector) {
		d.nowFunc = f
	}
}

// WithIDFunc overrides event ID generation for testing.
func WithIDFunc(f func() string) DetectorOption {
	return func(d *Detector) {
		d.idFunc = f
	}
}

// New creates a Detector backed by the given store.
func New(s store.Store, opts ...DetectorOption) *Detector {
	d := &Detector{
		store:   s,
		logger:  slog.Default(),
		nowFunc: time.Now,
		idFunc:  uuid.NewString,
		locks:   make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect compares snap against the stored prior snapshot for the same
// item. The new snapshot is persisted unconditionally. A ChangeEvent is
// returned only when the stock status changed; the first sighting of an
// item persists a baseline and returns nil.
func (d *Detector) Detect(ctx context.Context, snap *domain.ItemSnapshot) (*domain.ChangeEvent, error) {
	lock := d.lockFor(snap.ItemID)
	lock.Lock()
	defer lock.Unlock()

	prior, err := d.store.GetSnapshot(ctx, snap.ItemID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("loading prior snapshot: %w", err)
	}

	if prior == nil {
		if err := d.persist(ctx, snap); err != nil {
			return nil, err
		}
		d.logger.Debug("persisted baseline snapshot",
			"item_id", snap.ItemID, "status", snap.Status)
		return nil, nil
	}

	snap.PreviousPrice = prior.Price

	var event *domain.ChangeEvent
	if snap.Status != prior.Status {
		event = &domain.ChangeEvent{
			ID:         d.idFunc(),
			ItemID:     snap.ItemID,
			TargetID:   snap.TargetID,
			Previous:   prior.Status,
			Current:    snap.Status,
			DetectedAt: d.nowFunc(),
		}
		if snap.PriceKnown() && snap.Price != prior.Price {
			event.Delta = domain.NewPriceDelta(prior.Price, snap.Price)
		}
	}

	if err := d.persist(ctx, snap); err != nil {
		// The event is withheld when the snapshot write failed, so the
		// next check re-compares against the old prior state.
		return nil, err
	}

	if event == nil {
		return nil, nil
	}

	if err := d.store.InsertChangeEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("storing change event: %w", err)
	}

	kind := "stock"
	if event.Delta != nil {
		kind = "stock_price"
	}
	metrics.ChangeEventsTotal.WithLabelValues(kind).Inc()
	d.logger.Info("detected change",
		"item_id", event.ItemID,
		"previous", event.Previous,
		"current", event.Current,
		"restock", event.Restock(),
	)
	return event, nil
}

func (d *Detector) persist(ctx context.Context, snap *domain.ItemSnapshot) error {
	if err := d.store.UpsertSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("persisting snapshot: %w", err)
	}
	if snap.PriceKnown() {
		point := &domain.PricePoint{
			ItemID:     snap.ItemID,
			TargetID:   snap.TargetID,
			Price:      snap.Price,
			ObservedAt: snap.CheckedAt,
		}
		if err := d.store.InsertPricePoint(ctx, point); err != nil {
			return fmt.Errorf("recording price point: %w", err)
		}
	}
	return nil
}

func (d *Detector) lockFor(itemID string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.locks[itemID]
	if !ok {
		l = &sync.Mutex{}
		d.locks[itemID] = l
	}
	return l
}
