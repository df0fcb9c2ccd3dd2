package store

import (
	"context"
	"sort"
	"sync"
	"time"

	domain "github.com/AbdullahP/pokealert/pkg/types"
)

// MemoryStore implements Store with in-process maps. It backs tests and
// the dev mode; data does not survive a restart.
type MemoryStore struct {
	mu sync.RWMutex

	targets       map[string]domain.TrackedTarget
	snapshots     map[string]domain.ItemSnapshot
	pricePoints   map[string][]domain.PricePoint
	events        map[string]domain.ChangeEvent
	notifications map[string]domain.Notification
	deliveries    map[string]domain.DeliveryStatus
	batches       map[string]domain.NotificationBatch
	thresholds    map[string]float64
	intervals     map[string]time.Duration
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		targets:       make(map[string]domain.TrackedTarget),
		snapshots:     make(map[string]domain.ItemSnapshot),
		pricePoints:   make(map[string][]domain.PricePoint),
		events:        make(map[string]domain.ChangeEvent),
		notifications: make(map[string]domain.Notification),
		deliveries:    make(map[string]domain.DeliveryStatus),
		batches:       make(map[string]domain.NotificationBatch),
		thresholds:    make(map[string]float64),
		intervals:     make(map[string]time.Duration),
	}
}

// Ping implements Store.
func (m *MemoryStore) Ping(_ context.Context) error { return nil }

// Close implements Store.
func (m *MemoryStore) Close() {}

// CreateTarget implements Store.
func (m *MemoryStore) CreateTarget(_ context.Context, t *domain.TrackedTarget) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	m.targets[t.ID] = *t
	return nil
}

// GetTarget implements Store.
func (m *MemoryStore) GetTarget(_ context.Context, id string) (*domain.TrackedTarget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.targets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

// ListTargets implements Store.
func (m *MemoryStore) ListTargets(_ context.Context, activeOnly bool) ([]domain.TrackedTarget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.TrackedTarget
	for _, t := range m.targets {
		if activeOnly && !t.Active {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// SetTargetActive implements Store.
func (m *MemoryStore) SetTargetActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.targets[id]
	if !ok {
		return ErrNotFound
	}
	t.Active = active
	t.UpdatedAt = time.Now()
	m.targets[id] = t
	return nil
}

// DeleteTarget implements Store. History rows owned by the target
// (snapshots, price points, change events) go with it, mirroring the
// ON DELETE CASCADE foreign keys in the SQL schema.
func (m *MemoryStore) DeleteTarget(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.targets[id]; !ok {
		return ErrNotFound
	}
	delete(m.targets, id)
	for itemID, s := range m.snapshots {
		if s.TargetID == id {
			delete(m.snapshots, itemID)
		}
	}
	for itemID, points := range m.pricePoints {
		kept := points[:0]
		for _, p := range points {
			if p.TargetID != id {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			delete(m.pricePoints, itemID)
		} else {
			m.pricePoints[itemID] = kept
		}
	}
	for eventID, e := range m.events {
		if e.TargetID == id {
			delete(m.events, eventID)
		}
	}
	return nil
}

// GetSnapshot implements Store.
func (m *MemoryStore) GetSnapshot(_ context.Context, itemID string) (*domain.ItemSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snapshots[itemID]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

// UpsertSnapshot implements Store.
func (m *MemoryStore) UpsertSnapshot(_ context.Context, s *domain.ItemSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[s.ItemID] = *s
	return nil
}

// InsertPricePoint implements Store.
func (m *MemoryStore) InsertPricePoint(_ context.Context, p *domain.PricePoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pricePoints[p.ItemID] = append(m.pricePoints[p.ItemID], *p)
	return nil
}

// ListPricePoints implements Store.
func (m *MemoryStore) ListPricePoints(_ context.Context, itemID string, limit int) ([]domain.PricePoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	points := append([]domain.PricePoint(nil), m.pricePoints[itemID]...)
	sort.Slice(points, func(i, j int) bool {
		return points[i].ObservedAt.After(points[j].ObservedAt)
	})
	if limit > 0 && len(points) > limit {
		points = points[:limit]
	}
	return points, nil
}

// InsertChangeEvent implements Store.
func (m *MemoryStore) InsertChangeEvent(_ context.Context, e *domain.ChangeEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[e.ID] = *e
	return nil
}

// ListUnnotifiedEvents implements Store.
func (m *MemoryStore) ListUnnotifiedEvents(_ context.Context) ([]domain.ChangeEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.ChangeEvent
	for _, e := range m.events {
		if !e.Notified {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DetectedAt.Before(out[j].DetectedAt)
	})
	return out, nil
}

// MarkEventNotified implements Store.
func (m *MemoryStore) MarkEventNotified(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return ErrNotFound
	}
	e.Notified = true
	m.events[id] = e
	return nil
}

// InsertNotification implements Store.
func (m *MemoryStore) InsertNotification(_ context.Context, n *domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications[n.ID] = *n
	return nil
}

// UpdateNotification implements Store.
func (m *MemoryStore) UpdateNotification(_ context.Context, n *domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.notifications[n.ID]
	if !ok {
		return ErrNotFound
	}
	stored.ScheduledAt = n.ScheduledAt
	stored.BatchID = n.BatchID
	stored.RetryCount = n.RetryCount
	m.notifications[n.ID] = stored
	return nil
}

// GetNotification implements Store.
func (m *MemoryStore) GetNotification(_ context.Context, id string) (*domain.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.notifications[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &n, nil
}

// ListDueNotifications implements Store.
func (m *MemoryStore) ListDueNotifications(_ context.Context, now time.Time, maxRetries int) ([]domain.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Notification
	for _, n := range m.notifications {
		d := m.deliveries[n.ID]
		if d.Delivered || d.Dropped || d.Attempts >= maxRetries {
			continue
		}
		if !n.Due(now) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// GetDeliveryStatus implements Store.
func (m *MemoryStore) GetDeliveryStatus(_ context.Context, notificationID string) (*domain.DeliveryStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.deliveries[notificationID]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

// UpsertDeliveryStatus implements Store. The delivered and dropped
// flags never revert once set.
func (m *MemoryStore) UpsertDeliveryStatus(_ context.Context, d *domain.DeliveryStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.deliveries[d.NotificationID]
	next := *d
	if stored.Delivered {
		next.Delivered = true
		next.DeliveredAt = stored.DeliveredAt
	}
	if stored.Dropped {
		next.Dropped = true
	}
	m.deliveries[d.NotificationID] = next
	return nil
}

// CreateBatch implements Store.
func (m *MemoryStore) CreateBatch(_ context.Context, b *domain.NotificationBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches[b.ID] = *b
	return nil
}

// GetBatch implements Store.
func (m *MemoryStore) GetBatch(_ context.Context, id string) (*domain.NotificationBatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.batches[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

// FindOpenBatch implements Store.
func (m *MemoryStore) FindOpenBatch(_ context.Context, channelID int64, now time.Time) (*domain.NotificationBatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var newest *domain.NotificationBatch
	for _, b := range m.batches {
		if b.ChannelID != channelID || b.Status != domain.BatchPending {
			continue
		}
		if !b.CreatedAt.Add(b.Window).After(now) {
			continue
		}
		if newest == nil || b.CreatedAt.After(newest.CreatedAt) {
			copied := b
			newest = &copied
		}
	}
	if newest == nil {
		return nil, ErrNotFound
	}
	return newest, nil
}

// ListBatchNotifications implements Store.
func (m *MemoryStore) ListBatchNotifications(_ context.Context, batchID string) ([]domain.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Notification
	for _, n := range m.notifications {
		if n.BatchID != nil && *n.BatchID == batchID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// MarkBatchProcessed implements Store.
func (m *MemoryStore) MarkBatchProcessed(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok || b.Status != domain.BatchPending {
		return ErrNotFound
	}
	b.Status = domain.BatchProcessed
	b.ProcessedAt = &at
	m.batches[id] = b
	return nil
}

// ListThresholds implements Store.
func (m *MemoryStore) ListThresholds(_ context.Context) ([]domain.PriceThreshold, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.PriceThreshold
	for kw, max := range m.thresholds {
		out = append(out, domain.PriceThreshold{Keyword: kw, MaxPrice: max})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Keyword < out[j].Keyword
	})
	return out, nil
}

// UpsertThreshold implements Store.
func (m *MemoryStore) UpsertThreshold(_ context.Context, th domain.PriceThreshold) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.thresholds[th.Keyword] = th.MaxPrice
	return nil
}

// DeleteThreshold implements Store.
func (m *MemoryStore) DeleteThreshold(_ context.Context, keyword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.thresholds[keyword]; !ok {
		return ErrNotFound
	}
	delete(m.thresholds, keyword)
	return nil
}

// IntervalForDomain implements Store.
func (m *MemoryStore) IntervalForDomain(_ context.Context, site string) (time.Duration, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.intervals[site]
	return d, ok, nil
}

// SetDomainInterval implements Store.
func (m *MemoryStore) SetDomainInterval(_ context.Context, site string, interval time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intervals[site] = interval
	return nil
}
