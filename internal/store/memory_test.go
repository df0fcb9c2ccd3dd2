package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdullahP/pokealert/internal/store"
	domain "github.com/AbdullahP/pokealert/pkg/types"
)

func TestMemoryStore_Targets(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := store.NewMemoryStore()

	target := &domain.TrackedTarget{
		ID:        "t1",
		URL:       "https://www.bol.com/nl/p/x/123",
		Kind:      domain.KindSingleItem,
		ChannelID: 42,
		Interval:  time.Minute,
		Active:    true,
	}
	require.NoError(t, s.CreateTarget(ctx, target))

	got, err := s.GetTarget(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, target.URL, got.URL)
	assert.False(t, got.CreatedAt.IsZero())

	require.NoError(t, s.SetTargetActive(ctx, "t1", false))
	active, err := s.ListTargets(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := s.ListTargets(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, s.DeleteTarget(ctx, "t1"))
	_, err = s.GetTarget(ctx, "t1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMemoryStore_DeleteTargetCascadesHistory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := store.NewMemoryStore()

	for _, id := range []string{"t1", "t2"} {
		require.NoError(t, s.CreateTarget(ctx, &domain.TrackedTarget{
			ID: id, URL: "https://www.bol.com/nl/p/x/" + id, ChannelID: 42,
		}))
	}

	now := time.Now()
	require.NoError(t, s.UpsertSnapshot(ctx, &domain.ItemSnapshot{
		ItemID: "123", TargetID: "t1", Status: domain.StockInStock, CheckedAt: now,
	}))
	require.NoError(t, s.UpsertSnapshot(ctx, &domain.ItemSnapshot{
		ItemID: "456", TargetID: "t2", Status: domain.StockInStock, CheckedAt: now,
	}))
	require.NoError(t, s.InsertPricePoint(ctx, &domain.PricePoint{
		ItemID: "123", TargetID: "t1", Price: 54.99, ObservedAt: now,
	}))
	require.NoError(t, s.InsertPricePoint(ctx, &domain.PricePoint{
		ItemID: "456", TargetID: "t2", Price: 19.99, ObservedAt: now,
	}))
	require.NoError(t, s.InsertChangeEvent(ctx, &domain.ChangeEvent{
		ID: "e1", ItemID: "123", TargetID: "t1",
		Previous: domain.StockOutOfStock, Current: domain.StockInStock, DetectedAt: now,
	}))
	require.NoError(t, s.InsertChangeEvent(ctx, &domain.ChangeEvent{
		ID: "e2", ItemID: "456", TargetID: "t2",
		Previous: domain.StockOutOfStock, Current: domain.StockInStock, DetectedAt: now,
	}))

	require.NoError(t, s.DeleteTarget(ctx, "t1"))

	_, err := s.GetSnapshot(ctx, "123")
	assert.ErrorIs(t, err, store.ErrNotFound, "snapshot goes with its target")

	points, err := s.ListPricePoints(ctx, "123", 0)
	require.NoError(t, err)
	assert.Empty(t, points, "price history goes with its target")

	pending, err := s.ListUnnotifiedEvents(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1, "other targets' events survive")
	assert.Equal(t, "e2", pending[0].ID)

	_, err = s.GetSnapshot(ctx, "456")
	assert.NoError(t, err)
}

func TestMemoryStore_SnapshotOverwrite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := store.NewMemoryStore()

	_, err := s.GetSnapshot(ctx, "123")
	assert.ErrorIs(t, err, store.ErrNotFound)

	first := &domain.ItemSnapshot{ItemID: "123", Title: "ETB", Price: 54.99, Status: domain.StockInStock}
	require.NoError(t, s.UpsertSnapshot(ctx, first))

	second := &domain.ItemSnapshot{ItemID: "123", Title: "ETB", Price: 49.99, Status: domain.StockOutOfStock}
	require.NoError(t, s.UpsertSnapshot(ctx, second))

	got, err := s.GetSnapshot(ctx, "123")
	require.NoError(t, err)
	assert.Equal(t, domain.StockOutOfStock, got.Status)
	assert.InDelta(t, 49.99, got.Price, 0.001)
}

func TestMemoryStore_PricePoints(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := store.NewMemoryStore()

	base := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.InsertPricePoint(ctx, &domain.PricePoint{
			ItemID:     "123",
			Price:      50 + float64(i),
			ObservedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	points, err := s.ListPricePoints(ctx, "123", 3)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.InDelta(t, 54, points[0].Price, 0.001, "newest first")
}

func TestMemoryStore_ChangeEvents(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := store.NewMemoryStore()

	e := &domain.ChangeEvent{
		ID:         "e1",
		ItemID:     "123",
		Previous:   domain.StockOutOfStock,
		Current:    domain.StockInStock,
		DetectedAt: time.Now(),
	}
	require.NoError(t, s.InsertChangeEvent(ctx, e))

	pending, err := s.ListUnnotifiedEvents(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, s.MarkEventNotified(ctx, "e1"))
	pending, err = s.ListUnnotifiedEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestMemoryStore_DueNotificationOrdering(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := store.NewMemoryStore()

	now := time.Now()
	future := now.Add(time.Hour)

	low := &domain.Notification{ID: "n-low", Priority: domain.PriorityLow, MaxRetries: 3, CreatedAt: now}
	high := &domain.Notification{ID: "n-high", Priority: domain.PriorityHigh, MaxRetries: 3, CreatedAt: now.Add(time.Second)}
	later := &domain.Notification{ID: "n-later", Priority: domain.PriorityHigh, MaxRetries: 3, CreatedAt: now, ScheduledAt: &future}

	for _, n := range []*domain.Notification{low, high, later} {
		require.NoError(t, s.InsertNotification(ctx, n))
	}

	due, err := s.ListDueNotifications(ctx, now, 3)
	require.NoError(t, err)
	require.Len(t, due, 2, "future-scheduled notification excluded")
	assert.Equal(t, "n-high", due[0].ID, "priority before creation time")
	assert.Equal(t, "n-low", due[1].ID)
}

func TestMemoryStore_DueExcludesDeliveredAndExhausted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := store.NewMemoryStore()

	now := time.Now()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.InsertNotification(ctx, &domain.Notification{
			ID: id, Priority: domain.PriorityHigh, MaxRetries: 3, CreatedAt: now,
		}))
	}

	require.NoError(t, s.UpsertDeliveryStatus(ctx, &domain.DeliveryStatus{
		NotificationID: "a", Attempts: 1, Delivered: true,
	}))
	require.NoError(t, s.UpsertDeliveryStatus(ctx, &domain.DeliveryStatus{
		NotificationID: "b", Attempts: 4,
	}))

	due, err := s.ListDueNotifications(ctx, now, 3)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "c", due[0].ID)

	// A dropped notification leaves the queue even with attempts left.
	require.NoError(t, s.UpsertDeliveryStatus(ctx, &domain.DeliveryStatus{
		NotificationID: "c", Attempts: 1, Dropped: true,
	}))
	due, err = s.ListDueNotifications(ctx, now, 3)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestMemoryStore_DeliveredIsMonotonic(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := store.NewMemoryStore()

	at := time.Now()
	require.NoError(t, s.UpsertDeliveryStatus(ctx, &domain.DeliveryStatus{
		NotificationID: "n1", Attempts: 1, Delivered: true, DeliveredAt: &at,
	}))

	// A racing late failure update must not clear the delivered flag.
	require.NoError(t, s.UpsertDeliveryStatus(ctx, &domain.DeliveryStatus{
		NotificationID: "n1", Attempts: 2, Delivered: false, LastError: "timeout",
	}))

	d, err := s.GetDeliveryStatus(ctx, "n1")
	require.NoError(t, err)
	assert.True(t, d.Delivered)
	assert.NotNil(t, d.DeliveredAt)
	assert.Equal(t, 2, d.Attempts)

	// Dropped is monotonic the same way.
	require.NoError(t, s.UpsertDeliveryStatus(ctx, &domain.DeliveryStatus{
		NotificationID: "n2", Attempts: 1, Dropped: true,
	}))
	require.NoError(t, s.UpsertDeliveryStatus(ctx, &domain.DeliveryStatus{
		NotificationID: "n2", Attempts: 2,
	}))
	d, err = s.GetDeliveryStatus(ctx, "n2")
	require.NoError(t, err)
	assert.True(t, d.Dropped)
}

func TestMemoryStore_Batches(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := store.NewMemoryStore()

	now := time.Now()
	b := &domain.NotificationBatch{
		ID:        "b1",
		ChannelID: 42,
		Window:    time.Minute,
		Status:    domain.BatchPending,
		CreatedAt: now,
	}
	require.NoError(t, s.CreateBatch(ctx, b))

	open, err := s.FindOpenBatch(ctx, 42, now.Add(30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, "b1", open.ID)

	// Outside the window the batch no longer accepts members.
	_, err = s.FindOpenBatch(ctx, 42, now.Add(2*time.Minute))
	assert.ErrorIs(t, err, store.ErrNotFound)

	batchID := "b1"
	require.NoError(t, s.InsertNotification(ctx, &domain.Notification{
		ID: "n1", ChannelID: 42, BatchID: &batchID, CreatedAt: now,
	}))

	members, err := s.ListBatchNotifications(ctx, "b1")
	require.NoError(t, err)
	assert.Len(t, members, 1)

	require.NoError(t, s.MarkBatchProcessed(ctx, "b1", now))
	got, err := s.GetBatch(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, domain.BatchProcessed, got.Status)
	require.NotNil(t, got.ProcessedAt)

	// Processing twice is rejected.
	assert.ErrorIs(t, s.MarkBatchProcessed(ctx, "b1", now), store.ErrNotFound)
}

func TestMemoryStore_ThresholdsAndIntervals(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := store.NewMemoryStore()

	require.NoError(t, s.UpsertThreshold(ctx, domain.PriceThreshold{Keyword: "Elite Trainer Box", MaxPrice: 60}))
	require.NoError(t, s.UpsertThreshold(ctx, domain.PriceThreshold{Keyword: "Booster Bundle", MaxPrice: 35}))

	ths, err := s.ListThresholds(ctx)
	require.NoError(t, err)
	require.Len(t, ths, 2)
	assert.Equal(t, "Booster Bundle", ths[0].Keyword, "sorted by keyword")

	require.NoError(t, s.DeleteThreshold(ctx, "Booster Bundle"))
	assert.ErrorIs(t, s.DeleteThreshold(ctx, "Booster Bundle"), store.ErrNotFound)

	_, ok, err := s.IntervalForDomain(ctx, "bol.com")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetDomainInterval(ctx, "bol.com", 45*time.Second))
	d, ok, err := s.IntervalForDomain(ctx, "bol.com")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 45*time.Second, d)
}
