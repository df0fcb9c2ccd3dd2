package detect_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdullahP/pokealert/internal/detect"
	"github.com/AbdullahP/pokealert/internal/store"
	"github.com/AbdullahP/pokealert/pkg/logger"
	domain "github.com/AbdullahP/pokealert/pkg/types"
)

func newDetector(s store.Store) *detect.Detector {
	return detect.New(s, detect.WithLogger(logger.Discard()))
}

func snapshot(status domain.StockStatus, price float64) *domain.ItemSnapshot {
	return &domain.ItemSnapshot{
		ItemID:    "9300000123456789",
		TargetID:  "t1",
		Title:     "Elite Trainer Box",
		Price:     price,
		Status:    status,
		CheckedAt: time.Now(),
	}
}

func TestDetect_BaselineReturnsNil(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := store.NewMemoryStore()
	d := newDetector(s)

	event, err := d.Detect(ctx, snapshot(domain.StockInStock, 54.99))
	require.NoError(t, err)
	assert.Nil(t, event, "first sighting persists a baseline without an event")

	stored, err := s.GetSnapshot(ctx, "9300000123456789")
	require.NoError(t, err)
	assert.Equal(t, domain.StockInStock, stored.Status)

	// Repeating with the same status is idempotent.
	event, err = d.Detect(ctx, snapshot(domain.StockInStock, 54.99))
	require.NoError(t, err)
	assert.Nil(t, event)
}

func TestDetect_StockOnlyTransition(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := store.NewMemoryStore()
	d := newDetector(s)

	_, err := d.Detect(ctx, snapshot(domain.StockInStock, 54.99))
	require.NoError(t, err)

	event, err := d.Detect(ctx, snapshot(domain.StockOutOfStock, 54.99))
	require.NoError(t, err)
	require.NotNil(t, event)

	assert.Equal(t, domain.StockInStock, event.Previous)
	assert.Equal(t, domain.StockOutOfStock, event.Current)
	assert.Equal(t, "t1", event.TargetID, "event ties back to the owning target")
	assert.Nil(t, event.Delta, "no price delta when the price is unchanged")
	assert.False(t, event.Restock())
}

func TestDetect_RestockWithPriceDelta(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := store.NewMemoryStore()
	d := newDetector(s)

	_, err := d.Detect(ctx, snapshot(domain.StockOutOfStock, 50.00))
	require.NoError(t, err)

	event, err := d.Detect(ctx, snapshot(domain.StockInStock, 40.00))
	require.NoError(t, err)
	require.NotNil(t, event)
	require.NotNil(t, event.Delta)

	assert.True(t, event.Restock())
	assert.InDelta(t, -20.0, event.Delta.Percent, 0.001)
	assert.InDelta(t, -10.0, event.Delta.Amount, 0.001)
}

func TestDetect_ZeroPriorPrice(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := store.NewMemoryStore()
	d := newDetector(s)

	_, err := d.Detect(ctx, snapshot(domain.StockOutOfStock, 0))
	require.NoError(t, err)

	event, err := d.Detect(ctx, snapshot(domain.StockInStock, 59.99))
	require.NoError(t, err)
	require.NotNil(t, event)
	require.NotNil(t, event.Delta)
	assert.Zero(t, event.Delta.Percent, "zero prior price must not divide")
}

func TestDetect_SnapshotPersistedWithoutChange(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := store.NewMemoryStore()
	d := newDetector(s)

	_, err := d.Detect(ctx, snapshot(domain.StockInStock, 54.99))
	require.NoError(t, err)

	// Price moved but stock did not: no event, yet the snapshot and a
	// price point are still written.
	event, err := d.Detect(ctx, snapshot(domain.StockInStock, 49.99))
	require.NoError(t, err)
	assert.Nil(t, event)

	stored, err := s.GetSnapshot(ctx, "9300000123456789")
	require.NoError(t, err)
	assert.InDelta(t, 49.99, stored.Price, 0.001)
	assert.InDelta(t, 54.99, stored.PreviousPrice, 0.001)

	points, err := s.ListPricePoints(ctx, "9300000123456789", 10)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "t1", points[0].TargetID)
}

func TestDetect_ConcurrentChecksEmitOneEvent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := store.NewMemoryStore()
	d := newDetector(s)

	_, err := d.Detect(ctx, snapshot(domain.StockOutOfStock, 54.99))
	require.NoError(t, err)

	const racers = 8
	var wg sync.WaitGroup
	events := make(chan *domain.ChangeEvent, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			event, err := d.Detect(ctx, snapshot(domain.StockInStock, 54.99))
			assert.NoError(t, err)
			if event != nil {
				events <- event
			}
		}()
	}
	wg.Wait()
	close(events)

	var fired []*domain.ChangeEvent
	for e := range events {
		fired = append(fired, e)
	}
	assert.Len(t, fired, 1, "racing checks of one item emit exactly one event")
}
