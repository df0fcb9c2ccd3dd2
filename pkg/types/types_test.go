package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	domain "github.com/AbdullahP/pokealert/pkg/types"
)

func TestKindForURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		want domain.TargetKind
	}{
		{
			name: "dutch wishlist path",
			url:  "https://www.bol.com/nl/rnwy/verlanglijstje/abc123",
			want: domain.KindCollection,
		},
		{
			name: "english wishlist path",
			url:  "https://www.bol.com/nl/wishlist/xyz",
			want: domain.KindCollection,
		},
		{
			name: "product page",
			url:  "https://www.bol.com/nl/p/pokemon-elite-trainer-box/9300000123456789/",
			want: domain.KindSingleItem,
		},
		{
			name: "case insensitive",
			url:  "https://www.bol.com/nl/WISHLIST/xyz",
			want: domain.KindCollection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, domain.KindForURL(tt.url))
		})
	}
}

func TestNewPriceDelta(t *testing.T) {
	t.Parallel()

	d := domain.NewPriceDelta(50.0, 40.0)
	assert.InDelta(t, -10.0, d.Amount, 0.001)
	assert.InDelta(t, -20.0, d.Percent, 0.001)
	assert.True(t, d.Drop())

	up := domain.NewPriceDelta(40.0, 50.0)
	assert.InDelta(t, 25.0, up.Percent, 0.001)
	assert.False(t, up.Drop())
}

func TestNewPriceDelta_ZeroPrevious(t *testing.T) {
	t.Parallel()

	d := domain.NewPriceDelta(0, 59.99)
	assert.InDelta(t, 59.99, d.Amount, 0.001)
	assert.Zero(t, d.Percent)
}

func TestChangeEvent_Restock(t *testing.T) {
	t.Parallel()

	restock := domain.ChangeEvent{
		Previous: domain.StockOutOfStock,
		Current:  domain.StockInStock,
	}
	assert.True(t, restock.Restock())

	soldOut := domain.ChangeEvent{
		Previous: domain.StockInStock,
		Current:  domain.StockOutOfStock,
	}
	assert.False(t, soldOut.Restock())
}

func TestNotification_Due(t *testing.T) {
	t.Parallel()

	now := time.Now()

	immediate := domain.Notification{}
	assert.True(t, immediate.Due(now))

	future := now.Add(time.Minute)
	scheduled := domain.Notification{ScheduledAt: &future}
	assert.False(t, scheduled.Due(now))
	assert.True(t, scheduled.Due(future))
	assert.True(t, scheduled.Due(future.Add(time.Second)))
}

func TestDeliveryStatus_Terminal(t *testing.T) {
	t.Parallel()

	delivered := domain.DeliveryStatus{Delivered: true}
	assert.True(t, delivered.Terminal(3))

	retrying := domain.DeliveryStatus{Attempts: 2}
	assert.False(t, retrying.Terminal(3))

	exhausted := domain.DeliveryStatus{Attempts: 4}
	assert.True(t, exhausted.Terminal(3))
}

func TestItemSnapshot_PriceKnown(t *testing.T) {
	t.Parallel()

	known := domain.ItemSnapshot{Price: 49.99}
	assert.True(t, known.PriceKnown())

	unknown := domain.ItemSnapshot{Price: 0, RawPrice: "prijs onbekend"}
	assert.False(t, unknown.PriceKnown())
}
