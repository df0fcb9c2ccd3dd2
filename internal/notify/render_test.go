package notify_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AbdullahP/pokealert/internal/notify"
	domain "github.com/AbdullahP/pokealert/pkg/types"
)

func TestRenderEvent_Restock(t *testing.T) {
	t.Parallel()

	detected := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	event := &domain.ChangeEvent{
		ItemID:     "9300000123456789",
		Previous:   domain.StockOutOfStock,
		Current:    domain.StockInStock,
		Delta:      domain.NewPriceDelta(60.00, 54.99),
		DetectedAt: detected,
	}
	snap := &domain.ItemSnapshot{
		ItemID:      "9300000123456789",
		Title:       "Elite Trainer Box",
		Price:       54.99,
		URL:         "https://www.bol.com/nl/p/etb/9300000123456789",
		StockDetail: "op voorraad",
		Site:        "bol.com",
	}
	target := &domain.TrackedTarget{
		ChannelID: 42,
		Mentions:  []string{"<@&111>"},
	}

	n := notify.RenderEvent(event, snap, target)

	assert.Equal(t, int64(42), n.ChannelID)
	assert.Equal(t, []string{"<@&111>"}, n.Mentions)
	assert.Equal(t, domain.PriorityHigh, n.Priority)
	assert.Equal(t, "🟢 Back in stock: Elite Trainer Box", n.Payload.Title)
	assert.Contains(t, n.Payload.Description, "Out of Stock → In Stock")
	assert.Contains(t, n.Payload.Description, "€60.00 → €54.99")
	assert.Contains(t, n.Payload.Description, "-8.3%")
	assert.Equal(t, "€54.99", n.Payload.Price)
	assert.Equal(t, detected, n.CreatedAt)
}

func TestRenderEvent_SoldOut(t *testing.T) {
	t.Parallel()

	event := &domain.ChangeEvent{
		Previous: domain.StockInStock,
		Current:  domain.StockOutOfStock,
	}
	snap := &domain.ItemSnapshot{Title: "Booster Bundle", RawPrice: "prijs onbekend"}

	n := notify.RenderEvent(event, snap, &domain.TrackedTarget{ChannelID: 7})

	assert.Equal(t, "🔴 Sold out: Booster Bundle", n.Payload.Title)
	assert.Equal(t, domain.PriorityHigh, n.Priority)
	assert.Equal(t, "prijs onbekend", n.Payload.Price)
}
