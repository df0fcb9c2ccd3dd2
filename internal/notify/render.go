package notify

import (
	"fmt"

	domain "github.com/AbdullahP/pokealert/pkg/types"
)

// RenderEvent builds the transport-agnostic notification for a change
// event, using the snapshot for presentation fields and the target for
// routing.
func RenderEvent(event *domain.ChangeEvent, snap *domain.ItemSnapshot, target *domain.TrackedTarget) *domain.Notification {
	payload := domain.Payload{
		Title:        title(event, snap),
		Description:  description(event, snap),
		URL:          snap.URL,
		PurchaseURL:  snap.PurchaseURL,
		ImageURL:     snap.ImageURL,
		Color:        color(event),
		Status:       event.Current,
		Price:        priceText(snap),
		DeliveryInfo: snap.DeliveryInfo,
		Site:         snap.Site,
		Timestamp:    event.DetectedAt,
	}

	return &domain.Notification{
		ItemID:    event.ItemID,
		ChannelID: target.ChannelID,
		Payload:   payload,
		Mentions:  target.Mentions,
		Priority:  priority(event),
		CreatedAt: event.DetectedAt,
	}
}

// priority maps the event to queue ordering: stock transitions are
// high, price-accompanied information is medium.
func priority(event *domain.ChangeEvent) domain.Priority {
	if event.Previous != event.Current {
		return domain.PriorityHigh
	}
	if event.Delta != nil {
		return domain.PriorityMedium
	}
	return domain.PriorityLow
}

func title(event *domain.ChangeEvent, snap *domain.ItemSnapshot) string {
	switch {
	case event.Restock():
		return fmt.Sprintf("🟢 Back in stock: %s", snap.Title)
	case event.Current == domain.StockOutOfStock:
		return fmt.Sprintf("🔴 Sold out: %s", snap.Title)
	case event.Current == domain.StockPreOrder:
		return fmt.Sprintf("🟠 Pre-order open: %s", snap.Title)
	default:
		return fmt.Sprintf("Status changed: %s", snap.Title)
	}
}

func description(event *domain.ChangeEvent, snap *domain.ItemSnapshot) string {
	desc := fmt.Sprintf("%s → %s", event.Previous, event.Current)
	if snap.StockDetail != "" {
		desc += fmt.Sprintf(" (%q)", snap.StockDetail)
	}
	if event.Delta != nil && event.Delta.Previous > 0 {
		desc += fmt.Sprintf("\nPrice: €%.2f → €%.2f (%+.1f%%)",
			event.Delta.Previous, event.Delta.Current, event.Delta.Percent)
	}
	return desc
}

func color(event *domain.ChangeEvent) int {
	switch {
	case event.Restock():
		return colorGreen
	case event.Current == domain.StockOutOfStock:
		return colorRed
	default:
		return colorOrange
	}
}

func priceText(snap *domain.ItemSnapshot) string {
	if snap.PriceKnown() {
		return fmt.Sprintf("€%.2f", snap.Price)
	}
	if snap.RawPrice != "" {
		return snap.RawPrice
	}
	return "unknown"
}
