// Package filter screens parsed items against keyword price thresholds.
// Its purpose is to drop apparent third-party listings priced far above
// retail before they reach the change detector.
package filter

import (
	"log/slog"
	"strings"

	domain "github.com/AbdullahP/pokealert/pkg/types"
)

// Filter applies price thresholds to item snapshots.
type Filter struct {
	logger *slog.Logger
}

// New creates a Filter.
func New(logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Filter{logger: logger}
}

// Apply returns the snapshots that pass the thresholds. Only in-stock
// items with a parsed price are screened: the first threshold whose
// keyword appears in the title decides, and the item is dropped when
// its price exceeds the cap. Everything else passes through, so an
// out-of-stock or price-less item is never lost here.
func (f *Filter) Apply(items []*domain.ItemSnapshot, thresholds []domain.PriceThreshold) []*domain.ItemSnapshot {
	kept := make([]*domain.ItemSnapshot, 0, len(items))
	for _, item := range items {
		if f.keep(item, thresholds) {
			kept = append(kept, item)
		}
	}
	return kept
}

func (f *Filter) keep(item *domain.ItemSnapshot, thresholds []domain.PriceThreshold) bool {
	if !item.InStock() || !item.PriceKnown() {
		return true
	}

	title := strings.ToLower(item.Title)
	for _, th := range thresholds {
		if !strings.Contains(title, strings.ToLower(th.Keyword)) {
			continue
		}
		if item.Price > th.MaxPrice {
			f.logger.Debug("dropping overpriced item",
				"item_id", item.ItemID,
				"title", item.Title,
				"price", item.Price,
				"keyword", th.Keyword,
				"max_price", th.MaxPrice,
			)
			return false
		}
		return true
	}
	return true
}
