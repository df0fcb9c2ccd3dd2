package parser

import (
	"strings"

	domain "github.com/AbdullahP/pokealert/pkg/types"
)

// Keyword groups checked in order: unavailable wording wins over
// pre-order wording, which wins over available wording. Pages that say
// nothing recognizable default to in stock, since product pages without
// an availability banner are normally purchasable.
var (
	outOfStockKeywords = []string{
		"niet leverbaar",
		"tijdelijk uitverkocht",
		"uitverkocht",
		"niet beschikbaar",
		"out of stock",
	}
	preOrderKeywords = []string{
		"pre-order",
		"pre order",
		"reserveer nu",
		"verwacht op",
	}
	inStockKeywords = []string{
		"op voorraad",
		"direct leverbaar",
		"voor 23:59 besteld",
		"beschikbaar",
		"leverbaar",
	}
)

// ClassifyStock maps availability wording to a stock status. It returns
// the matched keyword as detail so notifications can quote the page.
func ClassifyStock(text string) (domain.StockStatus, string) {
	lower := strings.ToLower(text)

	for _, kw := range outOfStockKeywords {
		if strings.Contains(lower, kw) {
			return domain.StockOutOfStock, kw
		}
	}
	for _, kw := range preOrderKeywords {
		if strings.Contains(lower, kw) {
			return domain.StockPreOrder, kw
		}
	}
	for _, kw := range inStockKeywords {
		if strings.Contains(lower, kw) {
			return domain.StockInStock, kw
		}
	}
	return domain.StockInStock, ""
}
