package filter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AbdullahP/pokealert/internal/filter"
	"github.com/AbdullahP/pokealert/pkg/logger"
	domain "github.com/AbdullahP/pokealert/pkg/types"
)

func TestApply(t *testing.T) {
	t.Parallel()

	thresholds := []domain.PriceThreshold{
		{Keyword: "Elite Trainer Box", MaxPrice: 60.00},
		{Keyword: "Booster Bundle", MaxPrice: 35.00},
	}

	tests := []struct {
		name     string
		item     domain.ItemSnapshot
		wantKeep bool
	}{
		{
			name: "matching keyword under threshold kept",
			item: domain.ItemSnapshot{
				Title:  "Elite Trainer Box — Special Edition",
				Price:  49.99,
				Status: domain.StockInStock,
			},
			wantKeep: true,
		},
		{
			name: "matching keyword over threshold dropped",
			item: domain.ItemSnapshot{
				Title:  "Elite Trainer Box — Special Edition",
				Price:  89.99,
				Status: domain.StockInStock,
			},
			wantKeep: false,
		},
		{
			name: "case-insensitive keyword match",
			item: domain.ItemSnapshot{
				Title:  "pokemon ELITE trainer BOX",
				Price:  75.00,
				Status: domain.StockInStock,
			},
			wantKeep: false,
		},
		{
			name: "out-of-stock item always passes",
			item: domain.ItemSnapshot{
				Title:  "Elite Trainer Box — Special Edition",
				Price:  0,
				Status: domain.StockOutOfStock,
			},
			wantKeep: true,
		},
		{
			name: "unparsable price always passes",
			item: domain.ItemSnapshot{
				Title:    "Elite Trainer Box — Special Edition",
				Price:    0,
				RawPrice: "prijs onbekend",
				Status:   domain.StockInStock,
			},
			wantKeep: true,
		},
		{
			name: "no matching keyword passes through",
			item: domain.ItemSnapshot{
				Title:  "Random Plush Toy",
				Price:  499.99,
				Status: domain.StockInStock,
			},
			wantKeep: true,
		},
		{
			name: "first matching threshold decides",
			item: domain.ItemSnapshot{
				Title:  "Elite Trainer Box plus Booster Bundle",
				Price:  55.00,
				Status: domain.StockInStock,
			},
			wantKeep: true,
		},
	}

	f := filter.New(logger.Discard())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			item := tt.item
			kept := f.Apply([]*domain.ItemSnapshot{&item}, thresholds)
			if tt.wantKeep {
				assert.Len(t, kept, 1)
			} else {
				assert.Empty(t, kept)
			}
		})
	}
}

func TestApply_NoThresholds(t *testing.T) {
	t.Parallel()

	f := filter.New(logger.Discard())
	items := []*domain.ItemSnapshot{
		{Title: "Anything", Price: 999.99, Status: domain.StockInStock},
	}
	assert.Len(t, f.Apply(items, nil), 1)
}
