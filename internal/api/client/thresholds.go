package client

import (
	"context"
	"net/url"

	domain "github.com/AbdullahP/pokealert/pkg/types"
)

// ListThresholds returns all price thresholds.
func (c *Client) ListThresholds(ctx context.Context) ([]domain.PriceThreshold, error) {
	var thresholds []domain.PriceThreshold
	if err := c.get(ctx, "/api/v1/thresholds", &thresholds); err != nil {
		return nil, err
	}
	return thresholds, nil
}

// PutThreshold creates or updates the threshold for a keyword.
func (c *Client) PutThreshold(ctx context.Context, th domain.PriceThreshold) error {
	return c.put(ctx, "/api/v1/thresholds", th, nil)
}

// DeleteThreshold removes the threshold for a keyword.
func (c *Client) DeleteThreshold(ctx context.Context, keyword string) error {
	return c.del(ctx, "/api/v1/thresholds/"+url.PathEscape(keyword), nil)
}

type intervalRequest struct {
	IntervalSeconds int64 `json:"interval_seconds"`
}

// SetDomainInterval sets the poll interval override for a domain.
func (c *Client) SetDomainInterval(ctx context.Context, domainName string, seconds int64) error {
	return c.put(ctx, "/api/v1/intervals/"+url.PathEscape(domainName),
		intervalRequest{IntervalSeconds: seconds}, nil)
}
