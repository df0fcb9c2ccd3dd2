package client

import (
	"context"

	domain "github.com/AbdullahP/pokealert/pkg/types"
)

// ListStatus returns monitoring health for every tracked target.
func (c *Client) ListStatus(ctx context.Context) ([]domain.TargetStatus, error) {
	var statuses []domain.TargetStatus
	if err := c.get(ctx, "/api/v1/status", &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

// GetStatus returns monitoring health for one target.
func (c *Client) GetStatus(ctx context.Context, id string) (*domain.TargetStatus, error) {
	var s domain.TargetStatus
	if err := c.get(ctx, "/api/v1/status/"+id, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
