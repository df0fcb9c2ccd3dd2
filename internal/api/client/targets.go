package client

import (
	"context"
	"fmt"
	"time"

	domain "github.com/AbdullahP/pokealert/pkg/types"
)

// targetRequest contains only the fields the API accepts on create.
type targetRequest struct {
	URL       string        `json:"url"`
	Kind      string        `json:"kind,omitempty"`
	ChannelID int64         `json:"channel_id"`
	GuildID   int64         `json:"guild_id,omitempty"`
	Interval  time.Duration `json:"interval,omitempty"`
	Mentions  []string      `json:"mentions,omitempty"`
}

// ListTargets returns tracked targets, optionally only active ones.
func (c *Client) ListTargets(ctx context.Context, activeOnly bool) ([]domain.TrackedTarget, error) {
	path := "/api/v1/targets"
	if activeOnly {
		path += "?active=true"
	}
	var targets []domain.TrackedTarget
	if err := c.get(ctx, path, &targets); err != nil {
		return nil, err
	}
	return targets, nil
}

// GetTarget returns a single tracked target by ID.
func (c *Client) GetTarget(ctx context.Context, id string) (*domain.TrackedTarget, error) {
	var t domain.TrackedTarget
	if err := c.get(ctx, "/api/v1/targets/"+id, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTarget registers a new target and starts polling it.
func (c *Client) CreateTarget(ctx context.Context, t *domain.TrackedTarget) (*domain.TrackedTarget, error) {
	req := targetRequest{
		URL:       t.URL,
		Kind:      string(t.Kind),
		ChannelID: t.ChannelID,
		GuildID:   t.GuildID,
		Interval:  t.Interval,
		Mentions:  t.Mentions,
	}
	var created domain.TrackedTarget
	if err := c.post(ctx, "/api/v1/targets", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// SetTargetActive activates or deactivates a target.
func (c *Client) SetTargetActive(ctx context.Context, id string, active bool) error {
	body := map[string]bool{"active": active}
	return c.put(ctx, fmt.Sprintf("/api/v1/targets/%s/active", id), body, nil)
}

// DeleteTarget removes a target and stops its polling loop.
func (c *Client) DeleteTarget(ctx context.Context, id string) error {
	return c.del(ctx, "/api/v1/targets/"+id, nil)
}
