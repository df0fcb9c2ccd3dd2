// Package store defines the datastore abstraction for pokealert. All
// business logic depends on the Store interface, never on concrete
// implementations, so tests run against the in-memory store without a
// database.
package store

import (
	"context"
	"errors"
	"time"

	domain "github.com/AbdullahP/pokealert/pkg/types"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store defines all data access operations for pokealert.
type Store interface {
	// Targets
	CreateTarget(ctx context.Context, t *domain.TrackedTarget) error
	GetTarget(ctx context.Context, id string) (*domain.TrackedTarget, error)
	ListTargets(ctx context.Context, activeOnly bool) ([]domain.TrackedTarget, error)
	SetTargetActive(ctx context.Context, id string, active bool) error
	DeleteTarget(ctx context.Context, id string) error

	// Snapshots
	GetSnapshot(ctx context.Context, itemID string) (*domain.ItemSnapshot, error)
	UpsertSnapshot(ctx context.Context, s *domain.ItemSnapshot) error
	InsertPricePoint(ctx context.Context, p *domain.PricePoint) error
	ListPricePoints(ctx context.Context, itemID string, limit int) ([]domain.PricePoint, error)

	// Change events
	InsertChangeEvent(ctx context.Context, e *domain.ChangeEvent) error
	ListUnnotifiedEvents(ctx context.Context) ([]domain.ChangeEvent, error)
	MarkEventNotified(ctx context.Context, id string) error

	// Notifications
	InsertNotification(ctx context.Context, n *domain.Notification) error
	UpdateNotification(ctx context.Context, n *domain.Notification) error
	GetNotification(ctx context.Context, id string) (*domain.Notification, error)
	ListDueNotifications(ctx context.Context, now time.Time, maxRetries int) ([]domain.Notification, error)
	GetDeliveryStatus(ctx context.Context, notificationID string) (*domain.DeliveryStatus, error)
	UpsertDeliveryStatus(ctx context.Context, d *domain.DeliveryStatus) error

	// Batches
	CreateBatch(ctx context.Context, b *domain.NotificationBatch) error
	GetBatch(ctx context.Context, id string) (*domain.NotificationBatch, error)
	FindOpenBatch(ctx context.Context, channelID int64, now time.Time) (*domain.NotificationBatch, error)
	ListBatchNotifications(ctx context.Context, batchID string) ([]domain.Notification, error)
	MarkBatchProcessed(ctx context.Context, id string, at time.Time) error

	// Price thresholds
	ListThresholds(ctx context.Context) ([]domain.PriceThreshold, error)
	UpsertThreshold(ctx context.Context, th domain.PriceThreshold) error
	DeleteThreshold(ctx context.Context, keyword string) error

	// Per-domain poll intervals
	IntervalForDomain(ctx context.Context, site string) (time.Duration, bool, error)
	SetDomainInterval(ctx context.Context, site string, interval time.Duration) error

	Ping(ctx context.Context) error
	Close()
}
