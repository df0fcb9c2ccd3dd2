package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/AbdullahP/pokealert/pkg/types"
)

const defaultPoolSize = 10

// PostgresStore implements Store using pgxpool (connection-pooled PostgreSQL).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// PostgresOption tunes the pgx pool configuration before the pool is built.
type PostgresOption func(*pgxpool.Config)

// WithPoolSize caps the number of pooled connections. Non-positive
// values keep the default.
func WithPoolSize(n int) PostgresOption {
	return func(cfg *pgxpool.Config) {
		if n > 0 {
			cfg.MaxConns = int32(n)
		}
	}
}

// NewPostgresStore creates a new PostgresStore with connection pooling.
func NewPostgresStore(ctx context.Context, connString string, opts ...PostgresOption) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	cfg.MaxConns = defaultPoolSize
	for _, opt := range opts {
		opt(cfg)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close gracefully shuts down the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending SQL schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, s.pool)
}

// CreateTarget inserts a new tracked target.
func (s *PostgresStore) CreateTarget(ctx context.Context, t *domain.TrackedTarget) error {
	args := pgx.NamedArgs{
		"id":               t.ID,
		"url":              t.URL,
		"kind":             string(t.Kind),
		"channel_id":       t.ChannelID,
		"guild_id":         t.GuildID,
		"interval_seconds": int64(t.Interval / time.Second),
		"mentions":         t.Mentions,
		"active":           t.Active,
	}
	if err := s.pool.QueryRow(ctx, queryCreateTarget, args).
		Scan(&t.CreatedAt, &t.UpdatedAt); err != nil {
		return fmt.Errorf("creating target: %w", err)
	}
	return nil
}

// GetTarget retrieves a target by ID.
func (s *PostgresStore) GetTarget(ctx context.Context, id string) (*domain.TrackedTarget, error) {
	t := &domain.TrackedTarget{}
	if err := scanTarget(s.pool.QueryRow(ctx, queryGetTarget, id), t); err != nil {
		return nil, err
	}
	return t, nil
}

// ListTargets returns targets, optionally only active ones.
func (s *PostgresStore) ListTargets(ctx context.Context, activeOnly bool) ([]domain.TrackedTarget, error) {
	rows, err := s.pool.Query(ctx, queryListTargets, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("listing targets: %w", err)
	}
	defer rows.Close()

	var targets []domain.TrackedTarget
	for rows.Next() {
		var t domain.TrackedTarget
		if err := scanTarget(rows, &t); err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// SetTargetActive flips the active flag on a target.
func (s *PostgresStore) SetTargetActive(ctx context.Context, id string, active bool) error {
	tag, err := s.pool.Exec(ctx, querySetTargetActive, id, active)
	if err != nil {
		return fmt.Errorf("updating target active flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTarget removes a target; history rows cascade via foreign keys.
func (s *PostgresStore) DeleteTarget(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, queryDeleteTarget, id)
	if err != nil {
		return fmt.Errorf("deleting target: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetSnapshot retrieves the current snapshot for an item.
func (s *PostgresStore) GetSnapshot(ctx context.Context, itemID string) (*domain.ItemSnapshot, error) {
	snap := &domain.ItemSnapshot{}
	row := s.pool.QueryRow(ctx, queryGetSnapshot, itemID)
	err := row.Scan(
		&snap.ItemID, &snap.TargetID, &snap.Title, &snap.Price, &snap.RawPrice, &snap.PreviousPrice,
		&snap.ImageURL, &snap.URL, &snap.PurchaseURL, &snap.Status, &snap.StockDetail,
		&snap.Site, &snap.DeliveryInfo, &snap.Marketplace, &snap.CheckedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting snapshot: %w", err)
	}
	return snap, nil
}

// UpsertSnapshot inserts or overwrites the current snapshot for an item.
func (s *PostgresStore) UpsertSnapshot(ctx context.Context, snap *domain.ItemSnapshot) error {
	args := pgx.NamedArgs{
		"item_id":        snap.ItemID,
		"target_id":      snap.TargetID,
		"title":          snap.Title,
		"price":          snap.Price,
		"raw_price":      snap.RawPrice,
		"previous_price": snap.PreviousPrice,
		"image_url":      snap.ImageURL,
		"url":            snap.URL,
		"purchase_url":   snap.PurchaseURL,
		"status":         string(snap.Status),
		"stock_detail":   snap.StockDetail,
		"site":           snap.Site,
		"delivery_info":  snap.DeliveryInfo,
		"marketplace":    snap.Marketplace,
		"checked_at":     snap.CheckedAt,
	}
	if _, err := s.pool.Exec(ctx, queryUpsertSnapshot, args); err != nil {
		return fmt.Errorf("upserting snapshot: %w", err)
	}
	return nil
}

// InsertPricePoint appends one price observation.
func (s *PostgresStore) InsertPricePoint(ctx context.Context, p *domain.PricePoint) error {
	if _, err := s.pool.Exec(ctx, queryInsertPricePoint, p.ItemID, p.TargetID, p.Price, p.ObservedAt); err != nil {
		return fmt.Errorf("inserting price point: %w", err)
	}
	return nil
}

// ListPricePoints returns recent price observations for an item, newest first.
func (s *PostgresStore) ListPricePoints(ctx context.Context, itemID string, limit int) ([]domain.PricePoint, error) {
	rows, err := s.pool.Query(ctx, queryListPricePoints, itemID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing price points: %w", err)
	}
	defer rows.Close()

	var points []domain.PricePoint
	for rows.Next() {
		var p domain.PricePoint
		if err := rows.Scan(&p.ItemID, &p.TargetID, &p.Price, &p.ObservedAt); err != nil {
			return nil, fmt.Errorf("scanning price point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// InsertChangeEvent stores a detected change.
func (s *PostgresStore) InsertChangeEvent(ctx context.Context, e *domain.ChangeEvent) error {
	var delta []byte
	if e.Delta != nil {
		var err error
		delta, err = json.Marshal(e.Delta)
		if err != nil {
			return fmt.Errorf("encoding price delta: %w", err)
		}
	}
	args := pgx.NamedArgs{
		"id":              e.ID,
		"item_id":         e.ItemID,
		"target_id":       e.TargetID,
		"previous_status": string(e.Previous),
		"current_status":  string(e.Current),
		"price_delta":     delta,
		"notified":        e.Notified,
		"detected_at":     e.DetectedAt,
	}
	if _, err := s.pool.Exec(ctx, queryInsertChangeEvent, args); err != nil {
		return fmt.Errorf("inserting change event: %w", err)
	}
	return nil
}

// ListUnnotifiedEvents returns events not yet turned into notifications.
func (s *PostgresStore) ListUnnotifiedEvents(ctx context.Context) ([]domain.ChangeEvent, error) {
	rows, err := s.pool.Query(ctx, queryListUnnotifiedEvents)
	if err != nil {
		return nil, fmt.Errorf("listing unnotified events: %w", err)
	}
	defer rows.Close()

	var events []domain.ChangeEvent
	for rows.Next() {
		var e domain.ChangeEvent
		var delta []byte
		if err := rows.Scan(
			&e.ID, &e.ItemID, &e.TargetID, &e.Previous, &e.Current,
			&delta, &e.Notified, &e.DetectedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning change event: %w", err)
		}
		if len(delta) > 0 {
			e.Delta = &domain.PriceDelta{}
			if err := json.Unmarshal(delta, e.Delta); err != nil {
				return nil, fmt.Errorf("decoding price delta: %w", err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// MarkEventNotified flips the notified flag on an event.
func (s *PostgresStore) MarkEventNotified(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, queryMarkEventNotified, id)
	if err != nil {
		return fmt.Errorf("marking event notified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertNotification stores a new outgoing notification.
func (s *PostgresStore) InsertNotification(ctx context.Context, n *domain.Notification) error {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	args := pgx.NamedArgs{
		"id":           n.ID,
		"item_id":      n.ItemID,
		"channel_id":   n.ChannelID,
		"payload":      payload,
		"mentions":     n.Mentions,
		"priority":     int(n.Priority),
		"scheduled_at": n.ScheduledAt,
		"batch_id":     n.BatchID,
		"retry_count":  n.RetryCount,
		"max_retries":  n.MaxRetries,
		"created_at":   n.CreatedAt,
	}
	if _, err := s.pool.Exec(ctx, queryInsertNotification, args); err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	return nil
}

// UpdateNotification persists mutable notification fields.
func (s *PostgresStore) UpdateNotification(ctx context.Context, n *domain.Notification) error {
	args := pgx.NamedArgs{
		"id":           n.ID,
		"scheduled_at": n.ScheduledAt,
		"batch_id":     n.BatchID,
		"retry_count":  n.RetryCount,
	}
	tag, err := s.pool.Exec(ctx, queryUpdateNotification, args)
	if err != nil {
		return fmt.Errorf("updating notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetNotification retrieves a notification by ID.
func (s *PostgresStore) GetNotification(ctx context.Context, id string) (*domain.Notification, error) {
	n := &domain.Notification{}
	if err := scanNotification(s.pool.QueryRow(ctx, queryGetNotification, id), n); err != nil {
		return nil, err
	}
	return n, nil
}

// ListDueNotifications returns undelivered notifications whose scheduled
// time has elapsed and whose retries are not exhausted, ordered by
// priority then creation time.
func (s *PostgresStore) ListDueNotifications(ctx context.Context, now time.Time, maxRetries int) ([]domain.Notification, error) {
	rows, err := s.pool.Query(ctx, queryListDueNotifications, now, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("listing due notifications: %w", err)
	}
	defer rows.Close()
	return collectNotifications(rows)
}

// GetDeliveryStatus retrieves the delivery record for a notification.
func (s *PostgresStore) GetDeliveryStatus(ctx context.Context, notificationID string) (*domain.DeliveryStatus, error) {
	d := &domain.DeliveryStatus{}
	err := s.pool.QueryRow(ctx, queryGetDeliveryStatus, notificationID).Scan(
		&d.NotificationID, &d.Attempts, &d.LastAttempt,
		&d.Delivered, &d.DeliveredAt, &d.Dropped, &d.LastError,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting delivery status: %w", err)
	}
	return d, nil
}

// UpsertDeliveryStatus inserts or updates a delivery record. The
// delivered and dropped flags are monotonic at the SQL level.
func (s *PostgresStore) UpsertDeliveryStatus(ctx context.Context, d *domain.DeliveryStatus) error {
	args := pgx.NamedArgs{
		"notification_id": d.NotificationID,
		"attempts":        d.Attempts,
		"last_attempt":    d.LastAttempt,
		"delivered":       d.Delivered,
		"delivered_at":    d.DeliveredAt,
		"dropped":         d.Dropped,
		"last_error":      d.LastError,
	}
	if _, err := s.pool.Exec(ctx, queryUpsertDeliveryStatus, args); err != nil {
		return fmt.Errorf("upserting delivery status: %w", err)
	}
	return nil
}

// CreateBatch stores a new notification batch.
func (s *PostgresStore) CreateBatch(ctx context.Context, b *domain.NotificationBatch) error {
	args := pgx.NamedArgs{
		"id":             b.ID,
		"channel_id":     b.ChannelID,
		"window_seconds": int64(b.Window / time.Second),
		"status":         string(b.Status),
		"created_at":     b.CreatedAt,
	}
	if _, err := s.pool.Exec(ctx, queryCreateBatch, args); err != nil {
		return fmt.Errorf("creating batch: %w", err)
	}
	return nil
}

// GetBatch retrieves a batch by ID.
func (s *PostgresStore) GetBatch(ctx context.Context, id string) (*domain.NotificationBatch, error) {
	b := &domain.NotificationBatch{}
	if err := scanBatch(s.pool.QueryRow(ctx, queryGetBatch, id), b); err != nil {
		return nil, err
	}
	return b, nil
}

// FindOpenBatch returns the newest pending batch for a channel whose
// window still covers now, or ErrNotFound.
func (s *PostgresStore) FindOpenBatch(ctx context.Context, channelID int64, now time.Time) (*domain.NotificationBatch, error) {
	b := &domain.NotificationBatch{}
	if err := scanBatch(s.pool.QueryRow(ctx, queryFindOpenBatch, channelID, now), b); err != nil {
		return nil, err
	}
	return b, nil
}

// ListBatchNotifications returns all notifications attached to a batch.
func (s *PostgresStore) ListBatchNotifications(ctx context.Context, batchID string) ([]domain.Notification, error) {
	rows, err := s.pool.Query(ctx, queryListBatchNotifications, batchID)
	if err != nil {
		return nil, fmt.Errorf("listing batch notifications: %w", err)
	}
	defer rows.Close()
	return collectNotifications(rows)
}

// MarkBatchProcessed transitions a pending batch to processed.
func (s *PostgresStore) MarkBatchProcessed(ctx context.Context, id string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, queryMarkBatchProcessed, id, at)
	if err != nil {
		return fmt.Errorf("marking batch processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListThresholds returns all price thresholds.
func (s *PostgresStore) ListThresholds(ctx context.Context) ([]domain.PriceThreshold, error) {
	rows, err := s.pool.Query(ctx, queryListThresholds)
	if err != nil {
		return nil, fmt.Errorf("listing thresholds: %w", err)
	}
	defer rows.Close()

	var ths []domain.PriceThreshold
	for rows.Next() {
		var th domain.PriceThreshold
		if err := rows.Scan(&th.Keyword, &th.MaxPrice); err != nil {
			return nil, fmt.Errorf("scanning threshold: %w", err)
		}
		ths = append(ths, th)
	}
	return ths, rows.Err()
}

// UpsertThreshold inserts or updates a price threshold by keyword.
func (s *PostgresStore) UpsertThreshold(ctx context.Context, th domain.PriceThreshold) error {
	if _, err := s.pool.Exec(ctx, queryUpsertThreshold, th.Keyword, th.MaxPrice); err != nil {
		return fmt.Errorf("upserting threshold: %w", err)
	}
	return nil
}

// DeleteThreshold removes a price threshold by keyword.
func (s *PostgresStore) DeleteThreshold(ctx context.Context, keyword string) error {
	tag, err := s.pool.Exec(ctx, queryDeleteThreshold, keyword)
	if err != nil {
		return fmt.Errorf("deleting threshold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IntervalForDomain returns the poll interval override for a site.
func (s *PostgresStore) IntervalForDomain(ctx context.Context, site string) (time.Duration, bool, error) {
	var seconds int64
	err := s.pool.QueryRow(ctx, queryGetDomainInterval, site).Scan(&seconds)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("getting domain interval: %w", err)
	}
	return time.Duration(seconds) * time.Second, true, nil
}

// SetDomainInterval sets the poll interval override for a site.
func (s *PostgresStore) SetDomainInterval(ctx context.Context, site string, interval time.Duration) error {
	if _, err := s.pool.Exec(ctx, querySetDomainInterval, site, int64(interval/time.Second)); err != nil {
		return fmt.Errorf("setting domain interval: %w", err)
	}
	return nil
}

func scanTarget(row pgx.Row, t *domain.TrackedTarget) error {
	var seconds int64
	err := row.Scan(
		&t.ID, &t.URL, &t.Kind, &t.ChannelID, &t.GuildID,
		&seconds, &t.Mentions, &t.Active, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scanning target: %w", err)
	}
	t.Interval = time.Duration(seconds) * time.Second
	return nil
}

func scanNotification(row pgx.Row, n *domain.Notification) error {
	var payload []byte
	var priority int
	err := row.Scan(
		&n.ID, &n.ItemID, &n.ChannelID, &payload, &n.Mentions,
		&priority, &n.ScheduledAt, &n.BatchID, &n.RetryCount,
		&n.MaxRetries, &n.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scanning notification: %w", err)
	}
	n.Priority = domain.Priority(priority)
	if err := json.Unmarshal(payload, &n.Payload); err != nil {
		return fmt.Errorf("decoding payload: %w", err)
	}
	return nil
}

func collectNotifications(rows pgx.Rows) ([]domain.Notification, error) {
	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := scanNotification(rows, &n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func scanBatch(row pgx.Row, b *domain.NotificationBatch) error {
	var seconds int64
	err := row.Scan(
		&b.ID, &b.ChannelID, &seconds, &b.Status, &b.CreatedAt, &b.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scanning batch: %w", err)
	}
	b.Window = time.Duration(seconds) * time.Second
	return nil
}
