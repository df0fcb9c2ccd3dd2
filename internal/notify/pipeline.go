package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/AbdullahP/pokealert/internal/backoff"
	"github.com/AbdullahP/pokealert/internal/metrics"
	"github.com/AbdullahP/pokealert/internal/store"
	domain "github.com/AbdullahP/pokealert/pkg/types"
)

// Pipeline moves notifications from queued to delivered: it schedules,
// batches, retries with exponential backoff, and tracks every attempt.
// Delivery is at-least-once; exhausted retries end in a recorded
// terminal failure, never a silent drop.
type Pipeline struct {
	store     store.Store
	transport Transport
	logger    *slog.Logger
	cron      *cron.Cron

	nowFunc func() time.Time
	idFunc  func() string

	maxRetries       int
	retryBase        time.Duration
	retryMax         time.Duration
	batchWindow      time.Duration
	dispatchInterval time.Duration
	sweepInterval    time.Duration

	// Serializes ProcessDue so an overlapping cron tick cannot deliver
	// the same notification twice.
	processMu sync.Mutex
}

// PipelineOption configures the Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithRetryPolicy sets the retry limit and backoff bounds.
func WithRetryPolicy(maxRetries int, base, max time.Duration) PipelineOption {
	return func(p *Pipeline) {
		p.maxRetries = maxRetries
		p.retryBase = base
		p.retryMax = max
	}
}

// WithBatchWindow sets the rolling window for notification batches.
func WithBatchWindow(w time.Duration) PipelineOption {
	return func(p *Pipeline) {
		p.batchWindow = w
	}
}

// WithDispatchInterval sets how often the background dispatcher runs
// ProcessDue.
func WithDispatchInterval(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		p.dispatchInterval = d
	}
}

// WithSweepInterval sets how often the background sweeper re-queues
// change events whose notification was lost before it reached the queue.
func WithSweepInterval(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		p.sweepInterval = d
	}
}

// WithNowFunc overrides the time function for testing.
func WithNowFunc(f func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		p.nowFunc = f
	}
}

// WithIDFunc overrides ID generation for testing.
func WithIDFunc(f func() string) PipelineOption {
	return func(p *Pipeline) {
		p.idFunc = f
	}
}

// NewPipeline creates a Pipeline delivering through the given transport.
func NewPipeline(s store.Store, t Transport, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		store:            s,
		transport:        t,
		logger:           slog.Default(),
		nowFunc:          time.Now,
		idFunc:           uuid.NewString,
		maxRetries:       3,
		retryBase:        time.Second,
		retryMax:         30 * time.Second,
		batchWindow:      time.Minute,
		dispatchInterval: time.Second,
		sweepInterval:    30 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start runs the background dispatcher that periodically delivers due
// notifications, plus the slower sweeper that rescues unnotified events.
func (p *Pipeline) Start() error {
	c := cron.New()
	if _, err := c.AddFunc("@every "+p.dispatchInterval.String(), p.dispatch); err != nil {
		return fmt.Errorf("registering dispatch job: %w", err)
	}
	if _, err := c.AddFunc("@every "+p.sweepInterval.String(), p.sweep); err != nil {
		return fmt.Errorf("registering sweep job: %w", err)
	}
	p.cron = c
	c.Start()
	p.logger.Info("notification dispatcher started",
		"interval", p.dispatchInterval, "sweep_interval", p.sweepInterval)
	return nil
}

// Stop halts the dispatcher, waiting for a running dispatch to finish.
func (p *Pipeline) Stop() {
	if p.cron == nil {
		return
	}
	<-p.cron.Stop().Done()
	p.logger.Info("notification dispatcher stopped")
}

func (p *Pipeline) dispatch() {
	if err := p.ProcessDue(context.Background()); err != nil {
		p.logger.Error("dispatch failed", "error", err)
	}
}

func (p *Pipeline) sweep() {
	if err := p.ProcessUnnotified(context.Background()); err != nil {
		p.logger.Error("sweep failed", "error", err)
	}
}

// ProcessUnnotified re-queues notifications for change events whose
// notified flag never flipped, which happens when queueing failed right
// after detection. Events younger than the sweep interval are left for
// the monitor's own publish path to finish.
func (p *Pipeline) ProcessUnnotified(ctx context.Context) error {
	events, err := p.store.ListUnnotifiedEvents(ctx)
	if err != nil {
		return fmt.Errorf("listing unnotified events: %w", err)
	}

	now := p.nowFunc()
	for i := range events {
		e := &events[i]
		if now.Sub(e.DetectedAt) < p.sweepInterval {
			continue
		}

		target, err := p.store.GetTarget(ctx, e.TargetID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				p.logger.Debug("skipping event for deleted target",
					"event_id", e.ID, "target_id", e.TargetID)
				continue
			}
			return fmt.Errorf("loading target for sweep: %w", err)
		}
		snap, err := p.store.GetSnapshot(ctx, e.ItemID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return fmt.Errorf("loading snapshot for sweep: %w", err)
		}

		if err := p.Queue(ctx, RenderEvent(e, snap, target)); err != nil {
			p.logger.Error("re-queueing unnotified event failed",
				"event_id", e.ID, "error", err)
			continue
		}
		if err := p.store.MarkEventNotified(ctx, e.ID); err != nil {
			return fmt.Errorf("marking swept event notified: %w", err)
		}
		p.logger.Info("re-queued unnotified event",
			"event_id", e.ID, "item_id", e.ItemID, "detected_at", e.DetectedAt)
	}
	return nil
}

// Queue stores a notification for delivery on the next dispatch.
func (p *Pipeline) Queue(ctx context.Context, n *domain.Notification) error {
	if n.ID == "" {
		n.ID = p.idFunc()
	}
	if n.MaxRetries == 0 {
		n.MaxRetries = p.maxRetries
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = p.nowFunc()
	}
	if err := p.store.InsertNotification(ctx, n); err != nil {
		return fmt.Errorf("queueing notification: %w", err)
	}
	metrics.NotificationsQueuedTotal.
		WithLabelValues(strconv.Itoa(int(n.Priority))).Inc()
	p.logger.Debug("queued notification",
		"id", n.ID, "channel_id", n.ChannelID, "priority", n.Priority)
	return nil
}

// Schedule queues a notification for delivery no earlier than now+delay.
func (p *Pipeline) Schedule(ctx context.Context, n *domain.Notification, delay time.Duration) error {
	at := p.nowFunc().Add(delay)
	n.ScheduledAt = &at
	return p.Queue(ctx, n)
}

// CreateBatch opens a batch for a channel with the configured window.
func (p *Pipeline) CreateBatch(ctx context.Context, channelID int64) (*domain.NotificationBatch, error) {
	b := &domain.NotificationBatch{
		ID:        p.idFunc(),
		ChannelID: channelID,
		Window:    p.batchWindow,
		Status:    domain.BatchPending,
		CreatedAt: p.nowFunc(),
	}
	if err := p.store.CreateBatch(ctx, b); err != nil {
		return nil, fmt.Errorf("creating batch: %w", err)
	}
	return b, nil
}

// AddToBatch attaches a notification to an open batch, queueing it
// first when it is not stored yet.
func (p *Pipeline) AddToBatch(ctx context.Context, batchID string, n *domain.Notification) error {
	b, err := p.store.GetBatch(ctx, batchID)
	if err != nil {
		return fmt.Errorf("loading batch: %w", err)
	}
	if b.Status != domain.BatchPending {
		return fmt.Errorf("batch %s is already %s", batchID, b.Status)
	}

	n.BatchID = &batchID
	if n.ID != "" {
		_, err := p.store.GetNotification(ctx, n.ID)
		switch {
		case err == nil:
			if err := p.store.UpdateNotification(ctx, n); err != nil {
				return fmt.Errorf("attaching notification to batch: %w", err)
			}
			return nil
		case !errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("loading notification: %w", err)
		}
	}
	return p.Queue(ctx, n)
}

// QueueBatched queues a notification into the channel's open batch,
// opening a new one when no batch window covers now.
func (p *Pipeline) QueueBatched(ctx context.Context, n *domain.Notification) error {
	b, err := p.store.FindOpenBatch(ctx, n.ChannelID, p.nowFunc())
	if errors.Is(err, store.ErrNotFound) {
		b, err = p.CreateBatch(ctx, n.ChannelID)
	}
	if err != nil {
		return err
	}
	return p.AddToBatch(ctx, b.ID, n)
}

// ProcessDue delivers every notification whose scheduled time has
// elapsed, ordered by priority then creation time, then closes batches
// whose members have all reached a terminal state.
func (p *Pipeline) ProcessDue(ctx context.Context) error {
	p.processMu.Lock()
	defer p.processMu.Unlock()

	now := p.nowFunc()
	due, err := p.store.ListDueNotifications(ctx, now, p.maxRetries)
	if err != nil {
		return fmt.Errorf("listing due notifications: %w", err)
	}

	batchIDs := make(map[string]struct{})
	for i := range due {
		n := &due[i]
		if err := p.deliver(ctx, n); err != nil {
			p.logger.Error("delivery bookkeeping failed", "id", n.ID, "error", err)
		}
		if n.BatchID != nil {
			batchIDs[*n.BatchID] = struct{}{}
		}
	}

	for id := range batchIDs {
		if err := p.maybeCloseBatch(ctx, id); err != nil {
			p.logger.Error("closing batch failed", "batch_id", id, "error", err)
		}
	}
	return nil
}

// deliver makes one delivery attempt and records the outcome. Transport
// failures feed the backoff schedule; they are not returned as errors.
func (p *Pipeline) deliver(ctx context.Context, n *domain.Notification) error {
	status, err := p.store.GetDeliveryStatus(ctx, n.ID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("loading delivery status: %w", err)
		}
		status = &domain.DeliveryStatus{NotificationID: n.ID}
	}

	now := p.nowFunc()
	status.Attempts++
	status.LastAttempt = &now

	sendErr := p.transport.Send(ctx, n.ChannelID, n.Payload, n.Mentions)
	return p.RecordDelivery(ctx, n, status, sendErr)
}

// RecordDelivery maps one attempt's outcome onto the delivery state
// machine: success marks delivered, a retriable failure schedules the
// next attempt with exponential backoff, and a permanent failure or
// exhausted retries ends in terminal failure.
func (p *Pipeline) RecordDelivery(ctx context.Context, n *domain.Notification, status *domain.DeliveryStatus, sendErr error) error {
	now := p.nowFunc()

	if sendErr == nil {
		status.Delivered = true
		status.DeliveredAt = &now
		status.LastError = ""
		if err := p.store.UpsertDeliveryStatus(ctx, status); err != nil {
			return fmt.Errorf("recording delivery: %w", err)
		}
		metrics.NotificationsDeliveredTotal.Inc()
		metrics.DeliveryAttempts.Observe(float64(status.Attempts))
		p.logger.Info("notification delivered",
			"id", n.ID, "channel_id", n.ChannelID, "attempts", status.Attempts)
		return nil
	}

	metrics.NotificationFailuresTotal.Inc()
	status.LastError = sendErr.Error()

	retriable := true
	var serr *SendError
	if errors.As(sendErr, &serr) {
		retriable = serr.Retriable
	}

	if !retriable || status.Attempts >= n.MaxRetries {
		// Terminal failure: the dropped marker takes the notification
		// out of the due queue while Attempts keeps the real count.
		status.Dropped = true
		if err := p.store.UpsertDeliveryStatus(ctx, status); err != nil {
			return fmt.Errorf("recording terminal failure: %w", err)
		}
		metrics.NotificationsDroppedTotal.Inc()
		p.logger.Error("notification failed permanently",
			"id", n.ID, "channel_id", n.ChannelID,
			"attempts", status.Attempts, "error", sendErr)
		return nil
	}

	delay := backoff.Delay(status.Attempts, p.retryBase, p.retryMax)
	next := now.Add(delay)
	n.ScheduledAt = &next
	n.RetryCount = status.Attempts

	if err := p.store.UpsertDeliveryStatus(ctx, status); err != nil {
		return fmt.Errorf("recording failed attempt: %w", err)
	}
	if err := p.store.UpdateNotification(ctx, n); err != nil {
		return fmt.Errorf("scheduling retry: %w", err)
	}

	p.logger.Warn("notification delivery failed, retrying",
		"id", n.ID, "attempt", status.Attempts,
		"next_attempt", next, "error", sendErr)
	return nil
}

// maybeCloseBatch marks a batch processed once every member has reached
// a terminal delivery state. A batch closes exactly once.
func (p *Pipeline) maybeCloseBatch(ctx context.Context, batchID string) error {
	b, err := p.store.GetBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if b.Status != domain.BatchPending {
		return nil
	}

	members, err := p.store.ListBatchNotifications(ctx, batchID)
	if err != nil {
		return err
	}

	for i := range members {
		status, err := p.store.GetDeliveryStatus(ctx, members[i].ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil // member never attempted yet
			}
			return err
		}
		if !status.Terminal(members[i].MaxRetries) {
			return nil
		}
	}

	if err := p.store.MarkBatchProcessed(ctx, batchID, p.nowFunc()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil // lost the race to another closer
		}
		return err
	}
	metrics.BatchSize.Observe(float64(len(members)))
	p.logger.Info("batch processed", "batch_id", batchID, "members", len(members))
	return nil
}
