// Package domain defines the core business types for pokealert.
package domain

import (
	"strings"
	"time"
)

// StockStatus represents the availability of an item.
type StockStatus string

// Stock status constants. The string values match what the parser
// classifies from page text and what gets rendered in notifications.
const (
	StockInStock    StockStatus = "In Stock"
	StockOutOfStock StockStatus = "Out of Stock"
	StockPreOrder   StockStatus = "Pre-order"
	StockUnknown    StockStatus = "Unknown"
)

// TargetKind distinguishes single-item pages from collection pages.
type TargetKind string

// Target kind constants.
const (
	KindSingleItem TargetKind = "single"
	KindCollection TargetKind = "collection"
)

// KindForURL classifies a URL as a collection (wishlist) or single-item page.
func KindForURL(url string) TargetKind {
	lower := strings.ToLower(url)
	if strings.Contains(lower, "verlanglijstje") || strings.Contains(lower, "wishlist") {
		return KindCollection
	}
	return KindSingleItem
}

// TrackedTarget is a single item or collection page being monitored.
type TrackedTarget struct {
	ID        string        `json:"id"         db:"id"`
	URL       string        `json:"url"        db:"url"`
	Kind      TargetKind    `json:"kind"       db:"kind"`
	ChannelID int64         `json:"channel_id" db:"channel_id"`
	GuildID   int64         `json:"guild_id"   db:"guild_id"`
	Interval  time.Duration `json:"interval"   db:"interval_seconds"`
	Mentions  []string      `json:"mentions"   db:"mentions"`
	Active    bool          `json:"active"     db:"active"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`
}

// ItemSnapshot is the last-known parsed state of one item. Exactly one
// current snapshot exists per item ID; each fetch overwrites it.
type ItemSnapshot struct {
	ItemID        string      `json:"item_id"        db:"item_id"`
	TargetID      string      `json:"target_id"      db:"target_id"`
	Title         string      `json:"title"          db:"title"`
	Price         float64     `json:"price"          db:"price"`
	RawPrice      string      `json:"raw_price"      db:"raw_price"`
	PreviousPrice float64     `json:"previous_price" db:"previous_price"`
	ImageURL      string      `json:"image_url"      db:"image_url"`
	URL           string      `json:"url"            db:"url"`
	PurchaseURL   string      `json:"purchase_url"   db:"purchase_url"`
	Status        StockStatus `json:"status"         db:"status"`
	StockDetail   string      `json:"stock_detail"   db:"stock_detail"`
	Site          string      `json:"site"           db:"site"`
	DeliveryInfo  string      `json:"delivery_info"  db:"delivery_info"`
	Marketplace   bool        `json:"marketplace"    db:"marketplace"`
	CheckedAt     time.Time   `json:"checked_at"     db:"checked_at"`
}

// InStock reports whether the snapshot is currently purchasable.
func (s *ItemSnapshot) InStock() bool {
	return s.Status == StockInStock
}

// PriceKnown reports whether a usable numeric price was parsed.
func (s *ItemSnapshot) PriceKnown() bool {
	return s.Price > 0
}

// PriceDelta describes a price movement between two snapshots.
type PriceDelta struct {
	Previous float64 `json:"previous"`
	Current  float64 `json:"current"`
	Amount   float64 `json:"amount"`
	Percent  float64 `json:"percent"`
}

// NewPriceDelta computes the delta between two prices. Percent is zero
// when the previous price is zero so a missing baseline never divides.
func NewPriceDelta(previous, current float64) *PriceDelta {
	d := &PriceDelta{
		Previous: previous,
		Current:  current,
		Amount:   current - previous,
	}
	if previous != 0 {
		d.Percent = (current - previous) / previous * 100
	}
	return d
}

// Drop reports whether the price went down.
func (d *PriceDelta) Drop() bool {
	return d.Amount < 0
}

// ChangeEvent records one detected stock-status transition. Events are
// immutable apart from the Notified flag, which flips false->true once.
type ChangeEvent struct {
	ID         string      `json:"id"                    db:"id"`
	ItemID     string      `json:"item_id"               db:"item_id"`
	TargetID   string      `json:"target_id"             db:"target_id"`
	Previous   StockStatus `json:"previous_status"       db:"previous_status"`
	Current    StockStatus `json:"current_status"        db:"current_status"`
	Delta      *PriceDelta `json:"price_delta,omitempty" db:"price_delta"`
	Notified   bool        `json:"notified"              db:"notified"`
	DetectedAt time.Time   `json:"detected_at"           db:"detected_at"`
}

// Restock reports whether the event is an out-of-stock to in-stock transition.
func (e *ChangeEvent) Restock() bool {
	return e.Previous != StockInStock && e.Current == StockInStock
}

// Priority orders notifications in the delivery queue.
type Priority int

// Priority constants: lower value delivers first.
const (
	PriorityHigh   Priority = 1 // stock transitions
	PriorityMedium Priority = 2 // price movements
	PriorityLow    Priority = 3 // informational
)

// Notification is one outgoing alert with its rendered payload and
// delivery bookkeeping.
type Notification struct {
	ID          string         `json:"id"                     db:"id"`
	ItemID      string         `json:"item_id"                db:"item_id"`
	ChannelID   int64          `json:"channel_id"             db:"channel_id"`
	Payload     Payload        `json:"payload"                db:"payload"`
	Mentions    []string       `json:"mentions"               db:"mentions"`
	Priority    Priority       `json:"priority"               db:"priority"`
	ScheduledAt *time.Time     `json:"scheduled_at,omitempty" db:"scheduled_at"`
	BatchID     *string        `json:"batch_id,omitempty"     db:"batch_id"`
	RetryCount  int            `json:"retry_count"            db:"retry_count"`
	MaxRetries  int            `json:"max_retries"            db:"max_retries"`
	CreatedAt   time.Time      `json:"created_at"             db:"created_at"`
	Delivery    DeliveryStatus `json:"delivery"               db:"-"`
}

// Due reports whether the notification is ready for delivery at t.
func (n *Notification) Due(t time.Time) bool {
	return n.ScheduledAt == nil || !n.ScheduledAt.After(t)
}

// Payload is the transport-agnostic rendered content of a notification.
// The transport maps it onto whatever wire format the platform needs.
type Payload struct {
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	URL          string      `json:"url"`
	PurchaseURL  string      `json:"purchase_url,omitempty"`
	ImageURL     string      `json:"image_url,omitempty"`
	Color        int         `json:"color"`
	Status       StockStatus `json:"status"`
	Price        string      `json:"price"`
	DeliveryInfo string      `json:"delivery_info,omitempty"`
	Site         string      `json:"site"`
	Timestamp    time.Time   `json:"timestamp"`
}

// DeliveryStatus tracks delivery attempts for one notification.
// Delivered is monotonic: once true it never reverts.
type DeliveryStatus struct {
	NotificationID string     `json:"notification_id"        db:"notification_id"`
	Attempts       int        `json:"attempts"               db:"attempts"`
	LastAttempt    *time.Time `json:"last_attempt,omitempty" db:"last_attempt"`
	Delivered      bool       `json:"delivered"              db:"delivered"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty" db:"delivered_at"`
	Dropped        bool       `json:"dropped"                db:"dropped"`
	LastError      string     `json:"last_error,omitempty"   db:"last_error"`
}

// Terminal reports whether delivery has finished: succeeded, dropped as
// undeliverable, or exhausted its attempt budget.
func (d *DeliveryStatus) Terminal(maxRetries int) bool {
	return d.Delivered || d.Dropped || d.Attempts >= maxRetries
}

// BatchStatus is the lifecycle state of a notification batch.
type BatchStatus string

// Batch status constants.
const (
	BatchPending   BatchStatus = "pending"
	BatchProcessed BatchStatus = "processed"
)

// NotificationBatch groups same-channel notifications inside a rolling
// time window so they can be delivered together.
type NotificationBatch struct {
	ID          string        `json:"id"                     db:"id"`
	ChannelID   int64         `json:"channel_id"             db:"channel_id"`
	Window      time.Duration `json:"window"                 db:"window_seconds"`
	Status      BatchStatus   `json:"status"                 db:"status"`
	CreatedAt   time.Time     `json:"created_at"             db:"created_at"`
	ProcessedAt *time.Time    `json:"processed_at,omitempty" db:"processed_at"`
}

// PriceThreshold caps the acceptable price for items whose title
// contains Keyword (case-insensitive substring match).
type PriceThreshold struct {
	Keyword  string  `json:"keyword"   db:"keyword"`
	MaxPrice float64 `json:"max_price" db:"max_price"`
}

// PricePoint is one raw price observation kept for trend history.
type PricePoint struct {
	ItemID     string    `json:"item_id"     db:"item_id"`
	TargetID   string    `json:"target_id"   db:"target_id"`
	Price      float64   `json:"price"       db:"price"`
	ObservedAt time.Time `json:"observed_at" db:"observed_at"`
}

// TargetStatus summarizes monitoring health for one target, consumed by
// the status API and external dashboards.
type TargetStatus struct {
	TargetID    string     `json:"target_id"`
	URL         string     `json:"url"`
	Active      bool       `json:"active"`
	Checks      int64      `json:"checks"`
	Successes   int64      `json:"successes"`
	SuccessRate float64    `json:"success_rate"`
	ErrorCount  int64      `json:"error_count"`
	LastCheck   *time.Time `json:"last_check,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}
