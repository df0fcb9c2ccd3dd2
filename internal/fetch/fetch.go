// Package fetch provides the HTTP page fetcher abstracted behind an
// interface for testability. The production client rotates browser
// headers, adds cache-busting parameters, and rate-limits per domain.
package fetch

import (
	"context"
	"fmt"
	"time"
)

// Result holds one fetched page.
type Result struct {
	Body       []byte
	StatusCode int
	FinalURL   string // after redirects
	Duration   time.Duration
}

// Client defines the interface for fetching pages.
type Client interface {
	Fetch(ctx context.Context, url string) (*Result, error)
}

// ErrorKind classifies fetch failures so callers can decide whether to
// retry, back off, or give up.
type ErrorKind string

// Fetch error kinds.
const (
	KindBlocked  ErrorKind = "blocked"   // 403 or 429: the site refused us
	KindNotFound ErrorKind = "not_found" // 404: page is gone
	KindServer   ErrorKind = "server"    // 5xx
	KindNetwork  ErrorKind = "network"   // transport-level failure
)

// Error is a typed fetch failure.
type Error struct {
	URL        string
	StatusCode int
	Kind       ErrorKind
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetching %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetching %s: %s (status %d)", e.URL, e.Kind, e.StatusCode)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retriable reports whether a later attempt could plausibly succeed.
// Gone pages are permanent; everything else is transient.
func (e *Error) Retriable() bool {
	return e.Kind != KindNotFound
}
