// Package notify implements the notification pipeline: queueing,
// scheduling, batching, delivery with retry, and delivery tracking.
// Transports are abstracted behind an interface; Discord is the
// production implementation.
package notify

import (
	"context"
	"fmt"

	domain "github.com/AbdullahP/pokealert/pkg/types"
)

// SendErrorKind classifies transport failures.
type SendErrorKind string

// Send error kinds.
const (
	SendRateLimited SendErrorKind = "rate_limited"
	SendPermission  SendErrorKind = "permission"
	SendInvalid     SendErrorKind = "invalid"
	SendNetwork     SendErrorKind = "network"
	SendServer      SendErrorKind = "server"
)

// SendError is a typed delivery failure from a transport.
type SendError struct {
	Kind      SendErrorKind
	Retriable bool
	Err       error
}

func (e *SendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("send failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("send failed (%s)", e.Kind)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// Transport delivers one rendered payload to a destination channel.
// Implementations classify their own platform's failures (rate limits,
// permissions) into SendError.
type Transport interface {
	Send(ctx context.Context, channelID int64, payload domain.Payload, mentions []string) error
}
