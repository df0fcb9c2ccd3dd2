package notify

import (
	"context"
	"log/slog"

	domain "github.com/AbdullahP/pokealert/pkg/types"
)

// NoopTransport implements Transport by logging discarded payloads. It
// is used when no messaging backend is configured.
type NoopTransport struct {
	log *slog.Logger
}

// NewNoopTransport creates a transport that discards payloads with a
// log message.
func NewNoopTransport(log *slog.Logger) *NoopTransport {
	return &NoopTransport{log: log}
}

// Send logs and discards a payload.
func (n *NoopTransport) Send(_ context.Context, channelID int64, payload domain.Payload, _ []string) error {
	n.log.Debug("notification discarded (no backend configured)",
		"channel_id", channelID,
		"title", payload.Title,
		"status", payload.Status,
	)
	return nil
}
