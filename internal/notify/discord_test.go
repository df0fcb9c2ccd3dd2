package notify_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdullahP/pokealert/internal/notify"
	domain "github.com/AbdullahP/pokealert/pkg/types"
)

func payload() domain.Payload {
	return domain.Payload{
		Title:       "🟢 Back in stock: Elite Trainer Box",
		Description: "Out of Stock → In Stock",
		URL:         "https://www.bol.com/nl/p/etb/9300000123456789",
		ImageURL:    "https://media.example.com/etb.jpg",
		Color:       0x2ECC71,
		Status:      domain.StockInStock,
		Price:       "€54.99",
		Site:        "bol.com",
		Timestamp:   time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
	}
}

func TestDiscordSend_OK(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tr := notify.NewDiscordTransport("token-123", notify.WithAPIURL(srv.URL))
	err := tr.Send(context.Background(), 42, payload(), []string{"<@&111>", "<@222>"})
	require.NoError(t, err)

	assert.Equal(t, "/channels/42/messages", gotPath)
	assert.Equal(t, "Bot token-123", gotAuth)
	assert.Equal(t, "<@&111> <@222>", gotBody["content"])

	embeds, ok := gotBody["embeds"].([]any)
	require.True(t, ok)
	require.Len(t, embeds, 1)
	embed := embeds[0].(map[string]any)
	assert.Equal(t, "🟢 Back in stock: Elite Trainer Box", embed["title"])
	assert.Equal(t, "2026-08-25T12:00:00Z", embed["timestamp"])
}

func TestDiscordSend_ErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		status        int
		wantKind      notify.SendErrorKind
		wantRetriable bool
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, wantKind: notify.SendRateLimited, wantRetriable: true},
		{name: "missing permission", status: http.StatusForbidden, wantKind: notify.SendPermission, wantRetriable: false},
		{name: "bad token", status: http.StatusUnauthorized, wantKind: notify.SendPermission, wantRetriable: false},
		{name: "unknown channel", status: http.StatusNotFound, wantKind: notify.SendInvalid, wantRetriable: false},
		{name: "discord outage", status: http.StatusBadGateway, wantKind: notify.SendServer, wantRetriable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			tr := notify.NewDiscordTransport("token", notify.WithAPIURL(srv.URL))
			err := tr.Send(context.Background(), 42, payload(), nil)
			require.Error(t, err)

			var serr *notify.SendError
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, tt.wantKind, serr.Kind)
			assert.Equal(t, tt.wantRetriable, serr.Retriable)
		})
	}
}

func TestDiscordSend_NetworkError(t *testing.T) {
	t.Parallel()

	tr := notify.NewDiscordTransport("token", notify.WithAPIURL("http://127.0.0.1:1"))
	err := tr.Send(context.Background(), 42, payload(), nil)
	require.Error(t, err)

	var serr *notify.SendError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, notify.SendNetwork, serr.Kind)
	assert.True(t, serr.Retriable)
}
