package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/AbdullahP/pokealert/pkg/types"
)

func TestClient_ConnectionRefused(t *testing.T) {
	t.Parallel()

	c := New("http://127.0.0.1:1") // nothing listening
	_, err := c.ListTargets(context.Background(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API server not running")
}

func TestClient_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.ListTargets(context.Background(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API error (HTTP 500)")
}

func TestClient_ListTargets(t *testing.T) {
	t.Parallel()

	targets := []domain.TrackedTarget{
		{ID: "t1", URL: "https://www.bol.com/nl/p/etb/123"},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/targets", r.URL.Path)
		assert.Equal(t, "active=true", r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(targets)
	}))
	defer srv.Close()

	c := New(srv.URL)
	result, err := c.ListTargets(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "t1", result[0].ID)
}

func TestClient_CreateTarget(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/targets", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://www.bol.com/nl/p/etb/123", req["url"])
		assert.EqualValues(t, 42, req["channel_id"])

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(domain.TrackedTarget{ID: "generated", Active: true})
	}))
	defer srv.Close()

	c := New(srv.URL)
	created, err := c.CreateTarget(context.Background(), &domain.TrackedTarget{
		URL:       "https://www.bol.com/nl/p/etb/123",
		ChannelID: 42,
	})
	require.NoError(t, err)
	assert.Equal(t, "generated", created.ID)
	assert.True(t, created.Active)
}

func TestClient_DeleteThresholdEscapesKeyword(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/v1/thresholds/elite%20trainer%20box", r.URL.EscapedPath())
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL)
	require.NoError(t, c.DeleteThreshold(context.Background(), "elite trainer box"))
}
