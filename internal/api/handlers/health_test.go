package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AbdullahP/pokealert/internal/store"
)

// failingPingStore wraps a store with a scripted Ping error.
type failingPingStore struct {
	store.Store
	pingErr error
}

func (s *failingPingStore) Ping(context.Context) error {
	return s.pingErr
}

func TestHealth_Healthz(t *testing.T) {
	t.Parallel()

	e := newTestRouter(store.NewMemoryStore(), &fakeRunner{})

	rec := doJSON(e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestHealth_Readyz(t *testing.T) {
	t.Parallel()

	t.Run("store reachable", func(t *testing.T) {
		t.Parallel()

		e := newTestRouter(store.NewMemoryStore(), &fakeRunner{})

		rec := doJSON(e, http.MethodGet, "/readyz", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"ready"`)
	})

	t.Run("store down", func(t *testing.T) {
		t.Parallel()

		s := &failingPingStore{
			Store:   store.NewMemoryStore(),
			pingErr: errors.New("connection refused"),
		}
		e := newTestRouter(s, &fakeRunner{})

		rec := doJSON(e, http.MethodGet, "/readyz", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), `"unavailable"`)
	})
}
