package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdullahP/pokealert/internal/api"
	"github.com/AbdullahP/pokealert/internal/detect"
	"github.com/AbdullahP/pokealert/internal/fetch"
	"github.com/AbdullahP/pokealert/internal/filter"
	"github.com/AbdullahP/pokealert/internal/monitor"
	"github.com/AbdullahP/pokealert/internal/parser"
	"github.com/AbdullahP/pokealert/internal/store"
	"github.com/AbdullahP/pokealert/pkg/logger"
	domain "github.com/AbdullahP/pokealert/pkg/types"
)

// fakeRunner records which targets were started and stopped.
type fakeRunner struct {
	mu      sync.Mutex
	started []domain.TrackedTarget
	stopped []string
}

func (r *fakeRunner) StartTarget(t domain.TrackedTarget) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, t)
}

func (r *fakeRunner) Stop(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = append(r.stopped, id)
}

func (r *fakeRunner) startedIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, len(r.started))
	for i, t := range r.started {
		ids[i] = t.ID
	}
	return ids
}

func (r *fakeRunner) stoppedIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.stopped...)
}

func newTestRouter(s store.Store, runner *fakeRunner) *echo.Echo {
	return api.NewRouter(s, monitor.NewStatusRecorder(), runner, logger.Discard())
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestTargetHandler_CreateStartsPolling(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	runner := &fakeRunner{}
	e := newTestRouter(s, runner)

	rec := doJSON(e, http.MethodPost, "/api/v1/targets",
		`{"url": "https://www.bol.com/nl/rnwy/verlanglijstje/abc", "channel_id": 42}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created domain.TrackedTarget
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, domain.KindCollection, created.Kind, "wishlist URLs classify as collections")
	assert.True(t, created.Active)

	assert.Equal(t, []string{created.ID}, runner.startedIDs())

	stored, err := s.GetTarget(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), stored.ChannelID)
}

func TestTargetHandler_CreateValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "missing url", body: `{"channel_id": 42}`},
		{name: "missing channel", body: `{"url": "https://www.bol.com/nl/p/etb/123"}`},
		{name: "malformed json", body: `{"url": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			runner := &fakeRunner{}
			e := newTestRouter(store.NewMemoryStore(), runner)

			rec := doJSON(e, http.MethodPost, "/api/v1/targets", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, runner.startedIDs())
		})
	}
}

func TestTargetHandler_ListAndGet(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.CreateTarget(ctx, &domain.TrackedTarget{
		ID: "t1", URL: "https://www.bol.com/nl/p/etb/123", ChannelID: 42, Active: true,
	}))
	require.NoError(t, s.CreateTarget(ctx, &domain.TrackedTarget{
		ID: "t2", URL: "https://www.bol.com/nl/p/etb/456", ChannelID: 42,
	}))

	e := newTestRouter(s, &fakeRunner{})

	rec := doJSON(e, http.MethodGet, "/api/v1/targets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all []domain.TrackedTarget
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 2)

	rec = doJSON(e, http.MethodGet, "/api/v1/targets?active=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var active []domain.TrackedTarget
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &active))
	require.Len(t, active, 1)
	assert.Equal(t, "t1", active[0].ID)

	rec = doJSON(e, http.MethodGet, "/api/v1/targets/t1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/v1/targets/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTargetHandler_SetActive(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	require.NoError(t, s.CreateTarget(context.Background(), &domain.TrackedTarget{
		ID: "t1", URL: "https://www.bol.com/nl/p/etb/123", ChannelID: 42, Active: true,
	}))

	runner := &fakeRunner{}
	e := newTestRouter(s, runner)

	rec := doJSON(e, http.MethodPut, "/api/v1/targets/t1/active", `{"active": false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"t1"}, runner.stoppedIDs())

	stored, err := s.GetTarget(context.Background(), "t1")
	require.NoError(t, err)
	assert.False(t, stored.Active)

	rec = doJSON(e, http.MethodPut, "/api/v1/targets/t1/active", `{"active": true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"t1"}, runner.startedIDs())

	rec = doJSON(e, http.MethodPut, "/api/v1/targets/missing/active", `{"active": true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTargetHandler_Delete(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	require.NoError(t, s.CreateTarget(context.Background(), &domain.TrackedTarget{
		ID: "t1", URL: "https://www.bol.com/nl/p/etb/123", ChannelID: 42,
	}))

	runner := &fakeRunner{}
	e := newTestRouter(s, runner)

	rec := doJSON(e, http.MethodDelete, "/api/v1/targets/t1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"t1"}, runner.stoppedIDs())

	rec = doJSON(e, http.MethodDelete, "/api/v1/targets/t1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// countingFetcher serves a fixed product page and counts fetches.
type countingFetcher struct {
	mu    sync.Mutex
	body  string
	count int
}

func (f *countingFetcher) Fetch(_ context.Context, url string) (*fetch.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	return &fetch.Result{Body: []byte(f.body), StatusCode: 200, FinalURL: url}, nil
}

func (f *countingFetcher) fetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

type noopPublisher struct{}

func (noopPublisher) Queue(context.Context, *domain.Notification) error { return nil }

// A target created through the API must keep polling after the request
// that created it has finished; the loop's lifetime belongs to the
// monitor, not to the request context.
func TestTargetHandler_CreatedTargetPollsBeyondRequest(t *testing.T) {
	t.Parallel()

	f := &countingFetcher{body: `<html><body>
<h1><span data-test="title">Elite Trainer Box</span></h1>
<div data-test="buy-block">
  <span data-test="price">54<sup data-test="price-fraction">99</sup></span>
  <div data-test="availability">Op voorraad</div>
</div>
</body></html>`}

	s := store.NewMemoryStore()
	quiet := logger.Discard()
	m := monitor.New(
		s,
		f,
		parser.New(parser.WithLogger(quiet)),
		filter.New(quiet),
		detect.New(s, detect.WithLogger(quiet)),
		noopPublisher{},
		monitor.WithLogger(quiet),
		monitor.WithIntervals(20*time.Millisecond, 10*time.Millisecond, 30*time.Millisecond),
	)
	defer m.StopAll()

	e := api.NewRouter(s, m.Status(), m, quiet)

	rec := doJSON(e, http.MethodPost, "/api/v1/targets",
		`{"url": "https://www.bol.com/nl/p/etb/9300000123456789", "channel_id": 42}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	// ServeHTTP has returned, so the request context is dead. The loop
	// keeps checking regardless.
	require.Eventually(t, func() bool {
		return f.fetches() >= 2
	}, 2*time.Second, 5*time.Millisecond)
}
