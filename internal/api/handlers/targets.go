package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/AbdullahP/pokealert/internal/store"
	domain "github.com/AbdullahP/pokealert/pkg/types"
)

// TargetRunner starts and stops polling loops as targets come and go.
// The runner owns the loop lifetimes; handlers only hand over targets,
// so a loop never inherits a request-scoped context. *monitor.Monitor
// satisfies it.
type TargetRunner interface {
	StartTarget(target domain.TrackedTarget)
	Stop(id string)
}

// TargetHandler handles tracked target CRUD operations. Mutations are
// propagated to the runner so polling follows the store.
type TargetHandler struct {
	store  store.Store
	runner TargetRunner
}

// NewTargetHandler creates a new TargetHandler.
func NewTargetHandler(s store.Store, r TargetRunner) *TargetHandler {
	return &TargetHandler{store: s, runner: r}
}

// List handles GET /api/v1/targets.
func (h *TargetHandler) List(c echo.Context) error {
	activeOnly := c.QueryParam("active") == "true"

	targets, err := h.store.ListTargets(c.Request().Context(), activeOnly)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "listing targets: " + err.Error(),
		})
	}

	if targets == nil {
		targets = []domain.TrackedTarget{}
	}

	return c.JSON(http.StatusOK, targets)
}

// Get handles GET /api/v1/targets/:id.
func (h *TargetHandler) Get(c echo.Context) error {
	id := c.Param("id")

	t, err := h.store.GetTarget(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "target not found",
		})
	}

	return c.JSON(http.StatusOK, t)
}

// Create handles POST /api/v1/targets. New targets are active and start
// polling immediately.
func (h *TargetHandler) Create(c echo.Context) error {
	var t domain.TrackedTarget
	if err := c.Bind(&t); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body: " + err.Error(),
		})
	}

	if t.URL == "" || t.ChannelID == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "url and channel_id are required",
		})
	}

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Kind == "" {
		t.Kind = domain.KindForURL(t.URL)
	}
	t.Active = true

	if err := h.store.CreateTarget(c.Request().Context(), &t); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "creating target: " + err.Error(),
		})
	}

	h.runner.StartTarget(t)

	return c.JSON(http.StatusCreated, t)
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

// SetActive handles PUT /api/v1/targets/:id/active. Activating starts
// the polling loop, deactivating stops it.
func (h *TargetHandler) SetActive(c echo.Context) error {
	id := c.Param("id")

	var req setActiveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body: " + err.Error(),
		})
	}

	ctx := c.Request().Context()

	t, err := h.store.GetTarget(ctx, id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "target not found",
		})
	}

	if err := h.store.SetTargetActive(ctx, id, req.Active); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "setting target active: " + err.Error(),
		})
	}

	if req.Active {
		t.Active = true
		h.runner.StartTarget(*t)
	} else {
		h.runner.Stop(id)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "updated"})
}

// Delete handles DELETE /api/v1/targets/:id. The polling loop stops
// before the row goes away.
func (h *TargetHandler) Delete(c echo.Context) error {
	id := c.Param("id")

	h.runner.Stop(id)

	if err := h.store.DeleteTarget(c.Request().Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "target not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "deleting target: " + err.Error(),
		})
	}

	return c.NoContent(http.StatusNoContent)
}
