package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/AbdullahP/pokealert/internal/monitor"
)

// StatusHandler exposes per-target monitoring health.
type StatusHandler struct {
	recorder *monitor.StatusRecorder
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(r *monitor.StatusRecorder) *StatusHandler {
	return &StatusHandler{recorder: r}
}

// List handles GET /api/v1/status.
func (h *StatusHandler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, h.recorder.All())
}

// Get handles GET /api/v1/status/:id.
func (h *StatusHandler) Get(c echo.Context) error {
	id := c.Param("id")

	s, ok := h.recorder.Get(id)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "target not found",
		})
	}

	return c.JSON(http.StatusOK, s)
}
