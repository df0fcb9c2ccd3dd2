package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/AbdullahP/pokealert/internal/store"
)

// IntervalHandler handles per-domain poll interval overrides.
type IntervalHandler struct {
	store store.Store
}

// NewIntervalHandler creates a new IntervalHandler.
func NewIntervalHandler(s store.Store) *IntervalHandler {
	return &IntervalHandler{store: s}
}

type intervalResponse struct {
	Domain          string `json:"domain"`
	IntervalSeconds int64  `json:"interval_seconds"`
}

type setIntervalRequest struct {
	IntervalSeconds int64 `json:"interval_seconds"`
}

// Get handles GET /api/v1/intervals/:domain.
func (h *IntervalHandler) Get(c echo.Context) error {
	domainName := c.Param("domain")

	interval, ok, err := h.store.IntervalForDomain(c.Request().Context(), domainName)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "loading interval: " + err.Error(),
		})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "no override for domain",
		})
	}

	return c.JSON(http.StatusOK, intervalResponse{
		Domain:          domainName,
		IntervalSeconds: int64(interval / time.Second),
	})
}

// Put handles PUT /api/v1/intervals/:domain. Running loops pick up the
// new interval on their next pass.
func (h *IntervalHandler) Put(c echo.Context) error {
	domainName := c.Param("domain")

	var req setIntervalRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body: " + err.Error(),
		})
	}

	if req.IntervalSeconds <= 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "interval_seconds must be positive",
		})
	}

	interval := time.Duration(req.IntervalSeconds) * time.Second
	if err := h.store.SetDomainInterval(c.Request().Context(), domainName, interval); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "saving interval: " + err.Error(),
		})
	}

	return c.JSON(http.StatusOK, intervalResponse{
		Domain:          domainName,
		IntervalSeconds: req.IntervalSeconds,
	})
}
