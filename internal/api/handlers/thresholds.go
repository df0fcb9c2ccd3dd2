package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/AbdullahP/pokealert/internal/store"
	domain "github.com/AbdullahP/pokealert/pkg/types"
)

// ThresholdHandler handles price threshold configuration.
type ThresholdHandler struct {
	store store.Store
}

// NewThresholdHandler creates a new ThresholdHandler.
func NewThresholdHandler(s store.Store) *ThresholdHandler {
	return &ThresholdHandler{store: s}
}

// List handles GET /api/v1/thresholds.
func (h *ThresholdHandler) List(c echo.Context) error {
	thresholds, err := h.store.ListThresholds(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "listing thresholds: " + err.Error(),
		})
	}

	if thresholds == nil {
		thresholds = []domain.PriceThreshold{}
	}

	return c.JSON(http.StatusOK, thresholds)
}

// Put handles PUT /api/v1/thresholds. An existing keyword is updated in
// place.
func (h *ThresholdHandler) Put(c echo.Context) error {
	var th domain.PriceThreshold
	if err := c.Bind(&th); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body: " + err.Error(),
		})
	}

	if th.Keyword == "" || th.MaxPrice <= 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "keyword and a positive max_price are required",
		})
	}

	if err := h.store.UpsertThreshold(c.Request().Context(), th); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "saving threshold: " + err.Error(),
		})
	}

	return c.JSON(http.StatusOK, th)
}

// Delete handles DELETE /api/v1/thresholds/:keyword. The keyword
// arrives path-escaped since it may contain spaces.
func (h *ThresholdHandler) Delete(c echo.Context) error {
	keyword := c.Param("keyword")
	if unescaped, err := url.PathUnescape(keyword); err == nil {
		keyword = unescaped
	}

	if err := h.store.DeleteThreshold(c.Request().Context(), keyword); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "threshold not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "deleting threshold: " + err.Error(),
		})
	}

	return c.NoContent(http.StatusNoContent)
}
