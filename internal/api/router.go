// Package api assembles the HTTP surface: health probes, the metrics
// endpoint, and the JSON API for targets, thresholds, intervals, and
// per-target status.
package api

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AbdullahP/pokealert/internal/api/handlers"
	"github.com/AbdullahP/pokealert/internal/api/middleware"
	"github.com/AbdullahP/pokealert/internal/monitor"
	"github.com/AbdullahP/pokealert/internal/store"
)

// NewRouter builds the Echo instance with all middleware and routes
// registered.
func NewRouter(
	s store.Store,
	recorder *monitor.StatusRecorder,
	runner handlers.TargetRunner,
	log *slog.Logger,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(log))
	e.Use(middleware.RequestLog(log))
	e.Use(middleware.Metrics())

	health := handlers.NewHealthHandler(s)
	e.GET("/healthz", health.Healthz)
	e.GET("/readyz", health.Readyz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/api/v1")

	targets := handlers.NewTargetHandler(s, runner)
	v1.GET("/targets", targets.List)
	v1.POST("/targets", targets.Create)
	v1.GET("/targets/:id", targets.Get)
	v1.PUT("/targets/:id/active", targets.SetActive)
	v1.DELETE("/targets/:id", targets.Delete)

	status := handlers.NewStatusHandler(recorder)
	v1.GET("/status", status.List)
	v1.GET("/status/:id", status.Get)

	thresholds := handlers.NewThresholdHandler(s)
	v1.GET("/thresholds", thresholds.List)
	v1.PUT("/thresholds", thresholds.Put)
	v1.DELETE("/thresholds/:keyword", thresholds.Delete)

	intervals := handlers.NewIntervalHandler(s)
	v1.GET("/intervals/:domain", intervals.Get)
	v1.PUT("/intervals/:domain", intervals.Put)

	return e
}
