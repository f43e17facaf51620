// Package api exposes the gateway's admin surface: status, sync
// triggers, offline data, connectivity signal injection, the UI event
// stream, and Prometheus metrics. Everything outside the admin prefix is
// handed to the request-interception worker.
package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vendora/vendora-edge/internal/controller"
	"github.com/vendora/vendora-edge/internal/logger"
	"github.com/vendora/vendora-edge/internal/notification"
	"github.com/vendora/vendora-edge/internal/worker"
)

// adminPrefix scopes the admin API away from the application's own /api
// namespace, which must pass through the worker untouched.
const adminPrefix = "/edge/v1"

// Server is the HTTP front of the gateway process.
type Server struct {
	echo   *echo.Echo
	ctrl   *controller.Controller
	worker *worker.Worker
	notifs *notification.Service
	log    logger.Logger
}

// New assembles the echo server: admin routes under /edge/v1, metrics on
// /metrics, and a catch-all forwarding to the worker.
func New(ctrl *controller.Controller, w *worker.Worker, notifs *notification.Service, registry *prometheus.Registry, log logger.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:   e,
		ctrl:   ctrl,
		worker: w,
		notifs: notifs,
		log:    log,
	}

	group := e.Group(adminPrefix)
	group.GET("/status", s.GetStatus)
	group.POST("/sync/:tag", s.TriggerSync)
	group.GET("/offline-data/:key", s.GetOfflineData)
	group.PUT("/offline-data/:key", s.PutOfflineData)
	group.POST("/connectivity", s.SetConnectivity)
	group.POST("/update", s.StageUpdate)
	group.POST("/update/apply", s.ApplyUpdate)
	group.GET("/notifications", s.ListNotifications)
	group.POST("/notifications/:id/click", s.ClickNotification)
	s.registerEventRoutes(group)

	if registry != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	s.registerPWARoutes()

	// Everything else is an intercepted application request.
	e.Any("/*", echo.WrapHandler(w), middleware.Recover())

	return s
}

// Start serves on addr until the listener fails or Shutdown is called.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the composed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
