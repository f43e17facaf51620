package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/vendora/vendora-edge/internal/logger"
)

// SSE connection configuration.
const (
	maxSSEConnectionDuration = 30 * time.Minute
	heartbeatInterval        = 30 * time.Second
	rateLimitWindow          = 1 * time.Minute

	rateLimitRequestsPerWindow = 10
	rateLimitBurst             = 15
)

// sseEvent is the unified frame carried on the event stream: controller
// UI signals and notifications share one channel so the front-end needs a
// single subscription.
type sseEvent struct {
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// registerEventRoutes wires the SSE endpoint with its rate limiter.
func (s *Server) registerEventRoutes(group *echo.Group) {
	rateLimiterConfig := middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rateLimitRequestsPerWindow,
				Burst:     rateLimitBurst,
				ExpiresIn: rateLimitWindow,
			},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(ctx echo.Context, err error) error {
			return ctx.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "Too many event stream connection attempts, please wait before trying again",
			})
		},
	}
	group.GET("/events", s.StreamEvents, middleware.RateLimiterWithConfig(rateLimiterConfig))
}

// StreamEvents serves the controller-to-UI signal stream over SSE:
// update-available, install-available, connectivity transitions, reload,
// and notifications.
func (s *Server) StreamEvents(ctx echo.Context) error {
	resp := ctx.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)
	resp.Flush()

	events, cancelEvents := s.ctrl.Events().Subscribe()
	defer cancelEvents()
	notifs, cancelNotifs := s.notifs.Subscribe()
	defer cancelNotifs()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	deadline := time.NewTimer(maxSSEConnectionDuration)
	defer deadline.Stop()

	reqCtx := ctx.Request().Context()
	for {
		select {
		case <-reqCtx.Done():
			return nil
		case <-deadline.C:
			// Bounded connection lifetime; clients reconnect.
			return nil
		case <-heartbeat.C:
			if err := writeSSE(resp, "heartbeat", sseEvent{
				Type:      "heartbeat",
				Timestamp: time.Now(),
			}); err != nil {
				return nil
			}
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if err := writeSSE(resp, event.Type, sseEvent{
				Type:      event.Type,
				Data:      event.Data,
				Timestamp: event.Timestamp,
			}); err != nil {
				s.log.Debug("event stream client gone", logger.Error(err))
				return nil
			}
		case n, ok := <-notifs:
			if !ok {
				return nil
			}
			if err := writeSSE(resp, "notification", sseEvent{
				Type:      "notification",
				Data:      n,
				Timestamp: n.CreatedAt,
			}); err != nil {
				s.log.Debug("event stream client gone", logger.Error(err))
				return nil
			}
		}
	}
}

// writeSSE frames and flushes one server-sent event.
func writeSSE(resp *echo.Response, name string, event sseEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(resp, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	resp.Flush()
	return nil
}
