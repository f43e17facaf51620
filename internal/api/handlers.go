package api

import (
	"encoding/json"
	"io"
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"

	"github.com/vendora/vendora-edge/internal/cachestore/repository"
	"github.com/vendora/vendora-edge/internal/errors"
	"github.com/vendora/vendora-edge/internal/logger"
	"github.com/vendora/vendora-edge/internal/notification"
	"github.com/vendora/vendora-edge/internal/worker"
)

// maxOfflineDataBytes bounds offline-data payloads accepted over the API.
const maxOfflineDataBytes = 1 << 20

// StatusResponse is the gateway status envelope.
type StatusResponse struct {
	Online       bool           `json:"online"`
	Generation   string         `json:"generation"`
	Staged       string         `json:"staged,omitempty"`
	PendingSync  map[string]int `json:"pendingSync"`
	Capabilities map[string]any `json:"capabilities"`
}

// GetStatus reports connectivity, generation, and queue depths.
func (s *Server) GetStatus(ctx echo.Context) error {
	pending, err := s.worker.PendingCounts(ctx.Request().Context())
	if err != nil {
		s.log.Error("failed to read pending sync counts", logger.Error(err))
		pending = map[string]int{}
	}
	caps := s.ctrl.Capabilities()
	return ctx.JSON(http.StatusOK, StatusResponse{
		Online:      s.ctrl.GetOnlineStatus(),
		Generation:  s.worker.Generation(),
		Staged:      s.worker.StagedGeneration(),
		PendingSync: pending,
		Capabilities: map[string]any{
			"push":          caps.PushSupported,
			"sync":          caps.SyncSupported,
			"notifications": caps.NotificationsSupported,
		},
	})
}

// TriggerSync schedules a replay of one sync tag.
func (s *Server) TriggerSync(ctx echo.Context) error {
	tag := ctx.Param("tag")
	if !slices.Contains(worker.SyncTags(), tag) {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "unknown sync tag",
		})
	}
	s.ctrl.RequestSync(tag)
	return ctx.JSON(http.StatusAccepted, map[string]string{
		"message": "sync requested",
		"tag":     tag,
	})
}

// GetOfflineData returns the raw JSON document stored under key.
func (s *Server) GetOfflineData(ctx echo.Context) error {
	key := ctx.Param("key")
	var doc json.RawMessage
	err := s.ctrl.GetOfflineData(ctx.Request().Context(), key, &doc)
	if err != nil {
		if errors.Is(err, repository.ErrSlotNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{
				"error": "offline-data slot not found",
			})
		}
		s.log.Error("failed to read offline data",
			logger.String("key", key),
			logger.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to read offline data",
		})
	}
	return ctx.JSONBlob(http.StatusOK, doc)
}

// PutOfflineData stores an arbitrary JSON document under key.
func (s *Server) PutOfflineData(ctx echo.Context) error {
	key := ctx.Param("key")
	body, err := io.ReadAll(io.LimitReader(ctx.Request().Body, maxOfflineDataBytes))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "failed to read request body",
		})
	}
	if !json.Valid(body) {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "body must be valid JSON",
		})
	}
	if err := s.ctrl.CacheOfflineData(ctx.Request().Context(), key, json.RawMessage(body)); err != nil {
		s.log.Error("failed to write offline data",
			logger.String("key", key),
			logger.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to write offline data",
		})
	}
	return ctx.JSON(http.StatusOK, map[string]string{"message": "stored"})
}

// connectivityRequest is the explicit connectivity signal body.
type connectivityRequest struct {
	Online bool `json:"online"`
}

// SetConnectivity injects a connect/disconnect signal, the analog of the
// browser's online/offline events.
func (s *Server) SetConnectivity(ctx echo.Context) error {
	var req connectivityRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid connectivity payload",
		})
	}
	s.ctrl.SetOnline(req.Online)
	return ctx.JSON(http.StatusOK, map[string]any{"online": req.Online})
}

// updateRequest names a generation tag to stage.
type updateRequest struct {
	Generation string `json:"generation"`
}

// StageUpdate installs a new generation without activating it.
func (s *Server) StageUpdate(ctx echo.Context) error {
	var req updateRequest
	if err := ctx.Bind(&req); err != nil || req.Generation == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "generation tag is required",
		})
	}
	staged, err := s.ctrl.CheckForUpdate(ctx.Request().Context(), req.Generation)
	if err != nil {
		s.log.Error("failed to stage update",
			logger.String("generation", req.Generation),
			logger.Error(err))
		return ctx.JSON(http.StatusBadGateway, map[string]string{
			"error": "failed to stage update",
		})
	}
	if !staged {
		return ctx.JSON(http.StatusOK, map[string]string{
			"message": "already on this generation",
		})
	}
	return ctx.JSON(http.StatusAccepted, map[string]string{
		"message":    "update staged",
		"generation": req.Generation,
	})
}

// ApplyUpdate promotes the staged generation. Only called in response to
// explicit user confirmation of the update prompt.
func (s *Server) ApplyUpdate(ctx echo.Context) error {
	if err := s.ctrl.ApplyUpdate(ctx.Request().Context()); err != nil {
		return ctx.JSON(http.StatusConflict, map[string]string{
			"error": "no staged update to apply",
		})
	}
	return ctx.JSON(http.StatusOK, map[string]string{"message": "update applied"})
}

// ListNotifications returns recent notifications, newest first.
func (s *Server) ListNotifications(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{
		"notifications": s.notifs.List(),
		"unread":        s.notifs.UnreadCount(),
	})
}

// clickRequest names a notification action.
type clickRequest struct {
	Action string `json:"action"`
}

// ClickNotification resolves a notification click to a navigation target.
func (s *Server) ClickNotification(ctx echo.Context) error {
	var req clickRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid click payload",
		})
	}
	url, err := s.notifs.HandleClick(ctx.Param("id"), req.Action)
	if err != nil {
		if errors.Is(err, notification.ErrNotificationNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{
				"error": "notification not found",
			})
		}
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to handle click",
		})
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"dismissed": true,
		"url":       url,
	})
}
