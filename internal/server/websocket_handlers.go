package server

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/middleware"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
)

// upgradeRequired rejects plain HTTP requests on websocket routes.
func upgradeRequired(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// EventStreamHandler streams lifecycle events addressed to the connected actor.
// The connection is receive-only; anything the client sends is discarded.
func (s *Server) EventStreamHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		actor, ok := conn.Locals(middleware.ActorLocalsKey).(models.Actor)
		if !ok || actor.ID == 0 {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}
		if s.hub == nil {
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(actor.ID, conn)
		if err != nil {
			middleware.Logger.Warn("event stream registration failed",
				slog.Uint64("user_id", uint64(actor.ID)),
				slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		go client.WritePump()
		reason := client.ReadPump()
		middleware.Logger.InfoContext(context.Background(), "event stream closed",
			slog.Uint64("user_id", uint64(actor.ID)),
			slog.String("reason", reason))
	})
}

// GetFeatureFlags returns the configured flags evaluated for the caller.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return nil
	}
	if s.featureFlags == nil {
		return c.JSON(fiber.Map{"flags": map[string]bool{}})
	}
	return c.JSON(fiber.Map{"flags": s.featureFlags.Snapshot(actor)})
}
