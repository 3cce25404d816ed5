package server

import (
	"errors"
	"log/slog"

	"zeroai/internal/middleware"
	"zeroai/internal/models"
	"zeroai/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// requireUpgrade rejects plain HTTP requests to websocket routes and reports a disabled stream.
func (s *Server) requireUpgrade(c *fiber.Ctx) error {
	if s.hub == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
			Error: "Timeline stream unavailable",
			Code:  models.CodeInternal,
		})
	}
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

// TimelineStreamHandler handles GET /api/ws/timeline. Clients receive every timeline event as JSON.
func (s *Server) TimelineStreamHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("userID").(string)

		client, err := s.hub.Register(conn, userID)
		if err != nil {
			if errors.Is(err, notifications.ErrHubFull) {
				_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			}
			_ = conn.Close()
			return
		}

		middleware.Logger.Debug("timeline stream connected", slog.String("user_id", userID))

		go client.WritePump()
		client.ReadPump()
	})
}
