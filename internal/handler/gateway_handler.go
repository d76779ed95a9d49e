package handler

import (
	"grace-checkin-bot/internal/pkg/logger"
	ws "grace-checkin-bot/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
)

// GatewayHandler exposes the websocket endpoint chat bridges connect to.
type GatewayHandler struct {
	hub    *ws.Hub
	secret string
	logger logger.ILogger
}

func NewGatewayHandler(hub *ws.Hub, jwtSecret string, log logger.ILogger) *GatewayHandler {
	return &GatewayHandler{hub: hub, secret: jwtSecret, logger: log}
}

func (h *GatewayHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/gateway/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		// Websocket clients cannot set headers, the token rides a query param.
		userID, err := h.authenticate(c.Query("token"))
		if err != nil {
			h.logger.Warn("Gateway", "Rejected websocket upgrade", map[string]interface{}{"error": err.Error()})
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid token"})
		}

		c.Locals("user_id", userID)
		return websocket.New(func(conn *websocket.Conn) {
			ws.ServeWs(h.hub, conn, userID)
		})(c)
	})
}

func (h *GatewayHandler) authenticate(tokenStr string) (string, error) {
	if tokenStr == "" {
		return "", fiber.ErrUnauthorized
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.ErrUnauthorized
		}
		return []byte(h.secret), nil
	})
	if err != nil || !token.Valid {
		return "", fiber.ErrUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fiber.ErrUnauthorized
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", fiber.ErrUnauthorized
	}
	return userID, nil
}
