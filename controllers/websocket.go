package controllers

import (
	"eduadmin_go/middleware"
	"eduadmin_go/services/websocket"

	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
)

type WebSocketController struct {
	hub *websocket.Hub
}

func NewWebSocketController(hub *websocket.Hub) *WebSocketController {
	return &WebSocketController{hub: hub}
}

// Upgrade rejects plain HTTP requests to the socket endpoint.
func (wsc *WebSocketController) Upgrade(c *fiber.Ctx) error {
	if !fiberws.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{
			"error": "Use the WebSocket endpoint: ws://<host>/ws?token=YOUR_TOKEN",
		})
	}
	c.Locals("actor", middleware.ActorFromToken(c.Query("token")))
	return c.Next()
}

// WebSocketHandler connects the socket to the dashboard event hub.
func (wsc *WebSocketController) WebSocketHandler() fiber.Handler {
	return fiberws.New(func(c *fiberws.Conn) {
		actor, _ := c.Locals("actor").(string)
		wsc.hub.ServeFiberWS(c, actor)
	})
}
