package routes

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/kibet254/chat_space/handlers"
	"github.com/kibet254/chat_space/middleware"
)

func MessagingRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	conversations := api.Group("/conversations", middleware.Protected())
	conversations.Get("", handlers.GetUserConversations)
	conversations.Post("", handlers.CreateConversation)
	conversations.Patch("/:conversationId", handlers.RenameConversation)
	conversations.Post("/:conversationId/participants", handlers.AddParticipant)
	conversations.Post("/:conversationId/read", handlers.MarkConversationRead)
	conversations.Delete("/:conversationId/participants/me", handlers.LeaveConversation)
	conversations.Get("/:conversationId/messages", handlers.GetConversationMessages)
	conversations.Post("/:conversationId/messages", handlers.SendMessage)

	messages := api.Group("/messages", middleware.Protected())
	messages.Patch("/:messageId", handlers.EditMessage)
	messages.Delete("/:messageId", handlers.DeleteMessage)

	api.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	api.Get("/ws", websocket.New(handlers.ServeWs))
}
