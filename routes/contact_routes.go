package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kibet254/chat_space/handlers"
	"github.com/kibet254/chat_space/middleware"
)

func ContactRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	contacts := api.Group("/contacts", middleware.Protected())
	contacts.Get("", handlers.ListContacts)
	contacts.Post("", handlers.AddContact)
	contacts.Delete("/:contactId", handlers.DeleteContact)
}
