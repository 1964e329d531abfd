package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kibet254/chat_space/handlers"
	"github.com/kibet254/chat_space/middleware"
)

func ProfileRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	profiles := api.Group("/profiles", middleware.Protected())
	profiles.Get("", handlers.GetProfiles)
	profiles.Get("/me", handlers.GetProfile)
	profiles.Put("/me", handlers.UpdateProfile)
}
