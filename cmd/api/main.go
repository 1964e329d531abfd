package main

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"

	config "github.com/kibet254/chat_space/configs"
	"github.com/kibet254/chat_space/database"
	"github.com/kibet254/chat_space/jobs"
	"github.com/kibet254/chat_space/notifications"
	"github.com/kibet254/chat_space/routes"
	"github.com/kibet254/chat_space/websocket"
)

func main() {
	database.ConnectDB()
	database.Migrate()
	notifications.InitEmailService()

	c := cron.New()
	c.AddFunc("*/5 * * * *", jobs.SweepStalePresence)
	go c.Start()
	log.Println("✅ Cron job for presence sweep scheduled successfully.")

	app := fiber.New(fiber.Config{
		Prefork:           false,
		AppName:           "Chat Space",
		CaseSensitive:     true,
		StrictRouting:     true,
		EnablePrintRoutes: true,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			log.Printf("[ERROR] %v | Path: %s | Method: %s", err, c.Path(), c.Method())
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": err.Error(),
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization",
		MaxAge:        86400,
	}))

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Welcome to Chat Space API",
		})
	})

	routes.AuthRoutes(app)
	routes.ProfileRoutes(app)
	routes.ContactRoutes(app)
	routes.MessagingRoutes(app)

	go websocket.RunHub()

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})

	port := config.Config("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("✅ Server is running on port %s", port)
	err := app.Listen(":" + port)
	if err != nil {
		log.Fatalf("🔥 Server failed to start: %v", err)
	}
}
