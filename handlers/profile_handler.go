package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kibet254/chat_space/database"
	"github.com/kibet254/chat_space/middleware"
	"github.com/kibet254/chat_space/models"
	"github.com/kibet254/chat_space/policy"
	"github.com/kibet254/chat_space/websocket"
)

type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	Status      *string `json:"status" validate:"omitempty,oneof=online offline away"`
}

func GetProfiles(c *fiber.Ctx) error {
	var profiles []models.Profile
	if err := database.DB.Order("display_name ASC").Find(&profiles).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch profiles"})
	}
	return c.JSON(profiles)
}

func GetProfile(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	var profile models.Profile
	if err := database.DB.Where("id = ?", userID).First(&profile).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
	}

	return c.JSON(profile)
}

func UpdateProfile(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	var profile models.Profile
	if err := database.DB.Where("id = ?", userID).First(&profile).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	ok, err := policy.Allowed(database.DB, policy.Profiles, policy.Update, userID,
		policy.Row{ID: profile.ID, UserID: profile.ID})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
	}
	if !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Not allowed"})
	}

	if req.DisplayName != nil {
		profile.DisplayName = *req.DisplayName
	}
	if req.Status != nil {
		profile.Status = *req.Status
	}

	if err := database.DB.Save(&profile).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
	}

	websocket.Broadcast <- &websocket.Event{
		Table: "profiles",
		Event: websocket.EventUpdate,
		Row:   profile,
	}

	return c.JSON(profile)
}
