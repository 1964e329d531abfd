package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kibet254/chat_space/database"
	"github.com/kibet254/chat_space/middleware"
	"github.com/kibet254/chat_space/models"
	"github.com/kibet254/chat_space/services"
	"github.com/kibet254/chat_space/websocket"
)

type AddContactRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func ListContacts(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	contacts, err := services.ListContacts(database.DB, userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch contacts"})
	}
	return c.JSON(contacts)
}

func AddContact(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	var req AddContactRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var other models.Profile
	if err := database.DB.Where("email = ?", req.Email).First(&other).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No profile with that email"})
	}
	if other.ID == userID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot add yourself as a contact"})
	}

	contact, err := services.AddContactPair(database.DB, userID, other.ID)
	if err != nil {
		if errors.Is(err, services.ErrForbidden) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Not allowed"})
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Contact already exists"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to add contact"})
	}

	websocket.Broadcast <- &websocket.Event{
		Table:      "contacts",
		Event:      websocket.EventInsert,
		Row:        contact,
		Recipients: []uuid.UUID{userID, other.ID},
	}

	return c.Status(fiber.StatusCreated).JSON(contact)
}

func DeleteContact(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	contactID, err := uuid.Parse(c.Params("contactId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid contact id"})
	}

	contact, err := services.DeleteContact(database.DB, userID, contactID)
	if err != nil {
		if errors.Is(err, services.ErrForbidden) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Not allowed"})
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Contact not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete contact"})
	}

	websocket.Broadcast <- &websocket.Event{
		Table:      "contacts",
		Event:      websocket.EventDelete,
		Row:        contact,
		Recipients: []uuid.UUID{userID},
	}

	return c.JSON(fiber.Map{"message": "Contact removed"})
}
