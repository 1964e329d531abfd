package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kibet254/chat_space/database"
	"github.com/kibet254/chat_space/middleware"
	"github.com/kibet254/chat_space/services"
	"github.com/kibet254/chat_space/websocket"
)

type SendMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

type EditMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

func GetConversationMessages(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	conversationID, err := uuid.Parse(c.Params("conversationId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "50"))
	offset := (page - 1) * pageSize

	messages, err := services.ListMessages(database.DB, userID, conversationID, pageSize, offset)
	if err != nil {
		if errors.Is(err, services.ErrForbidden) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Not a participant"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch messages"})
	}

	return c.JSON(messages)
}

func SendMessage(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	conversationID, err := uuid.Parse(c.Params("conversationId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	message, err := services.SendMessage(database.DB, userID, conversationID, req.Content)
	if err != nil {
		if errors.Is(err, services.ErrForbidden) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Not a participant"})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	websocket.Broadcast <- &websocket.Event{
		Table:          "messages",
		Event:          websocket.EventInsert,
		Row:            message,
		ConversationID: message.ConversationID,
	}

	return c.Status(fiber.StatusCreated).JSON(message)
}

func EditMessage(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	messageID, err := uuid.Parse(c.Params("messageId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid message id"})
	}

	var req EditMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	message, err := services.EditMessage(database.DB, userID, messageID, req.Content)
	if err != nil {
		if errors.Is(err, services.ErrForbidden) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Only the sender can edit a message"})
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Message not found"})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	websocket.Broadcast <- &websocket.Event{
		Table:          "messages",
		Event:          websocket.EventUpdate,
		Row:            message,
		ConversationID: message.ConversationID,
	}

	return c.JSON(message)
}

func DeleteMessage(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	messageID, err := uuid.Parse(c.Params("messageId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid message id"})
	}

	message, err := services.DeleteMessage(database.DB, userID, messageID)
	if err != nil {
		if errors.Is(err, services.ErrForbidden) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Only the sender can delete a message"})
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Message not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete message"})
	}

	websocket.Broadcast <- &websocket.Event{
		Table:          "messages",
		Event:          websocket.EventDelete,
		Row:            message,
		ConversationID: message.ConversationID,
	}

	return c.JSON(fiber.Map{"message": "Message deleted"})
}
