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

type CreateConversationRequest struct {
	Type           string   `json:"type" validate:"required,oneof=private group"`
	RecipientID    *string  `json:"recipient_id" validate:"omitempty,uuid"`
	Name           *string  `json:"name"`
	ParticipantIDs []string `json:"participant_ids" validate:"omitempty,dive,uuid"`
}

type RenameConversationRequest struct {
	Name string `json:"name" validate:"required,min=1"`
}

func GetUserConversations(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	summaries, err := services.ListForUser(database.DB, userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch conversations"})
	}
	return c.JSON(summaries)
}

func CreateConversation(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	var req CreateConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if req.Type == models.ConversationTypePrivate {
		if req.RecipientID == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "recipient_id is required for private conversations"})
		}
		recipientID, _ := uuid.Parse(*req.RecipientID)

		conversation, created, err := services.FindOrCreatePrivate(database.DB, userID, recipientID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		if !created {
			return c.JSON(conversation)
		}

		websocket.Broadcast <- &websocket.Event{
			Table:          "conversations",
			Event:          websocket.EventInsert,
			Row:            conversation,
			ConversationID: conversation.ID,
		}
		return c.Status(fiber.StatusCreated).JSON(conversation)
	}

	memberIDs := make([]uuid.UUID, 0, len(req.ParticipantIDs))
	for _, raw := range req.ParticipantIDs {
		id, _ := uuid.Parse(raw)
		memberIDs = append(memberIDs, id)
	}
	name := ""
	if req.Name != nil {
		name = *req.Name
	}

	conversation, err := services.CreateGroup(database.DB, userID, name, memberIDs)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	websocket.Broadcast <- &websocket.Event{
		Table:          "conversations",
		Event:          websocket.EventInsert,
		Row:            conversation,
		ConversationID: conversation.ID,
	}
	return c.Status(fiber.StatusCreated).JSON(conversation)
}

func RenameConversation(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	conversationID, err := uuid.Parse(c.Params("conversationId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	var req RenameConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	conversation, err := services.Rename(database.DB, userID, conversationID, req.Name)
	if err != nil {
		if errors.Is(err, services.ErrForbidden) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Only the creator can rename a conversation"})
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Conversation not found"})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	websocket.Broadcast <- &websocket.Event{
		Table:          "conversations",
		Event:          websocket.EventUpdate,
		Row:            conversation,
		ConversationID: conversation.ID,
	}
	return c.JSON(conversation)
}

type AddParticipantRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

func AddParticipant(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	conversationID, err := uuid.Parse(c.Params("conversationId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	var req AddParticipantRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	memberID, _ := uuid.Parse(req.UserID)

	participant, err := services.AddParticipant(database.DB, userID, conversationID, memberID)
	if err != nil {
		if errors.Is(err, services.ErrForbidden) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Only the creator can add participants"})
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Already a participant"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to add participant"})
	}

	websocket.Broadcast <- &websocket.Event{
		Table:          "conversation_participants",
		Event:          websocket.EventInsert,
		Row:            participant,
		ConversationID: conversationID,
	}
	return c.Status(fiber.StatusCreated).JSON(participant)
}

func MarkConversationRead(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	conversationID, err := uuid.Parse(c.Params("conversationId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	participant, err := services.MarkRead(database.DB, userID, conversationID)
	if err != nil {
		if errors.Is(err, services.ErrForbidden) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Not a participant"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update read marker"})
	}

	websocket.Broadcast <- &websocket.Event{
		Table:      "conversation_participants",
		Event:      websocket.EventUpdate,
		Row:        participant,
		Recipients: []uuid.UUID{userID},
	}
	return c.JSON(participant)
}

func LeaveConversation(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	conversationID, err := uuid.Parse(c.Params("conversationId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	participant, err := services.Leave(database.DB, userID, conversationID)
	if err != nil {
		if errors.Is(err, services.ErrForbidden) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Not a participant"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to leave conversation"})
	}

	// The leaver's own participant row is already gone, so include them
	// alongside the remaining participants.
	var remaining []uuid.UUID
	if err := database.DB.Table("conversation_participants").
		Where("conversation_id = ?", conversationID).
		Pluck("user_id", &remaining).Error; err == nil {
		websocket.Broadcast <- &websocket.Event{
			Table:      "conversation_participants",
			Event:      websocket.EventDelete,
			Row:        participant,
			Recipients: append(remaining, userID),
		}
	}

	return c.JSON(fiber.Map{"message": "Left conversation"})
}
