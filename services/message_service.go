package services

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kibet254/chat_space/models"
	"github.com/kibet254/chat_space/policy"
)

// SendMessage inserts a message after the policy table confirms the sender
// is the caller and a participant of the conversation. The conversation's
// updated_at is touched so list ordering follows activity.
func SendMessage(db *gorm.DB, senderID, conversationID uuid.UUID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.New("message content cannot be empty")
	}

	ok, err := policy.Allowed(db, policy.Messages, policy.Insert, senderID,
		policy.Row{ConversationID: conversationID, UserID: senderID})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}

	message := models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
	}
	if err := db.Create(&message).Error; err != nil {
		return nil, err
	}

	if err := db.Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Update("updated_at", time.Now().UTC()).Error; err != nil {
		return nil, err
	}

	return &message, nil
}

// ListMessages returns a page of a conversation's messages, newest first.
func ListMessages(db *gorm.DB, callerID, conversationID uuid.UUID, limit, offset int) ([]models.Message, error) {
	ok, err := policy.Allowed(db, policy.Messages, policy.Select, callerID,
		policy.Row{ConversationID: conversationID})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}

	var messages []models.Message
	err = db.Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// EditMessage replaces the content of the caller's own message.
func EditMessage(db *gorm.DB, callerID, messageID uuid.UUID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.New("message content cannot be empty")
	}

	var message models.Message
	if err := db.First(&message, "id = ?", messageID).Error; err != nil {
		return nil, err
	}

	ok, err := policy.Allowed(db, policy.Messages, policy.Update, callerID,
		policy.Row{ID: message.ID, UserID: message.SenderID, ConversationID: message.ConversationID})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}

	message.Content = content
	if err := db.Save(&message).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

// DeleteMessage removes the caller's own message and returns the deleted row
// so callers can publish the change.
func DeleteMessage(db *gorm.DB, callerID, messageID uuid.UUID) (*models.Message, error) {
	var message models.Message
	if err := db.First(&message, "id = ?", messageID).Error; err != nil {
		return nil, err
	}

	ok, err := policy.Allowed(db, policy.Messages, policy.Delete, callerID,
		policy.Row{ID: message.ID, UserID: message.SenderID, ConversationID: message.ConversationID})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}

	if err := db.Delete(&message).Error; err != nil {
		return nil, err
	}
	return &message, nil
}
