package models

import (
	"time"

	"github.com/google/uuid"
)

// Sender and conversation are immutable once a message exists; edits touch
// Content and UpdatedAt only.
type Message struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index" json:"conversation_id"`
	SenderID       uuid.UUID `gorm:"type:uuid;not null" json:"sender_id"`
	Content        string    `gorm:"type:text;not null" json:"content"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Conversation Conversation `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
	Sender       Profile      `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE" json:"-"`
}
