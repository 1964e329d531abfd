package models

import (
	"time"

	"github.com/google/uuid"
)

type ConversationParticipant struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ConversationID uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_participants_conversation_user" json:"conversation_id"`
	UserID         uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_participants_conversation_user" json:"user_id"`
	JoinedAt       time.Time  `gorm:"not null" json:"joined_at"`
	LastReadAt     *time.Time `json:"last_read_at"`

	Conversation Conversation `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
	Profile      Profile      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"profile"`
}

func (ConversationParticipant) TableName() string {
	return "conversation_participants"
}
