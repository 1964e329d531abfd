package models

import (
	"time"

	"github.com/google/uuid"
)

type Profile struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Email       string    `gorm:"size:255;not null;unique" json:"email"`
	DisplayName string    `gorm:"size:255;not null" json:"display_name"`
	Status      string    `gorm:"size:20;not null;default:'offline'" json:"status"`
	Password    string    `gorm:"not null" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}
