package models

import (
	"time"

	"github.com/google/uuid"
)

// A contact link is one-directional. Adding a contact creates the A->B and
// B->A rows as a pair by convention; deleting one side leaves the other.
type Contact struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_contacts_user_contact" json:"user_id"`
	ContactID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_contacts_user_contact" json:"contact_id"`
	CreatedAt time.Time `json:"created_at"`

	User    Profile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Profile Profile `gorm:"foreignKey:ContactID;constraint:OnDelete:CASCADE" json:"contact"`
}
