package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kibet254/chat_space/models"
	"github.com/kibet254/chat_space/policy"
)

// AddContactPair links caller and other in both directions. The caller's own
// row is the policy-checked insert; the reverse row is the pairing
// convention, and the two remain independent rows afterwards.
func AddContactPair(db *gorm.DB, callerID, otherID uuid.UUID) (*models.Contact, error) {
	if callerID == otherID {
		return nil, errors.New("cannot add yourself as a contact")
	}

	ok, err := policy.Allowed(db, policy.Contacts, policy.Insert, callerID,
		policy.Row{UserID: callerID})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}

	now := time.Now().UTC()
	contact := models.Contact{UserID: callerID, ContactID: otherID, CreatedAt: now}
	reverse := models.Contact{UserID: otherID, ContactID: callerID, CreatedAt: now}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&contact).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&reverse).Error
	})
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

// ListContacts returns the caller's own contact rows with the linked
// profiles. The select policy restricts visibility to user_id = caller, so
// the query filters on exactly that.
func ListContacts(db *gorm.DB, callerID uuid.UUID) ([]models.Contact, error) {
	var contacts []models.Contact
	err := db.Preload("Profile").
		Where("user_id = ?", callerID).
		Order("created_at ASC").
		Find(&contacts).Error
	if err != nil {
		return nil, err
	}
	return contacts, nil
}

// DeleteContact removes one direction of a contact link. The reverse row is
// untouched unless its owner deletes it too.
func DeleteContact(db *gorm.DB, callerID, contactRowID uuid.UUID) (*models.Contact, error) {
	var contact models.Contact
	if err := db.First(&contact, "id = ?", contactRowID).Error; err != nil {
		return nil, err
	}

	ok, err := policy.Allowed(db, policy.Contacts, policy.Delete, callerID,
		policy.Row{ID: contact.ID, UserID: contact.UserID})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}

	if err := db.Delete(&contact).Error; err != nil {
		return nil, err
	}
	return &contact, nil
}
