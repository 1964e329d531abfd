package policy

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Relation string

const (
	Profiles      Relation = "profiles"
	Contacts      Relation = "contacts"
	Conversations Relation = "conversations"
	Participants  Relation = "conversation_participants"
	Messages      Relation = "messages"
)

type Operation string

const (
	Select Operation = "select"
	Insert Operation = "insert"
	Update Operation = "update"
	Delete Operation = "delete"
)

// Row is the minimal view of a row a predicate looks at. UserID is the
// owning identity column of the relation: profiles.id, contacts.user_id,
// conversations.created_by, conversation_participants.user_id,
// messages.sender_id.
type Row struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	ConversationID uuid.UUID
}

type Predicate func(db *gorm.DB, caller uuid.UUID, row Row) (bool, error)

// Rules is the access table evaluated on every row-level operation.
// A missing entry means deny.
var Rules = map[Relation]map[Operation]Predicate{
	Profiles: {
		Select: anyAuthenticated,
		Insert: ownsRow,
		Update: ownsRow,
	},
	Contacts: {
		Select: ownsRow,
		Insert: ownsRow,
		Delete: ownsRow,
	},
	Conversations: {
		Select: participantOfConversation(conversationByRowID),
		Insert: ownsRow,
		Update: ownsRow,
	},
	Participants: {
		Select: participantOfConversation(conversationByField),
		Insert: conversationCreator,
		Delete: ownsRow,
	},
	Messages: {
		Select: participantOfConversation(conversationByField),
		Insert: allOf(ownsRow, participantOfConversation(conversationByField)),
		Update: ownsRow,
		Delete: ownsRow,
	},
}

// Allowed decides whether caller may perform op on a row of relation.
// Unknown relation/operation pairs and unauthenticated callers are denied.
func Allowed(db *gorm.DB, relation Relation, op Operation, caller uuid.UUID, row Row) (bool, error) {
	if caller == uuid.Nil {
		return false, nil
	}
	ops, ok := Rules[relation]
	if !ok {
		return false, nil
	}
	pred, ok := ops[op]
	if !ok {
		return false, nil
	}
	return pred(db, caller, row)
}

func anyAuthenticated(db *gorm.DB, caller uuid.UUID, row Row) (bool, error) {
	return true, nil
}

func ownsRow(db *gorm.DB, caller uuid.UUID, row Row) (bool, error) {
	return row.UserID == caller, nil
}

// conversationByRowID reads the conversation id from Row.ID (the row itself
// is a conversation); conversationByField reads it from Row.ConversationID.
func conversationByRowID(row Row) uuid.UUID { return row.ID }
func conversationByField(row Row) uuid.UUID { return row.ConversationID }

func participantOfConversation(conv func(Row) uuid.UUID) Predicate {
	return func(db *gorm.DB, caller uuid.UUID, row Row) (bool, error) {
		return IsParticipant(db, conv(row), caller)
	}
}

func conversationCreator(db *gorm.DB, caller uuid.UUID, row Row) (bool, error) {
	var count int64
	err := db.Table("conversations").
		Where("id = ? AND created_by = ?", row.ConversationID, caller).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func allOf(preds ...Predicate) Predicate {
	return func(db *gorm.DB, caller uuid.UUID, row Row) (bool, error) {
		for _, pred := range preds {
			ok, err := pred(db, caller, row)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
}

// IsParticipant reports whether userID holds a participant row in the
// conversation. It backs every membership predicate and is exported for the
// realtime hub, which applies the same boundary on the push path.
func IsParticipant(db *gorm.DB, conversationID, userID uuid.UUID) (bool, error) {
	var count int64
	err := db.Table("conversation_participants").
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
