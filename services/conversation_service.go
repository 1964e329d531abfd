package services

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kibet254/chat_space/models"
	"github.com/kibet254/chat_space/policy"
)

// ErrForbidden marks a policy denial so handlers can answer 403 instead of
// folding denials into generic failures.
var ErrForbidden = errors.New("operation not permitted")

type ConversationSummary struct {
	Conversation models.Conversation              `json:"conversation"`
	Participants []models.ConversationParticipant `json:"participants"`
	LastMessage  *models.Message                  `json:"last_message"`
	UnreadCount  int64                            `json:"unread_count"`
}

// ListForUser builds the display-ready conversation list: every conversation
// the user participates in, annotated with all participants, the newest
// message and the unread count against the user's last_read_at marker.
func ListForUser(db *gorm.DB, userID uuid.UUID) ([]ConversationSummary, error) {
	var mine []models.ConversationParticipant
	if err := db.Where("user_id = ?", userID).Find(&mine).Error; err != nil {
		return nil, err
	}
	if len(mine) == 0 {
		return []ConversationSummary{}, nil
	}

	ids := make([]uuid.UUID, 0, len(mine))
	lastRead := make(map[uuid.UUID]*time.Time, len(mine))
	for _, p := range mine {
		ids = append(ids, p.ConversationID)
		lastRead[p.ConversationID] = p.LastReadAt
	}

	var conversations []models.Conversation
	if err := db.Where("id IN ?", ids).Find(&conversations).Error; err != nil {
		return nil, err
	}

	var participants []models.ConversationParticipant
	if err := db.Preload("Profile").
		Where("conversation_id IN ?", ids).
		Find(&participants).Error; err != nil {
		return nil, err
	}

	var messages []models.Message
	if err := db.Where("conversation_id IN ?", ids).
		Order("created_at DESC").
		Find(&messages).Error; err != nil {
		return nil, err
	}

	participantsByConv := make(map[uuid.UUID][]models.ConversationParticipant)
	for _, p := range participants {
		participantsByConv[p.ConversationID] = append(participantsByConv[p.ConversationID], p)
	}

	summaries := make([]ConversationSummary, 0, len(conversations))
	for _, conv := range conversations {
		summary := ConversationSummary{
			Conversation: conv,
			Participants: participantsByConv[conv.ID],
		}
		marker := lastRead[conv.ID]
		for i := range messages {
			msg := messages[i]
			if msg.ConversationID != conv.ID {
				continue
			}
			if summary.LastMessage == nil {
				summary.LastMessage = &messages[i]
			}
			// nil marker means the user has never read the conversation,
			// so every message counts.
			if marker == nil || msg.CreatedAt.After(*marker) {
				summary.UnreadCount++
			}
		}
		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return sortKey(summaries[i]).After(sortKey(summaries[j]))
	})

	return summaries, nil
}

func sortKey(s ConversationSummary) time.Time {
	if s.LastMessage != nil {
		return s.LastMessage.CreatedAt
	}
	return s.Conversation.CreatedAt
}

// FindOrCreatePrivate returns the existing private conversation between the
// two users, or creates one with both participant rows. The find-then-create
// is not serialized: two racing callers may both create, yielding duplicate
// private conversations.
func FindOrCreatePrivate(db *gorm.DB, callerID, otherID uuid.UUID) (*models.Conversation, bool, error) {
	if callerID == otherID {
		return nil, false, errors.New("cannot start a conversation with yourself")
	}

	var conversation models.Conversation
	err := db.
		Joins("JOIN conversation_participants cp1 ON cp1.conversation_id = conversations.id AND cp1.user_id = ?", callerID).
		Joins("JOIN conversation_participants cp2 ON cp2.conversation_id = conversations.id AND cp2.user_id = ?", otherID).
		Where("conversations.type = ?", models.ConversationTypePrivate).
		First(&conversation).Error
	if err == nil {
		return &conversation, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	conversation = models.Conversation{
		Type:      models.ConversationTypePrivate,
		CreatedBy: callerID,
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&conversation).Error; err != nil {
			return err
		}
		now := time.Now().UTC()
		rows := []models.ConversationParticipant{
			{ConversationID: conversation.ID, UserID: callerID, JoinedAt: now},
			{ConversationID: conversation.ID, UserID: otherID, JoinedAt: now},
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &conversation, true, nil
}

// CreateGroup creates a named group conversation with the caller and the
// given members as participants.
func CreateGroup(db *gorm.DB, callerID uuid.UUID, name string, memberIDs []uuid.UUID) (*models.Conversation, error) {
	if name == "" {
		return nil, errors.New("group conversations require a name")
	}

	conversation := models.Conversation{
		Type:      models.ConversationTypeGroup,
		Name:      &name,
		CreatedBy: callerID,
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&conversation).Error; err != nil {
			return err
		}
		now := time.Now().UTC()
		rows := []models.ConversationParticipant{{ConversationID: conversation.ID, UserID: callerID, JoinedAt: now}}
		for _, id := range memberIDs {
			if id == callerID {
				continue
			}
			rows = append(rows, models.ConversationParticipant{ConversationID: conversation.ID, UserID: id, JoinedAt: now})
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// Rename changes a group conversation's name. Only the creator may update a
// conversation, and type is immutable, so private conversations stay unnamed.
func Rename(db *gorm.DB, callerID, conversationID uuid.UUID, name string) (*models.Conversation, error) {
	var conversation models.Conversation
	if err := db.First(&conversation, "id = ?", conversationID).Error; err != nil {
		return nil, err
	}

	ok, err := policy.Allowed(db, policy.Conversations, policy.Update, callerID,
		policy.Row{ID: conversation.ID, UserID: conversation.CreatedBy})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	if conversation.Type != models.ConversationTypeGroup {
		return nil, errors.New("private conversations cannot be renamed")
	}

	conversation.Name = &name
	if err := db.Save(&conversation).Error; err != nil {
		return nil, err
	}
	return &conversation, nil
}

// AddParticipant adds a user to a conversation. The insert policy only
// admits the conversation's creator.
func AddParticipant(db *gorm.DB, callerID, conversationID, userID uuid.UUID) (*models.ConversationParticipant, error) {
	ok, err := policy.Allowed(db, policy.Participants, policy.Insert, callerID,
		policy.Row{ConversationID: conversationID, UserID: userID})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}

	participant := models.ConversationParticipant{
		ConversationID: conversationID,
		UserID:         userID,
		JoinedAt:       time.Now().UTC(),
	}
	if err := db.Create(&participant).Error; err != nil {
		return nil, err
	}
	return &participant, nil
}

// MarkRead moves the caller's last_read_at marker to now.
func MarkRead(db *gorm.DB, callerID, conversationID uuid.UUID) (*models.ConversationParticipant, error) {
	var participant models.ConversationParticipant
	err := db.Where("conversation_id = ? AND user_id = ?", conversationID, callerID).
		First(&participant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrForbidden
	}
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	participant.LastReadAt = &now
	if err := db.Save(&participant).Error; err != nil {
		return nil, err
	}
	return &participant, nil
}

// Leave deletes the caller's own participant row.
func Leave(db *gorm.DB, callerID, conversationID uuid.UUID) (*models.ConversationParticipant, error) {
	var participant models.ConversationParticipant
	err := db.Where("conversation_id = ? AND user_id = ?", conversationID, callerID).
		First(&participant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrForbidden
	}
	if err != nil {
		return nil, err
	}

	ok, err := policy.Allowed(db, policy.Participants, policy.Delete, callerID,
		policy.Row{ID: participant.ID, UserID: participant.UserID, ConversationID: participant.ConversationID})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}

	if err := db.Delete(&participant).Error; err != nil {
		return nil, err
	}
	return &participant, nil
}
