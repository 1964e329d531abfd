package websocket

import (
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"github.com/kibet254/chat_space/database"
)

type Client struct {
	UserID uuid.UUID
	Conn   *websocket.Conn
}

// Event is a change notification for one row. Subscribers receive the
// affected row with its timestamps and can merge by primary key instead of
// refetching the whole query.
type Event struct {
	Table string `json:"table"`
	Event string `json:"event"` // insert, update or delete
	Row   any    `json:"row"`

	// ConversationID scopes delivery to that conversation's participants.
	// Recipients, when set, overrides the participant lookup (used for
	// contact events and for rows whose participant set just changed).
	// Neither is serialized to subscribers.
	ConversationID uuid.UUID   `json:"-"`
	Recipients     []uuid.UUID `json:"-"`
}

const (
	EventInsert = "insert"
	EventUpdate = "update"
	EventDelete = "delete"
)

var clients = make(map[uuid.UUID]*websocket.Conn)
var clientsMu sync.RWMutex
var Register = make(chan *Client)
var Unregister = make(chan *Client)
var Broadcast = make(chan *Event, 64)

func RunHub() {
	for {
		select {
		case client := <-Register:
			log.Printf("Client registered: %s", client.UserID)
			clientsMu.Lock()
			clients[client.UserID] = client.Conn
			clientsMu.Unlock()
		case client := <-Unregister:
			log.Printf("Client unregistered: %s", client.UserID)
			clientsMu.Lock()
			if conn, ok := clients[client.UserID]; ok && conn == client.Conn {
				delete(clients, client.UserID)
			}
			clientsMu.Unlock()
		case event := <-Broadcast:
			deliver(event)
		}
	}
}

func deliver(event *Event) {
	recipients, err := recipientsFor(event)
	if err != nil {
		log.Printf("Error resolving recipients for %s %s: %v", event.Table, event.Event, err)
		return
	}

	var broken []uuid.UUID
	clientsMu.RLock()
	for _, userID := range recipients {
		conn, ok := clients[userID]
		if !ok {
			continue
		}
		if err := conn.WriteJSON(event); err != nil {
			log.Printf("Error sending event to client %s: %v", userID, err)
			conn.Close()
			broken = append(broken, userID)
		}
	}
	clientsMu.RUnlock()

	if len(broken) > 0 {
		clientsMu.Lock()
		for _, userID := range broken {
			delete(clients, userID)
		}
		clientsMu.Unlock()
	}
}

// recipientsFor resolves who may see the event. The participation boundary
// that gates reads also gates the push path: conversation-scoped events go
// only to current participants. Events with no scope at all (profile
// changes) go to every connected client, matching the any-authenticated
// read rule for profiles.
func recipientsFor(event *Event) ([]uuid.UUID, error) {
	if len(event.Recipients) > 0 {
		return event.Recipients, nil
	}
	if event.ConversationID != uuid.Nil {
		var participantIDs []uuid.UUID
		err := database.DB.
			Table("conversation_participants").
			Where("conversation_id = ?", event.ConversationID).
			Pluck("user_id", &participantIDs).Error
		if err != nil {
			return nil, err
		}
		return participantIDs, nil
	}

	clientsMu.RLock()
	defer clientsMu.RUnlock()
	all := make([]uuid.UUID, 0, len(clients))
	for userID := range clients {
		all = append(all, userID)
	}
	return all, nil
}
