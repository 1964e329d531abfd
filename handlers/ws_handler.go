package handlers

import (
	"errors"
	"fmt"
	"log"
	"time"

	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	config "github.com/kibet254/chat_space/configs"
	"github.com/kibet254/chat_space/database"
	"github.com/kibet254/chat_space/models"
	"github.com/kibet254/chat_space/services"
	"github.com/kibet254/chat_space/websocket"
)

// ServeWs is the change-notification subscription endpoint. The client sends
// an auth frame first, then receives every change event for conversations it
// participates in. Inbound frames may also send messages or move the read
// marker, mirroring the REST surface.
func ServeWs(c *websocketcontrib.Conn) {
	type AuthMessage struct {
		Type  string `json:"type"`
		Token string `json:"token"`
	}
	var authMsg AuthMessage
	if err := c.ReadJSON(&authMsg); err != nil || authMsg.Type != "auth" {
		log.Printf("WebSocket auth failed: invalid or missing auth message, error: %v", err)
		_ = c.WriteJSON(fiber.Map{"error": "Invalid or missing auth message"})
		c.Close()
		return
	}

	claims, err := parseToken(authMsg.Token)
	if err != nil {
		log.Printf("WebSocket auth failed: invalid token, error: %v", err)
		_ = c.WriteJSON(fiber.Map{"error": "Invalid token"})
		c.Close()
		return
	}

	rawID, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(rawID)
	if err != nil {
		log.Printf("WebSocket auth failed: invalid user_id, error: %v", err)
		_ = c.WriteJSON(fiber.Map{"error": "Invalid user ID"})
		c.Close()
		return
	}

	client := &websocket.Client{UserID: userID, Conn: c}
	websocket.Register <- client
	setPresence(userID, "online")
	defer func() {
		websocket.Unregister <- client
		setPresence(userID, "offline")
		c.Close()
	}()

	type Frame struct {
		Type           string `json:"type"` // "message" or "read"
		ConversationID string `json:"conversation_id"`
		Content        string `json:"content"`
	}
	for {
		var frame Frame
		if err := c.ReadJSON(&frame); err != nil {
			if websocketcontrib.IsCloseError(err, websocketcontrib.CloseGoingAway, websocketcontrib.CloseAbnormalClosure) {
				log.Printf("WebSocket closed for client %s: %v", userID, err)
			} else {
				log.Printf("WebSocket read error for client %s: %v", userID, err)
			}
			break
		}

		conversationID, err := uuid.Parse(frame.ConversationID)
		if err != nil {
			_ = c.WriteJSON(fiber.Map{"error": "Invalid conversation ID"})
			continue
		}

		switch frame.Type {
		case "message":
			message, err := services.SendMessage(database.DB, userID, conversationID, frame.Content)
			if err != nil {
				if errors.Is(err, services.ErrForbidden) {
					_ = c.WriteJSON(fiber.Map{"error": "Not a participant"})
				} else {
					_ = c.WriteJSON(fiber.Map{"error": err.Error()})
				}
				continue
			}
			websocket.Broadcast <- &websocket.Event{
				Table:          "messages",
				Event:          websocket.EventInsert,
				Row:            message,
				ConversationID: message.ConversationID,
			}
		case "read":
			participant, err := services.MarkRead(database.DB, userID, conversationID)
			if err != nil {
				_ = c.WriteJSON(fiber.Map{"error": "Not a participant"})
				continue
			}
			websocket.Broadcast <- &websocket.Event{
				Table:      "conversation_participants",
				Event:      websocket.EventUpdate,
				Row:        participant,
				Recipients: []uuid.UUID{userID},
			}
		default:
			_ = c.WriteJSON(fiber.Map{"error": "Unknown frame type"})
		}
	}
}

func setPresence(userID uuid.UUID, status string) {
	var profile models.Profile
	if err := database.DB.First(&profile, "id = ?", userID).Error; err != nil {
		return
	}
	profile.Status = status
	profile.UpdatedAt = time.Now().UTC()
	if err := database.DB.Save(&profile).Error; err != nil {
		log.Printf("Failed to update presence for %s: %v", userID, err)
		return
	}
	websocket.Broadcast <- &websocket.Event{
		Table: "profiles",
		Event: websocket.EventUpdate,
		Row:   profile,
	}
}

func parseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(config.Config("JWT_SECRET")), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
