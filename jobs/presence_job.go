package jobs

import (
	"log"
	"time"

	"github.com/kibet254/chat_space/database"
	"github.com/kibet254/chat_space/models"
	"github.com/kibet254/chat_space/websocket"
)

const idleThreshold = 5 * time.Minute

// SweepStalePresence marks profiles offline when they still read "online"
// but have shown no activity past the idle threshold. Covers clients that
// dropped without a clean websocket close.
func SweepStalePresence() {
	log.Println("Running job: SweepStalePresence...")

	cutoff := time.Now().UTC().Add(-idleThreshold)

	var stale []models.Profile
	err := database.DB.
		Where("status = ? AND updated_at < ?", "online", cutoff).
		Find(&stale).Error
	if err != nil {
		log.Printf("Error checking for stale presence: %v", err)
		return
	}

	if len(stale) == 0 {
		return
	}

	for _, profile := range stale {
		profile.Status = "offline"
		if err := database.DB.Save(&profile).Error; err != nil {
			log.Printf("Error marking profile %s offline: %v", profile.ID, err)
			continue
		}
		websocket.Broadcast <- &websocket.Event{
			Table: "profiles",
			Event: websocket.EventUpdate,
			Row:   profile,
		}
	}

	log.Printf("Marked %d stale profile(s) offline", len(stale))
}
