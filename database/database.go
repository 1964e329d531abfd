package database

import (
	"fmt"
	"log"

	config "github.com/kibet254/chat_space/configs"
	"github.com/kibet254/chat_space/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func ConnectDB() {
	var err error
	dsn := config.Config("DATABASE_URL")

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		PrepareStmt:            false,
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		log.Fatalf("🔥 Failed to connect to database: %v", err)
	}

	fmt.Println("✅ Database connected successfully")
}

// Migrate creates the five chat tables. Foreign keys carry ON DELETE CASCADE
// (declared on the model associations) so deleting a profile removes its
// contacts, conversations, participation rows and messages in one pass.
func Migrate() {
	err := DB.AutoMigrate(
		&models.Profile{},
		&models.Contact{},
		&models.Conversation{},
		&models.ConversationParticipant{},
		&models.Message{},
	)
	if err != nil {
		log.Fatalf("🔥 Failed to migrate database: %v", err)
	}
	fmt.Println("✅ Database migration successful")
}
