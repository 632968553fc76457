package main

import (
	"log"
	"os"

	"agentmsa-be/internal/model"
	"agentmsa-be/pkg/database"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Seeds a demo account with a small conversation, handy for poking at the
// API and the websocket stream without going through registration.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	color.Cyan("Seeding demo data...")

	email := "demo@agentmsa.dev"

	var existing model.User
	if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
		color.Yellow("User '%s' already exists, skipping...", email)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("demo123"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("Error: Failed to hash password:", err)
	}
	hashStr := string(hash)

	user := model.User{
		Email:        email,
		PasswordHash: &hashStr,
		FullName:     "Demo User",
		Role:         "user",
		Status:       "active",
	}
	if err := db.Create(&user).Error; err != nil {
		log.Fatal("Error: Failed to create user:", err)
	}
	color.Green("Created user: %s (password: demo123)", email)

	chat := model.Chat{
		UserId:  user.Id,
		Title:   "What is retrieval augmented ...",
		Preview: "What is retrieval augmented ...",
	}
	if err := db.Create(&chat).Error; err != nil {
		log.Fatal("Error: Failed to create chat:", err)
	}

	messages := []model.ChatMessage{
		{ChatId: chat.Id, Role: "user", Content: "What is retrieval augmented generation?", Seq: 1},
		{ChatId: chat.Id, Role: "assistant", Content: "Retrieval augmented generation combines a search step with a language model so answers can cite real documents.", Seq: 2},
	}
	for _, m := range messages {
		if err := db.Create(&m).Error; err != nil {
			color.Red("Failed to create message (seq %d): %v", m.Seq, err)
		}
	}

	color.Green("Created chat %s with %d messages", chat.Id, len(messages))
	color.Cyan("Seeding completed!")
}
