package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/oggyb/destined/internal/auth"
	"github.com/oggyb/destined/internal/config"
	"github.com/oggyb/destined/internal/db"
	"github.com/oggyb/destined/internal/logger"
)

func main() {
	users := flag.Int("users", 50, "number of demo users to create")
	tokens := flag.Int("tokens", 3, "print bearer tokens for the first N users")
	flag.Parse()

	// Load configuration
	cfg := config.New()
	logger.InitFromConfig(cfg)

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Fatalf("failed to init db: %v", err)
	}

	if err := db.SeedTestData(database, *users); err != nil {
		log.Fatalf("failed to seed: %v", err)
	}

	jwt := auth.NewJWTService(cfg.Auth)
	for i := 1; i <= *tokens && i <= *users; i++ {
		token, err := jwt.Issue(auth.Identity{UserID: uint64(i), Role: auth.RoleUser})
		if err != nil {
			log.Fatalf("failed to issue token: %v", err)
		}
		fmt.Printf("user %d: %s\n", i, token)
	}

	log.Println("Seeding completed.")
}
