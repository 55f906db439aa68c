package db

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/oggyb/destined/internal/logger"
)

// InterestCatalogue is the fixed set of questions and answers users pick from.
var InterestCatalogue = map[string][]string{
	"Music":   {"Rock", "Jazz", "Pop", "Classical"},
	"Travel":  {"Asia", "Europe", "Africa", "Americas"},
	"Food":    {"Vegan", "Street food", "Fine dining"},
	"Sport":   {"Football", "Tennis", "Climbing", "Yoga"},
	"Weekend": {"Outdoors", "Netflix", "Party"},
	"Pets":    {"Dogs", "Cats", "None"},
}

// SeedTestData resets the database and populates it with demo users.
//
// Behavior:
//  1. Clears every table.
//  2. Creates n users (alternating MALE / FEMALE) with hashed passwords
//     and 2-4 interests each. Every 5th user is left PENDING so it is
//     skipped by profile matching.
//
// Likes and friend requests are not seeded; they must go through the
// services so the denormalized counters stay consistent.
//
// Compatible with both MySQL and SQLite.
func SeedTestData(db *gorm.DB, n int) error {
	if err := Reset(db); err != nil {
		return err
	}
	logger.Info("cleared existing data")

	// same password for everyone; hash once
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	questions := make([]string, 0, len(InterestCatalogue))
	for q := range InterestCatalogue {
		questions = append(questions, q)
	}

	for i := 1; i <= n; i++ {
		gender := "MALE"
		if i%2 == 0 {
			gender = "FEMALE"
		}
		status := StatusVerified
		if i%5 == 0 {
			status = StatusPending
		}

		city := gofakeit.City()
		if len(city) > 20 {
			city = city[:20]
		}

		user := User{
			Name:         gofakeit.FirstName() + " " + gofakeit.LastName(),
			Email:        fmt.Sprintf("user%d@example.com", i),
			PasswordHash: string(hash),
			Phone:        gofakeit.Numerify("+44##########"),
			Bio:          "Into " + gofakeit.Hobby(),
			City:         city,
			Gender:       gender,
			Age:          gofakeit.Number(18, 60),
			IsVerified:   status == StatusVerified,
			IsActive:     status,
			LastActiveAt: time.Now().Add(-time.Duration(gofakeit.Number(0, 500)) * time.Hour),
		}

		want := gofakeit.Number(2, 4)
		picked := map[string]bool{}
		for len(user.Interests) < want {
			q := questions[gofakeit.Number(0, len(questions)-1)]
			if picked[q] {
				continue
			}
			picked[q] = true
			user.Interests = append(user.Interests, UserInterest{
				Interest:       q,
				SelectedOption: gofakeit.RandomString(InterestCatalogue[q]),
			})
		}

		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}
	}
	logger.Info("seeded users", "count", n)

	return nil
}

// SeedMinimalTestData inserts a small deterministic dataset:
//
//   - user1 {Music:Rock}
//   - user2 {Music:Rock, Travel:Asia}
//   - user3 {Sport:Tennis}
//
// All three are VERIFIED.
func SeedMinimalTestData(db *gorm.DB) error {
	if err := Reset(db); err != nil {
		return err
	}

	users := []User{
		{ID: 1, Name: "Alice", Email: "u1@test.com", PasswordHash: "x", Phone: "1", Gender: "FEMALE", IsActive: StatusVerified,
			Interests: []UserInterest{{Interest: "Music", SelectedOption: "Rock"}}},
		{ID: 2, Name: "Bob", Email: "u2@test.com", PasswordHash: "x", Phone: "2", Gender: "MALE", IsActive: StatusVerified,
			Interests: []UserInterest{{Interest: "Music", SelectedOption: "Rock"}, {Interest: "Travel", SelectedOption: "Asia"}}},
		{ID: 3, Name: "Carol", Email: "u3@test.com", PasswordHash: "x", Phone: "3", Gender: "FEMALE", IsActive: StatusVerified,
			Interests: []UserInterest{{Interest: "Sport", SelectedOption: "Tennis"}}},
	}
	return db.Create(&users).Error
}

// Reset deletes all rows, children first.
func Reset(db *gorm.DB) error {
	tables := []string{
		"profile_matches", "friend_requests", "likings", "liking_entries",
		"user_friends", "user_matches", "user_likers", "user_interests", "users",
	}
	for _, t := range tables {
		if err := db.Exec("DELETE FROM " + t).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", t, err)
		}
	}

	// Reset auto-increment sequences
	switch db.Dialector.Name() {
	case "mysql":
		db.Exec("ALTER TABLE users AUTO_INCREMENT = 1")
		db.Exec("ALTER TABLE user_interests AUTO_INCREMENT = 1")
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence WHERE name IN ('users', 'user_interests')")
	}
	return nil
}
