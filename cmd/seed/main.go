package main

import (
	"log"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"travelsync/internal/config"
	"travelsync/internal/database"
	"travelsync/internal/models"
	"travelsync/internal/repositories/postgres"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("Starting database seeding...")

	db, err := database.NewPostgresConnection(cfg.Database.URI)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	userRepo := postgres.NewUserRepository(db)
	itineraryRepo := postgres.NewItineraryRepository(db)

	slog.Info("Creating initial users...")

	testUsers := []struct {
		username string
		email    string
		password string
	}{
		{"demo", "demo@travelsync.dev", "123456"},
		{"alice", "alice@travelsync.dev", "123456"},
		{"bob", "bob@travelsync.dev", "123456"},
	}

	for _, userData := range testUsers {
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte(userData.password), bcrypt.DefaultCost)
		user := &models.User{
			Username: userData.username,
			Email:    userData.email,
			Password: string(hashedPassword),
		}

		if err := userRepo.Create(user); err != nil {
			slog.Warn("User might already exist", "username", userData.username, "error", err)
		} else {
			slog.Info("Created user", "username", userData.username, "id", user.ID)
		}
	}

	slog.Info("Creating demo itinerary...")

	demo, err := userRepo.FindByEmail("demo@travelsync.dev")
	if err != nil {
		log.Fatal("Could not find demo user for itinerary creation:", err)
	}

	itinerary := &models.Itinerary{
		OwnerID:     demo.ID,
		Title:       "Long weekend in Lisbon",
		Destination: "Lisbon, Portugal",
		StartDate:   time.Now().AddDate(0, 1, 0),
		Days:        3,
		ShareCode:   "trip-demo",
		Notes:       "Seeded demo trip",
	}
	if err := itineraryRepo.Create(itinerary); err != nil {
		slog.Warn("Demo itinerary might already exist", "error", err)
		return
	}

	locations := []models.Location{
		{
			Name: "Alfama", Day: 1, Latitude: 38.7131, Longitude: -9.1254,
			Activities: []models.Activity{
				{Name: "Castelo de Sao Jorge", Category: "sightseeing", TimeOfDay: "morning", Position: 0, DurationMi: 120},
				{Name: "Fado dinner", Category: "food", TimeOfDay: "evening", Position: 1, DurationMi: 150},
			},
		},
		{
			Name: "Belem", Day: 2, Latitude: 38.6972, Longitude: -9.2064,
			Activities: []models.Activity{
				{Name: "Jeronimos Monastery", Category: "museum", TimeOfDay: "morning", Position: 0, DurationMi: 90},
				{Name: "Pasteis de Belem", Category: "food", TimeOfDay: "afternoon", Position: 1, DurationMi: 45},
			},
		},
		{
			Name: "Sintra", Day: 3, Latitude: 38.7970, Longitude: -9.3903,
			Activities: []models.Activity{
				{Name: "Pena Palace", Category: "sightseeing", TimeOfDay: "morning", Position: 0, DurationMi: 180},
			},
		},
	}
	if err := itineraryRepo.ReplacePlan(itinerary.ID, locations); err != nil {
		slog.Warn("Failed to seed demo plan", "error", err)
		return
	}

	slog.Info("Seeding completed", "itineraryID", itinerary.ID, "shareCode", itinerary.ShareCode)
}
