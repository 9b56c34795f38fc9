package main

import (
	"log"
	"log/slog"

	"github.com/joho/godotenv"

	"travelsync/internal/config"
	"travelsync/internal/database"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("Starting database migration...")

	// NewPostgresConnection runs the auto-migration as part of connecting.
	db, err := database.NewPostgresConnection(cfg.Database.URI)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to get database instance:", err)
	}
	if err := sqlDB.Ping(); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	slog.Info("Database migration completed successfully!")
}
