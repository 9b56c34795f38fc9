package main

// @title           TravelSync API
// @version         1.0
// @description     AI-assisted travel itinerary planner with realtime collaboration
// @host            localhost:8080
// @BasePath        /api/v1
// @schemes         http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"travelsync/internal/api/handlers"
	"travelsync/internal/api/middleware"
	"travelsync/internal/api/routes"
	"travelsync/internal/collab"
	"travelsync/internal/config"
	"travelsync/internal/database"
	"travelsync/internal/kafka"
	"travelsync/internal/repositories/postgres"
	"travelsync/internal/services"
)

// roomActivity forwards collaboration room events to the activity
// topic. Collab user ids are the JWT user ids rendered as strings.
type roomActivity struct {
	publisher services.ActivityPublisher
}

func (r roomActivity) RoomJoined(userID, roomID string) {
	r.publish("room.joined", userID, roomID)
}

func (r roomActivity) RoomLeft(userID, roomID string) {
	r.publish("room.left", userID, roomID)
}

func (r roomActivity) publish(eventType, userID, roomID string) {
	id, err := strconv.ParseUint(userID, 10, 32)
	if err != nil {
		slog.Debug("non-numeric collab user id, skipping activity event", "userID", userID)
		return
	}
	_ = r.publisher.PublishActivity(eventType, uint(id), map[string]string{"room_id": roomID})
}

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("Starting travelsync server")

	redisClient, err := database.NewRedisConnection(&cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	db, err := database.NewPostgresConnection(cfg.Database.URI)
	if err != nil {
		slog.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}

	storage, err := database.NewMinIOClient(&cfg.MinIO)
	if err != nil {
		slog.Error("Failed to connect to MinIO", "error", err)
		os.Exit(1)
	}

	// Kafka is best-effort: the API stays up without the audit trail.
	var publisher services.ActivityPublisher
	producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		slog.Warn("Kafka unavailable, activity events disabled", "error", err)
	} else {
		defer producer.Close()
		publisher = producer
	}

	// Repositories and services
	userRepo := postgres.NewUserRepository(db)
	itineraryRepo := postgres.NewItineraryRepository(db)

	redisService := services.NewRedisService(redisClient)
	userService := services.NewUserService(userRepo, cfg.JWT.Secret, cfg.JWT.ExpirationTime)
	aiService := services.NewAIService(&cfg.OpenAI, redisService)
	itineraryService := services.NewItineraryService(itineraryRepo, aiService, publisher)
	exportService := services.NewExportService(itineraryService)

	// Collaboration: the gateway owns connections, the coordinator owns
	// room state, and they reference each other.
	gateway := collab.NewGateway()
	coordinator := collab.NewCoordinator(gateway)
	coordinator.SetPresence(redisService)
	if publisher != nil {
		coordinator.SetActivitySink(roomActivity{publisher: publisher})
	}
	gateway.Bind(coordinator)
	go coordinator.Run()

	// Handlers and routing
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	router := routes.NewRouter(
		handlers.NewAuthHandler(userService),
		handlers.NewUserHandler(userService, storage),
		handlers.NewItineraryHandler(itineraryService, aiService, exportService),
		handlers.NewWebSocketHandler(gateway, redisService, authMiddleware),
		authMiddleware,
		redisService,
	)

	engine := gin.New()
	router.SetupRoutes(engine)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	coordinator.Stop()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped")
}
