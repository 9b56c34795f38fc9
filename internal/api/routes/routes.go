package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"travelsync/internal/api/handlers"
	"travelsync/internal/api/middleware"
	"travelsync/internal/services"
)

// Router wires handlers and middleware onto the gin engine.
type Router struct {
	authHandler      *handlers.AuthHandler
	userHandler      *handlers.UserHandler
	itineraryHandler *handlers.ItineraryHandler
	wsHandler        *handlers.WebSocketHandler
	authMiddleware   *middleware.AuthMiddleware
	redisService     *services.RedisService
}

func NewRouter(
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	itineraryHandler *handlers.ItineraryHandler,
	wsHandler *handlers.WebSocketHandler,
	authMiddleware *middleware.AuthMiddleware,
	redisService *services.RedisService,
) *Router {
	return &Router{
		authHandler:      authHandler,
		userHandler:      userHandler,
		itineraryHandler: itineraryHandler,
		wsHandler:        wsHandler,
		authMiddleware:   authMiddleware,
		redisService:     redisService,
	}
}

func (r *Router) SetupRoutes(engine *gin.Engine) {
	engine.Use(middleware.CORS())
	engine.Use(middleware.LogApi())
	engine.Use(gin.Recovery())

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().Unix()})
	})

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Collaboration socket sits outside /api/v1: browsers cannot set an
	// Authorization header on websocket upgrades, so identity arrives
	// over the socket instead.
	engine.GET("/ws", r.wsHandler.HandleConnection)

	v1 := engine.Group("/api/v1")
	v1.Use(middleware.RateLimitMiddleware(r.redisService, 120, time.Minute))

	auth := v1.Group("/auth")
	{
		auth.POST("/register", r.authHandler.Register)
		auth.POST("/login", r.authHandler.Login)
	}

	users := v1.Group("/users")
	users.Use(r.authMiddleware.RequireAuth())
	{
		users.GET("/me", r.userHandler.GetProfile)
		users.PUT("/me", r.userHandler.UpdateProfile)
		users.POST("/me/avatar", r.userHandler.UploadAvatar)
		users.GET("/search", r.userHandler.Search)
	}

	itineraries := v1.Group("/itineraries")
	itineraries.Use(r.authMiddleware.RequireAuth())
	{
		itineraries.POST("", r.itineraryHandler.Create)
		itineraries.GET("", r.itineraryHandler.List)
		itineraries.POST("/generate", r.itineraryHandler.Generate)
		itineraries.POST("/generate/stream", r.itineraryHandler.GenerateStream)
		itineraries.GET("/shared/:code", r.itineraryHandler.GetShared)
		itineraries.GET("/:id", r.itineraryHandler.Get)
		itineraries.PUT("/:id", r.itineraryHandler.Update)
		itineraries.DELETE("/:id", r.itineraryHandler.Delete)
		itineraries.POST("/:id/optimize", r.itineraryHandler.Optimize)
		itineraries.GET("/:id/export", r.itineraryHandler.Export)
	}

	collab := v1.Group("/ws")
	collab.Use(r.authMiddleware.RequireAuth())
	{
		collab.GET("/online", r.wsHandler.OnlineUsers)
	}
}
