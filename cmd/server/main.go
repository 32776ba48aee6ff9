package main

import (
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/rkany/pigeon/internal/api/handlers"
	"github.com/rkany/pigeon/internal/api/middleware"
	"github.com/rkany/pigeon/internal/assets"
	"github.com/rkany/pigeon/internal/config"
	"github.com/rkany/pigeon/internal/crypto"
	"github.com/rkany/pigeon/internal/database"
	"github.com/rkany/pigeon/internal/store"
	"github.com/rkany/pigeon/internal/websocket"
	"github.com/rkany/pigeon/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load(config.Overrides{})
	if err != nil {
		logger.Errorf("Failed to load config: %v", err)
		os.Exit(1)
	}

	if cfg.Debug {
		logger.SetLevel(logger.LevelDebug)
	}

	// Set Gin mode
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// Open database
	logger.Infof("Opening database: %s", cfg.DatabasePath)
	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		logger.Errorf("Failed to open database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	// The message cipher is mandatory: the server never runs unencrypted.
	cipher, err := crypto.NewMessageCipher(cfg.MessageKey)
	if err != nil {
		logger.Errorf("Failed to create message cipher: %v", err)
		os.Exit(1)
	}

	jwtManager, err := crypto.NewJWTManager(cfg.MasterSecret)
	if err != nil {
		logger.Errorf("Failed to create JWT manager: %v", err)
		os.Exit(1)
	}

	uploads, err := assets.NewDiskStore(cfg.UploadDir)
	if err != nil {
		logger.Errorf("Failed to create upload store: %v", err)
		os.Exit(1)
	}

	messageStore := store.New(db.DB, cipher)
	hub := websocket.NewHub(jwtManager)

	// Create Gin router
	router := gin.New()
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	// Logging middleware
	router.Use(middleware.LoggingMiddleware())

	// Root endpoint - returns plain text for client validation
	router.GET("/", func(c *gin.Context) {
		c.String(200, "Welcome to Pigeon Server!")
	})

	// Uploaded images
	router.Static("/uploads", uploads.Dir())

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(messageStore, jwtManager, uploads)
	messageHandler := handlers.NewMessageHandler(messageStore, hub, uploads)

	// Public routes (no auth required)
	v1 := router.Group("/v1")
	{
		v1.POST("/auth/signup", authHandler.PostSignup)
		v1.POST("/auth/login", authHandler.PostLogin)
		v1.POST("/auth/logout", authHandler.PostLogout)
	}

	// Protected routes (auth required)
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(jwtManager))
	{
		protected.GET("/auth/check", authHandler.GetCheck)
		protected.POST("/user/profile", authHandler.PostProfile)

		protected.GET("/messages/users", messageHandler.ListCounterparts)
		protected.GET("/messages/:id", messageHandler.GetConversation)
		protected.POST("/messages/send/:id", messageHandler.SendMessage)
	}

	// Live endpoint; the token is verified during the upgrade handshake.
	router.GET("/v1/ws", hub.HandleConnection)

	// Start HTTP server
	logger.Infof("Pigeon Server starting on http://localhost%s", cfg.Addr)
	logger.Infof("Database: %s", cfg.DatabasePath)
	logger.Infof("Message encryption enabled")

	if err := router.Run(cfg.Addr); err != nil {
		logger.Errorf("Failed to start server: %v", err)
		os.Exit(1)
	}
}
