package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/MaxCaruta/purelove-sub002/internal/cache"
	"github.com/MaxCaruta/purelove-sub002/internal/handlers"
	"github.com/MaxCaruta/purelove-sub002/internal/middleware"
	"github.com/MaxCaruta/purelove-sub002/internal/monitor"
	"github.com/MaxCaruta/purelove-sub002/internal/repository"
	"github.com/MaxCaruta/purelove-sub002/internal/resolver"
	"github.com/MaxCaruta/purelove-sub002/internal/service"
	"github.com/MaxCaruta/purelove-sub002/internal/source"
	"github.com/MaxCaruta/purelove-sub002/internal/storage"
	"github.com/MaxCaruta/purelove-sub002/internal/subscriber"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName: "PureLove Admin Monitor",
	})

	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     os.Getenv("ALLOWED_ORIGINS"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, OPTIONS",
		AllowCredentials: true,
	}))

	// Initialize database connection
	db, err := repository.InitDB()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Redis backs both the live event feed and the profile cache.
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if parsedDB, err := strconv.Atoi(dbStr); err == nil {
			redisDB = parsedDB
		}
	}
	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       redisDB,
	})

	redisCache := cache.NewRedisCache(redisClient)
	if err := redisCache.Ping(); err != nil {
		log.Printf("WARNING: Redis cache ping failed: %v. Profile lookups run uncached.", err)
		redisCache = nil
	} else {
		log.Println("Redis connected successfully")
	}
	profileCache := cache.NewProfileCache(redisCache)

	// Initialize repositories
	chatRepo := repository.NewChatRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	adminRepo := repository.NewAdminRepository(db)

	// Initialize services
	authService := service.NewAuthService(adminRepo)
	if email := os.Getenv("ADMIN_EMAIL"); email != "" {
		if err := authService.EnsureAdmin(email, os.Getenv("ADMIN_PASSWORD")); err != nil {
			log.Printf("WARNING: Failed to provision bootstrap admin: %v", err)
		}
	}

	// Initialize S3/MinIO storage (best-effort; photo endpoint returns 503 if missing)
	var s3Store *storage.S3Storage
	if cfg, err := storage.LoadS3ConfigFromEnv(); err != nil {
		log.Printf("WARNING: S3 storage not configured: %v", err)
	} else if st, err := storage.NewS3Storage(cfg); err != nil {
		log.Printf("WARNING: Failed to initialize S3 storage: %v", err)
	} else {
		s3Store = st
		log.Printf("S3 storage initialized successfully (bucket=%s)", cfg.Bucket)
	}

	// Wire the monitoring engine: resolver -> reconciler -> registry, all
	// driven by one event-processing goroutine.
	wsHandler := handlers.NewWebSocketHandler()
	hub := wsHandler.GetHub()

	res := resolver.New(resolver.NewDirectory(), profileRepo, profileCache)
	engine := monitor.NewEngine(res, chatRepo, hub)
	go engine.Run()

	eventSource := source.NewRedisSource(redisClient)
	sub := subscriber.New(eventSource, source.Handlers{
		OnMessage:      engine.HandleMessageEvent,
		OnConversation: engine.HandleConversationEvent,
	}, hub.LiveStatus)

	// Seed the registry before going live so early events patch real state.
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 30*time.Second)
	if err := engine.LoadInitial(loadCtx, profileRepo); err != nil {
		log.Printf("WARNING: Initial conversation load failed: %v. Starting with an empty registry.", err)
	}
	cancelLoad()
	sub.Start()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	monitorHandler := handlers.NewMonitorHandler(engine, sub, profileRepo)
	mediaHandler := handlers.NewMediaHandler(s3Store)

	// Public routes
	api := app.Group("/api", middleware.OriginAllowed())
	auth := api.Group("/auth", limiter.New(limiter.Config{
		Max:        20,
		Expiration: time.Minute,
	}))
	auth.Post("/login", authHandler.Login)

	// Protected routes
	protected := api.Group("/", middleware.AuthRequired())
	protected.Get("/monitor/chats", monitorHandler.GetChats)
	protected.Get("/monitor/chats/:user_id", monitorHandler.GetUserChats)
	protected.Get("/monitor/chats/:user_id/:peer_id", monitorHandler.GetConversation)
	protected.Post("/monitor/chats/:user_id/:peer_id/open", monitorHandler.OpenConversation)
	protected.Post("/monitor/chats/close", monitorHandler.CloseConversation)
	protected.Post("/monitor/chats/:user_id/:peer_id/read", monitorHandler.MarkRead)
	protected.Post("/monitor/refresh", monitorHandler.Refresh)
	protected.Get("/monitor/status", monitorHandler.Status)
	protected.Get("/media/photos/*", mediaHandler.GetPhoto)

	// WebSocket route (websocket upgrade needs special handling)
	app.Use(
		"/ws",
		middleware.OriginAllowed(),
		middleware.AuthRequired(),
		func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		},
	)
	app.Get("/ws", websocket.New(wsHandler.HandleWebSocket))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"live":   sub.State(),
		})
	})

	// Tear the engine down cleanly on SIGINT/SIGTERM.
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Println("Shutting down...")
		sub.Close()
		engine.Close()
		_ = app.Shutdown()
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s...", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
