package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"watchwise-backend/internal/config"
	"watchwise-backend/internal/database"
	"watchwise-backend/internal/handlers"
	"watchwise-backend/internal/middleware"
	"watchwise-backend/internal/router"
	"watchwise-backend/internal/services"
	"watchwise-backend/internal/storage"
	"watchwise-backend/internal/websocket"
	"watchwise-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting WatchWise Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize Remote Storage (optional) ────
	// A missing DATABASE_URL is a supported deployment, not an error: the
	// storage manager runs local-only and each record lives on disk.
	var remoteStore storage.Store
	if cfg.DatabaseURL != "" {
		pool, err := database.NewPostgresPool(cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			log.Printf("✗ PostgreSQL unreachable, continuing local-only: %v", err)
		} else {
			defer pool.Close()
			if err := database.RunMigrations(pool, "migrations"); err != nil {
				log.Fatalf("✗ Database migration failed: %v", err)
			}
			remoteStore = storage.NewPostgresStore(pool)
			log.Println("✓ PostgreSQL connected, migrations applied")
		}
	} else {
		log.Println("✓ No DATABASE_URL set, running with local storage only")
	}

	// ──── Step 3: Initialize Local Storage ────
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("✗ Data directory %s: %v", cfg.DataDir, err)
	}
	localStore := storage.NewLocalStore(storage.NewFileKV(cfg.DataDir))
	log.Printf("✓ Local storage ready at %s", cfg.DataDir)

	store := storage.NewManager(remoteStore, localStore, storage.Options{
		ProbePolicy:   storage.ProbePolicy(cfg.ProbePolicy),
		ProbeInterval: time.Duration(cfg.ProbeIntervalSeconds) * time.Second,
		RemoteTimeout: time.Duration(cfg.RemoteTimeoutSeconds) * time.Second,
	})
	store.CheckAvailability(context.Background())

	// ──── Step 4: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 5: Initialize Gemini Client ────
	geminiService, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiConcurrentReqs, redisClients.Queue)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiService.Close()
	log.Println("✓ Gemini Flash client initialized")

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	youtubeService := services.NewYouTubeService()
	jobQueue := worker.NewQueue(redisClients.Queue)

	// ──── Initialize Handlers ────
	sessionHandler := handlers.NewSessionHandler(store)
	insightHandler := handlers.NewInsightHandler(store, jobQueue)
	chatHandler := handlers.NewChatHandler(store, geminiService)
	videoHandler := handlers.NewVideoHandler(youtubeService)
	statusHandler := handlers.NewStorageStatusHandler(store)

	// ──── Step 6: Start Insight Worker Pool ────
	workerPool := worker.NewPool(redisClients.Queue, geminiService, youtubeService, store, cfg.InsightWorkers)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.InsightWorkers)

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, cfg.JWTSecret)
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		sessionHandler,
		insightHandler,
		chatHandler,
		videoHandler,
		statusHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ WatchWise Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
