package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mainmuse-backend/internal/config"
	"mainmuse-backend/internal/handlers"
	"mainmuse-backend/internal/identity"
	"mainmuse-backend/internal/middleware"
	"mainmuse-backend/internal/repository"
	"mainmuse-backend/internal/services"
	"mainmuse-backend/internal/store"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	// Open storage backend
	st, cleanup, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("Failed to open store")
	}
	defer cleanup()
	log.Info().Str("backend", cfg.Store.Backend).Msg("Store opened")

	// Initialize repositories
	userRepo := repository.NewUserRepository(st)
	queueRepo := repository.NewQueueRepository(st)

	// Initialize services
	userService := services.NewUserService(userRepo)
	friendService := services.NewFriendService(userRepo, queueRepo, userService, cfg.Queue.DefaultInterval)
	queueService := services.NewQueueService(queueRepo, friendService, userService, cfg.Queue.DefaultInterval)
	welcomeService := services.NewWelcomeService(userRepo, friendService, queueService,
		cfg.Admin.ID, cfg.Admin.Token, cfg.Admin.FriendCode)
	hub := services.NewHub()

	var verifier identity.Verifier = identity.Insecure{}
	if cfg.Identity.Enabled {
		verifier = identity.NewHTTPVerifier(cfg.Identity.Endpoint)
	} else {
		log.Warn().Msg("Identity verification is disabled")
	}

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService, welcomeService, verifier)
	friendHandler := handlers.NewFriendHandler(friendService)
	messageHandler := handlers.NewMessageHandler(queueService, hub)
	wsHandler := handlers.NewWebSocketHandler(hub, userService)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/users", userHandler.InitUser)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Credentials)
			r.Get("/verify", userHandler.Verify)
			r.Get("/me", userHandler.Me)
			r.Post("/friends", friendHandler.AddFriend)
			r.Post("/messages/{target}", messageHandler.Append)
			r.Put("/messages/{target}/{index}", messageHandler.Edit)
			r.Get("/messages/{target}/next", messageHandler.ReadNext)
			r.Get("/messages/{target}/queued", messageHandler.ListQueued)
			r.Get("/messages/{target}/received", messageHandler.ListReceived)
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// openStore builds the configured storage backend
func openStore(cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Store.Backend {
	case "postgres":
		db, err := pgxpool.New(context.Background(), cfg.Postgres.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.Ping(context.Background()); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to ping database: %w", err)
		}
		st := store.NewPostgres(db)
		if err := st.EnsureSchema(context.Background()); err != nil {
			db.Close()
			return nil, nil, err
		}
		return st, db.Close, nil

	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		return store.NewRedis(rdb, cfg.Redis.KeyPrefix), func() { rdb.Close() }, nil

	case "memory":
		return store.NewMemory(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-User-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
