package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"heritagequest/internal/config"
	"heritagequest/internal/database"
	"heritagequest/internal/handlers"
	"heritagequest/internal/logger"
	"heritagequest/internal/progression"
	"heritagequest/internal/quiz"
	"heritagequest/internal/repository"
	"heritagequest/internal/repository/memory"
	"heritagequest/internal/security"
	"heritagequest/internal/service"
)

// dataStore is everything the services read and write
type dataStore interface {
	progression.Store
	service.Wallet
	handlers.QuestCatalog
}

func main() {
	// Load configuration
	cfg := config.Load()
	log := logger.New("heritagequest", cfg.LogLevel)

	if cfg.JWTSecret == "" {
		log.Entry().Fatal("JWT_SECRET must be set")
	}

	ctx := context.Background()
	checks := map[string]handlers.HealthCheck{}

	// Storage: a SQL database, or the in-process store for local play
	var store dataStore
	if strings.EqualFold(cfg.DatabaseType, "memory") {
		mem := memory.New()
		mem.Seed(time.Now().UTC())
		store = mem
		log.Entry().Warn("using in-memory storage; progress is lost on restart")
	} else {
		db, err := database.InitializeWithConfig(cfg)
		if err != nil {
			log.Entry().WithError(err).Fatal("failed to initialize database")
		}
		defer db.Close()

		log.Entry().WithField("db_type", db.Dialect.DriverName()).Info("database connection established")

		applied, err := db.RunMigrations(ctx, cfg.MigrationsPath)
		if err != nil {
			log.Entry().WithError(err).Fatal("failed to run migrations")
		}
		log.Entry().WithField("applied", applied).Info("migrations completed")

		store = repository.NewStore(db)
		checks["database"] = db.PingContext
	}

	// Quiz sessions live in Redis when configured so any instance can serve them
	var sessions quiz.SessionStore
	if cfg.RedisURL != "" {
		client, err := database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Entry().WithError(err).Fatal("failed to connect to redis")
		}
		defer client.Close()

		sessions = quiz.NewRedisSessionStore(client, cfg.QuizSessionTTL)
		checks["redis"] = redisCheck(client)
		log.Entry().Info("quiz sessions stored in redis")
	} else {
		sessions = quiz.NewMemorySessionStore(cfg.QuizSessionTTL)
		log.Entry().Info("quiz sessions stored in memory")
	}

	// Initialize services
	progressionService := progression.NewService(store, log, progression.Options{
		MaxLives:      cfg.MaxLives,
		LivesCooldown: cfg.LivesCooldown,
	})
	engine := quiz.NewEngine(progressionService, store, sessions, log)
	shopService := service.NewShopService(progressionService, store, nil, log)

	// Initialize handlers
	limiter := security.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer limiter.Stop()

	router := &handlers.Router{
		Middleware:  handlers.NewMiddleware(security.NewTokenVerifier(cfg.JWTSecret), limiter, log),
		Progression: handlers.NewProgressionHandler(progressionService, store, log),
		Quiz:        handlers.NewQuizHandler(engine, log),
		Shop:        handlers.NewShopHandler(shopService, log),
		Health:      handlers.NewHealthHandler(checks, log),
		CORSOrigins: cfg.CORSOrigins,
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Entry().WithField("addr", server.Addr).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Entry().WithError(err).Fatal("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Entry().Info("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Entry().WithError(err).Error("graceful shutdown failed")
	}
}

func redisCheck(client *redis.Client) handlers.HealthCheck {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
