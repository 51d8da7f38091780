package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/minervalabs/minerva/internal/api"
	"github.com/minervalabs/minerva/internal/config"
	"github.com/minervalabs/minerva/internal/domain"
	"github.com/minervalabs/minerva/internal/memory"
	"github.com/minervalabs/minerva/internal/repository/mongo"
	"github.com/minervalabs/minerva/internal/repository/postgres"
	"github.com/minervalabs/minerva/internal/repository/redis"
	"github.com/minervalabs/minerva/internal/repository/sqldb"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()

	// Setup logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("database", cfg.Database.Driver).
		Msg("Starting Minerva session service")

	ctx := context.Background()

	// Initialize the durable session repository
	repo, closeRepo, err := newRepository(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to session repository")
	}
	defer closeRepo()

	// Initialize Redis
	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	// Initialize the session store
	store := memory.NewStore(repo, redis.NewSessionCache(redisClient), memory.Config{
		SessionLifetime:   cfg.Session.Lifetime,
		MaxHistory:        cfg.Session.MaxHistory,
		AnalysisThreshold: cfg.Session.AnalysisThreshold,
		AnalysisWindow:    cfg.Session.AnalysisWindow,
	})

	// Initialize router
	router := api.NewRouter(cfg, repo, redisClient, store)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// newRepository opens the durable backend named by database.driver
func newRepository(ctx context.Context, cfg *config.Config) (domain.SessionRepository, func(), error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewSessionRepository(db.Pool), db.Close, nil

	case "mysql":
		db, err := sqldb.Open(ctx, sqldb.DriverMySQL, cfg.Database.MySQLDSN())
		if err != nil {
			return nil, nil, err
		}
		return sqldb.NewSessionRepository(db), func() { db.Close() }, nil

	case "sqlite":
		dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", cfg.Database.Path)
		db, err := sqldb.Open(ctx, sqldb.DriverSQLite, dsn)
		if err != nil {
			return nil, nil, err
		}
		return sqldb.NewSessionRepository(db), func() { db.Close() }, nil

	case "mongo":
		repo, err := mongo.NewSessionRepository(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { _ = repo.Close(context.Background()) }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}
