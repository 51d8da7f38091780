package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/minervalabs/minerva/internal/api/handler"
	customMiddleware "github.com/minervalabs/minerva/internal/api/middleware"
	"github.com/minervalabs/minerva/internal/config"
	"github.com/minervalabs/minerva/internal/domain"
	"github.com/minervalabs/minerva/internal/memory"
	"github.com/minervalabs/minerva/internal/repository/redis"
)

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, repo domain.SessionRepository, redisClient *redis.Client, store *memory.Store) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	rateLimiter := redis.NewRateLimiter(
		redisClient,
		cfg.Security.RateLimit.RequestsPerMinute,
		cfg.Security.RateLimit.Burst,
	)
	rateLimitMiddleware := customMiddleware.NewRateLimitMiddleware(rateLimiter)

	sessionHandler := handler.NewSessionHandler(store)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(repo, redisClient))

		r.Group(func(r chi.Router) {
			r.Use(rateLimitMiddleware.Limit)

			r.Route("/sessions", func(r chi.Router) {
				r.Post("/", sessionHandler.Create)

				r.Route("/{token}", func(r chi.Router) {
					r.Get("/", sessionHandler.Get)

					r.Post("/messages", sessionHandler.AppendMessage)
					r.Get("/messages", sessionHandler.GetHistory)

					r.Patch("/progress", sessionHandler.UpdateProgress)
					r.Put("/story-context", sessionHandler.UpdateStoryContext)

					r.Post("/personality/analysis", sessionHandler.Analyze)
					r.Get("/recommendations", sessionHandler.Recommendations)
				})
			})
		})
	})

	return r
}
