package handler

import (
	"net/http"

	"github.com/minervalabs/minerva/internal/api/response"
	"github.com/minervalabs/minerva/internal/domain"
	"github.com/minervalabs/minerva/internal/repository/redis"
)

// HealthCheck returns a simple health check response
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{
		"status": "ok",
	})
}

// ReadyCheck returns readiness status. The repository must be reachable;
// the cache is reported but never fails readiness, since the store runs
// without it.
func ReadyCheck(repo domain.SessionRepository, cache *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := repo.Ping(r.Context()); err != nil {
			response.Error(w, http.StatusServiceUnavailable, "repository not ready")
			return
		}

		cacheStatus := "ok"
		if err := cache.Ping(r.Context()); err != nil {
			cacheStatus = "unavailable"
		}

		response.OK(w, map[string]string{
			"status": "ready",
			"cache":  cacheStatus,
		})
	}
}
