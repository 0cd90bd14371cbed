package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	callapi "github.com/voxline/voiceqa-backend/internal/api/call"
	"github.com/voxline/voiceqa-backend/internal/api/docs"
	"github.com/voxline/voiceqa-backend/internal/api/middleware"
	resultsapi "github.com/voxline/voiceqa-backend/internal/api/results"
	"github.com/voxline/voiceqa-backend/internal/config"
	"github.com/voxline/voiceqa-backend/internal/pkg/metrics"
	"github.com/voxline/voiceqa-backend/internal/pkg/response"
)

// AudioResolver maps public asset names onto store paths.
type AudioResolver interface {
	Resolve(name string) (string, error)
}

// Pinger is the health check's view of the database pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterDeps carries everything the router serves.
type RouterDeps struct {
	CallHandler    *callapi.Handler
	ResultsHandler *resultsapi.Handler
	AudioStore     AudioResolver
	DB             Pinger
	RateLimit      config.RateLimitConfig
	EnableDocs     bool
	Metrics        *metrics.Metrics
	Logger         *zap.Logger
}

// SetupRouter creates and configures the HTTP router
func SetupRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.Recoverer)                 // Recover from panics
	r.Use(chimiddleware.RequestID)                 // Add request ID
	r.Use(middleware.Logger(deps.Logger, deps.Metrics))
	r.Use(middleware.CORS)                         // Handle CORS
	r.Use(chimiddleware.Timeout(60 * time.Second)) // Default timeout

	if deps.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(deps.RateLimit.RequestsPerMinute, deps.RateLimit.Burst, deps.Logger)
		r.Use(limiter.Handler)
	}

	// Prometheus scrape endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Swagger documentation endpoints
	if deps.EnableDocs {
		docs.RegisterRoutes(r)
	}

	// Register routes
	r.Route("/api", func(api chi.Router) {
		api.Get("/health", healthHandler(deps.DB))
		callapi.RegisterRoutes(api, deps.CallHandler)
		resultsapi.RegisterRoutes(api, deps.ResultsHandler)
	})

	// Synthesized questions and recorded answers
	r.Get("/static/audio/{file}", serveAudio(deps.AudioStore))

	return r
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			response.JSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"error":  "database unreachable",
			})
			return
		}

		response.JSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}
}

func serveAudio(store AudioResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "file")

		path, err := store.Resolve(name)
		if err != nil {
			response.Error(w, http.StatusNotFound, "audio not found")
			return
		}

		http.ServeFile(w, r, path)
	}
}
