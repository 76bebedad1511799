package handlers

import (
	"net/http"
	"time"

	"github.com/aawaaz/incident-server/internal/metrics"
	"github.com/aawaaz/incident-server/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterConfig carries the handlers and settings NewRouter mounts.
type RouterConfig struct {
	Logger         *zap.Logger
	AllowedOrigins []string
	RateLimitRPM   int
	JWTSecret      string

	Health   *HealthHandler
	Feed     *FeedHandler
	Reports  *ReportHandler
	Comments *CommentHandler
	Activity *ActivityHandler
	AI       *AIHandler
}

// NewRouter builds the full HTTP surface.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.StructuredLogger(cfg.Logger))
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.StripIPHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRPM))

		r.Get("/health", cfg.Health.Check)
		r.Get("/health/ready", cfg.Health.Ready)
		r.Get("/categories", cfg.Feed.Categories)
		r.Get("/feed", cfg.Feed.List)

		r.Route("/reports", func(r chi.Router) {
			// Public: anonymized reads and voting
			r.Get("/{id}", cfg.Feed.Get)
			r.Get("/{id}/comments", cfg.Comments.List)
			r.Post("/{id}/upvote", cfg.Reports.Upvote)
			r.Post("/{id}/downvote", cfg.Reports.Downvote)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth(cfg.JWTSecret))
				r.Post("/", cfg.Reports.Submit)
				r.Get("/mine", cfg.Reports.Mine)
				r.Post("/{id}/escalate", cfg.Reports.Escalate)
				r.Post("/{id}/comments", cfg.Comments.Add)
				r.Get("/{id}/activity", cfg.Activity.ByReport)
			})
		})

		r.Route("/ai", func(r chi.Router) {
			r.Use(middleware.RequireAuth(cfg.JWTSecret))
			r.Post("/generate", cfg.AI.Generate)
			r.Post("/relevance", cfg.AI.Relevance)
			r.Post("/transcribe", cfg.AI.Transcribe)
		})
	})

	return r
}
