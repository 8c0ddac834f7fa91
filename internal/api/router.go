package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/frontmesh/crossbus/internal/api/middleware"
	"github.com/frontmesh/crossbus/internal/archive"
	"github.com/frontmesh/crossbus/internal/bus"
	"github.com/frontmesh/crossbus/internal/handlers"
)

// NewRouter creates and configures the HTTP router. arc may be nil when
// no archive backend is configured.
func NewRouter(logger zerolog.Logger, reg *bus.Registry, arc archive.Archive, statsPreview int) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(8 * 1024)) // 8KB max body
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// CORS - components are served from independently deployed origins
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(reg, arc, logger, statsPreview)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Get("/stats", h.Stats)

	// Composition boundary
	r.Post("/attach", h.Attach)
	r.Delete("/attach/{name}", h.Detach)
	r.Get("/components", h.ListComponents)
	r.Get("/components/{name}", h.GetComponent)

	// Record operations
	r.Post("/publish", h.Publish)
	r.Get("/records/{owner}", h.GetRecords)
	r.Get("/records/{owner}/latest", h.GetLatest)

	// Notification push
	r.Get("/watch/{owner}", h.Watch)

	return r
}
