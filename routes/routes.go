package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/catalog-rag/app"
	"github.com/upb/catalog-rag/handlers"
	"github.com/upb/catalog-rag/internal/observability"
	apimw "github.com/upb/catalog-rag/middleware"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	cfg := deps.Config
	r := chi.NewRouter()

	metrics := deps.Metrics
	if metrics == nil {
		metrics = observability.NewMetrics(app.MetricsNamespace)
	}

	timeout := cfg.Server.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apimw.Tenant)
	r.Use(apimw.RequestLogger(deps.Logger))
	r.Use(metrics.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", apimw.TenantHeader},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	linker := handlers.NewLinker(cfg.Server.PublicBaseURL, cfg.Assets.ImagesDir)
	defaultTenant := cfg.Server.DefaultTenant

	var prober handlers.ProviderProber
	if deps.ProviderRegistry != nil {
		prober = deps.ProviderRegistry
	}
	health := handlers.NewHealthHandler(deps.Store, prober, deps.Logger)
	query := handlers.NewQueryHandler(deps.Pipeline, linker, defaultTenant, metrics, deps.Logger)
	search := handlers.NewSearchHandler(deps.Retriever, linker, defaultTenant, deps.Logger)
	tenants := handlers.NewTenantHandler(deps.Store, linker, defaultTenant, deps.Logger)
	assets := handlers.NewAssetHandler(cfg.Assets.ImagesDir, cfg.Assets.DocumentsDir, deps.Logger)

	// Status and health endpoints
	r.Get("/", handlers.StatusHandler(cfg.Environment, cfg.Generation.Provider))
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/rag", func(r chi.Router) {
			r.Post("/query", query.HandleQuery)
			r.Post("/search/text", search.HandleSearchText)
			r.Post("/search/images", search.HandleSearchImages)
		})

		r.Route("/tenants", func(r chi.Router) {
			r.Get("/stats", tenants.HandleStats)
			r.Delete("/documents", tenants.HandleDeleteDocuments)
		})

		r.Get("/documents/list", tenants.HandleListDocuments)
		r.Get("/documents/serve/*", assets.HandleDocument)
		r.Get("/images/*", assets.HandleImage)
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}
