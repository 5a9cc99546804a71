// Package http provides the HTTP delivery layer for the link shortener service.
// It contains the JSON API handlers, the redirect endpoint, the server-rendered
// dashboard and the request metrics middleware.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/vadimbarashkov/link-shortener/docs"
)

// NewRouter initializes and returns a new Chi router configured with middleware and routes for the link shortener.
// Request metrics are registered in reg and exposed under /metrics.
func NewRouter(logger *httplog.Logger, reg *prometheus.Registry, useCase linkUseCase) *chi.Mux {
	r := chi.NewRouter()

	metrics := newHTTPMetrics(reg)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"POST", "GET", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(metrics.middleware)
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.Write(docs.SwaggerYAML)
	})

	links := newLinkHandler(useCase, validator.New())
	dashboard := newDashboardHandler(useCase)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", handlePing)

		r.Route("/links", func(r chi.Router) {
			r.Get("/", links.listLinks)
			r.Post("/", links.createLink)

			r.Route("/{shortCode}", func(r chi.Router) {
				r.Get("/", links.getLink)
				r.Delete("/", links.deleteLink)
			})
		})
	})

	r.Get("/", dashboard.index)
	r.Get("/code/{shortCode}", dashboard.stats)
	r.Get("/{shortCode}", links.redirect)

	return r
}
