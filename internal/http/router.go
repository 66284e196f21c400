package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/guppyfunds/consumer/internal/http/admin"
	"github.com/guppyfunds/consumer/internal/http/query"
	"github.com/guppyfunds/consumer/internal/http/status"
	"github.com/guppyfunds/consumer/internal/http/upload"
)

func New(
	uploadV1 *upload.Handler,
	queryV1 *query.Handler,
	statusH *status.Handler,
	adminH *admin.Handler,
	metrics http.Handler,
	allowedOrigins []string,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Handle("/metrics", metrics)

	router.Route("/api", func(r chi.Router) {
		r.Route("/health", statusH.HealthRoutes)
		r.Route("/admin", adminH.Routes)

		r.Route("/v1", func(r chi.Router) {
			r.Route("/upload", func(r chi.Router) {
				r.Use(middleware.AllowContentType("multipart/form-data"))
				uploadV1.Routes(r)
			})

			r.Route("/stats", statusH.StatsRoutes)

			r.Route("/query", queryV1.Routes)
		})
	})

	return router
}
