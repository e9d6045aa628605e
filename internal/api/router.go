package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"

	"github.com/smartpark/occupancy-service/internal/config"
	"github.com/smartpark/occupancy-service/internal/realtime"
)

// NewRouter builds the chi router with middleware and all routes.
func NewRouter(handlers *Handlers, ws *realtime.WSHandler, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	r.Get("/health", handlers.HealthCheck)

	r.Post("/sensor-updates", handlers.SensorUpdate)

	r.Route("/lots/{lotID}", func(r chi.Router) {
		r.Get("/", handlers.LotDetail)
		r.Post("/viewings", handlers.TrackViewing)
		r.Get("/viewings/count", handlers.ViewerCount)
	})

	r.Method(http.MethodGet, "/ws", ws)

	return r
}
