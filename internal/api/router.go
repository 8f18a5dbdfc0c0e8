package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Priya8975/chatlog-relay/internal/routing"
)

// Feed is the live relay event stream.
type Feed interface {
	HandleWebSocket(w http.ResponseWriter, r *http.Request)
	ClientCount() int
}

// Queue reports pending deliveries.
type Queue interface {
	Pending() int
}

// Deps are the components served by the ops API.
type Deps struct {
	Routes  *routing.Table
	Redact  func(string) string
	Queue   Queue
	Feed    Feed
	Metrics http.Handler
}

// NewRouter creates and configures the HTTP router.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(corsMiddleware)

	routeHandler := NewRouteHandler(deps.Routes, deps.Redact)
	statsHandler := NewStatsHandler(deps.Routes, deps.Queue, deps.Feed)

	if deps.Feed != nil {
		r.Get("/ws", deps.Feed.HandleWebSocket)
	}
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", HealthHandler())
		r.Get("/stats", statsHandler.Stats)

		r.Route("/routes", func(r chi.Router) {
			r.Get("/", routeHandler.List)
			r.Get("/{channelID}", routeHandler.Get)
		})
	})

	return r
}

// corsMiddleware lets browser tools read the read-only API.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
