package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// routes builds the HTTP surface of the API.
func (a *app) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(withCORS(a.cfg.CORS.AllowedOrigins, a.cfg.CORS.DefaultOrigin))

	// Health check endpoint for Docker
	r.Get("/health", a.healthHandler)
	r.Method(http.MethodGet, "/metrics", a.metrics.Handler())

	r.Post("/register", registerHandler(a))
	r.Post("/login", loginHandler(a))

	// Browsers cannot set headers on a websocket handshake, so this route
	// authenticates with ?token= itself.
	r.Get("/ws/chat/{id}", wsChatHandler(a))

	r.Group(func(r chi.Router) {
		r.Use(a.authenticate)

		r.Get("/me", meHandler(a))
		r.Get("/me/profile", myProfileHandler(a))
		r.Post("/me/profile", saveProfileHandler(a))
		r.Put("/me/profile", saveProfileHandler(a))
		r.Post("/me/photo", uploadPhotoHandler(a))
		r.Get("/profiles/{id}", profileHandler(a))

		r.Route("/deck", func(r chi.Router) {
			r.Use(a.requireProfile)
			r.Get("/", currentDeckHandler(a))
			r.Post("/", startDeckHandler(a))
			r.Post("/release", releaseHandler(a))
			r.Post("/match/message", matchMessageHandler(a))
			r.Post("/match/continue", matchContinueHandler(a))
		})

		r.With(DataLoaderMiddleware(a)).Get("/matches", matchesHandler(a))

		r.Get("/chats/{id}/messages", chatHistoryHandler(a))
		r.Post("/chats/{id}/messages", sendMessageHandler(a))
	})

	return r
}

func (a *app) healthHandler(w http.ResponseWriter, r *http.Request) {
	if a.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.db.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "db_unreachable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
