package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the JSON API, the websocket channel and the health probe.
func NewRouter(h *Handler, ws *WSHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	if ws != nil {
		r.Get("/ws", ws.ServeWS)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Get("/profile", h.Profile)
		r.Route("/lessons", func(r chi.Router) {
			r.Get("/", h.ListLessons)
			r.Route("/{lessonID}", func(r chi.Router) {
				r.Get("/", h.GetLesson)
				r.Post("/submit", h.SubmitLesson)
			})
		})
		r.Route("/practice", func(r chi.Router) {
			r.Get("/adaptive", h.AdaptivePractice)
			r.Post("/submit", h.SubmitPractice)
		})
	})
	return r
}
