package delivery

import (
	"net/http"
	"time"

	"github.com/Vovarama1992/go-utils/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

func NewRouter(h *ChatHandler, ratePerMinute int) chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{SessionHeader},
		AllowCredentials: true,
	}))
	RegisterRoutes(r, h, ratePerMinute)
	return r
}

func RegisterRoutes(r chi.Router, h *ChatHandler, ratePerMinute int) {
	r.Route("/", func(pr chi.Router) {
		pr.Use(httputil.RecoverMiddleware)

		pr.Get("/", h.Health)
		pr.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("pong"))
		})

		// --- диалог ---
		transcribe := pr.With()
		if ratePerMinute > 0 {
			transcribe = pr.With(httprate.LimitByIP(ratePerMinute, time.Minute))
		}
		transcribe.Post("/transcribe", h.Transcribe)
		pr.Get("/reset", h.Reset)

		// --- сессии ---
		pr.Post("/sessions", h.CreateSession)
		pr.Delete("/sessions/{session_id}", h.DeleteSession)
		pr.Get("/sessions/{session_id}/exchanges", h.History)
	})
}
