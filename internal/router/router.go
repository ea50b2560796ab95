package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"watchwise-backend/internal/handlers"
	"watchwise-backend/internal/middleware"
	"watchwise-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	sessionHandler *handlers.SessionHandler,
	insightHandler *handlers.InsightHandler,
	chatHandler *handlers.ChatHandler,
	videoHandler *handlers.VideoHandler,
	statusHandler *handlers.StorageStatusHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Pause events arrive on every player interaction; keep a generous
	// per-IP ceiling so a scrub through a video doesn't get throttled.
	pauseLimiter := middleware.NewRateLimiter(60, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Viewing Session Routes ────
		r.Route("/sessions", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", sessionHandler.List)
			r.Post("/", sessionHandler.Save)
			r.Get("/{id}/insights", insightHandler.List)
			r.Post("/{id}/chat", chatHandler.AskQuestion)

			r.Group(func(r chi.Router) {
				r.Use(pauseLimiter.Middleware)
				r.Post("/{id}/pause", insightHandler.Pause)
			})
		})

		// ──── Video Routes ────
		r.Route("/videos", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/validate", videoHandler.Validate)
		})

		// ──── Job Routes ────
		r.Route("/jobs", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/{id}", insightHandler.GetJob)
		})

		// ──── Storage Routes ────
		r.Route("/storage", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/status", statusHandler.Status)
		})

		// ──── WebSocket (token auth via query param) ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
