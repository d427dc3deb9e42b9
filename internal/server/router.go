package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tekstlab/interlink/internal/api"
	"github.com/tekstlab/interlink/internal/api/handlers"
	"github.com/tekstlab/interlink/internal/api/middleware"
)

type RouterConfig struct {
	APIToken        string
	PipelineHandler *handlers.PipelineHandler
	LinkHandler     *handlers.LinkHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(cfg.APIToken))

		r.Route("/v1", func(r chi.Router) {
			r.Route("/pipeline", func(r chi.Router) {
				r.Post("/start", cfg.PipelineHandler.Start)
				r.Post("/tick", cfg.PipelineHandler.Tick)
				r.Get("/status", cfg.PipelineHandler.Status)
				r.Delete("/", cfg.PipelineHandler.Cancel)
			})

			r.Route("/links", func(r chi.Router) {
				r.Get("/", cfg.LinkHandler.List)
				r.Post("/{id}/reject", cfg.LinkHandler.Reject)
			})

			r.Post("/blacklist/restore", cfg.LinkHandler.Restore)
		})
	})

	return r
}
