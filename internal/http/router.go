package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"aivisibility/backend-go/internal/config"
	"aivisibility/backend-go/internal/handlers"
)

func NewRouter(cfg config.Config, api *handlers.API) http.Handler {
	r := chi.NewRouter()
	r.Use(withCORS)
	r.Use(withRateLimit(cfg.RateLimitPerMin))
	r.Use(withRequestID)
	r.Use(withLogging)
	r.Use(withRecovery)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", api.Health)
		r.Get("/ranking", api.Ranking)
		r.Get("/ranking/stream", api.StreamRanking)
		r.Get("/competitors", api.Competitors)
		r.Get("/prompts", api.Prompts)
		r.Get("/prompts/{promptID}/ranking", api.PromptRanking)
		r.Get("/export/visibility.csv", api.ExportVisibilityCSV)
		r.Get("/export/prompts.csv", api.ExportPromptsCSV)
		r.Get("/logo", api.Logo)
	})
	return r
}
