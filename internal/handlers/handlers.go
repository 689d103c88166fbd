package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"aivisibility/backend-go/internal/brand"
	"aivisibility/backend-go/internal/config"
	"aivisibility/backend-go/internal/services"
)

// HealthChecker reports whether the analytics upstream answers.
type HealthChecker interface {
	Health(ctx context.Context) error
}

type API struct {
	cfg       config.Config
	cache     services.Cache
	svc       *services.RankingService
	analytics HealthChecker
	canon     *brand.Canonicalizer
	logos     *brand.Resolver
}

func New(cfg config.Config, cache services.Cache, svc *services.RankingService, analytics HealthChecker, canon *brand.Canonicalizer, logos *brand.Resolver) *API {
	return &API{
		cfg:       cfg,
		cache:     cache,
		svc:       svc,
		analytics: analytics,
		canon:     canon,
		logos:     logos,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func parseIntParam(v string, def int, min int, max int) int {
	if v == "" {
		return def
	}
	var out int
	_, err := fmt.Sscanf(v, "%d", &out)
	if err != nil {
		return def
	}
	if out < min {
		return min
	}
	if out > max {
		return max
	}
	return out
}

func appendUniqueString(items []string, v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return items
	}
	for _, it := range items {
		if strings.EqualFold(it, v) {
			return items
		}
	}
	return append(items, v)
}

func timeboxed(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 12 * time.Second
	}
	return context.WithTimeout(r.Context(), d)
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
