package handlers

import (
	"context"
	"net/http"
	"os"
	"time"

	"aivisibility/backend-go/internal/models"
	"aivisibility/backend-go/internal/services"
)

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	deps := []string{}
	missing := []string{}
	depsStatus := map[string]models.DepStatus{}
	if err := a.analytics.Health(ctx); err != nil {
		missing = append(missing, "analytics_unreachable")
		depsStatus["analytics"] = models.DepStatus{Ok: false, Error: err.Error()}
	} else {
		deps = append(deps, "analytics")
		depsStatus["analytics"] = models.DepStatus{Ok: true}
	}
	if rc, ok := a.cache.(*services.RedisCache); ok {
		if err := rc.Ping(ctx); err != nil {
			missing = append(missing, "redis_unreachable")
			depsStatus["redis"] = models.DepStatus{Ok: false, Error: err.Error()}
		} else {
			deps = append(deps, "redis")
			depsStatus["redis"] = models.DepStatus{Ok: true}
		}
	}

	features := map[string]string{}
	if a.svc != nil {
		features = a.svc.Features()
	}
	features["domain_store"] = a.cfg.DomainStore

	resp := models.HealthResponse{
		Ok:          len(missing) == 0,
		TsISO:       nowISO(),
		Service:     "backend-go",
		Version:     os.Getenv("SERVICE_VERSION"),
		Deps:        deps,
		DepsStatus:  depsStatus,
		DataMissing: missing,
		Env: map[string]bool{
			"ANALYTICS_BASE_URL": os.Getenv("ANALYTICS_BASE_URL") != "",
			"REDIS_URL":          os.Getenv("REDIS_URL") != "",
			"DATABASE_URL":       os.Getenv("DATABASE_URL") != "",
			"ALIAS_FILE":         os.Getenv("ALIAS_FILE") != "",
		},
		Features: features,
	}
	writeJSON(w, http.StatusOK, resp)
}
