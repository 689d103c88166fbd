package handlers

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"aivisibility/backend-go/internal/models"
	"aivisibility/backend-go/internal/ranking"
	"aivisibility/backend-go/internal/services"
)

func (a *API) Ranking(w http.ResponseWriter, r *http.Request) {
	a.serveRanking(w, r, ranking.GlobalScope(), ranking.Options{})
}

// Competitors is the global ranking with unnamed rows kept under positional
// labels.
func (a *API) Competitors(w http.ResponseWriter, r *http.Request) {
	a.serveRanking(w, r, ranking.GlobalScope(), ranking.Options{LabelUnnamed: true})
}

func (a *API) PromptRanking(w http.ResponseWriter, r *http.Request) {
	key := ranking.PromptScope(strings.TrimSpace(chi.URLParam(r, "promptID")))
	if !key.Valid() || !a.validPromptID(key) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_prompt_id"})
		return
	}
	a.serveRanking(w, r, key, ranking.Options{})
}

// validPromptID bounds prompt ids so callers cannot mint unbounded scopes.
func (a *API) validPromptID(key ranking.ScopeKey) bool {
	if key.Type != ranking.ScopePrompt {
		return true
	}
	return a.cfg.MaxPromptIDLen <= 0 || len(key.ID) <= a.cfg.MaxPromptIDLen
}

func (a *API) serveRanking(w http.ResponseWriter, r *http.Request, key ranking.ScopeKey, opts ranking.Options) {
	ctx, cancel := timeboxed(r, a.cfg.RequestTimeout)
	defer cancel()

	entries, meta, err := a.svc.GetRanking(ctx, key, opts)
	resp := rankingResponse(key, entries, meta, err)

	etag := rankingETag(resp)
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	if !meta.ComputedAt.IsZero() {
		w.Header().Set("Last-Modified", meta.ComputedAt.UTC().Format(http.TimeFormat))
	}
	writeJSON(w, http.StatusOK, resp)
}

func rankingResponse(key ranking.ScopeKey, entries []models.RankingEntry, meta services.SnapshotMeta, err error) models.RankingResponse {
	if entries == nil {
		entries = []models.RankingEntry{}
	}
	resp := models.RankingResponse{
		TsISO:   nowISO(),
		Scope:   key.String(),
		Source:  meta.Source,
		Stale:   meta.Stale,
		Total:   len(entries),
		Entries: entries,
		Debug:   models.DebugInfo{DataMissing: []string{}, Notes: []string{}},
	}
	if !meta.ComputedAt.IsZero() {
		resp.ComputedAt = meta.ComputedAt.UTC().Format(time.RFC3339)
	}
	switch meta.Source {
	case "cache":
		resp.Debug.Notes = appendUniqueString(resp.Debug.Notes, "cache_hit")
	case "stale_cache":
		resp.Debug.Notes = appendUniqueString(resp.Debug.Notes, "stale_cache")
	}
	if err != nil {
		resp.Debug.DataMissing = appendUniqueString(resp.Debug.DataMissing, "analytics")
		resp.Debug.Notes = appendUniqueString(resp.Debug.Notes, "analytics_unreachable")
	}
	return resp
}

// rankingETag covers the ranked data only, so repeated polls of an unchanged
// snapshot validate.
func rankingETag(resp models.RankingResponse) string {
	payload, _ := json.Marshal(struct {
		Scope      string                `json:"scope"`
		ComputedAt string                `json:"computed_at"`
		Entries    []models.RankingEntry `json:"entries"`
		Missing    []string              `json:"missing"`
	}{resp.Scope, resp.ComputedAt, resp.Entries, resp.Debug.DataMissing})
	sum := sha1.Sum(payload)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

func (a *API) Prompts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeboxed(r, a.cfg.RequestTimeout)
	defer cancel()

	prompts, err := a.svc.Prompts(ctx)
	if err != nil {
		writeUpstreamError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, models.PromptListResponse{
		TsISO:   nowISO(),
		Total:   len(prompts),
		Prompts: prompts,
	})
}
