package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"aivisibility/backend-go/internal/ranking"
)

// StreamRanking pushes a ranking snapshot as a server-sent event whenever
// the scope's poller publishes one.
func (a *API) StreamRanking(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	key := ranking.GlobalScope()
	if raw := q.Get("scope"); raw != "" {
		parsed, err := ranking.ParseScopeKey(raw)
		if err != nil || !a.validPromptID(parsed) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_scope"})
			return
		}
		key = parsed
	}
	def := int(a.cfg.StreamInterval / time.Second)
	if def <= 0 {
		def = 30
	}
	interval := time.Duration(parseIntParam(q.Get("interval"), def, 5, 300)) * time.Second

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch, unsubscribe := a.svc.Subscribe(r.Context(), key, interval)
	defer unsubscribe()

	for {
		select {
		case <-r.Context().Done():
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			resp := rankingResponse(snap.Scope, snap.Entries, snap.Meta, nil)
			data, err := json.Marshal(resp)
			if err != nil {
				continue
			}
			_, _ = fmt.Fprintf(w, "event: ranking\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
