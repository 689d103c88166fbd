package handlers

import (
	"bytes"
	"net/http"

	"aivisibility/backend-go/internal/export"
)

func (a *API) ExportVisibilityCSV(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeboxed(r, a.cfg.RequestTimeout)
	defer cancel()

	records, err := a.svc.Timeseries(ctx)
	if err != nil {
		writeUpstreamError(w, err, 0)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteVisibilityCSV(&buf, export.BuildVisibilitySeries(records, a.canon)); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeCSV(w, "visibility.csv", buf.Bytes())
}

func (a *API) ExportPromptsCSV(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeboxed(r, a.cfg.RequestTimeout)
	defer cancel()

	prompts, err := a.svc.Prompts(ctx)
	if err != nil {
		writeUpstreamError(w, err, 0)
		return
	}
	var buf bytes.Buffer
	if err := export.WritePromptsCSV(&buf, prompts); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeCSV(w, "prompts.csv", buf.Bytes())
}

func writeCSV(w http.ResponseWriter, filename string, body []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
