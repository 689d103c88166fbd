package handlers

import (
	"net/http"
	"strings"

	"aivisibility/backend-go/internal/brand"
	"aivisibility/backend-go/internal/models"
)

// Logo resolves the avatar for one brand name, optionally with a domain or
// explicit logo URL hint. Hints are only previewed; they never reach the
// domain cache.
func (a *API) Logo(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := strings.TrimSpace(q.Get("name"))
	if name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "name_required"})
		return
	}
	canonical := a.canon.Canonicalize(name)
	domain := canonical.PreferredDomain
	if domain == "" {
		domain = q.Get("domain")
	}
	writeJSON(w, http.StatusOK, models.LogoResponse{
		Name:     canonical.DisplayName,
		LogoURL:  a.logos.Peek(domain, q.Get("logo"), canonical.DisplayName).URL,
		Initials: brand.Initials(canonical.DisplayName),
	})
}
