package models

// RawMetricRecord is one untyped row from the upstream analytics API.
// Nothing about its shape is guaranteed.
type RawMetricRecord map[string]any

type Mention struct {
	Platform string `json:"platform"`
	Count    int    `json:"count"`
}

type RankingEntry struct {
	ID                string    `json:"id"`
	DisplayName       string    `json:"display_name"`
	LogoURL           string    `json:"logo_url"`
	Initials          string    `json:"initials"`
	Domain            string    `json:"domain,omitempty"`
	VisibilityPercent int       `json:"visibility_percent"`
	VisibilityRaw     float64   `json:"-"`
	Sentiment         *int      `json:"sentiment"`
	Rank              int       `json:"rank"`
	SourcePosition    *float64  `json:"source_position"`
	Tags              []string  `json:"tags"`
	Mentions          []Mention `json:"mentions"`
	Volume            *float64  `json:"volume,omitempty"`
}

type PromptEntry struct {
	ID     int      `json:"id"`
	Prompt string   `json:"prompt"`
	Volume *float64 `json:"volume"`
}

type RankingResponse struct {
	TsISO      string         `json:"tsISO"`
	Scope      string         `json:"scope"`
	ComputedAt string         `json:"computed_at"`
	Source     string         `json:"source"`
	Stale      bool           `json:"stale"`
	Total      int            `json:"total"`
	Entries    []RankingEntry `json:"entries"`
	Debug      DebugInfo      `json:"debug"`
}

type PromptListResponse struct {
	TsISO   string        `json:"tsISO"`
	Total   int           `json:"total"`
	Prompts []PromptEntry `json:"prompts"`
}

type LogoResponse struct {
	Name     string `json:"name"`
	LogoURL  string `json:"logo_url"`
	Initials string `json:"initials"`
}

type DebugInfo struct {
	DataMissing []string `json:"data_missing"`
	Notes       []string `json:"notes"`
}

type DepStatus struct {
	Ok    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type HealthResponse struct {
	Ok          bool                 `json:"ok"`
	TsISO       string               `json:"tsISO"`
	Service     string               `json:"service"`
	Version     string               `json:"version"`
	Deps        []string             `json:"deps"`
	DepsStatus  map[string]DepStatus `json:"deps_status"`
	DataMissing []string             `json:"data_missing"`
	Env         map[string]bool      `json:"env"`
	Features    map[string]string    `json:"features"`
}
