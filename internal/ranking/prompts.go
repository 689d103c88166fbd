package ranking

import (
	"aivisibility/backend-go/internal/extract"
	"aivisibility/backend-go/internal/models"
)

// Prompts lists the prompt rows of records in input order with dense 1-based
// ids. Rows without prompt text are skipped.
func Prompts(records []models.RawMetricRecord) []models.PromptEntry {
	out := make([]models.PromptEntry, 0, len(records))
	for _, raw := range records {
		f := extract.Extract(raw)
		if f.Prompt == "" {
			continue
		}
		out = append(out, models.PromptEntry{
			ID:     len(out) + 1,
			Prompt: f.Prompt,
			Volume: f.Volume,
		})
	}
	return out
}
