// Package extract pulls typed values out of loosely-typed upstream analytics
// records. Every logical field is looked up through an ordered list of
// candidate keys; the first usable value wins.
package extract

import (
	"fmt"
	"strings"

	"aivisibility/backend-go/internal/models"
)

// Candidate keys per logical field, in priority order.
var (
	BrandKeys      = []string{"brand_name", "brand", "name", "competitor"}
	VisibilityKeys = []string{"visibility", "avg_visibility"}
	SentimentKeys  = []string{"sentiment", "avg_sentiment"}
	PositionKeys   = []string{"position", "avg_position"}
	DomainKeys     = []string{"domain", "website"}
	LogoKeys       = []string{"logo"}
	TagKeys        = []string{"tags"}
	MentionKeys    = []string{"mentions"}
	VolumeKeys     = []string{"volume"}
	DateKeys       = []string{"date", "timestamp"}
	PromptKeys     = []string{"prompt", "text", "query"}
)

// Fields is the typed view of one RawMetricRecord.
// Sentiment, Position and Volume are nil when the record carries no usable
// value. Visibility is always set, clamped to [0,100].
type Fields struct {
	BrandKey   string
	Visibility float64
	Sentiment  *float64
	Position   *float64
	LogoHint   string
	DomainHint string
	Tags       []string
	Mentions   []models.Mention
	Volume     *float64
	Date       string
	Prompt     string
}

func (f Fields) HasBrand() bool {
	return f.BrandKey != ""
}

// BrandOr returns the extracted brand key or fallback when none was found.
func (f Fields) BrandOr(fallback string) string {
	if f.BrandKey != "" {
		return f.BrandKey
	}
	return fallback
}

// CompetitorLabel is the positional label for records without a brand.
// n is 1-based.
func CompetitorLabel(n int) string {
	return fmt.Sprintf("Competitor %d", n)
}

func Extract(raw models.RawMetricRecord) Fields {
	var f Fields
	if raw == nil {
		f.Tags = []string{}
		f.Mentions = []models.Mention{}
		return f
	}

	f.BrandKey, _ = firstString(raw, BrandKeys)

	if v, ok := firstNumber(raw, VisibilityKeys); ok {
		f.Visibility = clamp(v, 0, 100)
	}
	if v, ok := firstNumber(raw, SentimentKeys); ok {
		f.Sentiment = &v
	}
	if v, ok := firstNumber(raw, PositionKeys); ok {
		f.Position = &v
	}
	if v, ok := firstNumber(raw, VolumeKeys); ok {
		f.Volume = &v
	}

	f.DomainHint, _ = firstString(raw, DomainKeys)
	f.LogoHint, _ = firstString(raw, LogoKeys)
	f.Date, _ = firstString(raw, DateKeys)
	f.Prompt, _ = firstString(raw, PromptKeys)

	f.Tags = []string{}
	for _, k := range TagKeys {
		if tags := parseTags(raw[k]); len(tags) > 0 {
			f.Tags = tags
			break
		}
	}

	f.Mentions = []models.Mention{}
	for _, k := range MentionKeys {
		if m := parseMentions(raw[k]); len(m) > 0 {
			f.Mentions = m
			break
		}
	}
	return f
}

func parseTags(v any) []string {
	switch t := v.(type) {
	case string:
		return splitTags(strings.Split(t, ","))
	case []string:
		return splitTags(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, it := range t {
			if s, ok := it.(string); ok {
				parts = append(parts, s)
			}
		}
		return splitTags(parts)
	default:
		return nil
	}
}

func splitTags(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
