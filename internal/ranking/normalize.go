// Package ranking turns upstream brand analytics rows into the ranked,
// display-ready list shared by the ranking, prompt detail and competitor
// views.
package ranking

import (
	"fmt"
	"math"
	"strings"

	"aivisibility/backend-go/internal/brand"
	"aivisibility/backend-go/internal/extract"
	"aivisibility/backend-go/internal/models"
)

type Scope string

const (
	ScopeGlobal Scope = "global"
	ScopePrompt Scope = "prompt"
)

// MergeStrategy decides how prompt-scoped visibility is combined when a
// brand has several rows (one per date, typically).
type MergeStrategy string

const (
	// MergeRunningAverage folds rows as (prev+new)/2 in input order, which
	// weights later rows more. It matches what the dashboard has always shown.
	MergeRunningAverage MergeStrategy = "running_average"
	// MergeMean is the arithmetic mean of all rows.
	MergeMean MergeStrategy = "mean"
)

func ParseMergeStrategy(s string) (MergeStrategy, error) {
	switch MergeStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", MergeRunningAverage:
		return MergeRunningAverage, nil
	case MergeMean:
		return MergeMean, nil
	default:
		return "", fmt.Errorf("unknown merge strategy %q", s)
	}
}

type Options struct {
	// LabelUnnamed keeps records without a brand under "Competitor n"
	// (n = 1-based input position) instead of dropping them.
	LabelUnnamed bool
}

type Normalizer struct {
	canon *brand.Canonicalizer
	logos *brand.Resolver
	merge MergeStrategy
}

func NewNormalizer(canon *brand.Canonicalizer, logos *brand.Resolver, merge MergeStrategy) *Normalizer {
	if merge == "" {
		merge = MergeRunningAverage
	}
	return &Normalizer{canon: canon, logos: logos, merge: merge}
}

func (n *Normalizer) Merge() MergeStrategy {
	return n.merge
}

func (n *Normalizer) Normalize(records []models.RawMetricRecord, scope Scope) []models.RankingEntry {
	return n.NormalizeWith(records, scope, Options{})
}

func (n *Normalizer) NormalizeWith(records []models.RawMetricRecord, scope Scope, opts Options) []models.RankingEntry {
	groups := n.group(records, scope, opts)
	sortGroups(groups)

	out := make([]models.RankingEntry, 0, len(groups))
	for i, g := range groups {
		out = append(out, n.entry(g, i+1))
	}
	return out
}

type group struct {
	key        string
	display    string
	preferred  string
	visibility float64
	visSum     float64
	rows       int
	sentiment  *float64
	position   *float64
	logoHint   string
	domainHint string
	tags       []string
	tagSeen    map[string]bool
	mentions   []models.Mention
	volume     *float64
}

func (n *Normalizer) group(records []models.RawMetricRecord, scope Scope, opts Options) []*group {
	groups := make([]*group, 0, len(records))
	byKey := make(map[string]*group, len(records))

	for i, raw := range records {
		f := extract.Extract(raw)
		if !f.HasBrand() && !opts.LabelUnnamed {
			continue
		}
		name := f.BrandOr(extract.CompetitorLabel(i + 1))
		canon := n.canon.Canonicalize(name)
		key := brand.CacheKey(canon.DisplayName)
		if key == "" {
			continue
		}

		g, seen := byKey[key]
		if !seen {
			g = &group{
				key:       key,
				display:   canon.DisplayName,
				preferred: canon.PreferredDomain,
				tagSeen:   map[string]bool{},
				tags:      []string{},
				mentions:  []models.Mention{},
			}
			byKey[key] = g
			groups = append(groups, g)
			g.add(f, n.merge)
			continue
		}
		if scope == ScopePrompt {
			g.add(f, n.merge)
		}
	}
	return groups
}

func (g *group) add(f extract.Fields, merge MergeStrategy) {
	g.rows++
	g.visSum += f.Visibility
	switch {
	case g.rows == 1:
		g.visibility = f.Visibility
	case merge == MergeMean:
		g.visibility = g.visSum / float64(g.rows)
	default:
		g.visibility = (g.visibility + f.Visibility) / 2
	}

	if f.Sentiment != nil {
		g.sentiment = f.Sentiment
	}
	if f.Position != nil {
		g.position = f.Position
	}
	if g.logoHint == "" {
		g.logoHint = f.LogoHint
	}
	if g.domainHint == "" {
		g.domainHint = f.DomainHint
	}
	for _, t := range f.Tags {
		k := strings.ToLower(t)
		if g.tagSeen[k] {
			continue
		}
		g.tagSeen[k] = true
		g.tags = append(g.tags, t)
	}
	g.mentions = mergeMentions(g.mentions, f.Mentions)
	if f.Volume != nil {
		v := *f.Volume
		if g.volume != nil {
			v += *g.volume
		}
		g.volume = &v
	}
}

func mergeMentions(into, add []models.Mention) []models.Mention {
	for _, m := range add {
		found := false
		for i := range into {
			if into[i].Platform == m.Platform {
				into[i].Count += m.Count
				found = true
				break
			}
		}
		if !found {
			into = append(into, m)
		}
	}
	return into
}

func (n *Normalizer) entry(g *group, rank int) models.RankingEntry {
	e := models.RankingEntry{
		ID:                g.key,
		DisplayName:       g.display,
		Initials:          brand.Initials(g.display),
		VisibilityPercent: Percent(g.visibility),
		VisibilityRaw:     g.visibility,
		Rank:              rank,
		SourcePosition:    g.position,
		Tags:              g.tags,
		Mentions:          g.mentions,
		Volume:            g.volume,
	}
	if g.sentiment != nil {
		s := int(math.Round(*g.sentiment))
		e.Sentiment = &s
	}
	if n.logos != nil {
		domain := g.preferred
		if domain == "" {
			domain = g.domainHint
		}
		logo := n.logos.Resolve(domain, g.logoHint, g.display)
		e.LogoURL = logo.URL
		e.Domain = logo.Domain
	}
	return e
}

// Percent clamps v to [0,100] and rounds half away from zero.
func Percent(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return int(math.Round(v))
}
