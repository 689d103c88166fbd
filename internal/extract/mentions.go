package extract

import (
	"math"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"aivisibility/backend-go/internal/brand"
	"aivisibility/backend-go/internal/models"
)

var mentionLabelKeys = []string{"platform", "url", "client", "name"}

func parseMentions(v any) []models.Mention {
	switch m := v.(type) {
	case map[string]any:
		return mentionsFromMap(m)
	case []any:
		return mentionsFromList(m)
	default:
		return nil
	}
}

func mentionsFromMap(m map[string]any) []models.Mention {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	acc := newMentionAcc()
	for _, k := range keys {
		c, ok := toFloat(m[k])
		if !ok || c <= 0 {
			continue
		}
		acc.add(PlatformLabel(k), countOf(c))
	}
	return acc.out
}

func mentionsFromList(items []any) []models.Mention {
	acc := newMentionAcc()
	for _, it := range items {
		switch v := it.(type) {
		case string:
			acc.add(PlatformLabel(v), 1)
		case map[string]any:
			label, ok := firstString(v, mentionLabelKeys)
			if !ok {
				continue
			}
			count := 1
			if c, ok := firstNumber(v, []string{"count"}); ok {
				if c <= 0 {
					continue
				}
				count = countOf(c)
			}
			acc.add(PlatformLabel(label), count)
		}
	}
	return acc.out
}

func countOf(c float64) int {
	n := int(math.Round(c))
	if n < 1 {
		n = 1
	}
	return n
}

type mentionAcc struct {
	idx map[string]int
	out []models.Mention
}

func newMentionAcc() *mentionAcc {
	return &mentionAcc{idx: map[string]int{}, out: []models.Mention{}}
}

func (a *mentionAcc) add(label string, count int) {
	if label == "" || count <= 0 {
		return
	}
	if i, ok := a.idx[label]; ok {
		a.out[i].Count += count
		return
	}
	a.idx[label] = len(a.out)
	a.out = append(a.out, models.Mention{Platform: label, Count: count})
}

// PlatformLabel reduces URL-like names ("https://bmw.com", "www.bmw.de",
// "chat.openai.com") to a capitalized registrable-domain token ("Bmw",
// "Openai"). Anything else is returned trimmed and unchanged.
func PlatformLabel(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || !looksLikeHost(name) {
		return name
	}
	host := hostOf(name)
	if host == "" {
		return name
	}
	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		registrable = host
	}
	token := registrable
	if i := strings.Index(token, "."); i > 0 {
		token = token[:i]
	}
	if token == "" {
		return name
	}
	return cases.Title(language.Und).String(token)
}

func looksLikeHost(s string) bool {
	if strings.Contains(s, "://") || strings.HasPrefix(strings.ToLower(s), "www.") {
		return true
	}
	return !strings.ContainsAny(s, " \t") && strings.Contains(strings.Trim(s, "."), ".")
}

func hostOf(s string) string {
	raw := s
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	if u, err := url.Parse(raw); err == nil && u.Hostname() != "" {
		return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	}
	return brand.CleanDomain(s)
}
