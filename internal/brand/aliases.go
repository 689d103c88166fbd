package brand

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Alias maps spelling variants of a brand to one display name and one
// preferred domain.
type Alias struct {
	DisplayName string   `yaml:"display_name" json:"display_name"`
	Domain      string   `yaml:"domain" json:"domain"`
	Variants    []string `yaml:"variants" json:"variants"`
}

// DefaultAliases covers the brands the dashboard tracks out of the box.
var DefaultAliases = []Alias{
	{DisplayName: "Bajaj Finserv", Domain: "bajajfinserv.in", Variants: []string{"bajaj", "Bajaj", "BAJAJ", "bajaj finserv", "bajajfinserv", "Bajaj Finance"}},
	{DisplayName: "HDFC Bank", Domain: "hdfcbank.com", Variants: []string{"hdfc", "HDFC", "hdfc bank", "hdfcbank"}},
	{DisplayName: "ICICI Bank", Domain: "icicibank.com", Variants: []string{"icici", "ICICI", "icici bank"}},
	{DisplayName: "State Bank of India", Domain: "sbi.co.in", Variants: []string{"sbi", "SBI", "state bank"}},
	{DisplayName: "Axis Bank", Domain: "axisbank.com", Variants: []string{"axis", "axis bank"}},
	{DisplayName: "Kotak Mahindra Bank", Domain: "kotak.com", Variants: []string{"kotak", "kotak bank", "kotak mahindra"}},
	{DisplayName: "Tata Motors", Domain: "tatamotors.com", Variants: []string{"tata", "tata motors"}},
	{DisplayName: "BMW", Domain: "bmw.com", Variants: []string{"bmw", "Bmw", "b.m.w."}},
	{DisplayName: "Mercedes-Benz", Domain: "mercedes-benz.com", Variants: []string{"mercedes", "mercedes benz", "benz"}},
	{DisplayName: "Volkswagen", Domain: "vw.com", Variants: []string{"vw", "VW", "volkswagon"}},
	{DisplayName: "OpenAI", Domain: "openai.com", Variants: []string{"openai", "Open AI", "ChatGPT", "chatgpt"}},
	{DisplayName: "Anthropic", Domain: "anthropic.com", Variants: []string{"anthropic", "Claude", "claude"}},
	{DisplayName: "Google", Domain: "google.com", Variants: []string{"google", "Gemini", "gemini"}},
	{DisplayName: "Perplexity", Domain: "perplexity.ai", Variants: []string{"perplexity", "perplexity ai"}},
}

type aliasFile struct {
	Aliases []Alias `yaml:"aliases"`
}

// LoadAliasFile reads an alias table from YAML:
//
//	aliases:
//	  - display_name: Bajaj Finserv
//	    domain: bajajfinserv.in
//	    variants: [bajaj, bajaj finance]
func LoadAliasFile(path string) ([]Alias, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alias file: %w", err)
	}
	var f aliasFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse alias file %s: %w", path, err)
	}
	for i, a := range f.Aliases {
		if strings.TrimSpace(a.DisplayName) == "" {
			return nil, fmt.Errorf("alias file %s: entry %d has no display_name", path, i)
		}
	}
	return f.Aliases, nil
}

// MergeAliases layers extra on top of base. An extra entry whose display
// name matches a base entry (case-insensitively) replaces its domain when
// set and adds its variants.
func MergeAliases(base, extra []Alias) []Alias {
	out := make([]Alias, 0, len(base)+len(extra))
	idx := make(map[string]int, len(base)+len(extra))
	add := func(a Alias) {
		k := fold(a.DisplayName)
		if i, ok := idx[k]; ok {
			if a.Domain != "" {
				out[i].Domain = a.Domain
			}
			out[i].Variants = append(out[i].Variants, a.Variants...)
			return
		}
		idx[k] = len(out)
		a.Variants = append([]string(nil), a.Variants...)
		out = append(out, a)
	}
	for _, a := range base {
		add(a)
	}
	for _, a := range extra {
		add(a)
	}
	return out
}

// LoadAliases returns DefaultAliases merged with the table at path. An
// empty path yields the defaults alone.
func LoadAliases(path string) ([]Alias, error) {
	if strings.TrimSpace(path) == "" {
		return MergeAliases(DefaultAliases, nil), nil
	}
	extra, err := LoadAliasFile(path)
	if err != nil {
		return nil, err
	}
	return MergeAliases(DefaultAliases, extra), nil
}
