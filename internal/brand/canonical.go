// Package brand canonicalizes brand names and resolves the logo shown next
// to them.
package brand

import (
	"fmt"
	"strings"
)

type Canonical struct {
	DisplayName     string
	PreferredDomain string
	Matched         bool
}

type Canonicalizer struct {
	entries []Alias
	exact   map[string]int
	folded  map[string]int
}

// NewCanonicalizer indexes every display name and variant of aliases. Two
// entries claiming the same variant is an error.
func NewCanonicalizer(aliases []Alias) (*Canonicalizer, error) {
	c := &Canonicalizer{
		entries: make([]Alias, 0, len(aliases)),
		exact:   make(map[string]int),
		folded:  make(map[string]int),
	}
	for _, a := range aliases {
		a.DisplayName = strings.TrimSpace(a.DisplayName)
		if a.DisplayName == "" {
			continue
		}
		a.Domain = CleanDomain(a.Domain)
		i := len(c.entries)
		c.entries = append(c.entries, a)

		names := append([]string{a.DisplayName}, a.Variants...)
		for _, n := range names {
			n = strings.TrimSpace(n)
			if n == "" {
				continue
			}
			if err := c.index(c.exact, n, i); err != nil {
				return nil, err
			}
			if err := c.index(c.folded, fold(n), i); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

// MustCanonicalizer is NewCanonicalizer for tables known to be valid.
func MustCanonicalizer(aliases []Alias) *Canonicalizer {
	c, err := NewCanonicalizer(aliases)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Canonicalizer) index(m map[string]int, key string, i int) error {
	if prev, ok := m[key]; ok && prev != i {
		return fmt.Errorf("alias %q claimed by both %q and %q", key, c.entries[prev].DisplayName, c.entries[i].DisplayName)
	}
	m[key] = i
	return nil
}

// Canonicalize looks name up case-sensitively, then case-insensitively.
// Unknown names pass through unchanged.
func (c *Canonicalizer) Canonicalize(name string) Canonical {
	if c != nil {
		if i, ok := c.exact[name]; ok {
			return c.result(i)
		}
		if i, ok := c.folded[fold(name)]; ok {
			return c.result(i)
		}
	}
	return Canonical{DisplayName: name}
}

func (c *Canonicalizer) result(i int) Canonical {
	e := c.entries[i]
	return Canonical{DisplayName: e.DisplayName, PreferredDomain: e.Domain, Matched: true}
}

func (c *Canonicalizer) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

func fold(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
