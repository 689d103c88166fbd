package brand

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizeAliases(t *testing.T) {
	c := MustCanonicalizer(DefaultAliases)

	got := c.Canonicalize("bajaj")
	assert.Equal(t, "Bajaj Finserv", got.DisplayName)
	assert.Equal(t, "bajajfinserv.in", got.PreferredDomain)
	assert.True(t, got.Matched)

	assert.Equal(t, "Bajaj Finserv", c.Canonicalize("BaJaJ").DisplayName)
	assert.Equal(t, "Bajaj Finserv", c.Canonicalize("  bajaj   finserv ").DisplayName)

	unknown := c.Canonicalize("Acme Rockets")
	assert.Equal(t, Canonical{DisplayName: "Acme Rockets"}, unknown)
}

func TestCanonicalizeIsIdempotent(t *testing.T) {
	c := MustCanonicalizer(DefaultAliases)
	inputs := []string{"bajaj", "HDFC", "sbi", "Tata", "BMW", "b.m.w.", "mercedes benz", "Acme", "", "  padded  ", "ChatGPT"}
	for _, a := range DefaultAliases {
		inputs = append(inputs, a.DisplayName)
		inputs = append(inputs, a.Variants...)
	}
	for _, in := range inputs {
		first := c.Canonicalize(in)
		assert.Equal(t, first, c.Canonicalize(first.DisplayName), in)
	}
}

func TestNewCanonicalizerRejectsConflicts(t *testing.T) {
	_, err := NewCanonicalizer([]Alias{
		{DisplayName: "Alpha", Variants: []string{"a"}},
		{DisplayName: "Apex", Variants: []string{"A"}},
	})
	require.Error(t, err)
}

func TestMergeAliases(t *testing.T) {
	merged := MergeAliases(DefaultAliases, []Alias{
		{DisplayName: "bajaj finserv", Domain: "bajajfinserv.com", Variants: []string{"bfl"}},
		{DisplayName: "Acme", Domain: "acme.io", Variants: []string{"acme inc"}},
	})
	c := MustCanonicalizer(merged)
	assert.Equal(t, "Bajaj Finserv", c.Canonicalize("bfl").DisplayName)
	assert.Equal(t, "bajajfinserv.com", c.Canonicalize("bajaj").PreferredDomain)
	assert.Equal(t, "acme.io", c.Canonicalize("ACME INC").PreferredDomain)
	assert.Equal(t, len(DefaultAliases)+1, c.Len())
}

func TestLoadAliasFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`aliases:
  - display_name: Acme
    domain: https://www.acme.io/
    variants: [acme corp, ACME]
`), 0o644))
	aliases, err := LoadAliasFile(path)
	require.NoError(t, err)
	require.Len(t, aliases, 1)

	c := MustCanonicalizer(aliases)
	got := c.Canonicalize("acme corp")
	assert.Equal(t, "Acme", got.DisplayName)
	assert.Equal(t, "acme.io", got.PreferredDomain)

	require.NoError(t, os.WriteFile(path, []byte("aliases:\n  - domain: x.com\n"), 0o644))
	_, err = LoadAliasFile(path)
	assert.Error(t, err)
}

func TestLoadAliasesLayersDefaults(t *testing.T) {
	defaults, err := LoadAliases("")
	require.NoError(t, err)
	assert.Len(t, defaults, len(DefaultAliases))

	path := filepath.Join(t.TempDir(), "aliases.yaml")
	require.NoError(t, os.WriteFile(path, []byte("aliases:\n  - display_name: bmw\n    variants: [bayerische motoren werke]\n"), 0o644))
	merged, err := LoadAliases(path)
	require.NoError(t, err)
	assert.Len(t, merged, len(DefaultAliases))
	got := MustCanonicalizer(merged).Canonicalize("Bayerische Motoren Werke")
	assert.Equal(t, "BMW", got.DisplayName)

	_, err = LoadAliases(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestCleanDomain(t *testing.T) {
	cases := map[string]string{
		"https://www.Example.com/path?q=1":       "example.com",
		"http://user:pw@shop.example.com:8080/x": "shop.example.com",
		"www.bajajfinserv.in":                    "bajajfinserv.in",
		"bmw.com":                                "bmw.com",
		"  ":                                     "",
		"not a domain":                           "",
	}
	for in, want := range cases {
		assert.Equal(t, want, CleanDomain(in), in)
	}
}

func TestCacheKeyAndSlug(t *testing.T) {
	assert.Equal(t, "bajajfinserv", CacheKey(" Bajaj  Finserv "))
	assert.Equal(t, "acmecorp", Slug("Acme Corp!"))
	assert.Equal(t, "mercedes-benz", Slug("Mercedes-Benz"))
	assert.Equal(t, "", Slug("--"))
}

func TestResolveLogoPriority(t *testing.T) {
	r := NewResolver(NewDomainCache(nil), ResolverConfig{})

	assert.Equal(t, "https://cdn.acme.io/logo.png", r.ResolveLogo("acme.io", "https://cdn.acme.io/logo.png", "Acme"))

	got := r.Resolve("https://www.acme.io/about", "/relative/logo.png", "Acme")
	assert.Equal(t, LogoDomain, got.Source)
	assert.Equal(t, "acme.io", got.Domain)
	assert.Equal(t, GoogleFavicon("acme.io", DefaultFaviconSize), got.URL)

	got = r.Resolve("", "", "Acme")
	assert.Equal(t, LogoCached, got.Source)
	assert.Equal(t, "acme.io", got.Domain)

	got = r.Resolve("", "", "Globex Corp")
	assert.Equal(t, LogoGuess, got.Source)
	assert.Equal(t, "globexcorp.com", got.Domain)
	_, cached := r.cache.Get("Globex Corp")
	assert.False(t, cached)

	got = r.Resolve("", "", "")
	assert.Equal(t, Logo{Source: LogoNone}, got)

	got = r.Resolve("initech.com", "", "")
	assert.Equal(t, "initech.com", got.Domain)
}

func TestResolveLogoFirstDomainWins(t *testing.T) {
	r := NewResolver(NewDomainCache(nil), ResolverConfig{Size: 32})
	first := r.ResolveLogo("acme.com", "", "Acme")
	second := r.ResolveLogo("acme-global.net", "", "Acme")
	assert.Equal(t, first, second)
	assert.Contains(t, second, "acme.com")
	assert.Contains(t, second, "sz=32")

	// Key normalization: case and whitespace variants share the entry.
	assert.Equal(t, first, r.ResolveLogo("other.org", "", " ACME "))
}

func TestResolveGuessYieldsToFirstRealDomain(t *testing.T) {
	r := NewResolver(NewDomainCache(nil), ResolverConfig{})

	assert.Equal(t, LogoGuess, r.Resolve("", "", "Globex Corp").Source)
	assert.Equal(t, "globex.io", r.Resolve("globex.io", "", "Globex Corp").Domain)

	got := r.Resolve("", "", "Globex Corp")
	assert.Equal(t, LogoCached, got.Source)
	assert.Equal(t, "globex.io", got.Domain)
}

func TestPeekLeavesCacheUntouched(t *testing.T) {
	cache := NewDomainCache(nil)
	r := NewResolver(cache, ResolverConfig{})

	got := r.Peek("evil.example", "", "Acme")
	assert.Equal(t, LogoDomain, got.Source)
	assert.Equal(t, "evil.example", got.Domain)
	_, cached := cache.Get("Acme")
	assert.False(t, cached)

	assert.Equal(t, "acme.com", r.Resolve("acme.com", "", "Acme").Domain)
	got = r.Peek("evil.example", "", "Acme")
	assert.Equal(t, LogoCached, got.Source)
	assert.Equal(t, "acme.com", got.Domain)
}

func TestResolverCustomFavicon(t *testing.T) {
	r := NewResolver(nil, ResolverConfig{Favicon: func(d string, size int) string { return "icon://" + d }})
	assert.Equal(t, "icon://acme.com", r.ResolveLogo("acme.com", "", "Acme"))
	assert.Equal(t, "icon://acme.com", r.ResolveLogo("", "", "Acme"))
}

func TestInitials(t *testing.T) {
	assert.Equal(t, "BF", Initials("Bajaj Finserv"))
	assert.Equal(t, "SB", Initials("state bank of india"))
	assert.Equal(t, "A", Initials("acme"))
	assert.Equal(t, "?", Initials("   "))
	assert.Equal(t, "?", Initials(""))
	assert.Equal(t, "ÉC", Initials("école centrale"))
}

func TestSetIfAbsentConcurrent(t *testing.T) {
	c := NewDomainCache(nil)
	var wg sync.WaitGroup
	stored := make(chan string, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d := "acme.com"
			if i%2 == 1 {
				d = "acme.net"
			}
			if _, ok := c.SetIfAbsent("Acme", d); ok {
				stored <- d
			}
		}(i)
	}
	wg.Wait()
	close(stored)
	assert.Len(t, stored, 1)

	winner, ok := c.Get("acme")
	require.True(t, ok)
	for i := 0; i < 10; i++ {
		got, _ := c.SetIfAbsent("Acme", "other.io")
		assert.Equal(t, winner, got)
	}
}

func TestFileDomainStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "domains.json")
	store := NewFileDomainStore(path)

	c := NewDomainCache(store)
	require.NoError(t, c.Load(ctx))
	c.SetIfAbsent("Acme", "acme.com")
	require.NoError(t, c.Save(ctx))

	// A second process that resolved a different domain does not clobber the
	// persisted one.
	other := NewDomainCache(store)
	other.SetIfAbsent("Acme", "acme.net")
	other.SetIfAbsent("Globex", "globex.com")
	require.NoError(t, other.Save(ctx))

	persisted, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"acme": "acme.com", "globex": "globex.com"}, persisted)

	fresh := NewDomainCache(store)
	require.NoError(t, fresh.Load(ctx))
	d, ok := fresh.Get("ACME")
	assert.True(t, ok)
	assert.Equal(t, "acme.com", d)
}

type failingStore struct{}

func (failingStore) Load(context.Context) (map[string]string, error) {
	return nil, errors.New("storage unavailable")
}

func (failingStore) Save(context.Context, map[string]string) error {
	return errors.New("storage unavailable")
}

func TestDomainCacheDegradesOnStoreFailure(t *testing.T) {
	ctx := context.Background()
	c := NewDomainCache(failingStore{})
	assert.Error(t, c.Load(ctx))

	r := NewResolver(c, ResolverConfig{})
	first := r.ResolveLogo("acme.com", "", "Acme")
	assert.Equal(t, first, r.ResolveLogo("acme.net", "", "Acme"))
	assert.Error(t, c.Save(ctx))
	assert.Equal(t, 1, c.Len())
}

func TestFileDomainStoreCorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "domains.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))
	store := NewFileDomainStore(path)

	c := NewDomainCache(store)
	assert.Error(t, c.Load(ctx))
	c.SetIfAbsent("Acme", "acme.com")
	require.NoError(t, c.Save(ctx))

	persisted, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "acme.com", persisted["acme"])
}
