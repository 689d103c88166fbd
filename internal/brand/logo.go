package brand

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

const DefaultFaviconSize = 64

// FaviconFunc builds the image URL for a cleaned domain.
type FaviconFunc func(domain string, size int) string

func GoogleFavicon(domain string, size int) string {
	return fmt.Sprintf("https://www.google.com/s2/favicons?domain=%s&sz=%d", url.QueryEscape(domain), size)
}

type LogoSource string

const (
	LogoExplicit LogoSource = "explicit"
	LogoCached   LogoSource = "cache"
	LogoDomain   LogoSource = "domain"
	LogoGuess    LogoSource = "guess"
	LogoNone     LogoSource = "none"
)

type Logo struct {
	URL    string
	Domain string
	Source LogoSource
}

type ResolverConfig struct {
	Size    int
	Favicon FaviconFunc
}

type Resolver struct {
	cache   DomainCache
	size    int
	favicon FaviconFunc
}

func NewResolver(cache DomainCache, cfg ResolverConfig) *Resolver {
	if cfg.Size <= 0 {
		cfg.Size = DefaultFaviconSize
	}
	if cfg.Favicon == nil {
		cfg.Favicon = GoogleFavicon
	}
	return &Resolver{cache: cache, size: cfg.Size, favicon: cfg.Favicon}
}

func (r *Resolver) ResolveLogo(domain, explicitLogoURL, brandName string) string {
	return r.Resolve(domain, explicitLogoURL, brandName).URL
}

// Resolve picks a logo in priority order: an absolute http(s) logo URL as
// given, the domain already cached for brandName, the supplied domain
// (cached against brandName on first sight), a "<slug>.com" guess, nothing.
//
// Guessed domains are never cached. A brand first shown with a guessed logo
// therefore switches to the real one once a later call supplies a domain,
// and keeps that one from then on.
func (r *Resolver) Resolve(domain, explicitLogoURL, brandName string) Logo {
	return r.resolve(domain, explicitLogoURL, brandName, true)
}

// Peek resolves like Resolve but never writes the domain cache.
func (r *Resolver) Peek(domain, explicitLogoURL, brandName string) Logo {
	return r.resolve(domain, explicitLogoURL, brandName, false)
}

func (r *Resolver) resolve(domain, explicitLogoURL, brandName string, remember bool) Logo {
	if isAbsoluteHTTP(explicitLogoURL) {
		return Logo{URL: strings.TrimSpace(explicitLogoURL), Source: LogoExplicit}
	}

	hasBrand := CacheKey(brandName) != ""
	if hasBrand && r.cache != nil {
		if d, ok := r.cache.Get(brandName); ok {
			return Logo{URL: r.favicon(d, r.size), Domain: d, Source: LogoCached}
		}
	}

	if clean := CleanDomain(domain); clean != "" {
		if remember && hasBrand && r.cache != nil {
			clean, _ = r.cache.SetIfAbsent(brandName, clean)
		}
		return Logo{URL: r.favicon(clean, r.size), Domain: clean, Source: LogoDomain}
	}

	if slug := Slug(brandName); slug != "" {
		guess := slug + ".com"
		return Logo{URL: r.favicon(guess, r.size), Domain: guess, Source: LogoGuess}
	}
	return Logo{Source: LogoNone}
}

func isAbsoluteHTTP(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}

// Initials is the avatar fallback: the first letters of the first two
// words, uppercased. One word gives one letter; a blank name gives "?".
func Initials(name string) string {
	words := strings.Fields(name)
	if len(words) == 0 {
		return "?"
	}
	if len(words) > 2 {
		words = words[:2]
	}
	var b strings.Builder
	for _, w := range words {
		r, _ := utf8.DecodeRuneInString(w)
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
