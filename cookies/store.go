package cookies

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// ThemeCookieName persists the light/dark preference for a year.
	ThemeCookieName = "collab-theme"
	ThemeDark       = "dark"
	ThemeLight      = "light"

	themeMaxAge = 365 * 24 * 60 * 60
)

// expiredAt is the timestamp written on deletion markers.
var expiredAt = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

// Store persists JSON values through cookies with the resolved domain,
// standing in for the auth client's default storage so sessions created
// on one subdomain are visible on the others.
type Store struct {
	jar        Jar
	domain     string // resolved via ResolveDomain
	hostname   string // current request host, for deletion variants
	apex       string // bare configured apex, for deletion variants
	production bool
}

// StoreOption configures optional Store fields.
type StoreOption func(*Store)

// WithHostname supplies the current request hostname so removals can
// also target cookies set under the host and its dot-prefixed variant.
func WithHostname(hostname string) StoreOption {
	return func(s *Store) { s.hostname = hostname }
}

// WithApex supplies the bare configured apex as an extra removal target.
func WithApex(apex string) StoreOption {
	return func(s *Store) { s.apex = apex }
}

// NewStore creates a cookie-backed store. resolvedDomain must come from
// ResolveDomain; production controls the Secure attribute, which must be
// omitted on plain-HTTP development hosts or the cookie never persists.
func NewStore(jar Jar, resolvedDomain string, production bool, opts ...StoreOption) *Store {
	s := &Store{
		jar:        jar,
		domain:     resolvedDomain,
		production: production,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetItem JSON-serialises and URL-encodes value and writes it under the
// resolved domain with path=/ and SameSite=Lax.
func (s *Store) SetItem(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.jar.Set(Cookie{
		Name:     key,
		Value:    url.QueryEscape(string(raw)),
		Domain:   s.writeDomain(),
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		Secure:   s.production,
	})
	return nil
}

// GetItem reads the cookie named key into value. Missing or malformed
// data is a miss, never an error.
func (s *Store) GetItem(key string, value interface{}) bool {
	encoded, ok := s.jar.Get(key)
	if !ok {
		return false
	}
	raw, err := url.QueryUnescape(encoded)
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(raw), value); err != nil {
		return false
	}
	return true
}

// RemoveItem expires the cookie under every plausible domain variant. A
// cookie set under one variant is invisible to a delete issued under
// another, so a single delete is not enough: removals target the
// resolved domain, the attribute-less form, the bare hostname, its
// dot-prefixed variant, and the bare apex. The cookie is re-read
// afterwards and a surviving copy is logged, not treated as fatal.
func (s *Store) RemoveItem(key string) {
	for _, domain := range s.removalDomains() {
		s.jar.Set(Cookie{
			Name:    key,
			Value:   "",
			Domain:  domain,
			Path:    "/",
			Expires: expiredAt,
		})
	}

	if _, survived := s.jar.Get(key); survived {
		log.Warn().Str("cookie", key).Msg("cookie survived deletion across all domain variants")
	}
}

// SetTheme writes the theme preference cookie. The theme cookie is not
// session material: long max-age, never Secure-gated.
func (s *Store) SetTheme(theme string) {
	if theme != ThemeDark && theme != ThemeLight {
		theme = ThemeLight
	}
	s.jar.Set(Cookie{
		Name:     ThemeCookieName,
		Value:    theme,
		Domain:   s.writeDomain(),
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   themeMaxAge,
	})
}

// Theme reads the theme preference, defaulting to dark.
func (s *Store) Theme() string {
	theme, ok := s.jar.Get(ThemeCookieName)
	if !ok || (theme != ThemeDark && theme != ThemeLight) {
		return ThemeDark
	}
	return theme
}

func (s *Store) writeDomain() string {
	if s.domain == LocalDomain {
		return ""
	}
	return s.domain
}

func (s *Store) removalDomains() []string {
	variants := []string{s.writeDomain(), ""}
	if s.hostname != "" {
		variants = append(variants, s.hostname, "."+s.hostname)
	}
	if s.apex != "" {
		variants = append(variants, s.apex, "."+s.apex)
	}

	seen := make(map[string]bool, len(variants))
	unique := variants[:0]
	for _, v := range variants {
		if seen[v] {
			continue
		}
		seen[v] = true
		unique = append(unique, v)
	}
	return unique
}
