// Package session bridges the hosted auth provider and the cookie
// layer so a session created on one subdomain is usable on the others.
// Token material is opaque: it is persisted and forwarded, never
// inspected beyond the expiry claim.
package session

import (
	"strings"
	"time"
)

// User is the provider-owned identity record relevant to this front end.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// DisplayName resolves the name shown inside a meeting: the metadata
// name when present, the email otherwise, "Guest User" as a last resort.
func (u *User) DisplayName() string {
	if u == nil {
		return "Guest User"
	}
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	if u.Email != "" {
		return u.Email
	}
	return "Guest User"
}

// Session is the token pair issued by the provider plus its user record.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Expired reports whether the access token is past its lifetime.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && s.ExpiresAt.Before(now)
}

// Metadata is the optional profile data attached at sign-up.
type Metadata struct {
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// State is the session from the client's perspective. Consumers must
// not make access decisions while the state is StateLoading.
type State int

const (
	StateUnknown State = iota
	StateLoading
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}
