package config

type Auth struct{}

var _ AuthConfig = Auth{}

// GetAuthIssuerURL returns the base URL of the hosted auth provider.
func (Auth) GetAuthIssuerURL() string {
	return GetEnv("AUTH_ISSUER_URL", "http://localhost:9999")
}

func (Auth) GetAuthClientID() string {
	return GetEnv("AUTH_CLIENT_ID", "")
}

func (Auth) GetAuthClientSecret() string {
	return GetEnv("AUTH_CLIENT_SECRET", "")
}

// GetAuthProjectRef returns the provider project identifier that
// namespaces the session cookies (e.g. the "<ref>" in "sb-<ref>-auth-token").
// The names must stay bit-exact with the provider's own client so a
// session written by either side is visible to the other.
func (Auth) GetAuthProjectRef() string {
	return GetEnv("AUTH_PROJECT_REF", "local")
}
