package session

import "context"

// Provider is the hosted auth service contract this front end consumes.
// Password verification, OAuth federation, token issuance and refresh
// all happen on the provider's side; implementations only move tokens.
type Provider interface {
	// SignUp registers a new user. The provider may require email
	// verification before the first sign-in succeeds.
	SignUp(ctx context.Context, email, password string, metadata Metadata) error

	// SignInWithPassword exchanges credentials for a session.
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)

	// SignInWithOAuth returns the provider URL to redirect the user to.
	// pkceVerifier pairs with the authorization code on the way back.
	SignInWithOAuth(ctx context.Context, oauthProvider, redirectTo, pkceVerifier string) (string, error)

	// ExchangeCodeForSession converts a one-time authorization code
	// (plus the pending PKCE verifier) into a durable session.
	ExchangeCodeForSession(ctx context.Context, code, pkceVerifier string) (*Session, error)

	// GetUser resolves the user record behind an access token.
	GetUser(ctx context.Context, accessToken string) (*User, error)

	// RefreshSession trades a refresh token for a fresh token pair.
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)

	// SignOut revokes the session on the provider side.
	SignOut(ctx context.Context, accessToken string) error
}
