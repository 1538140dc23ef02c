package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// OIDCProvider talks to the hosted auth service through its OIDC
// surface: discovery, the authorization-code flow with PKCE, the
// password grant for email sign-in, and the userinfo endpoint.
type OIDCProvider struct {
	oauth2Config *oauth2.Config
	provider     *oidc.Provider
	verifier     *oidc.IDTokenVerifier
	issuerURL    string
	httpClient   *http.Client
}

// NewOIDCProvider discovers the provider endpoints from issuerURL.
// redirectURL is the fixed callback on this front end that receives the
// authorization code.
func NewOIDCProvider(ctx context.Context, issuerURL, clientID, clientSecret, redirectURL string) (*OIDCProvider, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, errors.Wrap(err, "[NewOIDCProvider] provider discovery failed")
	}

	return &OIDCProvider{
		oauth2Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		provider:   provider,
		verifier:   provider.Verifier(&oidc.Config{ClientID: clientID}),
		issuerURL:  issuerURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

var _ Provider = (*OIDCProvider)(nil)

func (p *OIDCProvider) SignUp(ctx context.Context, email, password string, metadata Metadata) error {
	body, err := json.Marshal(map[string]interface{}{
		"email":    email,
		"password": password,
		"data":     metadata,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.issuerURL+"/signup", bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "[SignUp] building request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "[SignUp] provider call failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return errors.Errorf("[SignUp] provider returned %s", resp.Status)
	}
	return nil
}

func (p *OIDCProvider) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	token, err := p.oauth2Config.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		return nil, errors.Wrap(err, "[SignInWithPassword] password grant failed")
	}
	return p.sessionFromToken(ctx, token)
}

func (p *OIDCProvider) SignInWithOAuth(_ context.Context, oauthProvider, redirectTo, pkceVerifier string) (string, error) {
	if pkceVerifier == "" {
		return "", errors.New("[SignInWithOAuth] pkce verifier is required")
	}
	opts := []oauth2.AuthCodeOption{
		oauth2.S256ChallengeOption(pkceVerifier),
		oauth2.SetAuthURLParam("provider", oauthProvider),
	}
	if redirectTo != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_to", redirectTo))
	}
	return p.oauth2Config.AuthCodeURL(uuid.New().String(), opts...), nil
}

func (p *OIDCProvider) ExchangeCodeForSession(ctx context.Context, code, pkceVerifier string) (*Session, error) {
	opts := []oauth2.AuthCodeOption{}
	if pkceVerifier != "" {
		opts = append(opts, oauth2.VerifierOption(pkceVerifier))
	}
	token, err := p.oauth2Config.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "[ExchangeCodeForSession] exchange failed")
	}
	return p.sessionFromToken(ctx, token)
}

func (p *OIDCProvider) GetUser(ctx context.Context, accessToken string) (*User, error) {
	userInfo, err := p.provider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
	if err != nil {
		return nil, errors.Wrap(err, "[GetUser] userinfo call failed")
	}

	var claims userClaims
	if err := userInfo.Claims(&claims); err != nil {
		return nil, errors.Wrap(err, "[GetUser] claims extraction failed")
	}

	user := claims.user()
	if user.ID == "" {
		user.ID = userInfo.Subject
	}
	if user.Email == "" {
		user.Email = userInfo.Email
	}
	return &user, nil
}

func (p *OIDCProvider) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, errors.New("[RefreshSession] refresh token is required")
	}
	token, err := p.oauth2Config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, errors.Wrap(err, "[RefreshSession] refresh failed")
	}
	return p.sessionFromToken(ctx, token)
}

func (p *OIDCProvider) SignOut(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.issuerURL+"/logout", nil)
	if err != nil {
		return errors.Wrap(err, "[SignOut] building request")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "[SignOut] provider call failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return errors.Errorf("[SignOut] provider returned %s", resp.Status)
	}
	return nil
}

// sessionFromToken builds a Session from an issued token pair. Identity
// comes from the ID token when one was issued, the userinfo endpoint
// otherwise.
func (p *OIDCProvider) sessionFromToken(ctx context.Context, token *oauth2.Token) (*Session, error) {
	session := &Session{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}
	if session.ExpiresAt.IsZero() {
		session.ExpiresAt = accessTokenExpiry(token.AccessToken)
	}

	if rawIDToken, ok := token.Extra("id_token").(string); ok && rawIDToken != "" {
		idToken, err := p.verifier.Verify(ctx, rawIDToken)
		if err != nil {
			return nil, errors.Wrap(err, "[sessionFromToken] id token verification failed")
		}
		var claims userClaims
		if err := idToken.Claims(&claims); err != nil {
			return nil, errors.Wrap(err, "[sessionFromToken] claims extraction failed")
		}
		session.User = claims.user()
		if session.User.ID == "" {
			session.User.ID = idToken.Subject
		}
		return session, nil
	}

	user, err := p.GetUser(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}
	session.User = *user
	return session, nil
}

type userClaims struct {
	Subject   string `json:"sub"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"picture"`
	Metadata  struct {
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
	} `json:"user_metadata"`
}

func (c userClaims) user() User {
	user := User{
		ID:        c.Subject,
		Email:     c.Email,
		Name:      c.Name,
		AvatarURL: c.AvatarURL,
	}
	if c.Metadata.Name != "" {
		user.Name = c.Metadata.Name
	}
	if c.Metadata.AvatarURL != "" {
		user.AvatarURL = c.Metadata.AvatarURL
	}
	return user
}

// accessTokenExpiry pulls the exp claim from a JWT access token without
// verifying it. Signature verification belongs to the provider; this is
// only used to decide when a refresh is due.
func accessTokenExpiry(raw string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// cookieName builds the provider-namespaced cookie names, bit-exact with
// the provider's own client (e.g. "sb-<ref>-auth-token").
func cookieName(projectRef, suffix string) string {
	return fmt.Sprintf("sb-%s-%s", projectRef, suffix)
}
