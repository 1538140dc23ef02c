package providerfakes

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/datafab/collab-meet/session"
)

var _ session.Provider = (*FakeProvider)(nil)

// FakeProvider is an in-memory stand-in for the hosted auth service.
type FakeProvider struct {
	lock sync.Mutex

	users     map[string]fakeAccount          // email -> account
	codes     map[string]string               // authorization code -> email
	verifiers map[string]string               // authorization code -> expected pkce verifier
	tokens    map[string]string               // access token -> email
	refresh   map[string]string               // refresh token -> email
	revoked   map[string]bool                 // access token -> revoked
	nextToken int

	// Failure toggles
	FailExchange bool
	FailGetUser  bool
	FailSignOut  bool
	FailRefresh  bool
}

type fakeAccount struct {
	password string
	user     session.User
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		users:     make(map[string]fakeAccount),
		codes:     make(map[string]string),
		verifiers: make(map[string]string),
		tokens:    make(map[string]string),
		refresh:   make(map[string]string),
		revoked:   make(map[string]bool),
	}
}

// AddUser registers an account and returns its user record.
func (p *FakeProvider) AddUser(id, email, password, name string) session.User {
	p.lock.Lock()
	defer p.lock.Unlock()

	user := session.User{ID: id, Email: email, Name: name}
	p.users[email] = fakeAccount{password: password, user: user}
	return user
}

// AddCode arranges for an authorization code to exchange into a session
// for email. expectedVerifier, when non-empty, must match the verifier
// presented at exchange time.
func (p *FakeProvider) AddCode(code, email, expectedVerifier string) {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.codes[code] = email
	if expectedVerifier != "" {
		p.verifiers[code] = expectedVerifier
	}
}

func (p *FakeProvider) SignUp(_ context.Context, email, password string, metadata session.Metadata) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if _, exists := p.users[email]; exists {
		return errors.New("user already registered")
	}
	p.users[email] = fakeAccount{
		password: password,
		user: session.User{
			ID:        fmt.Sprintf("user-%d", len(p.users)+1),
			Email:     email,
			Name:      metadata.Name,
			AvatarURL: metadata.AvatarURL,
		},
	}
	return nil
}

func (p *FakeProvider) SignInWithPassword(_ context.Context, email, password string) (*session.Session, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	account, ok := p.users[email]
	if !ok || account.password != password {
		return nil, errors.New("invalid credentials")
	}
	return p.issueSession(account.user), nil
}

func (p *FakeProvider) SignInWithOAuth(_ context.Context, oauthProvider, redirectTo, pkceVerifier string) (string, error) {
	if pkceVerifier == "" {
		return "", errors.New("pkce verifier required")
	}
	return fmt.Sprintf("https://auth.fake/authorize?provider=%s&redirect_to=%s", oauthProvider, redirectTo), nil
}

func (p *FakeProvider) ExchangeCodeForSession(_ context.Context, code, pkceVerifier string) (*session.Session, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.FailExchange {
		return nil, errors.New("exchange rejected")
	}
	email, ok := p.codes[code]
	if !ok {
		return nil, errors.New("unknown authorization code")
	}
	if expected, ok := p.verifiers[code]; ok && expected != pkceVerifier {
		return nil, errors.New("pkce verifier mismatch")
	}
	delete(p.codes, code)
	delete(p.verifiers, code)

	account, ok := p.users[email]
	if !ok {
		return nil, errors.New("user not found")
	}
	return p.issueSession(account.user), nil
}

func (p *FakeProvider) GetUser(_ context.Context, accessToken string) (*session.User, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.FailGetUser {
		return nil, errors.New("userinfo unavailable")
	}
	email, ok := p.tokens[accessToken]
	if !ok || p.revoked[accessToken] {
		return nil, errors.New("invalid token")
	}
	account := p.users[email]
	user := account.user
	return &user, nil
}

func (p *FakeProvider) RefreshSession(_ context.Context, refreshToken string) (*session.Session, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.FailRefresh {
		return nil, errors.New("refresh rejected")
	}
	email, ok := p.refresh[refreshToken]
	if !ok {
		return nil, errors.New("invalid refresh token")
	}
	delete(p.refresh, refreshToken)
	account := p.users[email]
	return p.issueSession(account.user), nil
}

func (p *FakeProvider) SignOut(_ context.Context, accessToken string) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.FailSignOut {
		return errors.New("sign out failed")
	}
	p.revoked[accessToken] = true
	return nil
}

// issueSession must be called with the lock held.
func (p *FakeProvider) issueSession(user session.User) *session.Session {
	p.nextToken++
	accessToken := fmt.Sprintf("access-%d", p.nextToken)
	refreshToken := fmt.Sprintf("refresh-%d", p.nextToken)
	p.tokens[accessToken] = user.Email
	p.refresh[refreshToken] = user.Email

	return &session.Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(time.Hour),
		User:         user,
	}
}
