package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/datafab/collab-meet/cookies"
)

// Bridge wraps the auth provider with cookie-backed session persistence.
// Every session mutation goes through the cookie store with the
// resolved domain, which is what makes the session visible across
// subdomains. The bridge also owns the client-side session state
// machine: Unknown -> Loading -> Authenticated | Unauthenticated.
type Bridge struct {
	provider       Provider
	store          *cookies.Store
	sessionCookie  string
	verifierCookie string
	nowTime        func() time.Time

	lock        sync.Mutex
	state       State
	user        *User
	subscribers map[string]func(*User)
}

// BridgeOption modifies the Bridge instance.
type BridgeOption func(*Bridge)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) BridgeOption {
	return func(b *Bridge) {
		b.nowTime = nowFunc
	}
}

// NewBridge creates a session bridge. projectRef namespaces the cookie
// names so they stay interoperable with the provider's own client.
func NewBridge(provider Provider, store *cookies.Store, projectRef string, options ...BridgeOption) (*Bridge, error) {
	if provider == nil {
		return nil, errors.New("[NewBridge] provider is required")
	}
	if store == nil {
		return nil, errors.New("[NewBridge] cookie store is required")
	}
	if projectRef == "" {
		return nil, errors.New("[NewBridge] project ref is required")
	}

	b := &Bridge{
		provider:       provider,
		store:          store,
		sessionCookie:  cookieName(projectRef, "auth-token"),
		verifierCookie: cookieName(projectRef, "auth-token-code-verifier"),
		nowTime:        time.Now,
		state:          StateUnknown,
		subscribers:    make(map[string]func(*User)),
	}
	for _, opt := range options {
		opt(b)
	}
	return b, nil
}

func (b *Bridge) SessionCookieName() string  { return b.sessionCookie }
func (b *Bridge) VerifierCookieName() string { return b.verifierCookie }

// State returns the current session state.
func (b *Bridge) State() State {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.state
}

// CurrentUser returns the resolved user without touching the provider.
func (b *Bridge) CurrentUser() (*User, bool) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.state != StateAuthenticated || b.user == nil {
		return nil, false
	}
	return b.user, true
}

// Resolve settles the session state from the persisted cookie, refreshing
// an expired token pair when possible. It returns the user when
// authenticated and nil otherwise; provider failures resolve to
// Unauthenticated rather than propagating.
func (b *Bridge) Resolve(ctx context.Context) *User {
	b.lock.Lock()
	if b.state == StateAuthenticated || b.state == StateUnauthenticated {
		user := b.user
		b.lock.Unlock()
		return user
	}
	b.state = StateLoading
	b.lock.Unlock()

	user := b.resolve(ctx)
	if user == nil {
		b.transition(StateUnauthenticated, nil)
	} else {
		b.transition(StateAuthenticated, user)
	}
	return user
}

func (b *Bridge) resolve(ctx context.Context) *User {
	var stored Session
	if !b.store.GetItem(b.sessionCookie, &stored) {
		return nil
	}

	if stored.Expired(b.nowTime()) {
		refreshed, err := b.provider.RefreshSession(ctx, stored.RefreshToken)
		if err != nil {
			log.Warn().Err(err).Msg("session refresh failed")
			return nil
		}
		if err := b.persist(refreshed); err != nil {
			log.Warn().Err(err).Msg("failed to persist refreshed session")
			return nil
		}
		stored = *refreshed
	}

	user, err := b.provider.GetUser(ctx, stored.AccessToken)
	if err != nil {
		log.Warn().Err(err).Msg("getUser failed, treating session as invalid")
		return nil
	}
	return user
}

// SignUp registers a new user with the provider. No session is created;
// the provider may require verification before the first sign-in.
func (b *Bridge) SignUp(ctx context.Context, email, password string, metadata Metadata) error {
	return b.provider.SignUp(ctx, email, password, metadata)
}

// SignInWithPassword signs in with email credentials and persists the
// resulting session.
func (b *Bridge) SignInWithPassword(ctx context.Context, email, password string) (*User, error) {
	session, err := b.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		b.transition(StateUnauthenticated, nil)
		return nil, errors.Wrap(err, "[SignInWithPassword] provider rejected credentials")
	}
	if err := b.persist(session); err != nil {
		return nil, errors.Wrap(err, "[SignInWithPassword] failed to persist session")
	}
	user := session.User
	b.transition(StateAuthenticated, &user)
	return &user, nil
}

// BeginOAuth generates a PKCE verifier, parks it in its cookie for the
// callback leg, and returns the provider URL to redirect the user to.
func (b *Bridge) BeginOAuth(ctx context.Context, oauthProvider, redirectTo string) (string, error) {
	verifier := oauth2.GenerateVerifier()
	if err := b.store.SetItem(b.verifierCookie, verifier); err != nil {
		return "", errors.Wrap(err, "[BeginOAuth] failed to store pkce verifier")
	}

	authURL, err := b.provider.SignInWithOAuth(ctx, oauthProvider, redirectTo, verifier)
	if err != nil {
		b.store.RemoveItem(b.verifierCookie)
		return "", errors.Wrap(err, "[BeginOAuth] provider rejected oauth start")
	}
	return authURL, nil
}

// ExchangeCode performs the one-time authorization-code exchange on the
// callback. Failure is soft: the error is returned for logging but the
// state settles to Unauthenticated so the redirect proceeds and the
// auth gate re-prompts sign-in.
func (b *Bridge) ExchangeCode(ctx context.Context, code string) error {
	var verifier string
	b.store.GetItem(b.verifierCookie, &verifier)

	session, err := b.provider.ExchangeCodeForSession(ctx, code, verifier)
	b.store.RemoveItem(b.verifierCookie)
	if err != nil {
		b.transition(StateUnauthenticated, nil)
		return errors.Wrap(err, "[ExchangeCode] exchange failed")
	}

	if err := b.persist(session); err != nil {
		b.transition(StateUnauthenticated, nil)
		return errors.Wrap(err, "[ExchangeCode] failed to persist session")
	}
	user := session.User
	b.transition(StateAuthenticated, &user)
	return nil
}

// SignOut revokes the session with the provider, then purges every
// locally duplicated cookie copy across the domain variants. Provider
// failures do not stop the purge; a half-done purge is the classic
// "stale session survives sign-out" bug.
func (b *Bridge) SignOut(ctx context.Context) error {
	var stored Session
	var signOutErr error
	if b.store.GetItem(b.sessionCookie, &stored) && stored.AccessToken != "" {
		if err := b.provider.SignOut(ctx, stored.AccessToken); err != nil {
			log.Warn().Err(err).Msg("provider sign-out failed, purging cookies anyway")
			signOutErr = err
		}
	}

	b.store.RemoveItem(b.sessionCookie)
	b.store.RemoveItem(b.verifierCookie)
	b.transition(StateUnauthenticated, nil)
	return signOutErr
}

// OnAuthStateChange registers a callback invoked with the current user
// (or nil) on every state transition. The returned function detaches
// exactly that subscriber; calling it more than once is harmless.
func (b *Bridge) OnAuthStateChange(callback func(*User)) (unsubscribe func()) {
	b.lock.Lock()
	defer b.lock.Unlock()

	id := uuid.New().String()
	b.subscribers[id] = callback

	return func() {
		b.lock.Lock()
		defer b.lock.Unlock()
		delete(b.subscribers, id)
	}
}

func (b *Bridge) persist(session *Session) error {
	return b.store.SetItem(b.sessionCookie, session)
}

func (b *Bridge) transition(state State, user *User) {
	b.lock.Lock()
	b.state = state
	b.user = user
	callbacks := make([]func(*User), 0, len(b.subscribers))
	for _, cb := range b.subscribers {
		callbacks = append(callbacks, cb)
	}
	b.lock.Unlock()

	for _, cb := range callbacks {
		cb(user)
	}
}
