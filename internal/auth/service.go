// Package auth owns the OAuth token lifecycle: obtaining, persisting and
// exposing the access credential and the associated user identity.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/oauth2"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/hokkyo/photoframe/backend/internal/crypto"
	"github.com/hokkyo/photoframe/backend/internal/model"
	"github.com/hokkyo/photoframe/backend/internal/store"
)

// AttemptTTL is the validity window of a pending authorization attempt.
// An attempt older than this is discarded, never exchanged.
const AttemptTTL = 5 * time.Minute

// Persisted key names, a compatibility surface like the settings keys.
const (
	keySessionUser  = "session.user"
	keySessionToken = "session.token"
	keyPendingCode  = "auth.pending_code"
	keyPendingAt    = "auth.pending_at"
	keyState        = "auth.state"
)

var (
	// ErrConfigurationMissing means the OAuth client credentials were not
	// supplied; sign-in cannot start.
	ErrConfigurationMissing = errors.New("auth: oauth client id or secret is not configured")

	// ErrUnauthenticated means no session is held.
	ErrUnauthenticated = errors.New("auth: not signed in")

	// ErrStateMismatch means the callback state did not match the one issued
	// at sign-in start.
	ErrStateMismatch = errors.New("auth: oauth state mismatch")
)

// TokenSetter receives the bearer token whenever the session changes. The
// drive lister implements it; tests use a fake.
type TokenSetter interface {
	SetToken(ctx context.Context, accessToken string) error
	ClearToken()
}

// Service manages the session lifecycle. It is constructed once at process
// start and injected into its consumers; the session it holds in memory is
// a cache of the store, guarded for concurrent readers.
type Service struct {
	oauthConfig *oauth2.Config
	store       store.Store
	encryptor   crypto.Encryptor
	lister      TokenSetter
	notifier    *Notifier

	// apiOpts are extra client options for the userinfo service; tests use
	// them to point at a local fake.
	apiOpts []option.ClientOption

	mu      sync.RWMutex
	session *model.Session
}

// NewService creates the auth service. The oauth2.Config is built by the
// caller from resolved configuration.
func NewService(cfg *oauth2.Config, st store.Store, enc crypto.Encryptor, lister TokenSetter, notifier *Notifier, apiOpts ...option.ClientOption) *Service {
	return &Service{
		oauthConfig: cfg,
		store:       st,
		encryptor:   enc,
		lister:      lister,
		notifier:    notifier,
		apiOpts:     apiOpts,
	}
}

// BeginSignIn clears any current session and pending attempt, then returns
// the authorization URL to redirect the user to. The caller's flow ends
// with that redirect; no session is produced synchronously.
func (s *Service) BeginSignIn(ctx context.Context, state string) (string, error) {
	if s.oauthConfig.ClientID == "" || s.oauthConfig.ClientSecret == "" {
		return "", ErrConfigurationMissing
	}

	s.dropSession()
	// The previous credential must not outlive the session it belonged to.
	s.lister.ClearToken()
	s.clearPending(ctx)

	if err := s.store.Set(ctx, keyState, state); err != nil {
		return "", fmt.Errorf("persist oauth state: %w", err)
	}

	url := s.oauthConfig.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
	return url, nil
}

// VerifyState checks a callback state against the one issued at sign-in
// start and consumes it.
func (s *Service) VerifyState(ctx context.Context, state string) error {
	stored, err := s.store.Get(ctx, keyState)
	if errors.Is(err, store.ErrNotFound) {
		return ErrStateMismatch
	}
	if err != nil {
		return fmt.Errorf("read oauth state: %w", err)
	}
	if err := s.store.Delete(ctx, keyState); err != nil {
		log.Printf("auth: failed to consume oauth state: %v", err)
	}
	if stored == "" || stored != state {
		return ErrStateMismatch
	}
	return nil
}

// CompleteSignIn exchanges an authorization code for a session. The attempt
// is recorded in the store first, so a crash mid-exchange can be recovered
// at next startup; the pending record is removed whatever the outcome.
// On token or profile failure the prior state is left unchanged.
func (s *Service) CompleteSignIn(ctx context.Context, code string) error {
	if err := s.store.Set(ctx, keyPendingCode, code); err != nil {
		return fmt.Errorf("record pending authorization: %w", err)
	}
	if err := s.store.Set(ctx, keyPendingAt, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("record pending authorization time: %w", err)
	}

	err := s.exchange(ctx, code)
	s.clearPending(ctx)
	return err
}

// exchange runs the code-for-token exchange, fetches the user profile and
// adopts the resulting session.
func (s *Service) exchange(ctx context.Context, code string) error {
	tok, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		log.Printf("auth: code exchange failed: %v", err)
		return fmt.Errorf("exchange authorization code: %w", err)
	}

	opts := append([]option.ClientOption{
		option.WithTokenSource(s.oauthConfig.TokenSource(ctx, tok)),
	}, s.apiOpts...)
	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		log.Printf("auth: userinfo service creation failed: %v", err)
		return fmt.Errorf("create userinfo service: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		log.Printf("auth: userinfo fetch failed: %v", err)
		return fmt.Errorf("fetch user profile: %w", err)
	}

	sess := &model.Session{
		User: model.User{
			ID:       info.Id,
			Email:    info.Email,
			Name:     info.Name,
			PhotoURL: info.Picture,
		},
		Token: model.Token{
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
			Expiry:       tok.Expiry,
		},
	}

	if err := s.persistSession(ctx, sess); err != nil {
		return err
	}
	return s.adopt(ctx, sess)
}

// SignOut clears the in-memory session and every persisted session and
// pending-attempt key. Best effort: failures are logged, never returned.
func (s *Service) SignOut(ctx context.Context) {
	s.dropSession()
	s.lister.ClearToken()

	for _, key := range []string{keySessionUser, keySessionToken, keyPendingCode, keyPendingAt, keyState} {
		if err := s.store.Delete(ctx, key); err != nil {
			log.Printf("auth: sign-out failed to clear %s: %v", key, err)
		}
	}
	s.notifier.Publish(EventSignedOut)
}

// CurrentUser returns the user portion of the session, if any.
func (s *Service) CurrentUser() (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return model.User{}, false
	}
	return s.session.User, true
}

// IsSignedIn reports whether a session is currently held.
func (s *Service) IsSignedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session != nil
}

// AccessToken returns a valid bearer token, refreshing an expired one when
// a refresh token is available. When no session is held, or the token is
// expired and cannot be refreshed, it returns ErrUnauthenticated.
func (s *Service) AccessToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	sess := s.session
	s.mu.RUnlock()

	if sess == nil {
		return "", ErrUnauthenticated
	}
	if !sess.Token.Expired() {
		return sess.Token.AccessToken, nil
	}
	if sess.Token.RefreshToken == "" {
		// Expired with no refresh grant: the session is unusable.
		log.Printf("auth: access token expired with no refresh token, signing out")
		s.SignOut(ctx)
		return "", ErrUnauthenticated
	}

	ts := s.oauthConfig.TokenSource(ctx, &oauth2.Token{
		RefreshToken: sess.Token.RefreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	})
	fresh, err := ts.Token()
	if err != nil {
		return "", fmt.Errorf("refresh access token: %w", err)
	}

	refreshed := &model.Session{
		User: sess.User,
		Token: model.Token{
			AccessToken:  fresh.AccessToken,
			RefreshToken: sess.Token.RefreshToken,
			Expiry:       fresh.Expiry,
		},
	}
	if fresh.RefreshToken != "" {
		refreshed.Token.RefreshToken = fresh.RefreshToken
	}

	if err := s.persistSession(ctx, refreshed); err != nil {
		log.Printf("auth: failed to persist refreshed token: %v", err)
	}
	s.mu.Lock()
	s.session = refreshed
	s.mu.Unlock()
	if err := s.lister.SetToken(ctx, refreshed.Token.AccessToken); err != nil {
		log.Printf("auth: failed to propagate refreshed token: %v", err)
	}

	return refreshed.Token.AccessToken, nil
}

// RestoreSession adopts a persisted session at startup. Partial state — a
// user without a token or vice versa — is treated as not authenticated.
func (s *Service) RestoreSession(ctx context.Context) error {
	userJSON, err := s.store.Get(ctx, keySessionUser)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read persisted user: %w", err)
	}

	tokenBlob, err := s.store.Get(ctx, keySessionToken)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read persisted token: %w", err)
	}

	tokenJSON, err := s.encryptor.Decrypt(ctx, tokenBlob)
	if err != nil {
		return fmt.Errorf("decrypt persisted token: %w", err)
	}

	sess := &model.Session{}
	if err := json.Unmarshal([]byte(userJSON), &sess.User); err != nil {
		return fmt.Errorf("unmarshal persisted user: %w", err)
	}
	if err := json.Unmarshal([]byte(tokenJSON), &sess.Token); err != nil {
		return fmt.Errorf("unmarshal persisted token: %w", err)
	}

	return s.adopt(ctx, sess)
}

// RecoverPendingAuthorization completes a leftover authorization attempt at
// startup. An attempt younger than AttemptTTL is exchanged; an older one is
// silently discarded — expiry is expected cleanup, not an error. The
// pending record is removed in every case, so each attempt is processed at
// most once.
func (s *Service) RecoverPendingAuthorization(ctx context.Context) error {
	code, err := s.store.Get(ctx, keyPendingCode)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read pending authorization: %w", err)
	}
	defer s.clearPending(ctx)

	atStr, err := s.store.Get(ctx, keyPendingAt)
	if err != nil {
		log.Printf("auth: pending authorization has no timestamp, discarding")
		return nil
	}
	initiatedAt, err := time.Parse(time.RFC3339, atStr)
	if err != nil {
		log.Printf("auth: pending authorization has malformed timestamp %q, discarding", atStr)
		return nil
	}

	attempt := model.AuthAttempt{Code: code, InitiatedAt: initiatedAt}
	if time.Since(attempt.InitiatedAt) >= AttemptTTL {
		log.Printf("auth: discarding expired authorization attempt from %s", attempt.InitiatedAt.Format(time.RFC3339))
		return nil
	}

	if err := s.exchange(ctx, attempt.Code); err != nil {
		// Already logged by exchange; recovery is best effort.
		return nil
	}
	return nil
}

// adopt installs the session in memory, propagates the token to the lister
// and announces the sign-in.
func (s *Service) adopt(ctx context.Context, sess *model.Session) error {
	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()

	if err := s.lister.SetToken(ctx, sess.Token.AccessToken); err != nil {
		return fmt.Errorf("propagate token to lister: %w", err)
	}
	s.notifier.Publish(EventSignedIn)
	return nil
}

func (s *Service) persistSession(ctx context.Context, sess *model.Session) error {
	userJSON, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	tokenJSON, err := json.Marshal(sess.Token)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	tokenBlob, err := s.encryptor.Encrypt(ctx, string(tokenJSON))
	if err != nil {
		return fmt.Errorf("encrypt token: %w", err)
	}

	if err := s.store.Set(ctx, keySessionUser, string(userJSON)); err != nil {
		return fmt.Errorf("persist user: %w", err)
	}
	if err := s.store.Set(ctx, keySessionToken, tokenBlob); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	return nil
}

func (s *Service) dropSession() {
	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()
}

func (s *Service) clearPending(ctx context.Context) {
	for _, key := range []string{keyPendingCode, keyPendingAt} {
		if err := s.store.Delete(ctx, key); err != nil {
			log.Printf("auth: failed to clear %s: %v", key, err)
		}
	}
}
