// Package session owns a client's access/refresh token pair and the
// authenticated request primitive built on it.
package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/jrsteele09/go-merch-storefront/internal/errors"
	"github.com/jrsteele09/go-merch-storefront/storage"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// State is the externally visible session state
type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// Manager holds the current token pair for one client. Managers built over the
// same storage namespace may share a flight group so that a visitor's
// concurrent 401s trigger a single refresh.
type Manager struct {
	repo      storage.Repo
	refresher Refresher
	client    Doer
	flight    *singleflight.Group

	mu     sync.RWMutex
	token  *oauth2.Token
	claims *UnverifiedClaims
}

type Option func(*Manager)

// WithHTTPClient sets the client used for authenticated requests
func WithHTTPClient(client Doer) Option {
	return func(m *Manager) {
		m.client = client
	}
}

// WithFlightGroup shares refresh coalescing between managers
func WithFlightGroup(group *singleflight.Group) Option {
	return func(m *Manager) {
		m.flight = group
	}
}

func NewManager(repo storage.Repo, refresher Refresher, opts ...Option) *Manager {
	m := &Manager{
		repo:      repo,
		refresher: refresher,
		client:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.flight == nil {
		m.flight = &singleflight.Group{}
	}
	return m
}

// Load rehydrates the session from storage. A stored token that cannot be
// decoded logs the client out.
func (m *Manager) Load() {
	access, ok, err := storage.GetOptional(m.repo, storage.KeyAccessToken)
	if err != nil {
		log.Warn().Err(err).Msg("session: reading stored access token")
		m.Logout()
		return
	}
	if !ok {
		return
	}

	claims, err := DecodeUnverified(access)
	if err != nil {
		log.Warn().Err(err).Msg("session: stored access token is invalid")
		m.Logout()
		return
	}

	refresh, _, err := storage.GetOptional(m.repo, storage.KeyRefreshToken)
	if err != nil {
		log.Warn().Err(err).Msg("session: reading stored refresh token")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = &oauth2.Token{AccessToken: access, RefreshToken: refresh, TokenType: "Bearer", Expiry: claims.ExpiresAt}
	m.claims = &claims
}

// Login commits a freshly issued token pair. An empty refreshToken keeps the
// one already held.
func (m *Manager) Login(accessToken, refreshToken string) error {
	if err := m.commit(&oauth2.Token{AccessToken: accessToken, RefreshToken: refreshToken, TokenType: "Bearer"}); err != nil {
		m.Logout()
		return err
	}
	return nil
}

// Logout clears the session from memory and storage
func (m *Manager) Logout() {
	m.mu.Lock()
	m.token = nil
	m.claims = nil
	m.mu.Unlock()

	for _, key := range []string{storage.KeyAccessToken, storage.KeyRefreshToken} {
		if err := m.repo.Remove(key); err != nil {
			log.Error().Err(err).Str("key", key).Msg("session: removing stored token")
		}
	}
}

func (m *Manager) State() State {
	if m.IsAuthenticated() {
		return Authenticated
	}
	return Unauthenticated
}

func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token != nil && m.token.AccessToken != ""
}

// Claims returns the decoded claims of the current access token
func (m *Manager) Claims() (UnverifiedClaims, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.claims == nil {
		return UnverifiedClaims{}, false
	}
	return *m.claims, true
}

// IsAdmin is for UI routing only
func (m *Manager) IsAdmin() bool {
	claims, ok := m.Claims()
	return ok && claims.IsAdmin()
}

func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == nil {
		return ""
	}
	return m.token.AccessToken
}

func (m *Manager) RefreshToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == nil {
		return ""
	}
	return m.token.RefreshToken
}

// Token returns a copy of the current token pair, or nil when logged out
func (m *Manager) Token() *oauth2.Token {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == nil {
		return nil
	}
	t := *m.token
	return &t
}

// RefreshAccessToken mints a new access token. It reports false on any
// failure and leaves the session untouched in that case.
func (m *Manager) RefreshAccessToken(ctx context.Context) bool {
	return m.refresh(ctx, m.AccessToken())
}

// refresh runs at most one refresh per refresh token at a time. sent is the
// access token the caller saw rejected; if storage already holds a different
// one, another request has refreshed and that token is adopted instead.
func (m *Manager) refresh(ctx context.Context, sent string) bool {
	if m.adoptNewer(sent) {
		return true
	}

	refreshToken := m.RefreshToken()
	key := "rt:" + refreshToken
	if refreshToken == "" {
		key = "at:" + sent
	}

	// the refresh outlives any single caller; the client timeout bounds it
	flightCtx := context.WithoutCancel(ctx)
	v, err, shared := m.flight.Do(key, func() (interface{}, error) {
		if m.adoptNewer(sent) {
			return m.Token(), nil
		}
		tok, err := m.refresher.Refresh(flightCtx, refreshToken)
		if err != nil {
			return nil, err
		}
		if err := m.commit(tok); err != nil {
			return nil, err
		}
		return m.Token(), nil
	})
	if err != nil {
		log.Warn().Err(err).Bool("shared", shared).Msg("session: refresh failed")
		return false
	}

	// a waiter may belong to another manager over the same storage
	if tok, ok := v.(*oauth2.Token); ok && tok != nil && tok.AccessToken != m.AccessToken() {
		if err := m.commitMemory(tok); err != nil {
			return false
		}
	}
	return true
}

// adoptNewer loads the stored access token when it differs from sent
func (m *Manager) adoptNewer(sent string) bool {
	if current := m.AccessToken(); current != "" && current != sent {
		return true
	}

	stored, ok, err := storage.GetOptional(m.repo, storage.KeyAccessToken)
	if err != nil || !ok || stored == "" || stored == sent {
		return false
	}
	refresh, _, _ := storage.GetOptional(m.repo, storage.KeyRefreshToken)
	return m.commitMemory(&oauth2.Token{AccessToken: stored, RefreshToken: refresh, TokenType: "Bearer"}) == nil
}

// commit decodes tok and then writes it to storage and memory together
func (m *Manager) commit(tok *oauth2.Token) error {
	claims, err := DecodeUnverified(tok.AccessToken)
	if err != nil {
		return err
	}

	next := *tok
	if next.RefreshToken == "" {
		next.RefreshToken = m.RefreshToken()
	}
	next.Expiry = claims.ExpiresAt

	if err := m.repo.Set(storage.KeyAccessToken, next.AccessToken); err != nil {
		return errors.Wrapf(err, "session: storing access token")
	}
	if next.RefreshToken != "" {
		if err := m.repo.Set(storage.KeyRefreshToken, next.RefreshToken); err != nil {
			return errors.Wrapf(err, "session: storing refresh token")
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = &next
	m.claims = &claims
	return nil
}

func (m *Manager) commitMemory(tok *oauth2.Token) error {
	claims, err := DecodeUnverified(tok.AccessToken)
	if err != nil {
		return err
	}
	next := *tok
	next.Expiry = claims.ExpiresAt

	m.mu.Lock()
	defer m.mu.Unlock()
	if next.RefreshToken == "" && m.token != nil {
		next.RefreshToken = m.token.RefreshToken
	}
	m.token = &next
	m.claims = &claims
	return nil
}

// Do sends req with the current access token as a bearer credential. A 401
// triggers one refresh and exactly one retry; the retried response is returned
// whatever its status. Transport failures are wrapped in ErrNetworkFailure and
// never retried.
func (m *Manager) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := ensureReplayable(req); err != nil {
		return nil, err
	}

	sent := m.AccessToken()
	resp, err := m.send(ctx, req, sent)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	drain(resp)

	if !m.refresh(ctx, sent) {
		log.Info().Str("url", req.URL.Redacted()).Msg("session expired")
		m.Logout()
		return nil, errors.ErrSessionExpired
	}

	return m.send(ctx, req, m.AccessToken())
}

func (m *Manager) send(ctx context.Context, req *http.Request, accessToken string) (*http.Response, error) {
	attempt := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("session: replaying request body: %w", err)
		}
		attempt.Body = body
	}
	if attempt.Header.Get("Content-Type") == "" && attempt.Body != nil {
		attempt.Header.Set("Content-Type", "application/json")
	}
	attempt.Header.Del("Authorization")
	if accessToken != "" {
		attempt.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := m.client.Do(attempt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrNetworkFailure, err)
	}
	return resp, nil
}

// ensureReplayable buffers a body that cannot be re-read for the retry
func ensureReplayable(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return nil
	}
	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return fmt.Errorf("session: buffering request body: %w", err)
	}
	req.Body = io.NopCloser(bytes.NewReader(data))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	return nil
}

// As binds the manager to a context so it can be passed where a Doer is
// expected.
func (m *Manager) As(ctx context.Context) Doer {
	return boundDoer{m: m, ctx: ctx}
}

type boundDoer struct {
	m   *Manager
	ctx context.Context
}

func (b boundDoer) Do(req *http.Request) (*http.Response, error) {
	return b.m.Do(b.ctx, req)
}
