// Package credential owns the vendor OAuth token lifecycle: a cached
// {access, refresh, expiry} triple in durable storage, refreshed transparently
// a safety margin before expiry or when the vendor rejects a token mid-call.
package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNoToken: no cached token and no refresh path. The caller must not
// proceed to a vendor call.
var ErrNoToken = errors.New("no vendor token available; run `locksync token import` first")

// SafetyMargin keeps a token from expiring mid-flight.
const SafetyMargin = 60 * time.Second

type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

func (t Token) Valid(now time.Time) bool {
	return t.AccessToken != "" && now.Before(t.ExpiresAt.Add(-SafetyMargin))
}

// Store persists the single cached token. Load returns a zero Token when
// nothing is stored yet.
type Store interface {
	Load(ctx context.Context) (Token, error)
	Save(ctx context.Context, t Token) error
}

type Manager struct {
	store        Store
	hc           *http.Client
	oauthHost    string
	clientID     string
	clientSecret string
	now          func() time.Time
}

func NewManager(store Store, oauthHost, clientID, clientSecret string, timeout time.Duration) *Manager {
	return &Manager{
		store:        store,
		hc:           &http.Client{Timeout: timeout},
		oauthHost:    strings.TrimRight(oauthHost, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		now:          time.Now,
	}
}

// Token returns a valid access token, refreshing first if the cached one is
// within the safety margin of expiry.
func (m *Manager) Token(ctx context.Context) (string, error) {
	tok, err := m.store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	if tok.Valid(m.now()) {
		return tok.AccessToken, nil
	}
	return m.refresh(ctx, tok)
}

// Refresh forces a refresh exchange, discarding any cached access token. Used
// when the vendor rejected the token we just sent.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	tok, err := m.store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	return m.refresh(ctx, tok)
}

func (m *Manager) refresh(ctx context.Context, tok Token) (string, error) {
	if tok.RefreshToken == "" {
		return "", ErrNoToken
	}

	form := url.Values{
		"client_id":     {m.clientID},
		"client_secret": {m.clientSecret},
		"grant_type":    {"refresh_token"},
		"refresh_token": {tok.RefreshToken},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.oauthHost+"/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := m.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("token refresh: %w", err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("token refresh: %w", err)
	}
	if res.StatusCode >= 400 {
		return "", fmt.Errorf("token refresh: http %d: %s", res.StatusCode, string(body))
	}

	var grant struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &grant); err != nil {
		return "", fmt.Errorf("token refresh: invalid response: %w", err)
	}
	if grant.AccessToken == "" {
		return "", fmt.Errorf("token refresh: no access_token in response: %s", string(body))
	}
	if grant.ExpiresIn == 0 {
		grant.ExpiresIn = 7200
	}
	if grant.RefreshToken == "" {
		// some deployments keep the refresh token stable across exchanges
		grant.RefreshToken = tok.RefreshToken
	}

	next := Token{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ExpiresAt:    m.now().Add(time.Duration(grant.ExpiresIn) * time.Second),
	}
	if err := m.store.Save(ctx, next); err != nil {
		return "", fmt.Errorf("persist refreshed token: %w", err)
	}
	return next.AccessToken, nil
}
