package amocrm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/oktavaklaster/radario-amocrm/pkg/logging"
)

const defaultTokenSkew = 5 * time.Minute

// TokenProvider hands out bearer tokens. Refresh is called after a 401.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// TokenSet is the OAuth2 state of the integration. A zero ExpiresAt marks a
// long-lived token.
type TokenSet struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type OAuthConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// OAuthTokenProvider keeps tokens in a TokenStore and refreshes them through
// the account's oauth2/access_token endpoint. Refreshes are serialized.
type OAuthTokenProvider struct {
	cfg        OAuthConfig
	store      TokenStore
	httpClient *http.Client
	logger     *logging.Logger
	skew       time.Duration
	now        func() time.Time

	mu sync.Mutex
}

func NewOAuthTokenProvider(cfg OAuthConfig, store TokenStore, httpClient *http.Client, logger *logging.Logger) *OAuthTokenProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &OAuthTokenProvider{
		cfg:        cfg,
		store:      store,
		httpClient: httpClient,
		logger:     logger,
		skew:       defaultTokenSkew,
		now:        time.Now,
	}
}

// Seed stores the initial tokens unless the store already has some.
func (p *OAuthTokenProvider) Seed(ctx context.Context, tokens TokenSet) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.store.Load(ctx); err == nil {
		return nil
	} else if !errors.Is(err, ErrTokenNotFound) {
		return err
	}
	if tokens.AccessToken == "" && tokens.RefreshToken == "" {
		return nil
	}
	return p.store.Save(ctx, &tokens)
}

func (p *OAuthTokenProvider) AccessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tokens, err := p.store.Load(ctx)
	if err != nil && !errors.Is(err, ErrTokenNotFound) {
		return "", err
	}
	if tokens != nil && tokens.AccessToken != "" && !p.expired(tokens) {
		return tokens.AccessToken, nil
	}
	return p.refreshLocked(ctx, tokens)
}

func (p *OAuthTokenProvider) Refresh(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tokens, err := p.store.Load(ctx)
	if err != nil && !errors.Is(err, ErrTokenNotFound) {
		return "", err
	}
	return p.refreshLocked(ctx, tokens)
}

func (p *OAuthTokenProvider) expired(tokens *TokenSet) bool {
	if tokens.ExpiresAt.IsZero() {
		return false
	}
	return !p.now().Add(p.skew).Before(tokens.ExpiresAt)
}

func (p *OAuthTokenProvider) refreshLocked(ctx context.Context, current *TokenSet) (string, error) {
	if current == nil || current.RefreshToken == "" || p.cfg.ClientID == "" {
		return "", ErrRefreshUnavailable
	}

	body, err := json.Marshal(tokenRequest{
		ClientID:     p.cfg.ClientID,
		ClientSecret: p.cfg.ClientSecret,
		GrantType:    "refresh_token",
		RefreshToken: current.RefreshToken,
		RedirectURI:  p.cfg.RedirectURI,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.TokenURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("amocrm: token refresh request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		p.logger.Error("amocrm token refresh rejected", "status", resp.StatusCode, "body", string(respBody))
		return "", &APIError{Method: http.MethodPost, Path: "/oauth2/access_token", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var data tokenResponse
	if err := json.Unmarshal(respBody, &data); err != nil {
		return "", fmt.Errorf("amocrm: decode token response: %w", err)
	}
	if data.AccessToken == "" {
		return "", errors.New("amocrm: token response has no access_token")
	}

	next := &TokenSet{
		AccessToken:  data.AccessToken,
		RefreshToken: data.RefreshToken,
	}
	if next.RefreshToken == "" {
		next.RefreshToken = current.RefreshToken
	}
	if data.ExpiresIn > 0 {
		next.ExpiresAt = p.now().Add(time.Duration(data.ExpiresIn) * time.Second)
	}

	if err := p.store.Save(ctx, next); err != nil {
		return "", fmt.Errorf("amocrm: save refreshed token: %w", err)
	}

	p.logger.Info("amocrm token refreshed", "expires_at", next.ExpiresAt)
	return next.AccessToken, nil
}

// StaticTokenProvider serves a fixed long-lived token and cannot refresh.
type StaticTokenProvider string

func (s StaticTokenProvider) AccessToken(context.Context) (string, error) {
	if s == "" {
		return "", ErrTokenNotFound
	}
	return string(s), nil
}

func (s StaticTokenProvider) Refresh(context.Context) (string, error) {
	return "", ErrRefreshUnavailable
}
