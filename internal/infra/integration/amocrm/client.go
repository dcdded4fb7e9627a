// Package amocrm talks to the amoCRM v4 REST API.
package amocrm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/oktavaklaster/radario-amocrm/internal/config"
	"github.com/oktavaklaster/radario-amocrm/pkg/logging"
)

const maxErrorBody = 2048

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenProvider
	limiter    *rate.Limiter
	schema     LeadSchema
	logger     *logging.Logger
}

type Option func(*Client)

// WithBaseURL points the client at another API root, e.g. an httptest server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

func WithLimiter(limiter *rate.Limiter) Option {
	return func(c *Client) { c.limiter = limiter }
}

func NewClient(cfg config.AmoCRMConfig, tokens TokenProvider, logger *logging.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RPS
	if rps <= 0 {
		rps = 7
	}

	c := &Client{
		baseURL:    cfg.BaseURL(),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		limiter:    rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		schema:     SchemaFromConfig(cfg),
		logger:     logger.With("component", "amocrm"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Schema() LeadSchema {
	return c.schema
}

// do sends one API call. A 401 triggers a single token refresh and retry; a
// second 401 is an AuthError. 204 leaves out untouched.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("amocrm: encode %s %s: %w", method, path, err)
		}
	}

	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return &AuthError{Err: err}
	}

	status, respBody, err := c.send(ctx, method, path, payload, token)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized {
		c.logger.Warn("amocrm rejected token, refreshing", "method", method, "path", path)
		if token, err = c.tokens.Refresh(ctx); err != nil {
			return &AuthError{Err: err}
		}
		if status, respBody, err = c.send(ctx, method, path, payload, token); err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			return &AuthError{}
		}
	}

	if status < 200 || status >= 300 {
		apiErr := &APIError{Method: method, Path: path, StatusCode: status, Body: truncateBody(respBody)}
		c.logger.Error("amocrm request failed", "method", method, "path", path, "status", status, "body", apiErr.Body)
		return apiErr
	}

	if status == http.StatusNoContent || out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("amocrm: decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, token string) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, err
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("amocrm: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("amocrm: read %s %s: %w", method, path, err)
	}
	return resp.StatusCode, body, nil
}

func truncateBody(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody])
	}
	return string(body)
}

// IsAuthError reports whether err ends the sync because credentials are dead.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}
