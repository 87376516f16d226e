// Package servicetitan is the adapter for the external field-service
// platform. It owns authentication, rate limiting, pagination, and decoding;
// callers only ever see typed records.
package servicetitan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"sales_command_center/platform/config"
	"sales_command_center/platform/logger"
)

const (
	defaultPageSize = 50

	// Tokens are refreshed this long before their reported expiry so an
	// in-flight request never carries a token that lapses mid-call.
	tokenExpirySkew = time.Minute

	// Fallback TTL when the token endpoint omits expires_in.
	defaultTokenTTL = 900 * time.Second
)

// Client talks to the field-service platform's REST API. All methods are safe
// for concurrent use.
type Client struct {
	cfg        config.ServiceTitanConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Logger

	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time

	tagMu    sync.Mutex
	tagTypes map[string]int64
}

// NewClient builds a client from configuration. The rate limiter bounds all
// outbound calls, token refreshes included.
func NewClient(cfg config.ServiceTitanConfig, log *logger.Logger) *Client {
	rps := cfg.GetSTRequestsPerSecond()
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.GetSTRequestTimeout()},
		limiter:    rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		log:        log,
	}
}

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Op         string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
}

// IsAuthFailure reports whether the error is a rejected-credentials response.
func IsAuthFailure(err error) bool {
	se, ok := err.(*StatusError)
	return ok && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// token returns a cached access token, fetching a fresh one when the cache is
// empty or within the expiry skew.
func (c *Client) token(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-tokenExpirySkew)) {
		return c.accessToken, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.cfg.GetSTClientID())
	form.Set("client_secret", c.cfg.GetSTClientSecret())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.GetSTAuthURL(), strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &StatusError{StatusCode: resp.StatusCode, Op: "token"}
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	ttl := defaultTokenTTL
	if tok.ExpiresIn > 0 {
		ttl = time.Duration(tok.ExpiresIn) * time.Second
	}
	c.accessToken = tok.AccessToken
	c.tokenExpiry = time.Now().Add(ttl)
	return c.accessToken, nil
}

// invalidateToken drops the cached token so the next call re-authenticates.
func (c *Client) invalidateToken() {
	c.tokenMu.Lock()
	c.accessToken = ""
	c.tokenExpiry = time.Time{}
	c.tokenMu.Unlock()
}

// tenantPath builds an API path scoped to the configured tenant, e.g.
// tenantPath("jpm/v2", "jobs") -> /jpm/v2/tenant/{tenant}/jobs.
func (c *Client) tenantPath(api, resource string) string {
	return fmt.Sprintf("/%s/tenant/%s/%s", api, c.cfg.GetSTTenantID(), resource)
}

// get performs an authenticated GET and decodes the JSON body into out.
// A 401 purges the token cache before returning so the next cycle starts
// with fresh credentials.
func (c *Client) get(ctx context.Context, op, path string, query url.Values, out interface{}) error {
	tok, err := c.token(ctx)
	if err != nil {
		return err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	endpoint := strings.TrimRight(c.cfg.GetSTBaseURL(), "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("ST-App-Key", c.cfg.GetSTAppKey())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		c.invalidateToken()
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		c.log.UpstreamError(op, fmt.Errorf("status %d", resp.StatusCode))
		return &StatusError{StatusCode: resp.StatusCode, Op: op}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// pagedResponse is the envelope every list endpoint wraps its results in.
type pagedResponse[T any] struct {
	Data    []T  `json:"data"`
	HasMore bool `json:"hasMore"`
}

// getAll walks a paginated list endpoint until hasMore is false or the page
// ceiling is hit. The ceiling keeps a runaway result set from pinning a cycle.
func getAll[T any](ctx context.Context, c *Client, op, path string, query url.Values) ([]T, error) {
	maxPages := c.cfg.GetSTMaxPages()
	if maxPages <= 0 {
		maxPages = 20
	}
	if query == nil {
		query = url.Values{}
	}
	query.Set("pageSize", fmt.Sprint(defaultPageSize))

	var all []T
	for page := 1; page <= maxPages; page++ {
		query.Set("page", fmt.Sprint(page))

		var resp pagedResponse[T]
		if err := c.get(ctx, op, path, query, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Data...)
		if !resp.HasMore {
			return all, nil
		}
	}
	c.log.Warn("pagination ceiling reached, result set truncated", "operation", op, "max_pages", maxPages)
	return all, nil
}
