// Package graph is a thin Microsoft Graph REST client. It deliberately
// avoids the generated SDK surface: audit modules only ever need GET
// with OData paging, and an opaque map payload keeps the rule engine's
// view of the data identical to what the API returned.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"entrascan/internal/ui"
)

const (
	defaultBaseURL = "https://graph.microsoft.com/v1.0"
	graphScope     = "https://graph.microsoft.com/.default"

	// maxPages caps nextLink traversal so a misbehaving endpoint
	// cannot keep a scan alive forever.
	maxPages = 500

	tokenRefreshMargin = 5 * time.Minute
)

// Credentials selects how the client authenticates. With all three
// fields set it uses the client-credentials flow; otherwise it falls
// back to the Azure SDK's default credential chain (CLI login, managed
// identity, environment).
type Credentials struct {
	TenantID     string
	ClientID     string
	ClientSecret string
}

// Client issues authenticated GET requests against Microsoft Graph.
// Safe for concurrent use.
type Client struct {
	baseURL string
	httpc   *http.Client
	cred    azcore.TokenCredential
	verbose bool

	mu      sync.Mutex
	token   azcore.AccessToken
	scopes  []string
	retries int
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the Graph endpoint, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// WithTokenCredential injects a credential, bypassing the default
// chain. Tests use this with a static fake.
func WithTokenCredential(cred azcore.TokenCredential) Option {
	return func(c *Client) { c.cred = cred }
}

// WithVerbose logs each request URL and retry decision.
func WithVerbose(v bool) Option {
	return func(c *Client) { c.verbose = v }
}

// NewClient builds a Graph client from the given credentials.
func NewClient(creds Credentials, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL: defaultBaseURL,
		httpc:   &http.Client{Timeout: 60 * time.Second},
		scopes:  []string{graphScope},
		retries: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cred == nil {
		cred, err := buildCredential(creds)
		if err != nil {
			return nil, err
		}
		c.cred = cred
	}
	return c, nil
}

func buildCredential(creds Credentials) (azcore.TokenCredential, error) {
	if creds.TenantID != "" && creds.ClientID != "" && creds.ClientSecret != "" {
		cred, err := azidentity.NewClientSecretCredential(creds.TenantID, creds.ClientID, creds.ClientSecret, nil)
		if err != nil {
			return nil, fmt.Errorf("client secret credential: %w", err)
		}
		return cred, nil
	}
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("default azure credential: %w", err)
	}
	return cred, nil
}

// bearer returns a token, fetching a new one when the cached token is
// missing or within the refresh margin of expiry. force discards the
// cache, used after a 401.
func (c *Client) bearer(ctx context.Context, force bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !force && c.token.Token != "" && time.Until(c.token.ExpiresOn) > tokenRefreshMargin {
		return c.token.Token, nil
	}
	tok, err := c.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: c.scopes})
	if err != nil {
		return "", fmt.Errorf("acquire graph token: %w", err)
	}
	c.token = tok
	return tok.Token, nil
}

// Get fetches a single resource. The path may be relative to the base
// URL ("/organization") or an absolute URL such as an @odata.nextLink.
func (c *Client) Get(ctx context.Context, path string) (map[string]any, error) {
	body, err := c.doGet(ctx, c.resolve(path))
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode graph response for %s: %w", path, err)
	}
	return out, nil
}

// GetAll fetches a collection, following @odata.nextLink until the
// collection is exhausted.
func (c *Client) GetAll(ctx context.Context, path string) ([]map[string]any, error) {
	var items []map[string]any
	next := c.resolve(path)
	for page := 0; next != ""; page++ {
		if page >= maxPages {
			return nil, fmt.Errorf("graph collection %s exceeded %d pages", path, maxPages)
		}
		doc, err := c.Get(ctx, next)
		if err != nil {
			return nil, err
		}
		values, _ := doc["value"].([]any)
		for _, v := range values {
			if m, ok := v.(map[string]any); ok {
				items = append(items, m)
			}
		}
		next, _ = doc["@odata.nextLink"].(string)
	}
	return items, nil
}

func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// doGet performs the request with the retry ladder: 401 forces a
// single token refresh, 429 and 5xx honor Retry-After up to the retry
// budget.
func (c *Client) doGet(ctx context.Context, url string) ([]byte, error) {
	refreshed := false
	forceToken := false
	for attempt := 0; ; attempt++ {
		tok, err := c.bearer(ctx, forceToken)
		if err != nil {
			return nil, err
		}
		forceToken = false
		if c.verbose {
			ui.PrintMessage(ui.Debug, "GET %s", url)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("build graph request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpc.Do(req)
		if err != nil {
			return nil, fmt.Errorf("graph request %s: %w", url, err)
		}
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("read graph response %s: %w", url, readErr)
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return body, nil
		case resp.StatusCode == http.StatusUnauthorized && !refreshed:
			// One shot at a fresh token; a second 401 is a real
			// permissions problem.
			refreshed = true
			forceToken = true
			continue
		case (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500) && attempt < c.retries:
			wait := retryAfter(resp, attempt)
			if c.verbose {
				ui.PrintMessage(ui.Warn, "graph returned %d, retrying in %s", resp.StatusCode, wait)
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			continue
		default:
			return nil, &APIError{Status: resp.StatusCode, URL: url, Body: apiErrorMessage(body)}
		}
	}
}

func retryAfter(resp *http.Response, attempt int) time.Duration {
	if s := resp.Header.Get("Retry-After"); s != "" {
		if secs, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Duration(1<<attempt) * time.Second
}

// APIError is a non-retryable Graph error response.
type APIError struct {
	Status int
	URL    string
	Body   string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("graph API %d for %s: %s", e.Status, e.URL, e.Body)
	}
	return fmt.Sprintf("graph API %d for %s", e.Status, e.URL)
}

// apiErrorMessage pulls the human-readable message out of a Graph
// error envelope, falling back to a truncated raw body.
func apiErrorMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		if envelope.Error.Code != "" {
			return envelope.Error.Code + ": " + envelope.Error.Message
		}
		return envelope.Error.Message
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
