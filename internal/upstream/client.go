// Package upstream is the HTTP transport to the remote recipe service.
// It owns request construction, bearer authentication, and decoding;
// it never retries and never caches.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/msomdec/recipe-console/internal/domain"
)

// DefaultBaseURL is the public recipe API the console is built against.
const DefaultBaseURL = "https://dummyjson.com"

// Metrics receives one record per completed upstream request. A zero
// status means the request never produced a response.
type Metrics interface {
	RecordUpstreamRequest(method string, status int, duration time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) RecordUpstreamRequest(string, int, time.Duration) {}

// Client talks to the remote recipe API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit caps outbound requests per second with a burst of the
// same size. Zero or negative disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1)
		}
	}
}

// WithMetrics installs a request recorder.
func WithMetrics(m Metrics) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewClient creates a Client for the given base URL. An empty baseURL
// falls back to DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		metrics:    noopMetrics{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoginResult is the upstream response to a successful login.
type LoginResult struct {
	domain.User
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Login exchanges credentials for a token pair and user summary.
// No bearer token is attached to this call.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	body := map[string]string{"username": username, "password": password}
	var out LoginResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me fetches the profile of the account the token belongs to.
func (c *Client) Me(ctx context.Context, token string) (*domain.User, error) {
	var out domain.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", token, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRecipes fetches one page of the collection. A non-empty search term
// routes to the search endpoint; limit, skip, sortBy and order are
// preserved either way.
func (c *Client) ListRecipes(ctx context.Context, token string, query domain.ListQuery) (*domain.RecipeList, error) {
	q := query.Normalize()
	path := "/recipes"
	values := q.Values()
	if q.Q != "" {
		path = "/recipes/search"
		values.Set("q", q.Q)
	}

	var out domain.RecipeList
	if err := c.do(ctx, http.MethodGet, path, token, values, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRecipe fetches a single recipe by id.
func (c *Client) GetRecipe(ctx context.Context, token string, id int) (*domain.Recipe, error) {
	var out domain.Recipe
	if err := c.do(ctx, http.MethodGet, "/recipes/"+strconv.Itoa(id), token, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateRecipe submits a new recipe and returns the created entity.
func (c *Client) CreateRecipe(ctx context.Context, token string, draft domain.RecipeDraft) (*domain.Recipe, error) {
	var out domain.Recipe
	if err := c.do(ctx, http.MethodPost, "/recipes/add", token, nil, draft, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateRecipe PUTs a partial update and returns the updated entity.
func (c *Client) UpdateRecipe(ctx context.Context, token string, id int, patch domain.RecipePatch) (*domain.Recipe, error) {
	var out domain.Recipe
	if err := c.do(ctx, http.MethodPut, "/recipes/"+strconv.Itoa(id), token, nil, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteRecipe deletes a recipe by id.
func (c *Client) DeleteRecipe(ctx context.Context, token string, id int) (*domain.DeleteReceipt, error) {
	var out domain.DeleteReceipt
	if err := c.do(ctx, http.MethodDelete, "/recipes/"+strconv.Itoa(id), token, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do issues one request and decodes the response into out. Non-2xx
// responses become *Error carrying the server's message when present.
func (c *Client) do(ctx context.Context, method, path, token string, query url.Values, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordUpstreamRequest(method, 0, time.Since(start))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.metrics.RecordUpstreamRequest(method, resp.StatusCode, time.Since(start))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode}
		var payload struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &payload) == nil {
			apiErr.Message = payload.Message
		}
		slog.Debug("upstream request failed", "method", method, "path", path, "status", resp.StatusCode)
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
