// Package client is a typed HTTP client for the promptvault API. It
// validates requests before submission, maps error envelopes onto
// APIError, and optionally caches read responses with invalidation on
// mutation.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jordanhubbard/promptvault/pkg/cache"
	"github.com/jordanhubbard/promptvault/pkg/models"
)

// APIError is a non-2xx response decoded from the server's error
// envelope. Responses without a parseable envelope get code
// UNKNOWN_ERROR and the HTTP status text as detail.
type APIError struct {
	Status int
	Code   string
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Detail)
}

// IsNotFound reports whether err is an APIError with code NOT_FOUND.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == "NOT_FOUND"
}

// IsConflict reports whether err is a lock-version conflict. Callers
// should re-fetch the prompt and retry with the fresh lock_version.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == "CONFLICT"
}

// IsValidation reports whether err is a client- or server-side
// validation rejection.
func IsValidation(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == "VALIDATION_ERROR" {
		return true
	}
	var verr *models.ValidationError
	return errors.As(err, &verr)
}

// Cache kinds for client-side response caching.
const (
	kindPrompt     = "prompt"
	kindPromptList = "prompt-list"
	kindDashboard  = "dashboard"
)

// Client talks to a promptvault server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *cache.Cache
	token      string
	apiKey     string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken attaches a bearer token to every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithAPIKey attaches an API key to every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithCache enables client-side response caching.
func WithCache(cfg *cache.Config) Option {
	return func(c *Client) { c.cache = cache.New(cfg) }
}

// New creates a client for the given base URL (e.g. "http://localhost:8080").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		cache:      cache.New(&cache.Config{Enabled: false}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token, e.g. after Login.
func (c *Client) SetToken(token string) { c.token = token }

// Login authenticates and stores the returned token on the client.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var resp struct {
		Token     string `json:"token"`
		ExpiresIn int64  `json:"expires_in"`
		Username  string `json:"username"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &resp); err != nil {
		return "", err
	}
	c.token = resp.Token
	return resp.Token, nil
}

// Health checks server liveness.
func (c *Client) Health(ctx context.Context) error {
	var resp map[string]string
	return c.do(ctx, http.MethodGet, "/api/health", nil, &resp)
}

// CreatePrompt creates a prompt. The request is validated locally
// first so malformed input never leaves the process.
func (c *Client) CreatePrompt(ctx context.Context, req *models.CreatePromptRequest) (*models.PromptDetail, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	detail := &models.PromptDetail{}
	if err := c.do(ctx, http.MethodPost, "/api/prompts", req, detail); err != nil {
		return nil, err
	}
	c.invalidate(ctx)
	return detail, nil
}

// GetPrompt fetches one prompt with its current version.
func (c *Client) GetPrompt(ctx context.Context, id string) (*models.PromptDetail, error) {
	key := cache.Key(kindPrompt, id, nil)
	detail := &models.PromptDetail{}
	if c.cache.Get(ctx, key, detail) {
		return detail, nil
	}
	if err := c.do(ctx, http.MethodGet, "/api/prompts/"+id, nil, detail); err != nil {
		return nil, err
	}
	c.cache.Set(ctx, key, detail, 0)
	return detail, nil
}

// ListPrompts fetches a page of prompts.
func (c *Client) ListPrompts(ctx context.Context, req *models.ListPromptsRequest) (*models.PromptList, error) {
	if req == nil {
		req = &models.ListPromptsRequest{}
	}

	q := url.Values{}
	if req.Category != "" {
		q.Set("category", string(req.Category))
	}
	if req.Search != "" {
		q.Set("search", req.Search)
	}
	if req.Page > 0 {
		q.Set("page", strconv.Itoa(req.Page))
	}
	if req.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(req.PageSize))
	}
	path := "/api/prompts"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	key := cache.Key(kindPromptList, "", req)
	list := &models.PromptList{}
	if c.cache.Get(ctx, key, list) {
		return list, nil
	}
	if err := c.do(ctx, http.MethodGet, path, nil, list); err != nil {
		return nil, err
	}
	c.cache.Set(ctx, key, list, 0)
	return list, nil
}

// UpdatePrompt applies a partial update. A stale LockVersion yields an
// APIError for which IsConflict returns true.
func (c *Client) UpdatePrompt(ctx context.Context, id string, req *models.UpdatePromptRequest) (*models.PromptDetail, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	detail := &models.PromptDetail{}
	if err := c.do(ctx, http.MethodPut, "/api/prompts/"+id, req, detail); err != nil {
		c.invalidateStale(ctx, err)
		return nil, err
	}
	c.invalidate(ctx)
	return detail, nil
}

// DeletePrompt soft-deletes a prompt.
func (c *Client) DeletePrompt(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/prompts/"+id, nil, nil); err != nil {
		c.invalidateStale(ctx, err)
		return err
	}
	c.invalidate(ctx)
	return nil
}

// ListVersions fetches a prompt's version history, newest first.
func (c *Client) ListVersions(ctx context.Context, promptID string) ([]*models.PromptVersion, error) {
	var versions []*models.PromptVersion
	if err := c.do(ctx, http.MethodGet, "/api/prompts/"+promptID+"/versions", nil, &versions); err != nil {
		return nil, err
	}
	return versions, nil
}

// GetVersion fetches one version by number.
func (c *Client) GetVersion(ctx context.Context, promptID string, versionNumber int) (*models.PromptVersion, error) {
	v := &models.PromptVersion{}
	path := fmt.Sprintf("/api/prompts/%s/versions/%d", promptID, versionNumber)
	if err := c.do(ctx, http.MethodGet, path, nil, v); err != nil {
		return nil, err
	}
	return v, nil
}

// RestoreVersion makes an old version's content current as a new version.
func (c *Client) RestoreVersion(ctx context.Context, promptID string, versionNumber int) (*models.PromptVersion, error) {
	v := &models.PromptVersion{}
	path := fmt.Sprintf("/api/prompts/%s/versions/%d/restore", promptID, versionNumber)
	if err := c.do(ctx, http.MethodPost, path, nil, v); err != nil {
		c.invalidateStale(ctx, err)
		return nil, err
	}
	c.invalidate(ctx)
	return v, nil
}

// Evaluate runs an AI evaluation of the prompt's current version and
// waits for the result.
func (c *Client) Evaluate(ctx context.Context, promptID string) (*models.Evaluation, error) {
	evaluation := &models.Evaluation{}
	if err := c.do(ctx, http.MethodPost, "/api/prompts/"+promptID+"/evaluate", nil, evaluation); err != nil {
		return nil, err
	}
	c.cache.InvalidateKind(ctx, kindPrompt)
	c.cache.InvalidateKind(ctx, kindDashboard)
	return evaluation, nil
}

// GetEvaluation fetches an evaluation with its criterion breakdown.
func (c *Client) GetEvaluation(ctx context.Context, id string) (*models.Evaluation, error) {
	evaluation := &models.Evaluation{}
	if err := c.do(ctx, http.MethodGet, "/api/evaluations/"+id, nil, evaluation); err != nil {
		return nil, err
	}
	return evaluation, nil
}

// Dashboard fetches category aggregates, optionally filtered.
func (c *Client) Dashboard(ctx context.Context, category models.PromptCategory) (*models.Dashboard, error) {
	path := "/api/evaluations/dashboard"
	if category != "" {
		path += "?category=" + url.QueryEscape(string(category))
	}

	key := cache.Key(kindDashboard, string(category), nil)
	dashboard := &models.Dashboard{}
	if c.cache.Get(ctx, key, dashboard) {
		return dashboard, nil
	}
	if err := c.do(ctx, http.MethodGet, path, nil, dashboard); err != nil {
		return nil, err
	}
	c.cache.Set(ctx, key, dashboard, 0)
	return dashboard, nil
}

// invalidate discards all cached reads after a prompt mutation.
func (c *Client) invalidate(ctx context.Context) {
	c.cache.InvalidateKind(ctx, kindPrompt)
	c.cache.InvalidateKind(ctx, kindPromptList)
	c.cache.InvalidateKind(ctx, kindDashboard)
}

// invalidateStale discards cached prompt reads when a rejected mutation
// proves them out of date: a CONFLICT means a newer lock_version exists
// on the server, a NOT_FOUND means the prompt is gone. Keeping the
// cached copy would make the re-fetch-then-retry recovery loop serve the
// same stale lock_version until TTL expiry.
func (c *Client) invalidateStale(ctx context.Context, err error) {
	if IsConflict(err) || IsNotFound(err) {
		c.cache.InvalidateKind(ctx, kindPrompt)
		c.cache.InvalidateKind(ctx, kindPromptList)
	}
}

// do executes one request and decodes the response into out (unless
// out is nil or the response is 204).
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeError turns a non-2xx response into an APIError, falling back
// to UNKNOWN_ERROR when the body is not a valid envelope.
func decodeError(resp *http.Response) error {
	apiErr := &APIError{
		Status: resp.StatusCode,
		Code:   "UNKNOWN_ERROR",
		Detail: http.StatusText(resp.StatusCode),
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apiErr
	}

	var envelope struct {
		Code   string `json:"code"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil {
		if envelope.Code != "" {
			apiErr.Code = envelope.Code
		}
		if envelope.Detail != "" {
			apiErr.Detail = envelope.Detail
		}
	}
	return apiErr
}
