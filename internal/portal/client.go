package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Fetcher is the read side the caching stores depend on.
type Fetcher interface {
	ListCompanies(ctx context.Context) ([]Company, error)
	ListJobs(ctx context.Context) ([]Job, error)
}

// API is the full portal surface used by the app and CLI.
type API interface {
	Fetcher
	GetCompany(ctx context.Context, id int64) (*Company, error)
	GetJob(ctx context.Context, id int64) (*Job, error)
	ApplyToJob(ctx context.Context, id int64, app Application) (*ApplicationResult, error)
	SaveJob(ctx context.Context, id int64) error
	UnsaveJob(ctx context.Context, id int64) error
	UpdateJob(ctx context.Context, id int64, patch JobPatch) (*Job, error)
	SendContactMessage(ctx context.Context, msg ContactMessage) error
}

var _ API = (*Client)(nil)

// Client talks to the job portal HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	token     string
	details   *DetailCache
}

const (
	defaultBaseURL   = "127.0.0.1:8080"
	defaultUserAgent = "jobdeck/0.1"
	requestTimeout   = 10 * time.Second
	maxErrorBody     = 4 << 10
)

// Option customises a Client.
type Option func(*Client)

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithDetailCache enables short-lived caching of single-record lookups.
func WithDetailCache(d *DetailCache) Option {
	return func(c *Client) { c.details = d }
}

// NewClient builds a Client for baseURL, a host:port or full URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: requestTimeout},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalised API root.
func (c *Client) BaseURL() string {
	if c == nil || c.baseURL == nil {
		return ""
	}
	return c.baseURL.String()
}

// ListCompanies retrieves every company.
func (c *Client) ListCompanies(ctx context.Context) ([]Company, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/companies", nil, &raw); err != nil {
		return nil, err
	}
	items, err := decodeList[Company](raw)
	if err != nil {
		return nil, fmt.Errorf("decode companies: %w", err)
	}
	return items, nil
}

// ListJobs retrieves every job posting.
func (c *Client) ListJobs(ctx context.Context) ([]Job, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/jobs", nil, &raw); err != nil {
		return nil, err
	}
	items, err := decodeList[Job](raw)
	if err != nil {
		return nil, fmt.Errorf("decode jobs: %w", err)
	}
	return items, nil
}

// GetCompany retrieves one company.
func (c *Client) GetCompany(ctx context.Context, id int64) (*Company, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload Company
	if err := c.getDetail(ctx, companyPath(id), &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// GetJob retrieves one job posting.
func (c *Client) GetJob(ctx context.Context, id int64) (*Job, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload Job
	if err := c.getDetail(ctx, jobPath(id), &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// ApplyToJob submits an application for job id.
func (c *Client) ApplyToJob(ctx context.Context, id int64, app Application) (*ApplicationResult, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload ApplicationResult
	if err := c.do(ctx, http.MethodPost, jobPath(id)+"/apply", app, &payload); err != nil {
		return nil, err
	}
	c.details.invalidate(jobPath(id))
	if payload.JobID == 0 {
		payload.JobID = id
	}
	return &payload, nil
}

// SaveJob bookmarks job id.
func (c *Client) SaveJob(ctx context.Context, id int64) error {
	return c.write(ctx, http.MethodPost, jobPath(id)+"/save", jobPath(id))
}

// UnsaveJob removes the bookmark on job id.
func (c *Client) UnsaveJob(ctx context.Context, id int64) error {
	return c.write(ctx, http.MethodDelete, jobPath(id)+"/save", jobPath(id))
}

// UpdateJob patches a job posting and returns the server's copy.
func (c *Client) UpdateJob(ctx context.Context, id int64, patch JobPatch) (*Job, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload Job
	if err := c.do(ctx, http.MethodPatch, jobPath(id), patch, &payload); err != nil {
		return nil, err
	}
	c.details.invalidate(jobPath(id))
	return &payload, nil
}

// SendContactMessage posts the contact form.
func (c *Client) SendContactMessage(ctx context.Context, msg ContactMessage) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(msg.Email) == "" || strings.TrimSpace(msg.Message) == "" {
		return fmt.Errorf("email and message are required")
	}
	return c.do(ctx, http.MethodPost, "/api/contact", msg, nil)
}

func (c *Client) write(ctx context.Context, method, path, invalidates string) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if err := c.do(ctx, method, path, nil, nil); err != nil {
		return err
	}
	c.details.invalidate(invalidates)
	return nil
}

func (c *Client) getDetail(ctx context.Context, path string, dest any) error {
	if body, ok := c.details.get(path); ok {
		if err := json.Unmarshal(body, dest); err == nil {
			return nil
		}
		c.details.invalidate(path)
	}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	c.details.set(path, raw)
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	reqURL := c.baseURL.JoinPath(path)

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return newAPIError(method, path, resp)
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// APIError is returned for any response with status >= 400.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("api %s %s returned status %d", e.Method, e.Path, e.Status)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func newAPIError(method, path string, resp *http.Response) *APIError {
	apiErr := &APIError{Method: method, Path: path, Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		apiErr.Message = strings.TrimSpace(payload.Message)
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(payload.Error)
		}
	}
	return apiErr
}

// IsRetryable reports whether err is a transient transport failure or a
// server-side status worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 || apiErr.Status == http.StatusTooManyRequests
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsUnauthorized reports whether the server rejected the credentials.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
}

func companyPath(id int64) string { return "/api/companies/" + strconv.FormatInt(id, 10) }
func jobPath(id int64) string     { return "/api/jobs/" + strconv.FormatInt(id, 10) }

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api_url %q: missing host", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
