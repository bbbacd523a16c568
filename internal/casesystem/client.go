package casesystem

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL   = "https://api.casesystem.example/v1"
	defaultUserAgent = "lawfirm-intake/1.0"
	maxErrorBody     = 4 << 10
)

// Config controls how the case system client behaves.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
	UserAgent  string
}

// Client wraps the case system REST endpoints used by lead intake. Every
// method performs exactly one HTTP call; retry policy belongs to the caller.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	userAgent  string
}

// New creates a configured Client. The bearer credential is fixed for the
// lifetime of the client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrAPIKeyRequired
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
		userAgent:  userAgent,
	}, nil
}

// CreateCase registers a new case and returns the identifier assigned by the case system.
func (c *Client) CreateCase(ctx context.Context, req CaseRequest) (*Case, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("casesystem: marshal case request: %w", err)
	}
	data, err := c.invoke(ctx, http.MethodPost, "/cases", nil, body)
	if err != nil {
		return nil, err
	}
	return decodeCase(data)
}

// ListCasesByContact returns the cases already open for a contact.
func (c *Client) ListCasesByContact(ctx context.Context, contact string) (*CaseList, error) {
	if strings.TrimSpace(contact) == "" {
		return nil, errors.New("casesystem: contact required")
	}
	q := url.Values{}
	q.Set("contact", contact)
	data, err := c.invoke(ctx, http.MethodGet, "/cases", q, nil)
	if err != nil {
		return nil, err
	}
	return decodeCaseList(data)
}

func (c *Client) invoke(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path, query), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("casesystem: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("casesystem: http error: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("casesystem: read response: %w", err)
	}
	c.logger.Debug("case system call",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}
	return nil, decodeAPIError(resp.StatusCode, data)
}

func (c *Client) buildURL(path string, query url.Values) string {
	full := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		full = full + "?" + query.Encode()
	}
	return full
}

func decodeAPIError(status int, body []byte) error {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	var parsed APIError
	if err := json.Unmarshal(body, &parsed); err != nil {
		parsed = APIError{Detail: strings.TrimSpace(string(body))}
	}
	parsed.StatusCode = status
	parsed.Kind = KindForStatus(status)
	return &parsed
}
