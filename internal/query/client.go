// Package query is the transport boundary to the incident question backend.
package query

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"incidentdesk/internal/incident"
)

const (
	DefaultEndpoint = "http://localhost:7000/query"
	DefaultTimeout  = 60 * time.Second
	maxBodyBytes    = 4 << 20
)

// Client answers a question. Implementations return *Error on failure.
type Client interface {
	Query(ctx context.Context, question string) (*Response, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, question string) (*Response, error)

func (f ClientFunc) Query(ctx context.Context, question string) (*Response, error) {
	return f(ctx, question)
}

// Response is a validated success body. FormattedResponse is never empty.
type Response struct {
	FormattedResponse string                `json:"formatted_response"`
	RawData           *incident.QueryResult `json:"raw_data,omitempty"`
}

type queryRequest struct {
	Question string `json:"question"`
}

type Config struct {
	Endpoint string
	Timeout  time.Duration
	Logger   *slog.Logger
}

type HTTPClient struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPClient(cfg Config) *HTTPClient {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "query_client"),
	}
}

func (c *HTTPClient) Endpoint() string {
	return c.endpoint
}

// Query posts {"question": ...} and validates the reply.
func (c *HTTPClient) Query(ctx context.Context, question string) (*Response, error) {
	payload, err := json.Marshal(queryRequest{Question: question})
	if err != nil {
		return nil, transportError(errors.Wrap(err, "marshal query request"))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, transportError(errors.Wrap(err, "build query request"))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "query transport failed", "endpoint", c.endpoint, "error", err)
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, transportError(errors.Wrap(err, "read query response"))
	}
	c.logger.DebugContext(ctx, "query answered",
		"status", resp.StatusCode,
		"bytes", len(body),
		"elapsed_ms", time.Since(started).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, serverError(resp.StatusCode, serverMessage(body))
	}
	return decodeResponse(body)
}

func decodeResponse(body []byte) (*Response, error) {
	var parsed struct {
		FormattedResponse *string         `json:"formatted_response"`
		RawData           json.RawMessage `json:"raw_data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, malformedError(errors.Wrap(err, "decode query response"))
	}
	if parsed.FormattedResponse == nil || *parsed.FormattedResponse == "" {
		return nil, malformedError(errors.New("formatted_response missing"))
	}
	out := &Response{FormattedResponse: *parsed.FormattedResponse}
	raw := bytes.TrimSpace(parsed.RawData)
	if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		var result incident.QueryResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, malformedError(errors.Wrap(err, "decode raw_data"))
		}
		out.RawData = &result
	}
	return out, nil
}

// serverMessage picks "message", then a string "detail", from an error body.
func serverMessage(body []byte) string {
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	for _, key := range []string{"message", "detail"} {
		if text, ok := parsed[key].(string); ok && strings.TrimSpace(text) != "" {
			return text
		}
	}
	return ""
}

// Health is the backend's /health reply.
type Health struct {
	Status    string  `json:"status"`
	Timestamp float64 `json:"timestamp"`
}

func (h Health) Healthy() bool {
	return strings.EqualFold(strings.TrimSpace(h.Status), "healthy")
}

// Health probes the /health route that sits next to the query endpoint.
func (c *HTTPClient) Health(ctx context.Context) (Health, error) {
	endpoint, err := healthURL(c.endpoint)
	if err != nil {
		return Health{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Health{}, errors.Wrap(err, "build health request")
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Health{}, errors.Wrap(err, "health probe")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Health{}, errors.Newf("health probe returned status %d", resp.StatusCode)
	}
	var health Health
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&health); err != nil {
		return Health{}, errors.Wrap(err, "decode health response")
	}
	return health, nil
}

func healthURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", errors.Wrapf(err, "parse endpoint %q", endpoint)
	}
	p := strings.TrimRight(u.Path, "/")
	p = strings.TrimSuffix(p, "/raw")
	p = strings.TrimSuffix(p, "/query")
	u.Path = p + "/health"
	u.RawQuery = ""
	return u.String(), nil
}
