package entity

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dwrignell/homesynth/internal/infrastructure/config"
)

// maxResponseBytes bounds how much of an API response is read.
// The full /api/states payload on a large installation is ~2 MB.
const maxResponseBytes = 16 << 20

// ServiceDomain describes the services registered under one domain,
// as reported by GET /api/services.
type ServiceDomain struct {
	Domain   string                    `json:"domain"`
	Services map[string]map[string]any `json:"services"`
}

// CheckResult is the outcome of the external config-check capability.
type CheckResult struct {
	OK     bool     `json:"ok"`
	Errors []string `json:"errors,omitempty"`
}

// Client is the HTTP boundary to the Home Assistant REST API.
//
// All methods retry transient failures with exponential backoff up to the
// configured attempt budget, then surface ErrTimeout. Reads are always
// safely retryable; writers decide their own retry policy.
//
// Thread Safety: all methods are safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	http    *http.Client

	attempts int
	backoff  time.Duration
}

// NewClient creates a Home Assistant API client from configuration.
//
// TLS certificate verification follows cfg.VerifySSL; disabling it is only
// appropriate for self-signed local installations.
func NewClient(cfg config.HomeAssistantConfig) *Client {
	transport := http.DefaultTransport
	if !cfg.VerifySSL {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // verify_ssl=false is an explicit operator choice
		transport = t
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		token:    cfg.Token,
		attempts: cfg.RetryAttempts,
		backoff:  cfg.BackoffInterval(),
		http: &http.Client{
			Timeout:   cfg.RequestTimeout(),
			Transport: transport,
		},
	}
}

// States fetches the current snapshot of every entity.
func (c *Client) States(ctx context.Context) ([]Record, error) {
	body, err := c.get(ctx, "/api/states")
	if err != nil {
		return nil, err
	}

	var records []Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decoding states: %w", err)
	}
	return records, nil
}

// State fetches the current snapshot of a single entity.
// Returns ErrNotFound if the runtime does not know the id.
func (c *Client) State(ctx context.Context, entityID string) (*Record, error) {
	if !ValidID(entityID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, entityID)
	}

	body, err := c.get(ctx, "/api/states/"+url.PathEscape(entityID))
	if err != nil {
		if errors.Is(err, errStatusNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, entityID)
		}
		return nil, err
	}

	var record Record
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, fmt.Errorf("decoding state: %w", err)
	}
	return &record, nil
}

// CallService invokes a service on the runtime (e.g., light.turn_on).
//
// The target entity id is merged into the service data. The response body
// (changed states) is returned raw for callers that want it.
func (c *Client) CallService(ctx context.Context, domain, service, target string, data map[string]any) (json.RawMessage, error) {
	if domain == "" || service == "" {
		return nil, fmt.Errorf("%w: domain and service are required", ErrInvalidID)
	}

	payload := make(map[string]any, len(data)+1)
	for k, v := range data {
		payload[k] = v
	}
	if target != "" {
		payload["entity_id"] = target
	}

	return c.post(ctx, "/api/services/"+url.PathEscape(domain)+"/"+url.PathEscape(service), payload)
}

// Services fetches the registry of services currently available on the
// runtime. The result is the dependency surface the Validator checks
// MissingDependency against.
func (c *Client) Services(ctx context.Context) ([]ServiceDomain, error) {
	body, err := c.get(ctx, "/api/services")
	if err != nil {
		return nil, err
	}

	var domains []ServiceDomain
	if err := json.Unmarshal(body, &domains); err != nil {
		return nil, fmt.Errorf("decoding services: %w", err)
	}
	return domains, nil
}

// CheckConfig invokes the runtime's configuration check against the merged
// staged+live configuration tree.
func (c *Client) CheckConfig(ctx context.Context) (*CheckResult, error) {
	body, err := c.post(ctx, "/api/config/core/check_config", nil)
	if err != nil {
		return nil, err
	}

	var response struct {
		Result string `json:"result"`
		Errors any    `json:"errors"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("decoding check_config response: %w", err)
	}

	result := &CheckResult{OK: response.Result == "valid"}
	if !result.OK {
		result.Errors = flattenCheckErrors(response.Errors)
	}
	return result, nil
}

// flattenCheckErrors normalises the runtime's loosely-typed errors field
// (string, list, or null) into a string slice.
func flattenCheckErrors(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	case []any:
		out := make([]string, 0, len(val))
		for _, e := range val {
			out = append(out, fmt.Sprint(e))
		}
		return out
	default:
		return []string{fmt.Sprint(val)}
	}
}

// errStatusNotFound marks a 404 so State() can map it to ErrNotFound.
var errStatusNotFound = errors.New("entity: status 404")

// get performs a GET with retry; post performs a POST with retry.
// Both return the response body on 2xx.

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	return c.doWithRetry(ctx, http.MethodGet, path, nil)
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
	}
	return c.doWithRetry(ctx, http.MethodPost, path, body)
}

// doWithRetry executes a request with bounded exponential backoff.
//
// Retryable failures: network errors, 5xx, and 429. A 4xx (other than 429)
// is surfaced immediately since retrying cannot change the outcome.
func (c *Client) doWithRetry(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var lastErr error
	backoff := c.backoff

	for attempt := 1; attempt <= c.attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		data, err := c.do(ctx, method, path, body)
		if err == nil {
			return data, nil
		}
		if !retryable(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrTimeout, c.attempts, lastErr)
}

// do executes a single request attempt.
func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Read side only

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return data, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, errStatusNotFound
	default:
		return nil, &statusError{method: method, path: path, code: resp.StatusCode}
	}
}

// statusError is a non-2xx response. It unwraps to ErrAPIStatus so callers
// can match it with errors.Is.
type statusError struct {
	method string
	path   string
	code   int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%v: %s %s returned %d", ErrAPIStatus, e.method, e.path, e.code)
}

func (e *statusError) Unwrap() error { return ErrAPIStatus }

// retryable reports whether an error is worth another attempt.
// Server-side statuses (5xx, 429) and network-level errors are transient;
// other HTTP statuses are not.
func retryable(err error) bool {
	if errors.Is(err, errStatusNotFound) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	return true
}
