package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/plateful/plateful/internal/common"
)

// TokenProvider supplies the bearer credential attached to every call.
// It is implemented by the auth service.
type TokenProvider func(ctx context.Context) (string, error)

// Options configures an HTTPClient.
type Options struct {
	BaseURL       string
	CuratorID     string
	TokenProvider TokenProvider
	HTTPClient    *http.Client
	MaxRetries    uint64
	BaseDelay     time.Duration
}

// HTTPClient implements Client against the remote store's JSON API.
//
// Transient failures (network errors, timeouts, 5xx) are retried with a
// bounded fibonacci backoff. Create payloads carry the localId, which the
// server uses as an idempotency key, so a replayed create cannot produce a
// second remote row.
type HTTPClient struct {
	baseURL       string
	curatorID     string
	tokenProvider TokenProvider
	httpClient    *http.Client
	maxRetries    uint64
	baseDelay     time.Duration
}

// NewHTTPClient returns a gateway client with defaults applied.
func NewHTTPClient(opts Options) *HTTPClient {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	maxRetries := opts.MaxRetries
	if maxRetries == 0 {
		maxRetries = 2
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 200 * time.Millisecond
	}
	return &HTTPClient{
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		curatorID:     opts.CuratorID,
		tokenProvider: opts.TokenProvider,
		httpClient:    httpClient,
		maxRetries:    maxRetries,
		baseDelay:     baseDelay,
	}
}

func (c *HTTPClient) Close() error { return nil }

// do executes one JSON request with auth headers and transient retry.
// out may be nil when the response body is irrelevant.
func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any, authed bool) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	var token string
	if authed && c.tokenProvider != nil {
		var err error
		if token, err = c.tokenProvider(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrUnauthorized, err)
		}
	}

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewFibonacci(c.baseDelay))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.curatorID != "" {
			req.Header.Set(common.CuratorIDHeaderName, c.curatorID)
		}
		if token != "" {
			req.Header.Set(common.AccessTokenHeaderName, "Bearer "+token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("%w: %w", ErrUnavailable, err))
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("%w: %w", ErrUnavailable, err))
		}

		if mapped := mapStatus(resp.StatusCode, errorDetail(respBody)); mapped != nil {
			if isRetriable(resp.StatusCode) {
				return retry.RetryableError(mapped)
			}
			return mapped
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("%w: malformed response: %w", ErrUnavailable, err)
			}
		}
		return nil
	})
}

func isRetriable(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
}

// errorDetail extracts the server's error message, falling back to raw text.
func errorDetail(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}

// Login authenticates the curator and returns a bearer token. Token issuance
// itself is the auth collaborator's business; this is only its transport.
func (c *HTTPClient) Login(ctx context.Context, curatorID string, password []byte) (string, error) {
	req := struct {
		CuratorID string `json:"curatorId"`
		Password  string `json:"password"`
	}{CuratorID: curatorID, Password: string(password)}

	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/auth/login", req, &resp, false); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// Ping checks remote liveness without authentication.
func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/v1/ping", nil, nil, false)
}

// FetchSnapshot downloads the recent remote state used for duplicate and
// ownership detection.
func (c *HTTPClient) FetchSnapshot(ctx context.Context) ([]RemoteRecord, error) {
	var resp struct {
		Records []RemoteRecord `json:"records"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/records/snapshot", nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

// BulkSync submits one batch of grouped operations and returns the
// structured per-item outcome.
func (c *HTTPClient) BulkSync(ctx context.Context, req *BulkRequest) (*BulkResponse, error) {
	var resp BulkResponse
	if err := c.do(ctx, http.MethodPost, "/v1/records/bulk", req, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateRecord creates one record and returns the server-assigned id.
func (c *HTTPClient) CreateRecord(ctx context.Context, payload RecordPayload) (string, error) {
	var resp struct {
		RemoteID string `json:"remoteId"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/records", payload, &resp, true); err != nil {
		return "", err
	}
	return resp.RemoteID, nil
}

// UpdateRecord replaces the remote row addressed by remoteID.
func (c *HTTPClient) UpdateRecord(ctx context.Context, remoteID string, payload RecordPayload) error {
	return c.do(ctx, http.MethodPut, "/v1/records/"+remoteID, payload, nil, true)
}

// DeleteRecord deletes the remote row addressed by remoteID.
func (c *HTTPClient) DeleteRecord(ctx context.Context, remoteID string) error {
	return c.do(ctx, http.MethodDelete, "/v1/records/"+remoteID, nil, nil, true)
}
