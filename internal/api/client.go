// Package api implements the typed HTTP transport for the AgonX backend:
// envelope decoding, bearer injection from an injected credential source,
// and the single place where HTTP failures are translated into the shared
// error taxonomy.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doAIs/AgonX/internal/auth"
	agonerrors "github.com/doAIs/AgonX/internal/errors"
	"github.com/doAIs/AgonX/internal/httpclient"
	"github.com/doAIs/AgonX/internal/logging"
)

const defaultMaxBodyBytes = 8 << 20

// envelope is the wire shape of every non-streaming response.
type envelope[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// errorBody is the shape of FastAPI-style error responses.
type errorBody struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
}

// Page is the paginated payload carried inside an envelope.
type Page[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// Options configures a Client.
type Options struct {
	BaseURL      string
	Timeout      time.Duration
	Credentials  auth.CredentialSource
	Logger       logging.Logger
	MaxBodyBytes int64

	// OnAuthError runs after a 401 translation, once the credential has
	// been invalidated. The CLI uses it to prompt for re-login.
	OnAuthError func()

	// HTTPClient overrides the default breaker-guarded client (tests).
	HTTPClient *http.Client
}

// Client is the typed transport. All request shaping, auth header
// injection, and error translation happens here; callers deal in domain
// types and taxonomy errors only.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	streamClient *http.Client
	creds        auth.CredentialSource
	logger       logging.Logger
	maxBodyBytes int64
	onAuthError  func()
}

// NewClient builds a transport against the given base URL.
func NewClient(opts Options) *Client {
	logger := logging.OrNop(opts.Logger)
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = httpclient.NewWithCircuitBreaker(opts.Timeout, logger, "agonx-api")
	}

	// Streaming requests share the transport (and its breaker) but must not
	// be bounded by the per-request timeout, which would sever long turns.
	streamClient := &http.Client{Transport: httpClient.Transport}

	maxBody := opts.MaxBodyBytes
	if maxBody == 0 {
		maxBody = defaultMaxBodyBytes
	}

	creds := opts.Credentials
	if creds == nil {
		creds = auth.NewStaticToken("")
	}

	return &Client{
		baseURL:      base,
		httpClient:   httpClient,
		streamClient: streamClient,
		creds:        creds,
		logger:       logger,
		maxBodyBytes: maxBody,
		onAuthError:  opts.OnAuthError,
	}
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Get issues a GET request and decodes the envelope data into T.
func Get[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	return roundTrip[T](ctx, c, http.MethodGet, path, query, nil)
}

// Post issues a POST request with a JSON body and decodes the envelope data into T.
func Post[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	return roundTrip[T](ctx, c, http.MethodPost, path, nil, body)
}

// Put issues a PUT request with a JSON body and decodes the envelope data into T.
func Put[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	return roundTrip[T](ctx, c, http.MethodPut, path, nil, body)
}

// Delete issues a DELETE request, discarding any envelope data.
func Delete(ctx context.Context, c *Client, path string) error {
	_, err := roundTrip[json.RawMessage](ctx, c, http.MethodDelete, path, nil, nil)
	return err
}

func roundTrip[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any) (T, error) {
	var zero T

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return zero, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := c.newRequest(ctx, method, path, query, reader)
	if err != nil {
		return zero, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return zero, c.wrapTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := httpclient.ReadAllWithLimit(resp.Body, c.maxBodyBytes)
	if err != nil {
		return zero, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return zero, c.translateStatus(resp.StatusCode, data)
	}

	var env envelope[T]
	if err := json.Unmarshal(data, &env); err != nil {
		return zero, fmt.Errorf("decode response: %w", err)
	}
	return env.Data, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if token := c.creds.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// wrapTransportError classifies failures that produced no HTTP response.
func (c *Client) wrapTransportError(err error) error {
	var netErr *agonerrors.NetworkError
	if errors.As(err, &netErr) {
		return err
	}
	return &agonerrors.NetworkError{Err: err}
}

// translateStatus is the single point where HTTP statuses become taxonomy
// errors. A 401 additionally invalidates the credential and fires the auth
// hook so the caller can redirect to login.
func (c *Client) translateStatus(status int, body []byte) error {
	detail := parseErrorDetail(body)

	switch {
	case status == http.StatusUnauthorized:
		if err := c.creds.Invalidate(); err != nil {
			c.logger.Warn("failed to invalidate credential: %v", err)
		}
		if c.onAuthError != nil {
			c.onAuthError()
		}
		return &agonerrors.AuthError{Message: detail}

	case status == http.StatusForbidden:
		return &agonerrors.ForbiddenError{Message: detail}

	case status == http.StatusNotFound:
		return &agonerrors.NotFoundError{Message: detail}

	case status >= 400 && status < 500:
		return &agonerrors.ValidationError{StatusCode: status, Detail: detail}

	default:
		return &agonerrors.ServerError{StatusCode: status, Message: detail}
	}
}

func parseErrorDetail(body []byte) string {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Detail != "" {
			return parsed.Detail
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return ""
}
