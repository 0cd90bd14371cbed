package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// Connector is a JSON-first HTTP client shared by every outbound integration.
// Binary endpoints go through DoRawRequest, uploads through
// DoMultipartRequest.
type Connector struct {
	baseURL    string
	httpClient *http.Client
}

type ConnectorConfig struct {
	BaseURL string
}

func NewConnector(config *ConnectorConfig, options ...HttpOpts) *Connector {
	return &Connector{
		baseURL:    config.BaseURL,
		httpClient: newClient(options...),
	}
}

// RequestOpt adjusts a single request without touching the connector.
type RequestOpt func(*requestConfig)

type requestConfig struct {
	headers     map[string]string
	overrideURL string
}

func WithHeader(key, value string) RequestOpt {
	return func(c *requestConfig) {
		if c.headers == nil {
			c.headers = make(map[string]string)
		}
		c.headers[key] = value
	}
}

// WithURL sends the request to an absolute URL instead of baseURL+endpoint.
func WithURL(url string) RequestOpt {
	return func(c *requestConfig) {
		c.overrideURL = url
	}
}

func buildRequestConfig(opts []RequestOpt) *requestConfig {
	cfg := &requestConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (cfg *requestConfig) resolveURL(base, endpoint string) string {
	if cfg.overrideURL != "" {
		return cfg.overrideURL
	}
	return base + endpoint
}

// execute sends the request and returns the response body. Transport failures
// map to NetworkError, non-2xx statuses to HTTPError carrying the body.
func (c *Connector) execute(req *http.Request, headers map[string]string) ([]byte, error) {
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	return body, nil
}

func decodeJSON(data []byte, out any) error {
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// DoRequest sends reqBody as JSON and decodes the JSON response into
// respBody. Either side may be nil.
func (c *Connector) DoRequest(ctx context.Context, method, endpoint string, reqBody, respBody any, opts ...RequestOpt) error {
	cfg := buildRequestConfig(opts)

	var bodyReader io.Reader
	if reqBody != nil {
		payload, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
		// The log transport cannot re-read the request stream.
		ctx = context.WithValue(ctx, payloadContextKey{}, payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, cfg.resolveURL(c.baseURL, endpoint), bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.execute(req, cfg.headers)
	if err != nil {
		return err
	}
	return decodeJSON(body, respBody)
}

// DoMultipartRequest sends a multipart/form-data request. prepareBody writes
// the form fields and file parts; the connector closes the writer and decodes
// the JSON response into respBody.
func (c *Connector) DoMultipartRequest(ctx context.Context, method, endpoint string, prepareBody func(*multipart.Writer) error, respBody any, opts ...RequestOpt) error {
	cfg := buildRequestConfig(opts)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := prepareBody(writer); err != nil {
		return fmt.Errorf("prepare multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, cfg.resolveURL(c.baseURL, endpoint), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	respBytes, err := c.execute(req, cfg.headers)
	if err != nil {
		return err
	}
	return decodeJSON(respBytes, respBody)
}

// DoRawRequest sends reqBody as-is with the given content type and returns
// the raw response bytes. Used for endpoints that speak binary or non-JSON
// payloads, e.g. synthesized audio downloads and SSML uploads.
func (c *Connector) DoRawRequest(ctx context.Context, method, endpoint, contentType string, reqBody []byte, opts ...RequestOpt) ([]byte, error) {
	cfg := buildRequestConfig(opts)

	var bodyReader io.Reader
	if reqBody != nil {
		bodyReader = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, cfg.resolveURL(c.baseURL, endpoint), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	return c.execute(req, cfg.headers)
}

// HTTPError is a non-2xx response; Message holds the raw body.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// NetworkError is a transport-level failure: dial, timeout, reset.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
