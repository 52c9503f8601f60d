package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"example.com/backstage/services/tenders/config"
	"example.com/backstage/services/tenders/internal/apperrors"
	"example.com/backstage/services/tenders/internal/metrics"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// PrincipalHeader carries the acting user to internal services
const PrincipalHeader = "X-Principal"

// statusError is a non-2xx answer from an internal service
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return http.StatusText(e.StatusCode) + ": " + e.Body
}

type jsonClient struct {
	name       string
	baseURL    string
	httpClient *http.Client
}

func newJSONClient(name string, cfg config.ClientConfig) *jsonClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	transport := &http.Transport{
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &jsonClient{
		name:    name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: newrelic.NewRoundTripper(transport),
		},
	}
}

// do sends body as JSON and decodes the answer into out. Non-2xx answers
// are returned as *statusError so callers can classify them.
func (c *jsonClient) do(ctx context.Context, method, path, actor string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return apperrors.Internal(err, "failed to marshal %s request", c.name)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperrors.Internal(err, "failed to create %s request", c.name)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != "" {
		req.Header.Set(PrincipalHeader, actor)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.GetMetricsCollector().RecordRemoteCall(c.name, false, time.Since(start))
		return apperrors.External(err, "%s call %s %s failed", c.name, method, path)
	}
	defer resp.Body.Close()
	metrics.GetMetricsCollector().RecordRemoteCall(c.name, resp.StatusCode < 300, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &statusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.External(err, "failed to decode %s response", c.name)
	}
	return nil
}
