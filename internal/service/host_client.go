package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mongods/internal/core"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// HostError is a non-successful answer from the host API.
type HostError struct {
	StatusCode int
	Message    string
}

func (e *HostError) Error() string {
	return fmt.Sprintf("host returned %d: %s", e.StatusCode, e.Message)
}

// HostClient implements core.QueryBackend on top of the host's HTTP API.
type HostClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHostClient(baseURL, token string, timeout time.Duration) *HostClient {
	return &HostClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HostClient) QueryData(ctx context.Context, req *core.QueryDataRequest) (*core.QueryDataResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode query request: %w", err)
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, "/api/ds/query", req.RequestID, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("forward query: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read query response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HostError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	var result core.QueryDataResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode query response: %w", err)
	}
	if result.Results == nil {
		result.Results = map[string]json.RawMessage{}
	}
	return &result, nil
}

// CheckHealth asks the host to run the backend health check. A failed check
// that the host reports with a status is returned as a result, not an error.
func (c *HostClient) CheckHealth(ctx context.Context, datasourceUID string) (*core.HealthResult, error) {
	path := "/api/datasources/uid/" + url.PathEscape(datasourceUID) + "/health"
	httpReq, err := c.newRequest(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read health response: %w", err)
	}

	var result core.HealthResult
	if json.Unmarshal(respBody, &result) == nil && result.Status != "" {
		return &result, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HostError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}
	return nil, fmt.Errorf("health check: unexpected response %q", strings.TrimSpace(string(respBody)))
}

func (c *HostClient) newRequest(ctx context.Context, method, path, requestID string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build host request: %w", err)
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set("X-Request-Id", requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// errorMessage extracts {"message": ...} from a host error body, falling back
// to the raw text.
func errorMessage(body []byte) string {
	var msg struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &msg) == nil && msg.Message != "" {
		return msg.Message
	}
	return strings.TrimSpace(string(body))
}
