// Package pipeline is the client for the external analysis pipeline service,
// which fetches a subject's recent casts, scores engagement, clusters themes
// and generates coaching feedback. Its result is opaque to this API except
// for the resolved subject identity at the top level.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Sentinel errors for pipeline client failures.
var (
	ErrPipelineUnavailable = errors.New("pipeline unreachable")
	ErrPipelineTimeout     = errors.New("pipeline timeout")
	ErrPipelineError       = errors.New("pipeline error")
	ErrSubjectNotFound     = errors.New("subject not found")
)

// Subject identifies the account to analyze: a numeric fid when known,
// otherwise a username the pipeline resolves itself.
type Subject struct {
	FID      int64
	Username string
}

// Result is a completed pipeline run. Payload is the service's full response
// body, stored and served verbatim.
type Result struct {
	FID      int64
	Username string
	Payload  json.RawMessage
}

// Client is the interface for running the analysis pipeline.
type Client interface {
	Run(ctx context.Context, subject Subject) (*Result, error)
}

// HTTPClient implements Client against the pipeline service's HTTP API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClient creates a new pipeline HTTP client.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Run(ctx context.Context, subject Subject) (*Result, error) {
	params := url.Values{}
	if subject.FID > 0 {
		params.Set("fid", strconv.FormatInt(subject.FID, 10))
	} else {
		params.Set("username", subject.Username)
	}

	u := fmt.Sprintf("%s/v1/analysis?%s", c.baseURL, params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrSubjectNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", ErrPipelineError, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading pipeline response: %w", err)
	}

	// Peek only at the resolved subject identity; the rest stays opaque.
	var probe struct {
		User struct {
			FID      int64  `json:"fid"`
			Username string `json:"username"`
		} `json:"user"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("decoding pipeline response: %w", err)
	}
	if probe.User.FID <= 0 {
		return nil, fmt.Errorf("%w: response missing user.fid", ErrPipelineError)
	}

	return &Result{
		FID:      probe.User.FID,
		Username: probe.User.Username,
		Payload:  json.RawMessage(body),
	}, nil
}

// classifyError maps transport errors onto the sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrPipelineTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrPipelineTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrPipelineUnavailable, err)
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
