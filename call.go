package authflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const maxResponseBytes = 10 << 20

// Call executes one logical authenticated call.
//
// The current access credential, when present, is attached as a bearer
// header. A 401 response triggers exactly one refresh followed by exactly
// one re-dispatch; a 401 on the retry surfaces as an error wrapping
// [ErrUnauthorized] rather than starting a second refresh. A 401 with no
// refresh credential clears the stored pair and returns
// [ErrReauthRequired]. Transport failures, timeouts, and non-401 error
// statuses propagate without any retry.
func (c *Client) Call(ctx context.Context, req Request) (*Response, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	if req.Method == "" || req.Path == "" {
		return nil, errors.New("request method and path are required")
	}
	if req.Header.Get("Authorization") != "" {
		return nil, ErrAuthorizationHeaderReserved
	}

	start := time.Now()

	resp, err := c.dispatch(ctx, req, c.keeper.access())
	if err != nil {
		c.metrics.Inc(MetricCallTransportError)
		return nil, err
	}
	if resp.Status != http.StatusUnauthorized {
		return c.finish(resp, start)
	}

	c.metrics.Inc(MetricCallUnauthorized)

	// no refresh is attempted here; only the 401 counter moves
	if c.keeper.refreshToken() == "" {
		c.keeper.clear(ctx)
		return nil, fmt.Errorf("%w: no refresh credential", ErrReauthRequired)
	}

	access, err := c.refreshCredentials(ctx)
	if err != nil {
		return nil, err
	}

	c.metrics.Inc(MetricCallRetried)
	resp, err = c.dispatch(ctx, req, access)
	if err != nil {
		c.metrics.Inc(MetricCallTransportError)
		return nil, err
	}
	return c.finish(resp, start)
}

func (c *Client) finish(resp *Response, start time.Time) (*Response, error) {
	if resp.Status >= 200 && resp.Status < 300 {
		c.metrics.Inc(MetricCallSuccess)
		c.metrics.Observe(MetricCallLatency, time.Since(start))
		return resp, nil
	}

	if resp.Status == http.StatusUnauthorized {
		c.metrics.Inc(MetricCallUnauthorized)
	} else {
		c.metrics.Inc(MetricCallServerError)
	}
	return nil, apiErrorFrom(resp)
}

// dispatch performs one HTTP round trip. It owns header assembly and body
// handling but no retry or refresh policy.
func (c *Client) dispatch(ctx context.Context, req Request, access string) (*Response, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.HTTP.RequestTimeout)
		defer cancel()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL.JoinPath(req.Path).String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("User-Agent", c.config.HTTP.UserAgent)
	if httpReq.Header.Get("X-Request-ID") == "" {
		if id := requestIDFromContext(ctx); id != "" {
			httpReq.Header.Set("X-Request-ID", id)
		} else {
			httpReq.Header.Set("X-Request-ID", uuid.NewString())
		}
	}
	if access != "" {
		httpReq.Header.Set("Authorization", "Bearer "+access)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("dispatch %s %s: %w", req.Method, req.Path, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return &Response{
		Status: httpResp.StatusCode,
		Header: httpResp.Header.Clone(),
		Body:   data,
	}, nil
}

func apiErrorFrom(resp *Response) *APIError {
	out := &APIError{Status: resp.Status}

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(resp.Body, &payload) == nil {
		out.Code = payload.Error
		out.Message = payload.Message
	}
	if out.Message == "" {
		out.Message = http.StatusText(resp.Status)
	}
	return out
}
