package greq

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const defaultRetryDelay = 250 * time.Millisecond

// Client issues the HTTP request of a merged, substituted test. The
// underlying http.Client is a collaborator; this layer adds the timeout,
// retry and rate-limit policy and normalizes the outcome into a Response.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewClient builds a client with the given options.
func NewClient(options ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{},
		retryDelay: defaultRetryDelay,
		logger:     slog.Default(),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Do executes the test's request. Transport failures and timeouts are
// retried up to number-of-retries times with a fixed delay; the test's
// timeout applies to each attempt. The returned latency spans send-start
// to header-complete.
func (c *Client) Do(ctx context.Context, t *Test) (*Response, error) {
	httpReq, err := c.buildRequest(ctx, t)
	if err != nil {
		return nil, err
	}

	attempts := int(t.Header.NumberOfRetries) + 1
	timeout := time.Duration(t.Header.TimeoutMillis) * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, wrapError(KindHTTPTransport, t.Path, err)
			}
		}

		resp, err := c.doOnce(ctx, httpReq, timeout)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		c.logger.Debug("request attempt failed",
			"path", t.Path, "attempt", attempt, "of", attempts, "error", err)

		if attempt < attempts {
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return nil, wrapError(KindHTTPTransport, t.Path, ctx.Err())
			}
		}
	}

	kind := KindHTTPTransport
	if errors.Is(lastErr, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	return nil, wrapError(kind, t.Path, lastErr)
}

// doOnce performs a single attempt under its own timeout.
func (c *Client) doOnce(ctx context.Context, req *http.Request, timeout time.Duration) (*Response, error) {
	attemptCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	attemptReq := req.Clone(attemptCtx)
	if req.GetBody != nil {
		// Each attempt needs a fresh body reader.
		fresh, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		attemptReq.Body = fresh
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(attemptReq)
	latency := time.Since(start)
	if err != nil {
		return nil, err
	}
	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    headersFromHTTP(httpResp.Header),
		Body:       body,
		Latency:    latency,
	}, nil
}

// buildRequest assembles the outgoing request: scheme from is-http, host
// from the host header, path and query from the URI, headers with
// original casing (values under one name in insertion order; the order
// of distinct names is left to net/http), body verbatim.
func (c *Client) buildRequest(ctx context.Context, t *Test) (*http.Request, error) {
	u, err := requestURL(t)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if len(t.Content.Body) > 0 {
		body = bytes.NewReader(t.Content.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, t.Content.Method, u.String(), body)
	if err != nil {
		return nil, newError(KindInvalidRequestLine, t.Path, "cannot build request: %v", err)
	}

	for _, e := range t.Content.Headers.Entries() {
		if strings.EqualFold(e.Name, "host") {
			httpReq.Host = e.Value
			continue
		}
		// Direct map assignment keeps the file's original casing;
		// http.Header.Add would canonicalize it.
		httpReq.Header[e.Name] = append(httpReq.Header[e.Name], e.Value)
	}

	return httpReq, nil
}

// requestURL derives the target URL. A URI that already carries a host
// (or port) keeps it; otherwise the host header supplies it, with the
// default port implied by the scheme.
func requestURL(t *Test) (*url.URL, error) {
	u, err := url.Parse(t.Content.URI)
	if err != nil {
		return nil, newError(KindInvalidRequestLine, t.Path, "cannot parse URI %q: %v", t.Content.URI, err)
	}
	if u.Scheme == "" {
		if t.Header.IsHTTP {
			u.Scheme = "http"
		} else {
			u.Scheme = "https"
		}
	}
	if u.Host == "" {
		host, _ := t.Content.Headers.Get("host")
		u.Host = host
	}
	return u, nil
}

// headersFromHTTP converts a net/http header map, keeping duplicate
// values in order. Names are visited sorted for determinism; net/http
// has already lost the wire order.
func headersFromHTTP(h http.Header) *HeaderMap {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	m := NewHeaderMap()
	for _, name := range names {
		for _, value := range h[name] {
			m.Add(name, value)
		}
	}
	return m
}
