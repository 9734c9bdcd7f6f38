// Package httpclient executes a single resolved HTTP request against a
// host and parses its response body JSON-then-text, the same contract
// the original implementation's HttpClient.execute_request exposes.
// Transport construction — h2c, standard HTTP/2 with ALPN fallback, TLS
// verification — follows the teacher's attacker.Engine.Attack wiring.
package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/http2"

	"github.com/Amr-9/saylrun/pkg/models"
)

// Request is a fully-resolved HTTP call: every {{...}} placeholder in
// the URL, headers, and body has already been substituted.
type Request struct {
	Method  models.HTTPMethod
	URL     string
	Headers map[string]string
	Body    any
}

// Response is the parsed outcome of one HTTP round trip.
type Response struct {
	StatusCode     int
	Headers        map[string]string
	Body           any
	RawBody        []byte
	Proto          string
	ResponseTimeMs float64
}

// Client wraps an *http.Client configured for one host.
type Client struct {
	http *http.Client
}

// NewClient builds a Client from a HostConfig, choosing between a
// cleartext HTTP/2 (h2c) transport and a standard transport with
// automatic HTTP/2 negotiation, mirroring the teacher's Attack method.
func NewClient(host models.HostConfig) *Client {
	timeout := host.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var rt http.RoundTripper
	if host.H2C {
		rt = &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				return (&net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}).DialContext(ctx, network, addr)
			},
		}
	} else {
		transport := &http.Transport{
			TLSClientConfig:     &tls.Config{InsecureSkipVerify: !host.VerifySSL},
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			MaxConnsPerHost:     100,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   !host.DisableHTTP2,
			DialContext:         (&net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		}
		if !host.DisableHTTP2 {
			_ = http2.ConfigureTransport(transport)
		}
		rt = transport
	}

	return &Client{http: &http.Client{Timeout: timeout, Transport: rt}}
}

// Do executes one resolved HTTP request and returns its parsed response.
// A timeout surfaces as a wrapped context.DeadlineExceeded-style error;
// any other transport failure is wrapped with the raw request context.
func (c *Client) Do(ctx context.Context, req Request) (Response, error) {
	start := time.Now()

	body, err := encodeBody(req.Body)
	if err != nil {
		return Response{}, fmt.Errorf("encoding request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, string(req.Method), req.URL, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("building request: %w", err)
	}

	httpReq.Header.Set("User-Agent", "saylrun/1.0")
	httpReq.Header.Set("Accept", "*/*")
	if len(body) > 0 {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.http.Do(httpReq)
	elapsed := time.Since(start)
	if err != nil {
		if isTimeout(err) {
			return Response{}, fmt.Errorf("request timeout after %s: %w", c.http.Timeout, err)
		}
		return Response{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("reading response body: %w", err)
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	return Response{
		StatusCode:     resp.StatusCode,
		Headers:        headers,
		Body:           parseBody(raw),
		RawBody:        raw,
		Proto:          resp.Proto,
		ResponseTimeMs: float64(elapsed.Microseconds()) / 1000.0,
	}, nil
}

// Preflight verifies a target is reachable before a load test starts,
// via HEAD falling back to GET, matching the teacher's PreflightCheck.
func Preflight(ctx context.Context, url string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("building preflight request: %w", err)
		}
	}
	req.Header.Set("User-Agent", "saylrun/1.0 Preflight")

	resp, err := client.Do(req)
	if err != nil && req.Method == http.MethodHead {
		getReq, gerr := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if gerr == nil {
			getReq.Header.Set("User-Agent", "saylrun/1.0 Preflight")
			resp, err = client.Do(getReq)
		}
	}
	if err != nil {
		return fmt.Errorf("target unreachable: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return nil
}

// parseBody tries to decode raw as JSON, falling back to the raw string,
// the same "json-then-text" contract as the original client.
func parseBody(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err == nil {
		return v
	}
	return string(raw)
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	if s, ok := body.(string); ok {
		return []byte(s), nil
	}
	return json.Marshal(body)
}

func isTimeout(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "timeout") ||
		strings.Contains(strings.ToLower(err.Error()), "deadline exceeded")
}
