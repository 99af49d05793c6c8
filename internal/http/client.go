package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultProbeTargets are the hosts yt-dlp talks to for a normal download.
var DefaultProbeTargets = []string{
	"https://www.youtube.com",
	"https://music.youtube.com",
	"https://i.ytimg.com",
}

// Client performs connectivity checks against the video hosts.
//
// Example usage:
//
//	client := NewClient()
//	result := client.Probe(ctx, "https://www.youtube.com")
//	if !result.Reachable {
//	    fmt.Println("offline:", result.Err)
//	}
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying client, e.g. for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client with a 10 second timeout and a "tubefetch"
// User-Agent.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		userAgent: "tubefetch",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ProbeResult is the outcome of a single reachability check.
type ProbeResult struct {
	URL        string
	FinalURL   string
	StatusCode int
	Latency    time.Duration
	Reachable  bool
	Err        error
}

func (r ProbeResult) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: unreachable (%v)", r.URL, r.Err)
	}
	return fmt.Sprintf("%s: HTTP %d in %s", r.URL, r.StatusCode, r.Latency.Round(time.Millisecond))
}

// Probe sends a HEAD request to url, following redirects.
//
// A status below 400 counts as reachable. Network failures are returned in
// ProbeResult.Err rather than as an error.
func (c *Client) Probe(ctx context.Context, url string) ProbeResult {
	result := ProbeResult{URL: url}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		result.Err = err
		return result
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	result.Latency = time.Since(start)
	if err != nil {
		result.Err = err
		return result
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	result.StatusCode = resp.StatusCode
	result.FinalURL = resp.Request.URL.String()
	result.Reachable = resp.StatusCode < http.StatusBadRequest
	return result
}

// ProbeAll probes every url concurrently and returns the results in input order.
func (c *Client) ProbeAll(ctx context.Context, urls []string) []ProbeResult {
	results := make([]ProbeResult, len(urls))

	var g errgroup.Group
	g.SetLimit(4)
	for i, url := range urls {
		g.Go(func() error {
			results[i] = c.Probe(ctx, url)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
