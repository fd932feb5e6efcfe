// Package ioclient is an HTTP client for external JSON services. All
// requests share one token bucket and a per-request timeout.
package ioclient

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gnames/gnfmt"
	gntree "github.com/gnames/gntree/pkg"
	"github.com/gnames/gntree/pkg/config"
	"golang.org/x/time/rate"
)

// Client sends paced GET requests.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	timeout time.Duration
}

// New creates a Client from service settings.
func New(cfg config.ServicesConfig) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:    &http.Client{},
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		timeout: timeout,
	}
}

// Get waits for its turn, requests the endpoint with query parameters
// and returns the body of a successful response.
func (c *Client) Get(
	ctx context.Context,
	endpoint string,
	params url.Values,
) ([]byte, error) {
	u := endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, RequestError(u, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, RequestError(u, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "gntree/"+gntree.Version)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, RequestError(u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ResponseError(u, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, RequestError(u, err)
	}
	slog.Debug("External request", "url", u,
		"duration", gnfmt.TimeString(time.Since(start).Seconds()))
	return body, nil
}
