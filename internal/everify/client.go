package everify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// maxResponseBytes caps how much of a response body we keep for display.
const maxResponseBytes = 4 << 20

// Client sends single JSON POSTs to the eVerify API. It never retries.
type Client struct {
	HTTP *http.Client
}

type ClientConfig struct {
	Timeout time.Duration
	// Optional base transport, e.g. for tests.
	Transport http.RoundTripper
}

func NewClient(cfg ClientConfig) *Client {
	h := &http.Client{Transport: cfg.Transport}
	if cfg.Timeout > 0 {
		h.Timeout = cfg.Timeout
	}
	return &Client{HTTP: h}
}

// Post marshals payload, sends it and returns the status and raw body.
// When bearer is non-empty the request goes through an oauth2 transport
// that sets "Authorization: Bearer <bearer>".
func (c *Client) Post(ctx context.Context, url string, payload any, bearer string) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient(bearer).Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return res.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return res.StatusCode, raw, nil
}

func (c *Client) httpClient(bearer string) *http.Client {
	base := c.HTTP
	if base == nil {
		base = http.DefaultClient
	}
	if bearer == "" {
		return base
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: bearer, TokenType: "Bearer"})
	return &http.Client{
		Transport:     &oauth2.Transport{Source: src, Base: base.Transport},
		Timeout:       base.Timeout,
		CheckRedirect: base.CheckRedirect,
		Jar:           base.Jar,
	}
}
