// Package reputation queries the external reputation registry that gates
// phase-1 voting eligibility.
package reputation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"satin/contexts/community/review-service/ports"
)

const defaultEndpoint = "http://127.0.0.1:8700/reputation"

// Client resolves cumulative reputation scores over HTTP.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

type Option func(*Client)

func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		endpoint:   defaultEndpoint,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ ports.ReputationLookup = (*Client)(nil)

type scoreResponse struct {
	Address    string  `json:"address"`
	Reputation float64 `json:"reputation"`
}

func (c *Client) Score(ctx context.Context, voterAddress string) (float64, error) {
	target := c.endpoint + "?address=" + url.QueryEscape(strings.ToLower(voterAddress))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, fmt.Errorf("build reputation request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("call reputation registry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("reputation registry returned status %d", resp.StatusCode)
	}

	var decoded scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return 0, fmt.Errorf("decode reputation response: %w", err)
	}
	return decoded.Reputation, nil
}
