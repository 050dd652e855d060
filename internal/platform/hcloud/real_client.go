package hcloud

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/imamik/k3zner/internal/config"
	"github.com/imamik/k3zner/internal/metrics"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

const publicIPURL = "https://ipv4.icanhazip.com"

// RealClient implements InfrastructureManager using the Hetzner Cloud API.
type RealClient struct {
	client     *hcloud.Client
	timeouts   *config.Timeouts
	httpClient *http.Client
	events     Events
	metrics    *metrics.Recorder
	endpoint   string
}

// ClientOption configures a RealClient.
type ClientOption func(*RealClient)

// WithTimeouts sets custom timeouts for the client.
func WithTimeouts(t *config.Timeouts) ClientOption {
	return func(c *RealClient) {
		c.timeouts = t
	}
}

// WithHTTPClient sets a custom HTTP client for external requests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *RealClient) {
		c.httpClient = hc
	}
}

// WithHCloudClient sets a custom hcloud client, bypassing the retrying
// transport.
func WithHCloudClient(hc *hcloud.Client) ClientOption {
	return func(c *RealClient) {
		c.client = hc
	}
}

// WithEndpoint points the API client at a different base URL.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *RealClient) {
		c.endpoint = endpoint
	}
}

// WithEvents sets the sink for resource outcomes.
func WithEvents(e Events) ClientOption {
	return func(c *RealClient) {
		c.events = e
	}
}

// WithMetrics records API requests on the given recorder.
func WithMetrics(m *metrics.Recorder) ClientOption {
	return func(c *RealClient) {
		c.metrics = m
	}
}

// NewRealClient creates a new RealClient with optional configuration.
func NewRealClient(token string, opts ...ClientOption) *RealClient {
	c := &RealClient{
		timeouts:   config.LoadTimeouts(),
		httpClient: http.DefaultClient,
		events:     NopEvents{},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.client == nil {
		hcOpts := []hcloud.ClientOption{
			hcloud.WithToken(token),
			hcloud.WithApplication("k3zner", ""),
			hcloud.WithHTTPClient(&http.Client{
				Transport: newTransport(http.DefaultTransport, c.timeouts, c.metrics),
			}),
		}
		if c.endpoint != "" {
			hcOpts = append(hcOpts, hcloud.WithEndpoint(c.endpoint))
		}
		c.client = hcloud.NewClient(hcOpts...)
	}
	return c
}

// GetPublicIP returns the public IPv4 address of the host.
func (c *RealClient) GetPublicIP(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, publicIPURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}
