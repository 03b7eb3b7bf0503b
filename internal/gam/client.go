// Package gam is a client for the Google Ad Manager SOAP API.
// It exposes the narrow slices of UserService, NetworkService and
// ReportService this application needs, normalizing every wire message
// into internal/model types at the client boundary.
package gam

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/gamaccess/gamaccess/internal/metrics"
)

const (
	// DefaultAPIVersion is the GAM API version this client speaks.
	DefaultAPIVersion = "v202411"

	// DefaultEndpoint is the production GAM API host.
	DefaultEndpoint = "https://ads.google.com"

	// OAuthScope is the Ad Manager OAuth scope.
	OAuthScope = "https://www.googleapis.com/auth/dfp"
)

// HTTP client timeouts for GAM calls. Report downloads can be slow, so
// the total timeout is generous; connection setup is not.
const (
	clientTimeout         = 120 * time.Second
	dialTimeout           = 10 * time.Second
	tlsHandshakeTimeout   = 10 * time.Second
	responseHeaderTimeout = 60 * time.Second
)

// Config holds the settings needed to build a Client.
type Config struct {
	// KeyFile is the path to the service-account JSON key.
	KeyFile string
	// ApplicationName identifies this application in GAM request headers.
	ApplicationName string
	// APIVersion overrides DefaultAPIVersion when set.
	APIVersion string
	// Endpoint overrides DefaultEndpoint when set. Used by tests.
	Endpoint string
	// HTTPClient overrides the default transport when set. Used by tests.
	HTTPClient *http.Client
	// TokenSource overrides the service-account token source. Used by tests.
	TokenSource oauth2.TokenSource
	// Metrics records call durations and errors. Noop when nil.
	Metrics metrics.Recorder
}

// Client talks SOAP to one GAM endpoint, optionally scoped to a network.
// The zero networkCode form is only valid for NetworkService calls.
type Client struct {
	httpClient  *http.Client
	tokenSource oauth2.TokenSource
	metrics     metrics.Recorder
	appName     string
	apiVersion  string
	endpoint    string
	networkCode string
}

// NewClient builds an unscoped Client from a service-account key file.
// Use WithNetwork to derive network-scoped clients from it.
func NewClient(cfg Config) (*Client, error) {
	if cfg.ApplicationName == "" {
		return nil, fmt.Errorf("gam: application name is required")
	}

	ts := cfg.TokenSource
	if ts == nil {
		data, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("gam: read key file: %w", err)
		}
		jwtCfg, err := google.JWTConfigFromJSON(data, OAuthScope)
		if err != nil {
			return nil, fmt.Errorf("gam: parse service account key: %w", err)
		}
		ts = jwtCfg.TokenSource(context.Background())
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = newHTTPClient()
	}

	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	return &Client{
		httpClient:  httpClient,
		tokenSource: oauth2.ReuseTokenSource(nil, ts),
		metrics:     recorder,
		appName:     cfg.ApplicationName,
		apiVersion:  apiVersion,
		endpoint:    endpoint,
	}, nil
}

// WithNetwork returns a copy of the client scoped to the given network
// code. The copy shares the transport and token source.
func (c *Client) WithNetwork(networkCode string) *Client {
	scoped := *c
	scoped.networkCode = networkCode
	return &scoped
}

// NetworkCode returns the network code this client is scoped to, or "".
func (c *Client) NetworkCode() string {
	return c.networkCode
}

// Users returns the UserService bound to this client's network scope.
func (c *Client) Users() UserService {
	return &userService{client: c}
}

// Networks returns the NetworkService. Works on unscoped clients.
func (c *Client) Networks() NetworkService {
	return &networkService{client: c}
}

// Reports returns the ReportService bound to this client's network scope.
func (c *Client) Reports() ReportService {
	return &reportService{client: c}
}

// serviceURL builds the SOAP endpoint for a named GAM service.
func (c *Client) serviceURL(service string) string {
	return fmt.Sprintf("%s/apis/ads/publisher/%s/%s", c.endpoint, c.apiVersion, service)
}

// newHTTPClient builds the transport used for GAM calls.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: clientTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   dialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   tlsHandshakeTimeout,
			ResponseHeaderTimeout: responseHeaderTimeout,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}
