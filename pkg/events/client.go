package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/platinummonkey/ioevents/pkg/httpclient"
	"github.com/platinummonkey/ioevents/pkg/journal"
	"github.com/platinummonkey/ioevents/pkg/keycache"
	"github.com/platinummonkey/ioevents/pkg/observability"
	"github.com/platinummonkey/ioevents/pkg/signature"
)

// Default service endpoints
const (
	DefaultBaseURL    = "https://api.adobe.io"
	DefaultIngressURL = "https://eventsingress.adobe.io"
)

// Request headers
const (
	HeaderOrgID         = "x-ims-org-id"
	HeaderAPIKey        = "x-api-key"
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
	HeaderRequestID     = "x-request-id"
)

const (
	contentTypeJSON       = "application/json"
	contentTypeCloudEvent = "application/cloudevents+json"
	maxResponseBody       = 10 << 20
)

// Config configures a Client
type Config struct {
	OrganizationID string
	APIKey         string
	// AccessToken is used as a static bearer token when TokenSource is nil
	AccessToken string
	TokenSource oauth2.TokenSource

	BaseURL    string
	IngressURL string
	Timeout    time.Duration
	Retry      httpclient.RetryConfig
	HTTPClient *http.Client

	// Signature verification
	SecurityDomain  string
	TrustedKeyHosts []string
	KeyCache        keycache.Cache

	// CursorStore lets journal pollers resume after a restart
	CursorStore journal.CursorStore
	Clock       clockwork.Clock

	Logger  *logrus.Logger
	Metrics *observability.Metrics
}

// Client calls the events management, ingress and journal APIs
type Client struct {
	orgID      string
	apiKey     string
	tokens     oauth2.TokenSource
	baseURL    string
	ingressURL string

	http     *httpclient.Client
	verifier *signature.Verifier
	store    journal.CursorStore
	clock    clockwork.Clock
	logger   *logrus.Logger
	metrics  *observability.Metrics
}

// New validates cfg and builds a client. Missing credentials are reported
// together in a single ERROR_SDK_INITIALIZATION error.
func New(cfg Config) (*Client, error) {
	var missing []string
	if cfg.OrganizationID == "" {
		missing = append(missing, "organizationId")
	}
	if cfg.APIKey == "" {
		missing = append(missing, "apiKey")
	}
	if cfg.AccessToken == "" && cfg.TokenSource == nil {
		missing = append(missing, "accessToken")
	}
	if len(missing) > 0 {
		return nil, newSDKError(CodeSDKInitialization, nil, fmt.Errorf("%s", strings.Join(missing, ", ")))
	}

	tokens := cfg.TokenSource
	if tokens == nil {
		tokens = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken, TokenType: "Bearer"})
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.IngressURL == "" {
		cfg.IngressURL = DefaultIngressURL
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	logger := observability.OrDefault(cfg.Logger)
	httpClient := httpclient.New(httpclient.Options{
		HTTPClient: cfg.HTTPClient,
		Timeout:    cfg.Timeout,
		Retry:      cfg.Retry,
		Logger:     logger,
		Metrics:    cfg.Metrics,
	})

	cache := cfg.KeyCache
	if cache == nil {
		cache = keycache.NewMemoryCache(0, keycache.DefaultTTL)
	}
	fetcher := signature.NewKeyFetcher(httpClient, cache, logger, cfg.Metrics)
	verifier, err := signature.NewVerifier(fetcher, signature.VerifierOptions{
		SecurityDomain:  cfg.SecurityDomain,
		TrustedKeyHosts: cfg.TrustedKeyHosts,
		Logger:          logger,
		Metrics:         cfg.Metrics,
	})
	if err != nil {
		return nil, newSDKError(CodeSDKInitialization, nil, err)
	}

	return &Client{
		orgID:      cfg.OrganizationID,
		apiKey:     cfg.APIKey,
		tokens:     oauth2.ReuseTokenSource(nil, tokens),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		ingressURL: cfg.IngressURL,
		http:       httpClient,
		verifier:   verifier,
		store:      cfg.CursorStore,
		clock:      cfg.Clock,
		logger:     logger,
		metrics:    cfg.Metrics,
	}, nil
}

// Verifier returns the signature verifier used for webhook deliveries
func (c *Client) Verifier() *signature.Verifier {
	return c.verifier
}

func (c *Client) url(format string, args ...interface{}) string {
	return c.baseURL + fmt.Sprintf(format, args...)
}

// newRequest builds a request carrying the service headers. Headers already
// present in header are kept.
func (c *Client) newRequest(ctx context.Context, method, rawURL string, body []byte, header http.Header) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, err
	}
	for name, values := range header {
		req.Header[name] = values
	}

	setDefault(req.Header, HeaderOrgID, c.orgID)
	setDefault(req.Header, HeaderAPIKey, c.apiKey)
	if req.Header.Get(HeaderAuthorization) == "" {
		token, err := c.tokens.Token()
		if err != nil {
			return req, fmt.Errorf("failed to obtain access token: %w", err)
		}
		req.Header.Set(HeaderAuthorization, "Bearer "+token.AccessToken)
	}
	setDefault(req.Header, HeaderContentType, contentTypeJSON)
	return req, nil
}

func setDefault(header http.Header, name, value string) {
	if header.Get(name) == "" {
		header.Set(name, value)
	}
}

// call sends a management API request. in is JSON encoded when non-nil and a
// 2xx response body is decoded into out when out is non-nil.
func (c *Client) call(ctx context.Context, code ErrorCode, method, rawURL string, in, out interface{}) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return newSDKError(code, nil, fmt.Errorf("failed to marshal request: %w", err))
		}
	}

	req, err := c.newRequest(ctx, method, rawURL, body, nil)
	if err != nil {
		return c.fail(code, req, nil, err)
	}

	c.logger.WithFields(logrus.Fields{"method": method, "code": code}).Debug("Calling events API")
	resp, err := c.http.Do(req)
	if err != nil {
		return c.fail(code, req, nil, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.fail(code, req, resp, reduceError(resp, rawURL))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent || out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(out); err != nil {
		return c.fail(code, req, resp, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

// fail wraps cause in an SDKError with masked request details
func (c *Client) fail(code ErrorCode, req *http.Request, resp *http.Response, cause error) error {
	var details *RequestDetails
	if req != nil {
		details = requestDetails(req, resp)
	}
	sdkErr := newSDKError(code, details, cause)
	entry := c.logger.WithField("code", code)
	if details != nil {
		entry = entry.WithField("request_id", details.RequestID)
	}
	entry.WithError(cause).Debug("Events API call failed")
	return sdkErr
}

// reduceError closes resp and describes it as "<status> - <text> (<url>)"
func reduceError(resp *http.Response, rawURL string) error {
	statusErr := httpclient.NewStatusError(resp)
	return fmt.Errorf("%d - %s (%s): %w", resp.StatusCode, http.StatusText(resp.StatusCode), rawURL, statusErr)
}
