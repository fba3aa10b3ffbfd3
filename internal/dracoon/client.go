// Package dracoon is a small DRACOON REST client covering the endpoints
// dcadmin reads. Authentication is OAuth2 through golang.org/x/oauth2.
package dracoon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const (
	authorizePath = "/oauth/authorize"
	tokenPath     = "/oauth/token"
	callbackPath  = "/oauth/callback"

	defaultTimeout = 30 * time.Second
)

// API is the read surface of a connected client.
type API interface {
	BaseURL() string
	UserInfo(ctx context.Context) (*UserAccount, error)
	SoftwareVersion(ctx context.Context) (*SoftwareVersion, error)
	CustomerInfo(ctx context.Context) (*CustomerData, error)
	Events(ctx context.Context, params EventParams) (*LogEventList, error)
	OperationTypes(ctx context.Context) (*LogOperationList, error)
	NodePermissions(ctx context.Context, opts ListOptions) ([]AuditNodeResponse, error)
	Users(ctx context.Context, opts ListOptions) (*UserList, error)
	Groups(ctx context.Context, opts ListOptions) (*GroupList, error)
}

// RequestInfo describes an outgoing request.
type RequestInfo struct {
	Method string
	Path   string
	Query  string
}

// RequestResult describes how a request ended.
type RequestResult struct {
	StatusCode int
	Duration   time.Duration
	Err        error
}

// Hooks receives a callback after every API request.
type Hooks interface {
	OnRequestEnd(ctx context.Context, info RequestInfo, result RequestResult)
}

type options struct {
	httpClient *http.Client
	hooks      Hooks
	logger     *slog.Logger
}

// Option configures Build.
type Option func(*options)

// WithHTTPClient sets the base HTTP client. Its transport is reused for token
// and API requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithHooks sets request hooks.
func WithHooks(h Hooks) Option {
	return func(o *options) { o.hooks = h }
}

// WithLogger sets the debug logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Client is configured for one server but holds no tokens.
type Client struct {
	baseURL    string
	oauth      *oauth2.Config
	httpClient *http.Client
	hooks      Hooks
	logger     *slog.Logger
}

// Build validates the server URL and application credentials and returns a
// disconnected client. Failures are KindConfig errors.
func Build(baseURL, clientID, clientSecret, userAgent string, opts ...Option) (*Client, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return nil, configError(fmt.Sprintf("invalid base URL %q", baseURL))
	}
	if clientID == "" || clientSecret == "" {
		return nil, configError("missing application client credentials")
	}
	base := u.Scheme + "://" + u.Host + strings.TrimRight(u.Path, "/")

	transport := http.DefaultTransport
	timeout := defaultTimeout
	if o.httpClient != nil {
		if o.httpClient.Transport != nil {
			transport = o.httpClient.Transport
		}
		if o.httpClient.Timeout > 0 {
			timeout = o.httpClient.Timeout
		}
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		baseURL: base,
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + authorizePath,
				TokenURL:  base + tokenPath,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
			RedirectURL: base + callbackPath,
		},
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: &userAgentTransport{base: transport, userAgent: userAgent},
		},
		hooks:  o.hooks,
		logger: o.logger,
	}, nil
}

// BaseURL returns the normalized server URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// AuthorizationURL returns the page where the operator approves access and
// receives a one-time code.
func (c *Client) AuthorizationURL() string {
	return c.oauth.AuthCodeURL(uuid.NewString())
}

// SoftwareVersion calls the public version endpoint. It needs no token.
func (c *Client) SoftwareVersion(ctx context.Context) (*SoftwareVersion, error) {
	var v SoftwareVersion
	if err := c.get(ctx, c.httpClient, "/api/v4/public/software/version", nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Connect exchanges an authorization code or refresh token for a token pair.
func (c *Client) Connect(ctx context.Context, flow Flow) (*Connection, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	var (
		tok *oauth2.Token
		err error
	)
	switch flow.grant {
	case grantAuthorizationCode:
		c.logger.Debug("exchanging authorization code", "server", c.baseURL)
		tok, err = c.oauth.Exchange(ctx, flow.value)
	case grantRefreshToken:
		c.logger.Debug("exchanging refresh token", "server", c.baseURL)
		tok, err = c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: flow.value}).Token()
	default:
		return nil, &Error{Kind: KindConfig, Op: "connect", Message: "no authorization flow selected"}
	}
	if err != nil {
		return nil, tokenError(err)
	}
	return newConnection(c, tok), nil
}

func tokenError(err error) *Error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		msg := re.ErrorDescription
		if msg == "" {
			msg = re.ErrorCode
		}
		if msg == "" {
			msg = "token request rejected"
		}
		return &Error{Kind: KindAuth, Op: "connect", StatusCode: status, Message: msg, Cause: err}
	}
	return &Error{Kind: KindTransport, Op: "connect", Cause: err}
}

func (c *Client) get(ctx context.Context, hc *http.Client, path string, query url.Values, out any) (err error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	op := http.MethodGet + " " + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, Cause: err}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	status := 0
	defer func() {
		if c.hooks != nil {
			c.hooks.OnRequestEnd(ctx, RequestInfo{Method: http.MethodGet, Path: path, Query: query.Encode()},
				RequestResult{StatusCode: status, Duration: time.Since(start), Err: err})
		}
	}()

	resp, err := hc.Do(req)
	if err != nil {
		// Token refresh inside the transport surfaces as a RetrieveError.
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			e := tokenError(err)
			e.Op = op
			return e
		}
		return &Error{Kind: KindTransport, Op: op, Cause: err}
	}
	defer resp.Body.Close()
	status = resp.StatusCode
	c.logger.Debug("api request", "method", http.MethodGet, "path", path, "status", status, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return responseError(op, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: KindTransport, Op: op, Message: "decode response: " + err.Error(), Cause: err}
	}
	return nil
}

func responseError(op string, resp *http.Response) *Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var apiErr apiErrorBody
	msg := http.StatusText(resp.StatusCode)
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
		msg = apiErr.Message
	}
	kind := KindAPI
	if resp.StatusCode == http.StatusUnauthorized {
		kind = KindAuth
	}
	return &Error{Kind: kind, Op: op, StatusCode: resp.StatusCode, Message: msg}
}

type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.userAgent == "" {
		return t.base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(req)
}
