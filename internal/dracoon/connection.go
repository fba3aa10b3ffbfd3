package dracoon

import (
	"context"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

// Connection is an authenticated client. Copies share the same transport and
// token source.
type Connection struct {
	*Client
	source *trackingSource
	http   *http.Client
}

var _ API = (*Connection)(nil)

func newConnection(c *Client, tok *oauth2.Token) *Connection {
	// The token source outlives the Connect call, so it gets its own context.
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, c.httpClient)
	src := &trackingSource{base: c.oauth.TokenSource(ctx, tok), current: tok}
	return &Connection{
		Client: c,
		source: src,
		http: &http.Client{
			Timeout:   c.httpClient.Timeout,
			Transport: &oauth2.Transport{Source: src, Base: c.httpClient.Transport},
		},
	}
}

// RefreshToken returns the most recent refresh token. It changes when the
// server rotates tokens during a refresh.
func (c *Connection) RefreshToken() string {
	return c.source.refreshToken()
}

// UserInfo returns the authenticated user's account.
func (c *Connection) UserInfo(ctx context.Context) (*UserAccount, error) {
	var out UserAccount
	if err := c.get(ctx, c.http, "/api/v4/user/account", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SoftwareVersion shadows the anonymous call so it runs on the authenticated transport.
func (c *Connection) SoftwareVersion(ctx context.Context) (*SoftwareVersion, error) {
	var out SoftwareVersion
	if err := c.get(ctx, c.http, "/api/v4/public/software/version", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CustomerInfo returns the tenant of the authenticated user.
func (c *Connection) CustomerInfo(ctx context.Context) (*CustomerData, error) {
	var out CustomerData
	if err := c.get(ctx, c.http, "/api/v4/user/account/customer", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Events returns one page of the audit log.
func (c *Connection) Events(ctx context.Context, params EventParams) (*LogEventList, error) {
	var out LogEventList
	if err := c.get(ctx, c.http, "/api/v4/eventlog/events", params.values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// OperationTypes returns the event operation catalog.
func (c *Connection) OperationTypes(ctx context.Context) (*LogOperationList, error) {
	var out LogOperationList
	if err := c.get(ctx, c.http, "/api/v4/eventlog/operations", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// NodePermissions returns the room permission audit.
func (c *Connection) NodePermissions(ctx context.Context, opts ListOptions) ([]AuditNodeResponse, error) {
	var out []AuditNodeResponse
	if err := c.get(ctx, c.http, "/api/v4/eventlog/audits/nodes", opts.values(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Users returns one page of users.
func (c *Connection) Users(ctx context.Context, opts ListOptions) (*UserList, error) {
	var out UserList
	if err := c.get(ctx, c.http, "/api/v4/users", opts.values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Groups returns one page of groups.
func (c *Connection) Groups(ctx context.Context, opts ListOptions) (*GroupList, error) {
	var out GroupList
	if err := c.get(ctx, c.http, "/api/v4/groups", opts.values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// trackingSource records every token it hands out so rotated refresh tokens
// can be persisted.
type trackingSource struct {
	base oauth2.TokenSource

	mu      sync.Mutex
	current *oauth2.Token
}

func (s *trackingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.current = tok
	s.mu.Unlock()
	return tok, nil
}

func (s *trackingSource) refreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ""
	}
	return s.current.RefreshToken
}
