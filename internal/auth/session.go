// Package auth manages the dcadmin session: the stored refresh token, the
// OAuth2 handshake and the shared connected client.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/unbekanntes-pferd/dcadmin/internal/dracoon"
	"github.com/unbekanntes-pferd/dcadmin/internal/hostutil"
	"github.com/unbekanntes-pferd/dcadmin/internal/output"
)

// Client is a configured client that holds no tokens yet.
type Client interface {
	BaseURL() string
	AuthorizationURL() string
	Connect(ctx context.Context, flow dracoon.Flow) (Connection, error)
	SoftwareVersion(ctx context.Context) (*dracoon.SoftwareVersion, error)
}

// Connection is an authenticated client.
type Connection interface {
	dracoon.API
	RefreshToken() string
}

// AppCredentials identify dcadmin to the server.
type AppCredentials struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
}

// Builder constructs a disconnected client for a server.
type Builder func(baseURL string, app AppCredentials) (Client, error)

// DracoonBuilder builds clients with the dracoon package.
func DracoonBuilder(opts ...dracoon.Option) Builder {
	return func(baseURL string, app AppCredentials) (Client, error) {
		c, err := dracoon.Build(baseURL, app.ClientID, app.ClientSecret, app.UserAgent, opts...)
		if err != nil {
			return nil, err
		}
		return dracoonClient{c}, nil
	}
}

type dracoonClient struct {
	*dracoon.Client
}

func (c dracoonClient) Connect(ctx context.Context, flow dracoon.Flow) (Connection, error) {
	conn, err := c.Client.Connect(ctx, flow)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Options configures a Session.
type Options struct {
	Vault  Vault
	App    AppCredentials
	Build  Builder
	Open   Opener
	Logger *slog.Logger
}

// Session is the single active session of the process. It keeps the auth
// state, the connection handle and the vault entry consistent.
type Session struct {
	vault  Vault
	app    AppCredentials
	build  Builder
	open   Opener
	logger *slog.Logger

	// connectMu serializes Initiate, Restore, Connect and Logout. The state
	// locks below are only held to copy values in or out.
	connectMu sync.Mutex

	auth   authHolder
	handle connectionHandle

	entryMu sync.RWMutex
	entry   *Entry
}

// NewSession creates a session with nothing initiated.
func NewSession(opts Options) *Session {
	if opts.Build == nil {
		opts.Build = DracoonBuilder()
	}
	if opts.Open == nil {
		opts.Open = OpenBrowser
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Session{
		vault:  opts.Vault,
		app:    opts.App,
		build:  opts.Build,
		open:   opts.Open,
		logger: opts.Logger,
	}
}

// Initiate prepares a connection to serverURL. It returns true when a stored
// refresh token will be used and false when the authorization page was
// opened and Connect needs the code from it.
func (s *Session) Initiate(ctx context.Context, serverURL string) (bool, error) {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	client, entry, err := s.prepare(serverURL)
	if err != nil {
		return false, err
	}

	if token, err := entry.Get(); err == nil {
		s.logger.Debug("using stored refresh token", "account", entry.Account())
		s.install(client, entry, StateRefreshToken{Token: token})
		return true, nil
	}

	authURL := client.AuthorizationURL()
	if err := s.open(authURL); err != nil {
		return false, output.ErrBrowser(authURL, err)
	}
	s.install(client, entry, StateAuthorizationCodePending{})
	return false, nil
}

// Restore prepares a connection from a stored refresh token and connects. It
// never prompts; without a stored token it fails with auth_required.
func (s *Session) Restore(ctx context.Context, serverURL string) (*Account, error) {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	client, entry, err := s.prepare(serverURL)
	if err != nil {
		return nil, err
	}
	token, err := entry.Get()
	if err != nil {
		return nil, output.ErrAuth(fmt.Sprintf("Not logged in to %s", entry.Account()))
	}
	s.install(client, entry, StateRefreshToken{Token: token})
	return s.connectLocked(ctx, "")
}

func (s *Session) prepare(serverURL string) (Client, *Entry, error) {
	if serverURL == "" {
		return nil, nil, output.ErrUsageHint("No server URL", "Pass --url or set base_url")
	}
	entry, err := OpenEntry(s.vault, serverURL)
	if err != nil {
		return nil, nil, err
	}
	client, err := s.build(serverURL, s.app)
	if err != nil {
		return nil, nil, err
	}
	return client, entry, nil
}

func (s *Session) install(client Client, entry *Entry, state AuthState) {
	s.handle.disconnect(client)
	s.auth.set(state)
	s.entryMu.Lock()
	s.entry = entry
	s.entryMu.Unlock()
}

func (s *Session) currentEntry() *Entry {
	s.entryMu.RLock()
	defer s.entryMu.RUnlock()
	return s.entry
}

// Connect completes the handshake selected by Initiate and returns the
// connected account. code is only used for the authorization-code flow.
func (s *Session) Connect(ctx context.Context, code string) (*Account, error) {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()
	return s.connectLocked(ctx, code)
}

func (s *Session) connectLocked(ctx context.Context, code string) (*Account, error) {
	var (
		conn Connection
		err  error
	)
	switch st := s.auth.get().(type) {
	case StateRefreshToken:
		conn, err = s.connectWith(ctx, dracoon.RefreshToken(st.Token))
		if err != nil {
			return nil, s.rejectStoredToken(err)
		}
	case StateAuthorizationCodePending:
		if code == "" {
			return nil, output.ErrMissingAuthorizationCode()
		}
		conn, err = s.connectWith(ctx, dracoon.AuthorizationCode(code))
		if err != nil {
			return nil, err
		}
	default:
		return nil, output.ErrNoCredentials()
	}

	user, err := conn.UserInfo(ctx)
	if err != nil {
		return nil, err
	}
	// No partial success: the account needs the deployment metadata too.
	version, err := conn.SoftwareVersion(ctx)
	if err != nil {
		return nil, err
	}
	return NewAccount(conn.BaseURL(), user, version), nil
}

// connectWith exchanges the flow's credential unless the handle is already
// connected, persists the current refresh token and promotes the handle.
func (s *Session) connectWith(ctx context.Context, flow dracoon.Flow) (Connection, error) {
	entry := s.currentEntry()
	if entry == nil {
		return nil, output.ErrNoCredentials()
	}

	var client Client
	switch h := s.handle.load().(type) {
	case handleConnected:
		s.logger.Debug("already connected, skipping token exchange", "account", entry.Account())
		if err := entry.Set(h.conn.RefreshToken()); err != nil {
			return nil, err
		}
		return h.conn, nil
	case handleDisconnected:
		client = h.client
	default:
		return nil, output.ErrNoCredentials()
	}

	conn, err := client.Connect(ctx, flow)
	if err != nil {
		s.logger.Debug("token exchange failed", "account", entry.Account(), "refresh_token", flow.IsRefreshToken(), "error", err)
		return nil, err
	}

	// Persist and promote back to back so the vault and the handle agree.
	if err := entry.Set(conn.RefreshToken()); err != nil {
		return nil, err
	}
	if err := s.handle.promote(conn); err != nil {
		s.logger.Error("refresh token stored but connection not promoted", "account", entry.Account(), "error", err)
		return nil, fmt.Errorf("promote connection for %s: %w", entry.Account(), err)
	}
	return conn, nil
}

// rejectStoredToken deletes a refresh token the server refused, so the next
// Initiate falls back to the authorization-code flow. Transport failures keep
// the token.
func (s *Session) rejectStoredToken(err error) error {
	if !dracoon.IsKind(err, dracoon.KindAuth) {
		return err
	}
	entry := s.currentEntry()
	s.auth.set(StateUnset{})
	rejected := output.ErrAuthRejected(err)
	if entry == nil {
		return rejected
	}
	s.logger.Warn("stored refresh token rejected, removing it", "account", entry.Account())
	if delErr := entry.Delete(); delErr != nil {
		return errors.Join(rejected, delErr)
	}
	return rejected
}

// ValidateServer reports whether serverURL answers the public version
// endpoint. Only local construction errors are returned as errors.
func (s *Session) ValidateServer(ctx context.Context, serverURL string) (bool, error) {
	client, err := s.build(serverURL, s.app)
	if err != nil {
		return false, err
	}
	if _, err := client.SoftwareVersion(ctx); err != nil {
		s.logger.Debug("server validation failed", "url", serverURL, "error", err)
		return false, nil
	}
	return true, nil
}

// Connection returns the shared connected client.
func (s *Session) Connection() (Connection, error) {
	switch h := s.handle.load().(type) {
	case handleConnected:
		return h.conn, nil
	case handleDisconnected:
		return nil, output.ErrAuth("Not connected")
	default:
		return nil, output.ErrAuth("Not logged in")
	}
}

// Logout deletes the stored refresh token for serverURL and resets the session.
func (s *Session) Logout(serverURL string) error {
	entry, err := OpenEntry(s.vault, serverURL)
	if err != nil {
		return err
	}
	s.connectMu.Lock()
	defer s.connectMu.Unlock()
	s.handle.reset()
	s.auth.set(StateUnset{})
	s.entryMu.Lock()
	s.entry = nil
	s.entryMu.Unlock()
	return entry.Delete()
}

// Status describes the session for one server.
type Status struct {
	Server      string `json:"server"`
	Account     string `json:"account"`
	StoredToken bool   `json:"storedToken"`
	Vault       string `json:"vault"`
	AuthState   string `json:"authState"`
	Connection  string `json:"connection"`
}

// Status reports what is stored for serverURL and the in-memory state.
func (s *Session) Status(serverURL string) (*Status, error) {
	entry, err := OpenEntry(s.vault, serverURL)
	if err != nil {
		return nil, err
	}
	return &Status{
		Server:      hostutil.Normalize(serverURL),
		Account:     entry.Account(),
		StoredToken: entry.Exists(),
		Vault:       s.vault.String(),
		AuthState:   s.auth.get().String(),
		Connection:  s.handle.load().String(),
	}, nil
}

// State returns the current auth state.
func (s *Session) State() AuthState {
	return s.auth.get()
}
