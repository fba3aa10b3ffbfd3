package auth

import (
	"errors"
	"sync"
)

// AuthState records which credential source the next Connect uses.
// Exactly one variant holds at a time.
type AuthState interface {
	authState()
	String() string
}

// StateUnset means no connection attempt has started.
type StateUnset struct{}

// StateAuthorizationCodePending means an authorization URL was issued and
// Connect needs the one-time code.
type StateAuthorizationCodePending struct{}

// StateRefreshToken carries a refresh token loaded from the vault.
type StateRefreshToken struct {
	Token string
}

func (StateUnset) authState()                    {}
func (StateAuthorizationCodePending) authState() {}
func (StateRefreshToken) authState()             {}

func (StateUnset) String() string                    { return "unset" }
func (StateAuthorizationCodePending) String() string { return "authorization_code_pending" }
func (StateRefreshToken) String() string             { return "refresh_token" }

type authHolder struct {
	mu    sync.RWMutex
	state AuthState
}

func (h *authHolder) get() AuthState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.state == nil {
		return StateUnset{}
	}
	return h.state
}

func (h *authHolder) set(s AuthState) {
	h.mu.Lock()
	h.state = s
	h.mu.Unlock()
}

// handleState is Unset, Disconnected or Connected.
type handleState interface {
	handleState()
	String() string
}

type handleUnset struct{}

type handleDisconnected struct {
	client Client
}

type handleConnected struct {
	conn Connection
}

func (handleUnset) handleState()        {}
func (handleDisconnected) handleState() {}
func (handleConnected) handleState()    {}

func (handleUnset) String() string        { return "unset" }
func (handleDisconnected) String() string { return "disconnected" }
func (handleConnected) String() string    { return "connected" }

var errNotDisconnected = errors.New("connection handle is not disconnected")

// connectionHandle guards the single client of a session. Readers get the
// shared client value; the lock is never held across network I/O.
type connectionHandle struct {
	mu    sync.RWMutex
	state handleState
}

func (h *connectionHandle) load() handleState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.state == nil {
		return handleUnset{}
	}
	return h.state
}

func (h *connectionHandle) disconnect(c Client) {
	h.mu.Lock()
	h.state = handleDisconnected{client: c}
	h.mu.Unlock()
}

// promote moves a Disconnected handle to Connected. Any other state is an error.
func (h *connectionHandle) promote(conn Connection) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.state.(handleDisconnected); !ok {
		return errNotDisconnected
	}
	h.state = handleConnected{conn: conn}
	return nil
}

func (h *connectionHandle) reset() {
	h.mu.Lock()
	h.state = handleUnset{}
	h.mu.Unlock()
}
