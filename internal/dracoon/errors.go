package dracoon

import (
	"errors"
	"fmt"
)

// Kind classifies client errors so callers can branch without string matching.
type Kind int

const (
	// KindConfig means the client could not be constructed (bad URL, missing credentials).
	KindConfig Kind = iota + 1
	// KindAuth means the backend rejected an authorization code, refresh token or access token.
	KindAuth
	// KindTransport means the request never produced a usable response.
	KindTransport
	// KindAPI means the backend answered with a non-auth error status.
	KindAPI
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindAuth:
		return "auth"
	case KindTransport:
		return "transport"
	case KindAPI:
		return "api"
	default:
		return "unknown"
	}
}

// Error is returned by every client operation.
type Error struct {
	Kind       Kind
	Op         string // e.g. "connect", "GET /api/v4/user/account"
	StatusCode int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (HTTP %d)", e.Op, msg, e.StatusCode)
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsKind reports whether err is a client error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// apiErrorBody is the error document the backend returns with non-2xx responses.
type apiErrorBody struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	DebugInfo string `json:"debugInfo,omitempty"`
	ErrorCode int    `json:"errorCode,omitempty"`
}

func configError(msg string) *Error {
	return &Error{Kind: KindConfig, Op: "build", Message: msg}
}
