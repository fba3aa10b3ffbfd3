package output

import (
	"errors"
	"fmt"

	"github.com/unbekanntes-pferd/dcadmin/internal/dracoon"
)

// Error is a structured error with code, message, and optional hint.
type Error struct {
	Code       string
	Message    string
	Hint       string
	HTTPStatus int
	Retryable  bool
	Cause      error
}

func (e *Error) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Hint)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error.
func (e *Error) ExitCode() int {
	return ExitCodeFor(e.Code)
}

// Error constructors for common cases.

func ErrUsage(msg string) *Error {
	return &Error{Code: CodeUsage, Message: msg}
}

func ErrUsageHint(msg, hint string) *Error {
	return &Error{Code: CodeUsage, Message: msg, Hint: hint}
}

func ErrConfig(msg string, cause error) *Error {
	return &Error{
		Code:    CodeConfig,
		Message: msg,
		Hint:    "Check base_url, client_id and client_secret (or DCADMIN_CLIENT_ID / DCADMIN_CLIENT_SECRET)",
		Cause:   cause,
	}
}

func ErrCredentialStorage(cause error) *Error {
	return &Error{
		Code:    CodeCredentialStorage,
		Message: "Failed to store credentials",
		Cause:   cause,
	}
}

func ErrInvalidAccount(account string, cause error) *Error {
	return &Error{
		Code:    CodeInvalidAccount,
		Message: fmt.Sprintf("No stored credentials for %s", account),
		Cause:   cause,
	}
}

func ErrCredentialDeletion(cause error) *Error {
	return &Error{
		Code:    CodeCredentialDeletion,
		Message: "Failed to delete stored credentials",
		Cause:   cause,
	}
}

func ErrAuth(msg string) *Error {
	return &Error{
		Code:    CodeAuth,
		Message: msg,
		Hint:    "Run: dcadmin auth login",
	}
}

func ErrAuthRejected(cause error) *Error {
	return &Error{
		Code:       CodeAuthRejected,
		Message:    "Authentication rejected by server",
		Hint:       "Run: dcadmin auth login",
		HTTPStatus: 401,
		Cause:      cause,
	}
}

func ErrNetwork(cause error) *Error {
	return &Error{
		Code:      CodeNetwork,
		Message:   "Network error",
		Hint:      cause.Error(),
		Retryable: true,
		Cause:     cause,
	}
}

func ErrAPI(status int, msg string) *Error {
	return &Error{
		Code:       CodeAPI,
		Message:    msg,
		HTTPStatus: status,
	}
}

func ErrMissingAuthorizationCode() *Error {
	return &Error{
		Code:    CodeMissingAuthorizationCode,
		Message: "Authorization code required",
		Hint:    "Paste the code shown after approving access, or pass --code",
	}
}

func ErrNoCredentials() *Error {
	return &Error{
		Code:    CodeNoCredentials,
		Message: "No credentials provided",
		Hint:    "Run: dcadmin auth login",
	}
}

func ErrBrowser(url string, cause error) *Error {
	return &Error{
		Code:    CodeBrowser,
		Message: "Failed to open authorization page",
		Hint:    "Open manually: " + url,
		Cause:   cause,
	}
}

// AsError attempts to convert an error to an *Error.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	var de *dracoon.Error
	if errors.As(err, &de) {
		return fromClientError(de)
	}
	return &Error{
		Code:    CodeAPI,
		Message: err.Error(),
		Cause:   err,
	}
}

func fromClientError(de *dracoon.Error) *Error {
	switch de.Kind {
	case dracoon.KindConfig:
		return ErrConfig(de.Error(), de)
	case dracoon.KindAuth:
		return ErrAuthRejected(de)
	case dracoon.KindTransport:
		return ErrNetwork(de)
	default:
		e := ErrAPI(de.StatusCode, de.Error())
		e.Cause = de
		e.Retryable = de.StatusCode == 429 || de.StatusCode >= 500
		return e
	}
}

// IsCode reports whether err converts to an *Error with the given code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	return AsError(err).Code == code
}
