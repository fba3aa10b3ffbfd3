// Package output provides JSON/YAML/table output formatting and error handling.
package output

// Process exit codes.
const (
	ExitOK         = 0 // Success
	ExitUsage      = 1 // Invalid arguments, flags or call order
	ExitConfig     = 2 // Malformed URL or missing application credentials
	ExitAuth       = 3 // Not authenticated or credentials rejected
	ExitCredential = 4 // Credential vault read/write/delete failed
	ExitBrowser    = 5 // Could not open the authorization page
	ExitNetwork    = 6 // Connection/DNS/timeout error
	ExitAPI        = 7 // Server returned error
)

// Error codes for the JSON envelope.
const (
	CodeUsage                    = "usage"
	CodeConfig                   = "config_error"
	CodeCredentialStorage        = "credential_storage_failed"
	CodeInvalidAccount           = "invalid_account"
	CodeCredentialDeletion       = "credential_deletion_failed"
	CodeAuth                     = "auth_required"
	CodeAuthRejected             = "auth_rejected"
	CodeNetwork                  = "network"
	CodeAPI                      = "api_error"
	CodeMissingAuthorizationCode = "missing_authorization_code"
	CodeNoCredentials            = "no_credentials_provided"
	CodeBrowser                  = "browser"
)

// ExitCodeFor returns the exit code for a given error code.
func ExitCodeFor(code string) int {
	switch code {
	case CodeUsage, CodeMissingAuthorizationCode, CodeNoCredentials:
		return ExitUsage
	case CodeConfig:
		return ExitConfig
	case CodeAuth, CodeAuthRejected:
		return ExitAuth
	case CodeCredentialStorage, CodeInvalidAccount, CodeCredentialDeletion:
		return ExitCredential
	case CodeBrowser:
		return ExitBrowser
	case CodeNetwork:
		return ExitNetwork
	default:
		return ExitAPI
	}
}
