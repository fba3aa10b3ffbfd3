// Package hostutil provides shared utilities for server URL handling.
package hostutil

import (
	"fmt"
	"net/url"
	"strings"
)

// Normalize converts a host string to a full server URL without a trailing slash.
// - Empty string returns empty
// - localhost/127.0.0.1 defaults to http://
// - Other bare hostnames default to https://
func Normalize(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}
	host = strings.TrimRight(host, "/")
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host
	}
	if IsLocalhost(host) {
		return "http://" + host
	}
	return "https://" + host
}

// AccountName returns the identifier a server's credentials are stored under:
// the URL with its scheme and any trailing slash removed.
func AccountName(serverURL string) string {
	account := strings.TrimSpace(serverURL)
	account = strings.TrimPrefix(account, "https://")
	account = strings.TrimPrefix(account, "http://")
	return strings.TrimRight(account, "/")
}

// RequireSecureURL rejects plain http:// URLs unless they point at localhost.
// Refresh tokens are sent to this URL, so it must not travel in clear text.
func RequireSecureURL(serverURL string) error {
	if serverURL == "" {
		return nil
	}
	u, err := url.Parse(serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL %q: %w", serverURL, err)
	}
	if u.Scheme == "http" && !IsLocalhost(u.Host) {
		return fmt.Errorf("refusing insecure http:// server URL %q (use https://)", serverURL)
	}
	return nil
}

// IsLocalhost returns true if host is localhost, a .localhost subdomain,
// 127.0.0.1, or [::1] (with optional port).
func IsLocalhost(host string) bool {
	hostWithoutPort := host
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		if !strings.HasPrefix(host, "[") || strings.HasPrefix(host, "[::1]:") {
			hostWithoutPort = host[:idx]
		}
	}

	switch {
	case hostWithoutPort == "localhost", strings.HasSuffix(hostWithoutPort, ".localhost"):
		return true
	case hostWithoutPort == "127.0.0.1", hostWithoutPort == "[::1]":
		return true
	}
	return false
}
