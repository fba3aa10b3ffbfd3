package dracoon

type grantType int

const (
	grantAuthorizationCode grantType = iota + 1
	grantRefreshToken
)

// Flow selects how Connect obtains tokens.
type Flow struct {
	grant grantType
	value string
}

// AuthorizationCode exchanges a one-time code from the authorization page.
func AuthorizationCode(code string) Flow {
	return Flow{grant: grantAuthorizationCode, value: code}
}

// RefreshToken exchanges a previously stored refresh token.
func RefreshToken(token string) Flow {
	return Flow{grant: grantRefreshToken, value: token}
}

// IsRefreshToken reports whether the flow uses a stored refresh token.
func (f Flow) IsRefreshToken() bool {
	return f.grant == grantRefreshToken
}
