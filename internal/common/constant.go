// Package common contains shared constants and sentinel errors used across
// the vidtube server components.
package common

// Cookie names carrying the session tokens.
const (
	AccessTokenCookieName  = "accessToken"
	RefreshTokenCookieName = "refreshToken"
)

// AuthorizationHeaderName is the header that may carry the access token as
// "Bearer <token>" when the cookie is absent.
const AuthorizationHeaderName = "Authorization"
