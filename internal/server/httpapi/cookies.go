package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/vidtube/internal/common"
)

func authCookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}
}

func setAuthCookies(w http.ResponseWriter, accessToken, refreshToken string) {
	http.SetCookie(w, authCookie(common.AccessTokenCookieName, accessToken))
	http.SetCookie(w, authCookie(common.RefreshTokenCookieName, refreshToken))
}

func clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{common.AccessTokenCookieName, common.RefreshTokenCookieName} {
		c := authCookie(name, "")
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}
