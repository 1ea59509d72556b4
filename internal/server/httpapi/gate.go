package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/logging"
	"github.com/dmitrijs2005/vidtube/internal/server/auth"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
)

// AccessVerifier validates access tokens.
type AccessVerifier interface {
	VerifyAccess(token string) (*auth.AccessClaims, error)
}

// IdentityLookup resolves the user named by a verified token.
type IdentityLookup interface {
	CurrentUser(ctx context.Context, userID string) (*models.PublicUser, error)
}

// Gate authenticates requests and attaches the caller's sanitized identity
// to the request context. It never modifies stored state.
type Gate struct {
	tokens AccessVerifier
	users  IdentityLookup
	logger logging.Logger
}

func NewGate(tokens AccessVerifier, users IdentityLookup, logger logging.Logger) *Gate {
	return &Gate{tokens: tokens, users: users, logger: logger}
}

// accessToken reads the token from the accessToken cookie, then from an
// "Authorization: Bearer" header.
func accessToken(r *http.Request) string {
	if c, err := r.Cookie(common.AccessTokenCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get(common.AuthorizationHeaderName)
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := accessToken(r)
		if token == "" {
			writeFailure(w, http.StatusUnauthorized, "Unauthorized request")
			return
		}

		claims, err := g.tokens.VerifyAccess(token)
		if err != nil {
			g.logger.Debug(r.Context(), "access token rejected", "error", err)
			msg := "Invalid Access Token"
			if errors.Is(err, common.ErrTokenExpired) {
				msg = "Access token expired"
			}
			writeFailure(w, http.StatusUnauthorized, msg)
			return
		}

		user, err := g.users.CurrentUser(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				writeFailure(w, http.StatusUnauthorized, "Invalid Access Token")
				return
			}
			writeError(r.Context(), w, g.logger, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.ContextWithUser(r.Context(), user)))
	})
}
