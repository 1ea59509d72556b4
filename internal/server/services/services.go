// Package services contains server-side business logic: sessions (login,
// logout, token rotation, password change), user profiles and channel
// queries. Every failure returned to callers is a *common.Error whose kind
// the transport maps to a status code.
package services

import (
	"context"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
)

// Uploader stores a local file on the media host and returns its URL.
// Implementations remove the local file.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Session is the result of a successful login.
type Session struct {
	User   *models.PublicUser
	Tokens TokenPair
}

func internal(err error) error {
	return common.WrapError(common.ErrorInternal, err, "")
}
