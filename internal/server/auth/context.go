package auth

import (
	"context"

	"github.com/dmitrijs2005/vidtube/internal/server/models"
)

type userCtxKey struct{}

// ContextWithUser attaches the authenticated identity to ctx.
func ContextWithUser(ctx context.Context, u *models.PublicUser) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext returns the identity stored by ContextWithUser.
func UserFromContext(ctx context.Context) (*models.PublicUser, bool) {
	u, ok := ctx.Value(userCtxKey{}).(*models.PublicUser)
	return u, ok && u != nil
}
