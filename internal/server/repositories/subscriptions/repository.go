package subscriptions

import (
	"context"

	"github.com/dmitrijs2005/vidtube/internal/server/models"
)

type Repository interface {
	ChannelProfile(ctx context.Context, username, viewerID string) (*models.ChannelProfile, error)
}
