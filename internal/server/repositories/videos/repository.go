package videos

import (
	"context"

	"github.com/dmitrijs2005/vidtube/internal/server/models"
)

type Repository interface {
	WatchHistory(ctx context.Context, userID string) ([]*models.WatchHistoryItem, error)
}
