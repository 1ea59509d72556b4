package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
	"github.com/dmitrijs2005/vidtube/internal/server/repositories/repomanager"
)

type ChannelService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewChannelService(db *sql.DB, m repomanager.RepositoryManager) *ChannelService {
	return &ChannelService{db: db, repomanager: m}
}

// ChannelProfile returns the channel of username as seen by viewerID.
func (s *ChannelService) ChannelProfile(ctx context.Context, username, viewerID string) (*models.ChannelProfile, error) {
	username = common.NormalizeIdentifier(username)
	if username == "" {
		return nil, common.NewError(common.ErrValidation, "username is missing")
	}

	p, err := s.repomanager.Subscriptions(s.db).ChannelProfile(ctx, username, viewerID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.WrapError(common.ErrorNotFound, err, "channel does not exist")
		}
		return nil, internal(err)
	}
	return p, nil
}

// WatchHistory lists the videos userID watched, most recent first.
func (s *ChannelService) WatchHistory(ctx context.Context, userID string) ([]*models.WatchHistoryItem, error) {
	items, err := s.repomanager.Videos(s.db).WatchHistory(ctx, userID)
	if err != nil {
		return nil, internal(err)
	}
	return items, nil
}
