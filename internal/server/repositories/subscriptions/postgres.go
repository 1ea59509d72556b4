// Package subscriptions provides PostgreSQL-backed channel queries built on
// the subscriptions table.
package subscriptions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/dbx"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ChannelProfile loads the channel owned by username together with its
// subscriber count, the number of channels it subscribes to, and whether
// viewerID is subscribed to it. An empty viewerID is never subscribed.
func (r *PostgresRepository) ChannelProfile(ctx context.Context, username, viewerID string) (*models.ChannelProfile, error) {
	query :=
		`SELECT id, full_name, username, email, avatar, cover_image FROM users WHERE username = $1`

	p := &models.ChannelProfile{}
	err := r.db.QueryRowContext(ctx, query, username).
		Scan(&p.ID, &p.FullName, &p.Username, &p.Email, &p.Avatar, &p.CoverImage)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	countsQuery :=
		`SELECT
		   (SELECT COUNT(*) FROM subscriptions WHERE channel_id = $1),
		   (SELECT COUNT(*) FROM subscriptions WHERE subscriber_id = $1),
		   EXISTS (SELECT 1 FROM subscriptions WHERE channel_id = $1 AND subscriber_id = $2)`

	viewer := sql.NullString{String: viewerID, Valid: viewerID != ""}
	err = r.db.QueryRowContext(ctx, countsQuery, p.ID, viewer).
		Scan(&p.SubscribersCount, &p.ChannelsSubscribedToCount, &p.IsSubscribed)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}
