// Package videos provides PostgreSQL-backed video queries.
package videos

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/vidtube/internal/dbx"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// WatchHistory returns the videos userID watched, most recent first, each
// joined with its owner's public fields.
func (r *PostgresRepository) WatchHistory(ctx context.Context, userID string) ([]*models.WatchHistoryItem, error) {
	query :=
		`SELECT v.id, v.video_file, v.thumbnail, v.title, v.description, v.duration, v.views, v.is_published, v.created_at,
		        wh.watched_at, u.full_name, u.username, u.avatar
		 FROM watch_history wh
		 JOIN videos v ON v.id = wh.video_id
		 JOIN users u ON u.id = v.owner_id
		 WHERE wh.user_id = $1
		 ORDER BY wh.watched_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select watch history: %w", err)
	}
	defer rows.Close()

	result := []*models.WatchHistoryItem{}
	for rows.Next() {
		var item models.WatchHistoryItem
		if err := rows.Scan(
			&item.ID, &item.VideoFile, &item.Thumbnail, &item.Title, &item.Description, &item.Duration,
			&item.Views, &item.IsPublished, &item.CreatedAt,
			&item.WatchedAt, &item.Owner.FullName, &item.Owner.Username, &item.Owner.Avatar,
		); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
