// Package users provides the PostgreSQL-backed credential store.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/dbx"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
)

const userColumns = `id, username, email, full_name, avatar, cover_image, password, refresh_token, created_at, updated_at`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanUser(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	var refresh sql.NullString
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.Avatar, &u.CoverImage,
		&u.Password, &refresh, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	u.RefreshToken = refresh.String
	return u, nil
}

// writeErr maps unique violations to common.ErrConflict.
func writeErr(err error) error {
	if dbx.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %w", common.ErrConflict, err)
	}
	return fmt.Errorf("db error: %w", err)
}

// Create inserts user and fills in the generated id and timestamps.
// Username and email collisions yield common.ErrConflict.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (username, email, full_name, avatar, cover_image, password)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		user.Username, user.Email, user.FullName, user.Avatar, user.CoverImage, user.Password,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, writeErr(err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// GetByUsernameOrEmail returns the user whose username equals username or
// whose email equals email. Callers pass normalized identifiers.
func (r *PostgresRepository) GetByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1 OR email = $2 LIMIT 1`
	return scanUser(r.db.QueryRowContext(ctx, query, username, email))
}

func (r *PostgresRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR email = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, username, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

// SetRefreshToken overwrites the stored refresh token of user id.
func (r *PostgresRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	n, err := r.exec(ctx, `UPDATE users SET refresh_token = $2, updated_at = now() WHERE id = $1`, id, token)
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// SwapRefreshToken replaces old with next only if old is still the stored
// token. When another request already rotated it, no row matches and
// common.ErrRefreshTokenReused is returned.
func (r *PostgresRepository) SwapRefreshToken(ctx context.Context, id, old, next string) error {
	n, err := r.exec(ctx,
		`UPDATE users SET refresh_token = $3, updated_at = now() WHERE id = $1 AND refresh_token = $2`,
		id, old, next)
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrRefreshTokenReused
	}
	return nil
}

// ClearRefreshToken removes the stored refresh token. Clearing an absent
// token is not an error.
func (r *PostgresRepository) ClearRefreshToken(ctx context.Context, id string) error {
	_, err := r.exec(ctx, `UPDATE users SET refresh_token = NULL, updated_at = now() WHERE id = $1`, id)
	return err
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id, digest string) error {
	n, err := r.exec(ctx, `UPDATE users SET password = $2, updated_at = now() WHERE id = $1`, id, digest)
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) updateReturning(ctx context.Context, set string, args ...any) (*models.User, error) {
	query := `UPDATE users SET ` + set + `, updated_at = now() WHERE id = $1 RETURNING ` + userColumns

	u := &models.User{}
	var refresh sql.NullString
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&u.ID, &u.Username, &u.Email, &u.FullName,
		&u.Avatar, &u.CoverImage, &u.Password, &refresh, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, writeErr(err)
	}
	u.RefreshToken = refresh.String
	return u, nil
}

// UpdateAccount changes full name and email. An email already owned by
// another user yields common.ErrConflict.
func (r *PostgresRepository) UpdateAccount(ctx context.Context, id, fullName, email string) (*models.User, error) {
	return r.updateReturning(ctx, `full_name = $2, email = $3`, id, fullName, email)
}

func (r *PostgresRepository) UpdateAvatar(ctx context.Context, id, url string) (*models.User, error) {
	return r.updateReturning(ctx, `avatar = $2`, id, url)
}

func (r *PostgresRepository) UpdateCoverImage(ctx context.Context, id, url string) (*models.User, error) {
	return r.updateReturning(ctx, `cover_image = $2`, id, url)
}
