package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/dbx"
	"github.com/dmitrijs2005/vidtube/internal/server/auth"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
	"github.com/dmitrijs2005/vidtube/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/vidtube/internal/server/repositories/users"
)

// SessionService owns the token lifecycle. A user has at most one stored
// refresh token: login and refresh overwrite it, logout clears it.
type SessionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *auth.PasswordHasher
	tokens      *auth.TokenManager
}

func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, hasher *auth.PasswordHasher, tokens *auth.TokenManager) *SessionService {
	return &SessionService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		tokens:      tokens,
	}
}

// Login authenticates by username or email and starts a new session,
// replacing any refresh token stored for the user.
func (s *SessionService) Login(ctx context.Context, username, email, password string) (*Session, error) {
	username = common.NormalizeIdentifier(username)
	email = common.NormalizeIdentifier(email)
	if username == "" && email == "" {
		return nil, common.NewError(common.ErrValidation, "username or email is required")
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.WrapError(common.ErrorNotFound, err, "User does not exist")
		}
		return nil, internal(err)
	}

	ok, err := s.hasher.Verify(password, user.Password)
	if err != nil {
		return nil, internal(err)
	}
	if !ok {
		return nil, common.NewError(common.ErrorUnauthorized, "Invalid user credentials")
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}
	if err := repo.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, internal(err)
	}
	user.RefreshToken = pair.RefreshToken

	return &Session{User: user.Public(), Tokens: *pair}, nil
}

// Logout clears the stored refresh token. Logging out twice is harmless.
func (s *SessionService) Logout(ctx context.Context, userID string) error {
	if err := s.repomanager.Users(s.db).ClearRefreshToken(ctx, userID); err != nil {
		return internal(err)
	}
	return nil
}

// Refresh exchanges a valid, current refresh token for a new pair. The
// presented token stops working once the new one is stored; when two
// requests race with the same token only one of them succeeds.
func (s *SessionService) Refresh(ctx context.Context, presented string) (*TokenPair, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return nil, common.WrapError(common.ErrorUnauthorized, common.ErrRefreshTokenMissing, "unauthorized request")
	}

	userID, err := s.tokens.VerifyRefresh(presented)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, common.WrapError(common.ErrorUnauthorized, err, "Refresh token is expired or used")
		}
		return nil, common.WrapError(common.ErrorUnauthorized, err, "Invalid refresh token")
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		user, err := repo.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.WrapError(common.ErrorUnauthorized, err, "Invalid refresh token")
			}
			return internal(err)
		}

		if err := s.tokens.MatchRefresh(presented, user.RefreshToken); err != nil {
			return common.WrapError(common.ErrorUnauthorized, err, "Refresh token is expired or used")
		}

		pair, err = s.issuePair(user)
		if err != nil {
			return err
		}

		return swapRefresh(ctx, repo, user.ID, presented, pair.RefreshToken)
	})
	if err != nil {
		return nil, err
	}

	return pair, nil
}

func swapRefresh(ctx context.Context, repo users.Repository, userID, old, next string) error {
	err := repo.SwapRefreshToken(ctx, userID, old, next)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrRefreshTokenReused):
		return common.WrapError(common.ErrorUnauthorized, err, "Refresh token is expired or used")
	default:
		return internal(err)
	}
}

// ChangePassword replaces the password after checking the current one.
func (s *SessionService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if oldPassword == "" || strings.TrimSpace(newPassword) == "" {
		return common.NewError(common.ErrValidation, "Old and new password are required")
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.WrapError(common.ErrorNotFound, err, "User does not exist")
		}
		return internal(err)
	}

	ok, err := s.hasher.Verify(oldPassword, user.Password)
	if err != nil {
		return internal(err)
	}
	if !ok {
		return common.NewError(common.ErrValidation, "Invalid old password")
	}

	user.SetPassword(newPassword)
	if err := hashPending(s.hasher, user); err != nil {
		return err
	}

	if err := repo.UpdatePassword(ctx, user.ID, user.Password); err != nil {
		return internal(err)
	}
	return nil
}

func (s *SessionService) issuePair(user *models.User) (*TokenPair, error) {
	access, err := s.tokens.IssueAccess(user)
	if err != nil {
		return nil, internal(err)
	}
	refresh, err := s.tokens.IssueRefresh(user)
	if err != nil {
		return nil, internal(err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// hashPending digests a password set with SetPassword. Users without a
// pending password are left untouched.
func hashPending(h *auth.PasswordHasher, user *models.User) error {
	if !user.PasswordChanged() {
		return nil
	}
	digest, err := h.Hash(user.PendingPassword())
	if err != nil {
		if errors.Is(err, common.ErrValidation) {
			return err
		}
		return internal(err)
	}
	user.ApplyPasswordHash(digest)
	return nil
}
