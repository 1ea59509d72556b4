package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/logging"
	"github.com/dmitrijs2005/vidtube/internal/server/auth"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
	"github.com/dmitrijs2005/vidtube/internal/server/repositories/repomanager"
)

// RegisterInput holds the text fields of a registration request.
type RegisterInput struct {
	FullName string
	Email    string
	Username string
	Password string
}

// UserService handles registration and profile changes.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *auth.PasswordHasher
	uploader    Uploader
	logger      logging.Logger
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher *auth.PasswordHasher, uploader Uploader, logger logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		uploader:    uploader,
		logger:      logger.With("module", "users"),
	}
}

// Register creates a user. avatarPath is required; coverPath may be empty.
// Both are local temporary files handed to the uploader.
func (s *UserService) Register(ctx context.Context, in RegisterInput, avatarPath, coverPath string) (*models.PublicUser, error) {
	user := &models.User{
		FullName: strings.TrimSpace(in.FullName),
		Email:    common.NormalizeIdentifier(in.Email),
		Username: common.NormalizeIdentifier(in.Username),
	}
	if user.FullName == "" || user.Email == "" || user.Username == "" || strings.TrimSpace(in.Password) == "" {
		return nil, common.NewError(common.ErrValidation, "All fields are required")
	}

	repo := s.repomanager.Users(s.db)

	exists, err := repo.ExistsByUsernameOrEmail(ctx, user.Username, user.Email)
	if err != nil {
		return nil, internal(err)
	}
	if exists {
		return nil, common.NewError(common.ErrConflict, "User with email or username already exists")
	}

	if avatarPath == "" {
		return nil, common.NewError(common.ErrValidation, "Avatar file is required")
	}

	user.Avatar, err = s.uploader.Upload(ctx, avatarPath)
	if err != nil || user.Avatar == "" {
		return nil, common.WrapError(common.ErrValidation, err, "Avatar file is required")
	}

	user.CoverImage, err = s.uploader.Upload(ctx, coverPath)
	if err != nil {
		s.logger.Warn(ctx, "cover image upload failed", "username", user.Username, "error", err)
		user.CoverImage = ""
	}

	user.SetPassword(in.Password)
	if err := hashPending(s.hasher, user); err != nil {
		return nil, err
	}

	created, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.WrapError(common.ErrConflict, err, "User with email or username already exists")
		}
		return nil, internal(err)
	}

	s.logger.Info(ctx, "user registered", "user_id", created.ID)
	return created.Public(), nil
}

// CurrentUser returns the sanitized identity of userID.
func (s *UserService) CurrentUser(ctx context.Context, userID string) (*models.PublicUser, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.WrapError(common.ErrorNotFound, err, "User does not exist")
		}
		return nil, internal(err)
	}
	return user.Public(), nil
}

// UpdateAccount changes full name and email.
func (s *UserService) UpdateAccount(ctx context.Context, userID, fullName, email string) (*models.PublicUser, error) {
	fullName = strings.TrimSpace(fullName)
	email = common.NormalizeIdentifier(email)
	if fullName == "" || email == "" {
		return nil, common.NewError(common.ErrValidation, "All fields are required")
	}

	user, err := s.repomanager.Users(s.db).UpdateAccount(ctx, userID, fullName, email)
	if err != nil {
		return nil, updateErr(err, "Email is already in use")
	}
	return user.Public(), nil
}

// UpdateAvatar uploads a new avatar and stores its URL.
func (s *UserService) UpdateAvatar(ctx context.Context, userID, path string) (*models.PublicUser, error) {
	if path == "" {
		return nil, common.NewError(common.ErrValidation, "Avatar file is missing")
	}

	url, err := s.uploader.Upload(ctx, path)
	if err != nil || url == "" {
		return nil, common.WrapError(common.ErrValidation, err, "Error while uploading avatar")
	}

	user, err := s.repomanager.Users(s.db).UpdateAvatar(ctx, userID, url)
	if err != nil {
		return nil, updateErr(err, "")
	}
	return user.Public(), nil
}

// UpdateCoverImage uploads a new cover image and stores its URL.
func (s *UserService) UpdateCoverImage(ctx context.Context, userID, path string) (*models.PublicUser, error) {
	if path == "" {
		return nil, common.NewError(common.ErrValidation, "Cover Image file is missing")
	}

	url, err := s.uploader.Upload(ctx, path)
	if err != nil || url == "" {
		return nil, common.WrapError(common.ErrValidation, err, "Error while uploading cover image")
	}

	user, err := s.repomanager.Users(s.db).UpdateCoverImage(ctx, userID, url)
	if err != nil {
		return nil, updateErr(err, "")
	}
	return user.Public(), nil
}

func updateErr(err error, conflictMsg string) error {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return common.WrapError(common.ErrorNotFound, err, "User does not exist")
	case errors.Is(err, common.ErrConflict):
		return common.WrapError(common.ErrConflict, err, conflictMsg)
	default:
		return internal(err)
	}
}
