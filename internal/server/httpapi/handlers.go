package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/logging"
	"github.com/dmitrijs2005/vidtube/internal/server/auth"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
	"github.com/dmitrijs2005/vidtube/internal/server/services"
	"github.com/gorilla/mux"
)

type SessionService interface {
	Login(ctx context.Context, username, email, password string) (*services.Session, error)
	Logout(ctx context.Context, userID string) error
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
}

type UserService interface {
	Register(ctx context.Context, in services.RegisterInput, avatarPath, coverPath string) (*models.PublicUser, error)
	CurrentUser(ctx context.Context, userID string) (*models.PublicUser, error)
	UpdateAccount(ctx context.Context, userID, fullName, email string) (*models.PublicUser, error)
	UpdateAvatar(ctx context.Context, userID, path string) (*models.PublicUser, error)
	UpdateCoverImage(ctx context.Context, userID, path string) (*models.PublicUser, error)
}

type ChannelService interface {
	ChannelProfile(ctx context.Context, username, viewerID string) (*models.ChannelProfile, error)
	WatchHistory(ctx context.Context, userID string) ([]*models.WatchHistoryItem, error)
}

// Handlers implements the /api/v1/users endpoints.
type Handlers struct {
	sessions  SessionService
	users     UserService
	channels  ChannelService
	uploadDir string
	logger    logging.Logger
}

func NewHandlers(s SessionService, u UserService, c ChannelService, uploadDir string, logger logging.Logger) *Handlers {
	return &Handlers{sessions: s, users: u, channels: c, uploadDir: uploadDir, logger: logger}
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(r.Context(), w, h.logger, err)
}

// caller returns the identity attached by the gate. Handlers behind the
// gate always have one.
func caller(r *http.Request) *models.PublicUser {
	u, _ := auth.UserFromContext(r.Context())
	if u == nil {
		return &models.PublicUser{}
	}
	return u
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	form, err := parseMultipart(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer form.cleanup()

	avatar, err := form.save("avatar", h.uploadDir)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	cover, err := form.save("coverImage", h.uploadDir)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.users.Register(r.Context(), services.RegisterInput{
		FullName: form.value("fullName"),
		Email:    form.value("email"),
		Username: form.value("username"),
		Password: form.value("password"),
	}, avatar, cover)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, user, "User registered successfully")
}

type loginResponse struct {
	User         *models.PublicUser `json:"user"`
	AccessToken  string             `json:"accessToken"`
	RefreshToken string             `json:"refreshToken"`
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	vals, err := formValues(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	sess, err := h.sessions.Login(r.Context(), vals.Get("username"), vals.Get("email"), vals.Get("password"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	setAuthCookies(w, sess.Tokens.AccessToken, sess.Tokens.RefreshToken)
	writeSuccess(w, http.StatusOK, loginResponse{
		User:         sess.User,
		AccessToken:  sess.Tokens.AccessToken,
		RefreshToken: sess.Tokens.RefreshToken,
	}, "User logged in successfully")
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(r.Context(), caller(r).ID); err != nil {
		h.fail(w, r, err)
		return
	}

	clearAuthCookies(w)
	writeSuccess(w, http.StatusOK, nil, "User logged out successfully")
}

// RefreshToken takes the refresh token from its cookie, falling back to the
// refreshToken field of the body.
func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	vals, err := formValues(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var cookie string
	if c, err := r.Cookie(common.RefreshTokenCookieName); err == nil {
		cookie = c.Value
	}
	presented := common.FirstNonEmpty(cookie, vals.Get("refreshToken"))

	pair, err := h.sessions.Refresh(r.Context(), presented)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	setAuthCookies(w, pair.AccessToken, pair.RefreshToken)
	writeSuccess(w, http.StatusOK, pair, "Access token refreshed")
}

func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	vals, err := formValues(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	err = h.sessions.ChangePassword(r.Context(), caller(r).ID, vals.Get("oldPassword"), vals.Get("newPassword"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, nil, "Password changed successfully")
}

func (h *Handlers) CurrentUser(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, caller(r), "Current user fetched successfully")
}

func (h *Handlers) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	vals, err := formValues(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.users.UpdateAccount(r.Context(), caller(r).ID, vals.Get("fullName"), vals.Get("email"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, user, "Account details updated successfully")
}

func (h *Handlers) updateImage(w http.ResponseWriter, r *http.Request, field string,
	update func(ctx context.Context, userID, path string) (*models.PublicUser, error), message string) {
	form, err := parseMultipart(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer form.cleanup()

	path, err := form.save(field, h.uploadDir)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := update(r.Context(), caller(r).ID, path)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, user, message)
}

func (h *Handlers) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", h.users.UpdateAvatar, "Avatar image updated successfully")
}

func (h *Handlers) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", h.users.UpdateCoverImage, "Cover image updated successfully")
}

func (h *Handlers) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.channels.ChannelProfile(r.Context(), mux.Vars(r)["username"], caller(r).ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, profile, "User channel fetched successfully")
}

func (h *Handlers) WatchHistory(w http.ResponseWriter, r *http.Request) {
	items, err := h.channels.WatchHistory(r.Context(), caller(r).ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, items, "Watch history fetched successfully")
}
