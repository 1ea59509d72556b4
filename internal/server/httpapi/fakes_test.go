package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/logging"
	"github.com/dmitrijs2005/vidtube/internal/server/auth"
	"github.com/dmitrijs2005/vidtube/internal/server/config"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
	"github.com/dmitrijs2005/vidtube/internal/server/services"
	"golang.org/x/time/rate"
)

var alice = &models.User{ID: "u-1", Username: "alice", Email: "alice@example.com", FullName: "Alice A", Avatar: "http://media.test/a.png"}

// fakeSessions keeps one refresh token per user, like the real service.
type fakeSessions struct {
	mu       sync.Mutex
	tokens   *auth.TokenManager
	stored   map[string]string
	password string
}

func (f *fakeSessions) pair(u *models.User) (*services.TokenPair, error) {
	access, err := f.tokens.IssueAccess(u)
	if err != nil {
		return nil, err
	}
	refresh, err := f.tokens.IssueRefresh(u)
	if err != nil {
		return nil, err
	}
	return &services.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (f *fakeSessions) Login(ctx context.Context, username, email, password string) (*services.Session, error) {
	if username == "" && email == "" {
		return nil, common.NewError(common.ErrValidation, "username or email is required")
	}
	if username != alice.Username && email != alice.Email {
		return nil, common.NewError(common.ErrorNotFound, "User does not exist")
	}
	if password != f.password {
		return nil, common.NewError(common.ErrorUnauthorized, "Invalid user credentials")
	}
	p, err := f.pair(alice)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.stored[alice.ID] = p.RefreshToken
	f.mu.Unlock()
	return &services.Session{User: alice.Public(), Tokens: *p}, nil
}

func (f *fakeSessions) Logout(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.stored, userID)
	return nil
}

func (f *fakeSessions) Refresh(ctx context.Context, presented string) (*services.TokenPair, error) {
	if presented == "" {
		return nil, common.WrapError(common.ErrorUnauthorized, common.ErrRefreshTokenMissing, "unauthorized request")
	}
	id, err := f.tokens.VerifyRefresh(presented)
	if err != nil {
		return nil, common.WrapError(common.ErrorUnauthorized, err, "Invalid refresh token")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.tokens.MatchRefresh(presented, f.stored[id]); err != nil {
		return nil, common.WrapError(common.ErrorUnauthorized, err, "Refresh token is expired or used")
	}
	p, err := f.pair(alice)
	if err != nil {
		return nil, err
	}
	f.stored[id] = p.RefreshToken
	return p, nil
}

func (f *fakeSessions) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return common.NewError(common.ErrValidation, "Old and new password are required")
	}
	if oldPassword != f.password {
		return common.NewError(common.ErrValidation, "Invalid old password")
	}
	f.password = newPassword
	return nil
}

type registerCall struct {
	in         services.RegisterInput
	avatarPath string
	coverPath  string
	// avatarExisted records whether the staged file was on disk during the call.
	avatarExisted bool
}

type fakeUsers struct {
	mu        sync.Mutex
	users     map[string]*models.User
	lookupErr error
	registers []registerCall
	imagePath string
}

func (f *fakeUsers) Register(ctx context.Context, in services.RegisterInput, avatarPath, coverPath string) (*models.PublicUser, error) {
	call := registerCall{in: in, avatarPath: avatarPath, coverPath: coverPath}
	if avatarPath != "" {
		_, err := os.Stat(avatarPath)
		call.avatarExisted = err == nil
	}
	f.mu.Lock()
	f.registers = append(f.registers, call)
	f.mu.Unlock()

	if in.Username == "" || in.Email == "" || in.FullName == "" || in.Password == "" {
		return nil, common.NewError(common.ErrValidation, "All fields are required")
	}
	if in.Username == alice.Username {
		return nil, common.NewError(common.ErrConflict, "User with email or username already exists")
	}
	if avatarPath == "" {
		return nil, common.NewError(common.ErrValidation, "Avatar file is required")
	}
	u := &models.User{ID: "u-2", Username: in.Username, Email: in.Email, FullName: in.FullName, Avatar: "http://media.test/avatar.png"}
	return u.Public(), nil
}

func (f *fakeUsers) CurrentUser(ctx context.Context, userID string) (*models.PublicUser, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil, common.NewError(common.ErrorNotFound, "User does not exist")
	}
	return u.Public(), nil
}

func (f *fakeUsers) UpdateAccount(ctx context.Context, userID, fullName, email string) (*models.PublicUser, error) {
	if fullName == "" || email == "" {
		return nil, common.NewError(common.ErrValidation, "All fields are required")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[userID]
	u.FullName, u.Email = fullName, email
	return u.Public(), nil
}

func (f *fakeUsers) image(userID, path, missing string, set func(*models.User)) (*models.PublicUser, error) {
	if path == "" {
		return nil, common.NewError(common.ErrValidation, missing)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imagePath = path
	u := f.users[userID]
	set(u)
	return u.Public(), nil
}

func (f *fakeUsers) UpdateAvatar(ctx context.Context, userID, path string) (*models.PublicUser, error) {
	return f.image(userID, path, "Avatar file is missing", func(u *models.User) { u.Avatar = "http://media.test/new-avatar.png" })
}

func (f *fakeUsers) UpdateCoverImage(ctx context.Context, userID, path string) (*models.PublicUser, error) {
	return f.image(userID, path, "Cover Image file is missing", func(u *models.User) { u.CoverImage = "http://media.test/new-cover.png" })
}

type fakeChannels struct {
	gotName   string
	gotViewer string
	history   []*models.WatchHistoryItem
}

func (f *fakeChannels) ChannelProfile(ctx context.Context, username, viewerID string) (*models.ChannelProfile, error) {
	f.gotName, f.gotViewer = username, viewerID
	if username != "alice" {
		return nil, common.NewError(common.ErrorNotFound, "channel does not exist")
	}
	return &models.ChannelProfile{ID: alice.ID, Username: alice.Username, FullName: alice.FullName, SubscribersCount: 3, IsSubscribed: true}, nil
}

func (f *fakeChannels) WatchHistory(ctx context.Context, userID string) ([]*models.WatchHistoryItem, error) {
	return f.history, nil
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func testConfig() *config.Config {
	return &config.Config{
		AccessTokenSecret:            "access-secret",
		RefreshTokenSecret:           "refresh-secret",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 24 * time.Hour,
	}
}

type testAPI struct {
	handler   http.Handler
	tokens    *auth.TokenManager
	sessions  *fakeSessions
	users     *fakeUsers
	channels  *fakeChannels
	pinger    *fakePinger
	uploadDir string
}

type apiOption func(*RouterConfig)

func withAuthLimit(limit rate.Limit, burst int) apiOption {
	return func(c *RouterConfig) { c.AuthLimit, c.AuthBurst = limit, burst }
}

func newTestAPI(t *testing.T, opts ...apiOption) *testAPI {
	t.Helper()

	tokens := auth.NewTokenManager(testConfig())
	u := *alice
	api := &testAPI{
		tokens:    tokens,
		sessions:  &fakeSessions{tokens: tokens, stored: map[string]string{}, password: "pw-alice"},
		users:     &fakeUsers{users: map[string]*models.User{alice.ID: &u}},
		channels:  &fakeChannels{},
		pinger:    &fakePinger{},
		uploadDir: t.TempDir(),
	}
	logger := logging.NewJSONLogger(io.Discard, slog.LevelError)

	cfg := RouterConfig{
		Handlers:   NewHandlers(api.sessions, api.users, api.channels, api.uploadDir, logger),
		Gate:       NewGate(tokens, api.users, logger),
		DB:         api.pinger,
		CORSOrigin: "http://localhost:3000",
		Logger:     logger,
	}
	for _, o := range opts {
		o(&cfg)
	}
	api.handler = NewRouter(cfg)
	return api
}

func (a *testAPI) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) accessToken(t *testing.T) string {
	t.Helper()
	tok, err := a.tokens.IssueAccess(alice)
	if err != nil {
		t.Fatalf("IssueAccess error: %v", err)
	}
	return tok
}

var errBoom = errors.New("boom")
