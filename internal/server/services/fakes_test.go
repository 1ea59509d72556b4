package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/dbx"
	"github.com/dmitrijs2005/vidtube/internal/logging"
	"github.com/dmitrijs2005/vidtube/internal/server/auth"
	"github.com/dmitrijs2005/vidtube/internal/server/config"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
	"github.com/dmitrijs2005/vidtube/internal/server/repositories/subscriptions"
	usersrepo "github.com/dmitrijs2005/vidtube/internal/server/repositories/users"
	"github.com/dmitrijs2005/vidtube/internal/server/repositories/videos"
)

// --- in-memory users repository ---

type memUsers struct {
	mu         sync.Mutex
	seq        int
	byID       map[string]*models.User
	err        error // returned by every call when set
	onCreate   func(*models.User) error
	// beforeSwap runs ahead of SwapRefreshToken, outside the lock.
	beforeSwap func(id string)
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*models.User{}}
}

func (m *memUsers) copyOf(u *models.User) *models.User {
	c := *u
	return &c
}

func (m *memUsers) find(match func(*models.User) bool) *models.User {
	for _, u := range m.byID {
		if match(u) {
			return u
		}
	}
	return nil
}

func (m *memUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.onCreate != nil {
		if err := m.onCreate(u); err != nil {
			return nil, err
		}
	}
	if m.find(func(x *models.User) bool { return x.Username == u.Username || x.Email == u.Email }) != nil {
		return nil, fmt.Errorf("%w: duplicate", common.ErrConflict)
	}
	m.seq++
	u.ID = fmt.Sprintf("u-%d", m.seq)
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.byID[u.ID] = m.copyOf(u)
	return u, nil
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return m.copyOf(u), nil
}

func (m *memUsers) GetByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u := m.find(func(x *models.User) bool { return x.Username == username || x.Email == email })
	if u == nil {
		return nil, common.ErrorNotFound
	}
	return m.copyOf(u), nil
}

func (m *memUsers) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	return m.find(func(x *models.User) bool { return x.Username == username || x.Email == email }) != nil, nil
}

func (m *memUsers) update(id string, fn func(u *models.User) error) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if err := fn(u); err != nil {
		return nil, err
	}
	u.UpdatedAt = time.Now()
	return m.copyOf(u), nil
}

func (m *memUsers) SetRefreshToken(ctx context.Context, id, token string) error {
	_, err := m.update(id, func(u *models.User) error { u.RefreshToken = token; return nil })
	return err
}

func (m *memUsers) SwapRefreshToken(ctx context.Context, id, old, next string) error {
	if m.beforeSwap != nil {
		m.beforeSwap(id)
	}
	_, err := m.update(id, func(u *models.User) error {
		if u.RefreshToken == "" || u.RefreshToken != old {
			return common.ErrRefreshTokenReused
		}
		u.RefreshToken = next
		return nil
	})
	if err == common.ErrorNotFound {
		return common.ErrRefreshTokenReused
	}
	return err
}

func (m *memUsers) ClearRefreshToken(ctx context.Context, id string) error {
	_, err := m.update(id, func(u *models.User) error { u.RefreshToken = ""; return nil })
	if err == common.ErrorNotFound {
		return nil
	}
	return err
}

func (m *memUsers) UpdatePassword(ctx context.Context, id, digest string) error {
	_, err := m.update(id, func(u *models.User) error { u.Password = digest; return nil })
	return err
}

func (m *memUsers) UpdateAccount(ctx context.Context, id, fullName, email string) (*models.User, error) {
	m.mu.Lock()
	taken := m.find(func(x *models.User) bool { return x.Email == email && x.ID != id }) != nil
	m.mu.Unlock()
	if taken {
		return nil, fmt.Errorf("%w: duplicate email", common.ErrConflict)
	}
	return m.update(id, func(u *models.User) error { u.FullName, u.Email = fullName, email; return nil })
}

func (m *memUsers) UpdateAvatar(ctx context.Context, id, url string) (*models.User, error) {
	return m.update(id, func(u *models.User) error { u.Avatar = url; return nil })
}

func (m *memUsers) UpdateCoverImage(ctx context.Context, id, url string) (*models.User, error) {
	return m.update(id, func(u *models.User) error { u.CoverImage = url; return nil })
}

func (m *memUsers) stored(t *testing.T, id string) *models.User {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		t.Fatalf("user %s not stored", id)
	}
	return m.copyOf(u)
}

// --- channel and video fakes ---

type fakeSubscriptions struct {
	profile   *models.ChannelProfile
	err       error
	gotName   string
	gotViewer string
}

func (f *fakeSubscriptions) ChannelProfile(ctx context.Context, username, viewerID string) (*models.ChannelProfile, error) {
	f.gotName, f.gotViewer = username, viewerID
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

type fakeVideos struct {
	items []*models.WatchHistoryItem
	err   error
}

func (f *fakeVideos) WatchHistory(ctx context.Context, userID string) ([]*models.WatchHistoryItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

type fakeRepoManager struct {
	users *memUsers
	subs  *fakeSubscriptions
	vids  *fakeVideos
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error       { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository             { return m.users }
func (m *fakeRepoManager) Subscriptions(db dbx.DBTX) subscriptions.Repository { return m.subs }
func (m *fakeRepoManager) Videos(db dbx.DBTX) videos.Repository               { return m.vids }

// --- uploader fake ---

type fakeUploader struct {
	mu    sync.Mutex
	paths []string
	fail  map[string]error
}

func (f *fakeUploader) Upload(ctx context.Context, localPath string) (string, error) {
	if localPath == "" {
		return "", nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, localPath)
	if err := f.fail[localPath]; err != nil {
		return "", err
	}
	return "http://media.test/media/" + filepath.Base(localPath), nil
}

// --- wiring ---

type testEnv struct {
	db       *sql.DB
	mock     sqlmock.Sqlmock
	rm       *fakeRepoManager
	uploader *fakeUploader
	hasher   *auth.PasswordHasher
	tokens   *auth.TokenManager
	sessions *SessionService
	users    *UserService
	channels *ChannelService
}

func testConfig() *config.Config {
	return &config.Config{
		AccessTokenSecret:            "access-secret",
		RefreshTokenSecret:           "refresh-secret",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 24 * time.Hour,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	rm := &fakeRepoManager{users: newMemUsers(), subs: &fakeSubscriptions{}, vids: &fakeVideos{}}
	up := &fakeUploader{fail: map[string]error{}}
	hasher := auth.NewPasswordHasher()
	tokens := auth.NewTokenManager(testConfig())
	logger := logging.NewJSONLogger(io.Discard, slog.LevelError)

	return &testEnv{
		db:       db,
		mock:     mock,
		rm:       rm,
		uploader: up,
		hasher:   hasher,
		tokens:   tokens,
		sessions: NewSessionService(db, rm, hasher, tokens),
		users:    NewUserService(db, rm, hasher, up, logger),
		channels: NewChannelService(db, rm),
	}
}

func (e *testEnv) register(t *testing.T, username, email, password string) *models.PublicUser {
	t.Helper()
	u, err := e.users.Register(context.Background(), RegisterInput{
		FullName: "Full " + username,
		Email:    email,
		Username: username,
		Password: password,
	}, "/tmp/"+username+"-avatar.png", "")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	return u
}
