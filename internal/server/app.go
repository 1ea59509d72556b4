// Package server wires configuration, storage, media upload and the
// HTTP and gRPC transports into a runnable application.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/vidtube/internal/filex"
	"github.com/dmitrijs2005/vidtube/internal/logging"
	"github.com/dmitrijs2005/vidtube/internal/server/auth"
	"github.com/dmitrijs2005/vidtube/internal/server/config"
	"github.com/dmitrijs2005/vidtube/internal/server/httpapi"
	"github.com/dmitrijs2005/vidtube/internal/server/media"
	"github.com/dmitrijs2005/vidtube/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/vidtube/internal/server/services"
	"golang.org/x/time/rate"

	gs "github.com/dmitrijs2005/vidtube/internal/server/grpc"
)

// Login, register and refresh are throttled per client IP.
const (
	authRateLimit = rate.Limit(1)
	authRateBurst = 10
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	router      http.Handler
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	uploadDir, err := filex.EnsureDir(c.UploadTempDir)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("upload dir: %w", err)
	}

	uploader, err := media.NewS3Uploader(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("media init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	hasher := auth.NewPasswordHasher()
	tokens := auth.NewTokenManager(c)

	sessions := services.NewSessionService(db, rm, hasher, tokens)
	users := services.NewUserService(db, rm, hasher, uploader, logger.With("module", "users"))
	channels := services.NewChannelService(db, rm)

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Handlers:       httpapi.NewHandlers(sessions, users, channels, uploadDir, logger.With("module", "http")),
		Gate:           httpapi.NewGate(tokens, users, logger.With("module", "gate")),
		DB:             db,
		CORSOrigin:     c.CORSOrigin,
		AuthLimit:      authRateLimit,
		AuthBurst:      authRateBurst,
		TrustedProxies: c.TrustedProxies,
		Logger:         logger.With("module", "http"),
	})

	return &App{config: c, logger: logger, db: db, repomanager: rm, router: router}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.db)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "gRPC server failed", "error", err)
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.router)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "HTTP server failed", "error", err)
		cancelFunc()
	}
}

// Run migrates the schema and serves until a termination signal arrives or
// one of the servers fails.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.db.Close()

	app.logger.Info(ctx, "Starting app...")

	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()
	app.logger.Info(context.Background(), "App stopped")

	return nil
}
