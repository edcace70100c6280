// Package server initializes and runs the account server: it opens the
// database, applies migrations, builds the user service and serves it over
// HTTP and gRPC until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/standard/dreamcalendar/internal/cryptox"
	"github.com/standard/dreamcalendar/internal/logging"
	"github.com/standard/dreamcalendar/internal/server/auth"
	"github.com/standard/dreamcalendar/internal/server/config"
	"github.com/standard/dreamcalendar/internal/server/httpapi"
	"github.com/standard/dreamcalendar/internal/server/repositories/repomanager"
	"github.com/standard/dreamcalendar/internal/server/services"

	gs "github.com/standard/dreamcalendar/internal/server/grpc"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	userService *services.UserService
}

// OpenUserService connects to the database, migrates it and wires a
// UserService from cfg. The caller owns the returned *sql.DB.
func OpenUserService(ctx context.Context, cfg *config.Config, logger logging.Logger) (*services.UserService, *sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrations error: %w", err)
	}

	hasher := cryptox.NewHasher(cfg.HashAlgorithm)
	if err := hasher.Check(); err != nil {
		// accounts cannot be created until this is fixed, but the rest works
		logger.Warn(ctx, "password hash algorithm unavailable", "algorithm", cfg.HashAlgorithm, "error", err)
	}

	enc, err := cryptox.NewEncryptorFromSecret(cfg.SecretKey)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("encryptor init error: %w", err)
	}

	tp, err := auth.NewTokenProvider([]byte(cfg.SecretKey), enc, auth.Lifetimes{
		Access:        cfg.AccessTokenValidityDuration,
		Refresh:       cfg.RefreshTokenValidityDuration,
		RenewalWindow: cfg.RefreshTokenRenewalWindow,
	})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("token provider init error: %w", err)
	}

	return services.NewUserService(db, rm, hasher, tp, logger), db, nil
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewForEnv(c.Env, os.Stdout)
	if c.Env == logging.EnvProd {
		gin.SetMode(gin.ReleaseMode)
	}

	us, db, err := OpenUserService(ctx, c, logger)
	if err != nil {
		return nil, err
	}

	return &App{config: c, logger: logger, db: db, userService: us}, nil
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
	withReflection := app.config.Env != logging.EnvProd
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.userService, withReflection)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "gRPC server failed", "error", err)
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	router := httpapi.NewRouter(app.userService, app.logger, app.db.PingContext)
	s := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, router, app.logger)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "HTTP server failed", "error", err)
		cancelFunc()
	}
}

// Run blocks until both servers have stopped.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

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

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close failed", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
