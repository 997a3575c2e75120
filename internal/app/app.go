package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"auth-service/internal/config"
	"auth-service/internal/database"
	"auth-service/internal/handler"
	"auth-service/internal/middleware"
	"auth-service/internal/repository"
	"auth-service/internal/router"
	"auth-service/internal/service"
)

type App struct {
	server       *http.Server
	cleanupFuncs []func()
}

// New wires the application. The optional verifier enables the federated
// login routes; passing nil leaves them unmounted.
func New(verifier handler.FederatedVerifier) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var cleanupFuncs []func()

	var users service.UserStore
	var sessions service.SessionStore

	switch cfg.SessionStore {
	case config.StoreMemory:
		slog.Info("running with in-memory stores")
		users = repository.NewMemoryUserStore()
		sessions = repository.NewMemorySessionStore()

	case config.StoreRedis:
		slog.Info("connecting to PostgreSQL")
		db, err := connectDatabase(cfg)
		if err != nil {
			return nil, err
		}
		cleanupFuncs = append(cleanupFuncs, db.Close)
		users = repository.NewUserRepository(db.Pool)

		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		cleanupFuncs = append(cleanupFuncs, func() { _ = client.Close() })
		sessions = repository.NewRedisSessionStore(client, cfg.JWTRefreshTTL)
		slog.Info("redis session store ready", "addr", cfg.RedisAddr)

	default:
		slog.Info("connecting to PostgreSQL")
		db, err := connectDatabase(cfg)
		if err != nil {
			return nil, err
		}
		cleanupFuncs = append(cleanupFuncs, db.Close)
		users = repository.NewUserRepository(db.Pool)
		sessions = repository.NewPostgresSessionStore(db.Pool)
	}

	issuer, err := service.NewTokenIssuer(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	if err != nil {
		runCleanups(cleanupFuncs)
		return nil, fmt.Errorf("failed to initialize token issuer: %w", err)
	}

	authService := service.NewAuthService(users, sessions, issuer, service.NewBcryptHasher())
	authMiddleware := middleware.NewAuthMiddleware(issuer)
	authHandler := handler.NewAuthHandler(authService, handler.CookieOptions{
		Path:   cfg.CookiePath,
		Secure: cfg.CookieSecure,
		MaxAge: cfg.JWTRefreshTTL,
	}, verifier, cfg.OAuthSuccessURL, cfg.OAuthFailureURL)

	appRouter := router.New(cfg, authMiddleware, authHandler)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server:       server,
		cleanupFuncs: cleanupFuncs,
	}, nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		runCleanups(a.cleanupFuncs)
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	runCleanups(a.cleanupFuncs)
	slog.Info("server stopped")
	return nil
}

func connectDatabase(cfg *config.Config) (*database.DB, error) {
	db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	return db, nil
}

func runCleanups(cleanups []func()) {
	for _, cleanup := range cleanups {
		cleanup()
	}
}
