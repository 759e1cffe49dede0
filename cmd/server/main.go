package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	authmetrics "authhub/internal/auth/metrics"
	authservice "authhub/internal/auth/service"
	identitymetrics "authhub/internal/identity/metrics"
	identityservice "authhub/internal/identity/service"
	identitystore "authhub/internal/identity/store"
	authentication "authhub/internal/identity/store/authentication"
	userstore "authhub/internal/identity/store/user"
	"authhub/internal/platform/config"
	"authhub/internal/platform/database"
	"authhub/internal/platform/httpserver"
	"authhub/internal/platform/logger"
	"authhub/internal/platform/redis"
	"authhub/internal/provider"
	sessionmetrics "authhub/internal/session/metrics"
	sessionservice "authhub/internal/session/service"
	sessionstore "authhub/internal/session/store"
	sessionbackend "authhub/internal/session/store/session"
	httptransport "authhub/internal/transport/http"
	"authhub/pkg/platform/tx"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	var (
		users    identitystore.UserStore
		auths    identitystore.AuthStore
		sessions sessionstore.Store
		runner   tx.Runner = tx.NoopRunner{}
	)

	switch cfg.StorageBackend {
	case "postgres":
		if cfg.DatabaseURL == "" {
			log.Error("DATABASE_URL is required for the postgres backend")
			os.Exit(1)
		}
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		users = userstore.NewPostgres(db)
		auths = authentication.NewPostgres(db)
		sessions = sessionbackend.NewPostgres(db)
		runner = tx.NewSQLRunner(db)
	case "memory":
		users = userstore.New()
		auths = authentication.New()
		sessions = sessionbackend.NewMemory()
	default:
		log.Error("unknown storage backend", "backend", cfg.StorageBackend)
		os.Exit(1)
	}

	// Redis takes over session storage when configured, independent of the
	// primary backend.
	if cfg.RedisURL != "" {
		rdb, err := redis.New(cfg.RedisURL)
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		sessions = sessionbackend.NewRedis(rdb.Client)
	}

	identitySvc := identityservice.New(users, auths, runner,
		identityservice.WithLogger(log),
		identityservice.WithMetrics(identitymetrics.New()),
	)
	sessionMgr := sessionservice.New(sessions, cfg.SessionTTL,
		sessionservice.WithLogger(log),
		sessionservice.WithMetrics(sessionmetrics.New()),
	)
	authSvc := authservice.New(identitySvc, sessionMgr,
		authservice.WithLogger(log),
		authservice.WithMetrics(authmetrics.New()),
	)

	for name, p := range cfg.Providers {
		pcfg := provider.Config{
			ClientID:     p.ClientID,
			ClientSecret: p.ClientSecret,
			RedirectURI:  p.RedirectURI,
		}
		var err error
		switch name {
		case "github":
			err = authSvc.Register(provider.NewGitHub(pcfg))
		case "google":
			err = authSvc.Register(provider.NewGoogle(pcfg))
		}
		if err != nil {
			log.Error("failed to register provider", "provider", name, "error", err)
			os.Exit(1)
		}
	}

	secureCookies := os.Getenv("COOKIE_SECURE") != "false"
	handler := httptransport.NewHandler(authSvc, identitySvc, sessionMgr, cfg.SessionTTL, secureCookies, log)
	router := httptransport.NewRouter(handler, log)

	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting authhub", "addr", cfg.Addr, "backend", cfg.StorageBackend, "providers", authSvc.Providers())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := sessionMgr.Run(ctx, cfg.CleanupInterval); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
