package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/geocoder89/adminpanel/internal/auth"
	"github.com/geocoder89/adminpanel/internal/config"
	"github.com/geocoder89/adminpanel/internal/db"
	httpx "github.com/geocoder89/adminpanel/internal/http"
	"github.com/geocoder89/adminpanel/internal/observability"
	"github.com/geocoder89/adminpanel/internal/repo/memory"
	"github.com/geocoder89/adminpanel/internal/repo/postgres"
	"github.com/geocoder89/adminpanel/internal/security"
	"github.com/geocoder89/adminpanel/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const serviceName = "adminpanel-api"

func main() {
	// Load the config set up
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OTelEnabled {
		shutdownTracer, err := observability.InitTracer(ctx, serviceName, cfg.Env, cfg.OTelEndpoint, cfg.OTelSampleRatio)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = shutdownTracer(sctx)
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	var (
		store service.AccountStore
		ping  func(context.Context) error
	)

	switch cfg.Store {
	case "memory":
		log.Warn("using in-memory account store; data is lost on restart")
		store = memory.NewAccountsRepo()
	default:
		pool, err := db.NewPool(ctx, cfg.DBURL, cfg.DBMaxConns)
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		defer pool.Close()

		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}

		store = postgres.NewAccountsRepo(pool, prom)
		ping = pool.Ping
	}

	if err := db.EnsureAdminUser(ctx, store, cfg, log); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	tokens := auth.NewManager(cfg.JWTSecret)
	accounts := service.NewAccountService(store, security.NewHasher(security.DefaultCost), tokens, log)

	var draining atomic.Bool

	// set up routers with the log
	router := httpx.NewRouter(httpx.Deps{
		Log:                log,
		Accounts:           accounts,
		Tokens:             tokens,
		Ping:               ping,
		Draining:           draining.Load,
		Prom:               prom,
		Gatherer:           reg,
		Env:                cfg.Env,
		ServiceName:        serviceName,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		MaxBodyBytes:       cfg.MaxBodyBytes,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.Store)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Graceful shutdown
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("server shutting down")
	draining.Store(true)

	shutdownCtx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("shutdown complete")
	return nil
}
