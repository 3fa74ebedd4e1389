package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"storefront-tma-backend/internal/app/auth"
	"storefront-tma-backend/internal/config"
	"storefront-tma-backend/internal/logger"
	"storefront-tma-backend/internal/store"
	httptransport "storefront-tma-backend/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	err = run(cfg, log)
	_ = log.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run serves until SIGINT or SIGTERM. Every error it returns has already
// been logged.
func run(cfg config.Config, log *zap.Logger) error {
	for _, name := range cfg.MissingSecrets() {
		log.Warn("secret is not configured; dependent routes will answer CONFIGURATION_ERROR",
			zap.String("env", name))
	}

	st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Error("open database", zap.String("driver", cfg.Database.Driver), zap.Error(err))
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error("close database", zap.Error(err))
		}
	}()

	svc := auth.NewService(st, auth.Options{
		BotToken:       cfg.Telegram.BotToken,
		JWTSecret:      cfg.Auth.JWTSecret,
		InitDataMaxAge: cfg.Telegram.InitDataMaxAge,
		SeedPassword:   cfg.Admin.SeedPassword,
	})

	if cfg.Admin.SeedEnabled {
		log.Warn("admin seed endpoint is enabled; disable it with ADMIN_SEED_ENABLED=false once bootstrapped")
	}

	handler := &httptransport.Handler{
		Auth:        svc,
		DB:          st,
		Logger:      logger.WithComponent(log, "http"),
		SeedEnabled: cfg.Admin.SeedEnabled,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           httptransport.NewRouter(handler, cfg.HTTP.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("db_driver", cfg.Database.Driver))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown", zap.Error(err))
		return err
	}
	return nil
}
