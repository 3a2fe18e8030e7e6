package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"bazaar/internal/config"
	"bazaar/internal/httpserver"
	"bazaar/internal/logging"
	"bazaar/internal/security"
	"bazaar/internal/service"
	"bazaar/internal/store/sqlite"
	"bazaar/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logging.New(cfg.Debug)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	db, err := sqlite.Open(cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := sqlite.Migrate(db); err != nil {
		return err
	}

	users := sqlite.NewUserRepo(db)
	categories := sqlite.NewCategoryRepo(db)
	products := sqlite.NewProductRepo(db)
	carts := sqlite.NewCartRepo(db)
	orders := sqlite.NewOrderRepo(db)
	messages := sqlite.NewMessageRepo(db)

	tokens := security.NewTokenService(cfg.JWTSecret, time.Duration(cfg.AccessTokenMinutes)*time.Minute)
	hasher := security.NewPasswordHasher(0)

	srv := httpserver.New(httpserver.Deps{
		Auth:     service.NewAuthService(users, tokens, hasher),
		Catalog:  service.NewCatalogService(products, categories),
		Cart:     service.NewCartService(carts, products),
		Checkout: service.NewCheckoutService(db, log),
		Messages: service.NewMessageService(messages, users, products),
		Orders:   orders,
		Users:    users,
		Tokens:   tokens,
		Registry: ws.NewRegistry(log),
		Config:   cfg,
		Log:      log,
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", httpSrv.Addr), zap.String("env", cfg.Env))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(ctx)
}
