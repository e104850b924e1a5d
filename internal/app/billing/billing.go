// Package billing assembles the HTTP service: storage, migrations, cache,
// the payment gateway client and all business services behind a single
// chi router.
package billing

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/trainrup/billing/internal/cache"
	"github.com/trainrup/billing/internal/config"
	"github.com/trainrup/billing/internal/lib/jwt"
	"github.com/trainrup/billing/internal/migrations"
	"github.com/trainrup/billing/internal/mpesa"
	authservice "github.com/trainrup/billing/internal/services/auth"
	clientservice "github.com/trainrup/billing/internal/services/client"
	coordinatorservice "github.com/trainrup/billing/internal/services/coordinator"
	paymentservice "github.com/trainrup/billing/internal/services/payment"
	subscriptionservice "github.com/trainrup/billing/internal/services/subscription"
	"github.com/trainrup/billing/internal/storage/repository"
)

// App is the assembled HTTP service.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
}

// New builds the service out of the configuration: opens the storage and
// runs migrations, connects redis, constructs the gateway client and the
// services, and registers the routes.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	maker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	gateway := mpesa.NewClient(cfg.Mpesa)

	authSvc := authservice.New(db, maker, logger)
	paymentSvc := paymentservice.New(db, cacheRedis, logger)
	coordinatorSvc := coordinatorservice.New(db, gateway, logger)
	subscriptionSvc := subscriptionservice.New(db, logger)
	clientSvc := clientservice.New(db, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, db,
		authSvc, paymentSvc, coordinatorSvc, subscriptionSvc, clientSvc)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down
// gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if closeErr := a.db.DB.Close(); closeErr != nil {
			a.logger.Error("failed to close storage", slog.Any("err", closeErr))
		}
		return err
	}
}
