package server

import (
	"context"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"

	"github.com/wiser-pay/wiser-server/pkg/app"
	"github.com/wiser-pay/wiser-server/pkg/wiser/server/web"
)

const authorityWarmupTimeout = 20 * time.Second

// App serves the vault HTTP API.
type App struct {
	log *logrus.Entry

	configProvider    ConfigProvider
	webConfigProvider web.ConfigProvider

	services *Services
	web      *web.Server

	shutdown   sync.Once
	shutdownCh chan struct{}
}

func NewApp(configProvider ConfigProvider, webConfigProvider web.ConfigProvider) *App {
	return &App{
		log:               logrus.StandardLogger().WithField("type", "wiser/server"),
		configProvider:    configProvider,
		webConfigProvider: webConfigProvider,
		shutdownCh:        make(chan struct{}),
	}
}

// Init implements app.App.Init
func (a *App) Init(_ app.Config, _ *newrelic.Application) error {
	prices, err := NewPriceClient(a.configProvider)
	if err != nil {
		return err
	}

	services, err := NewServices(a.configProvider, NewSolanaClient(a.configProvider), prices)
	if err != nil {
		return err
	}
	a.services = services

	// The authority loads in the background so the API comes up even when
	// no key is configured. Withdrawals fail until it is ready.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), authorityWarmupTimeout)
		defer cancel()

		if err := services.Authority.Init(ctx); err != nil {
			a.log.WithError(err).Warn("authority not available, withdrawals disabled until a key loads")
		}
	}()

	a.web = web.NewServer(
		a.webConfigProvider,
		services.Quoter,
		services.Balances,
		services.Withdrawals,
		services.Initializer,
		services.Authority,
	)

	a.log.WithField("vault", services.VaultAccounts.Vault.String()).Info("initialized")
	return nil
}

// RegisterWithHTTP implements app.App.RegisterWithHTTP
func (a *App) RegisterWithHTTP(r chi.Router) {
	a.web.RegisterWithHTTP(r)
}

// ShutdownChan implements app.App.ShutdownChan
func (a *App) ShutdownChan() <-chan struct{} {
	return a.shutdownCh
}

// Stop implements app.App.Stop
func (a *App) Stop() {
	a.shutdown.Do(func() {
		close(a.shutdownCh)
	})
}
