package cmd

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-sponsorships/app/events"
	"github.com/vibast-solutions/ms-go-sponsorships/app/factory"
	"github.com/vibast-solutions/ms-go-sponsorships/app/lock"
	"github.com/vibast-solutions/ms-go-sponsorships/app/metrics"
	"github.com/vibast-solutions/ms-go-sponsorships/app/provider"
	"github.com/vibast-solutions/ms-go-sponsorships/app/repository"
	"github.com/vibast-solutions/ms-go-sponsorships/app/service"
	"github.com/vibast-solutions/ms-go-sponsorships/config"
)

type publisher interface {
	service.EventPublisher
	Close() error
}

type application struct {
	cfg      *config.Config
	payments *service.PaymentService
	metrics  *metrics.Metrics
	cleanup  func()
}

func mustCreateApplication() *application {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db := mustOpenDatabase(cfg)

	appMetrics := metrics.New(prometheus.DefaultRegisterer)
	registry, err := buildProviderRegistry(cfg, appMetrics)
	if err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to configure payment providers")
	}

	eventPublisher := buildPublisher(cfg)

	paymentService := service.NewPaymentService(
		repository.NewOrderRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewDiscountCodeRepository(db),
		repository.NewOrderEventRepository(db),
		repository.NewOrderCallbackRepository(db),
		registry,
		lock.NewKeyed(cfg.Orders.LockCapacity, cfg.Orders.LockTTL),
		cfg.Orders,
		service.WithPublisher(eventPublisher),
		service.WithObserver(appMetrics),
	)

	cleanup := func() {
		if err := eventPublisher.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close event publisher")
		}
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return &application{cfg: cfg, payments: paymentService, metrics: appMetrics, cleanup: cleanup}
}

func mustOpenDatabase(cfg *config.Config) *sql.DB {
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}
	return db
}

func buildPublisher(cfg *config.Config) publisher {
	if len(cfg.Kafka.Brokers) == 0 {
		logrus.Warn("KAFKA_BROKERS is empty, order events are only logged")
		return events.NewLogPublisher(factory.NewModuleLogger("order-events"))
	}
	return events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.WriteTimeout)
}

// buildProviderRegistry builds the enabled providers in configured order.
func buildProviderRegistry(cfg *config.Config, observer provider.RequestObserver) (*provider.Registry, error) {
	transportCfg := provider.TransportConfig{
		Timeout:        cfg.Providers.Transport.Timeout,
		MaxRetries:     cfg.Providers.Transport.MaxRetries,
		InitialBackoff: cfg.Providers.Transport.InitialBackoff,
		MaxBackoff:     cfg.Providers.Transport.MaxBackoff,
	}
	returnURL := cfg.App.FrontendURL + "/sponsor/result"

	providers := make([]provider.Provider, 0, len(cfg.Providers.Enabled))
	seen := make(map[string]bool, len(cfg.Providers.Enabled))
	for _, code := range cfg.Providers.Enabled {
		if seen[code] {
			continue
		}
		seen[code] = true

		transport := provider.NewTransport(code, transportCfg, observer)
		switch code {
		case provider.CodeECPay:
			providers = append(providers, provider.NewECPayProvider(provider.ECPayConfig{
				MerchantID:       cfg.Providers.ECPay.MerchantID,
				HashKey:          cfg.Providers.ECPay.HashKey,
				HashIV:           cfg.Providers.ECPay.HashIV,
				BaseURL:          cfg.Providers.ECPay.BaseURL,
				ReturnURL:        cfg.App.WebhookURL(code),
				ClientBackURL:    returnURL,
				PendingCodes:     cfg.Providers.ECPay.PendingCodes,
				QueryFailedCodes: cfg.Providers.ECPay.QueryFailedCodes,
				DisabledMethods:  cfg.Providers.ECPay.DisabledMethods,
			}, transport))
		case provider.CodeNewebPay:
			providers = append(providers, provider.NewNewebPayProvider(provider.NewebPayConfig{
				BaseURL:         cfg.Providers.NewebPay.BaseURL,
				MerchantID:      cfg.Providers.NewebPay.MerchantID,
				HashKey:         cfg.Providers.NewebPay.HashKey,
				HashIV:          cfg.Providers.NewebPay.HashIV,
				NotifyURL:       cfg.App.WebhookURL(code),
				ReturnURL:       returnURL,
				ClientBackURL:   returnURL,
				DisabledMethods: cfg.Providers.NewebPay.DisabledMethods,
			}, transport))
		case provider.CodeSpeedPay:
			providers = append(providers, provider.NewSpeedPayProvider(provider.SpeedPayConfig{
				BaseURL:         cfg.Providers.SpeedPay.BaseURL,
				MerchantID:      cfg.Providers.SpeedPay.MerchantID,
				APIKey:          cfg.Providers.SpeedPay.APIKey,
				SecretKey:       cfg.Providers.SpeedPay.SecretKey,
				CallbackURL:     cfg.App.WebhookURL(code),
				ReturnURL:       returnURL,
				Currency:        cfg.Orders.Currency,
				DisabledMethods: cfg.Providers.SpeedPay.DisabledMethods,
			}, transport))
		case provider.CodeUSDTERC20, provider.CodeUSDTTRC20:
			providers = append(providers, buildStablecoin(cfg.Providers.Stablecoin, code, transport))
		default:
			return nil, fmt.Errorf("unknown provider %q", code)
		}
	}

	return provider.NewRegistry(providers...), nil
}

func buildStablecoin(cfg config.StablecoinConfig, code string, transport *provider.Transport) *provider.StablecoinProvider {
	network := provider.TRC20Network()
	if cfg.TRC20Address != "" {
		network.Address = cfg.TRC20Address
	}
	if code == provider.CodeUSDTERC20 {
		network = provider.ERC20Network()
		if cfg.ERC20Address != "" {
			network.Address = cfg.ERC20Address
		}
	}

	disabled := false
	for _, item := range cfg.Disabled {
		if strings.EqualFold(item, code) || strings.EqualFold(item, network.Network) {
			disabled = true
		}
	}

	var ledger provider.LedgerClient
	if cfg.LedgerBaseURL != "" {
		ledger = provider.NewHTTPLedgerClient(cfg.LedgerBaseURL, cfg.LedgerAPIKey, transport)
	}
	return provider.NewStablecoinProvider(network, cfg.WatcherSecret, ledger, disabled)
}
