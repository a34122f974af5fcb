package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/bnema/zonecharge/internal/adapters/billing"
	"github.com/bnema/zonecharge/internal/adapters/events"
	filelocation "github.com/bnema/zonecharge/internal/adapters/location/file"
	mqttlocation "github.com/bnema/zonecharge/internal/adapters/location/mqtt"
	staticlocation "github.com/bnema/zonecharge/internal/adapters/location/static"
	statusadapter "github.com/bnema/zonecharge/internal/adapters/render/status"
	tomlrepo "github.com/bnema/zonecharge/internal/adapters/repo/toml"
	chainstore "github.com/bnema/zonecharge/internal/adapters/secrets/chain"
	filestore "github.com/bnema/zonecharge/internal/adapters/secrets/file"
	passstore "github.com/bnema/zonecharge/internal/adapters/secrets/pass"
	"github.com/bnema/zonecharge/internal/application"
	"github.com/bnema/zonecharge/internal/config"
	"github.com/bnema/zonecharge/internal/ports"
	"github.com/bnema/zonecharge/internal/version"
)

const configFileEnv = "ZONECHARGE_CONFIG"

type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	client     *billing.Client
	zones      ports.ZoneAPI
	tokens     ports.KeyValueStore
	deviceRepo *tomlrepo.StateRepository
	session    *application.SessionGate
	store      *application.BalanceStore
	clock      ports.Clock

	newLocationSource func() (ports.LocationSource, error)
	newPublisher      func() ports.EventPublisher
	dashboardRenderer func(statusadapter.Dashboard, statusadapter.RenderOptions) string
	now               func() time.Time
}

func wireApp() (*app, error) {
	cfg, v, err := config.Load(config.LoadOptions{ConfigFile: os.Getenv(configFileEnv)})
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}

	deviceRepo, err := tomlrepo.NewStateRepository(v)
	if err != nil {
		return nil, fmt.Errorf("wire state repository: %w", err)
	}

	tokens, err := newTokenStore(cfg.Secrets)
	if err != nil {
		return nil, fmt.Errorf("wire token store: %w", err)
	}

	a := &app{
		cfg:               cfg,
		logger:            logger,
		tokens:            tokens,
		deviceRepo:        deviceRepo,
		clock:             ports.SystemClock{},
		dashboardRenderer: statusadapter.RenderDashboard,
		now:               time.Now,
	}

	// The client reads the token lazily so it always follows the session gate.
	client, err := billing.NewClient(billing.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		UserAgent: "zc/" + version.Version,
	}, func() string { return a.session.Token() }, logger)
	if err != nil {
		return nil, fmt.Errorf("wire billing client: %w", err)
	}
	a.client = client
	a.zones = client

	a.session = application.NewSessionGate(client, tokens, deviceRepo, logger)
	a.store = application.NewBalanceStore(a.clock)
	a.store.TrackSession(a.session)

	a.newLocationSource = func() (ports.LocationSource, error) {
		return newLocationSource(cfg.Location, a.clock, logger)
	}
	a.newPublisher = func() ports.EventPublisher {
		return newPublisher(cfg.NATS, logger)
	}

	return a, nil
}

func newTokenStore(cfg config.SecretsConfig) (ports.KeyValueStore, error) {
	switch cfg.Backend {
	case config.SecretsBackendFile:
		return filestore.NewStore(cfg.Dir), nil
	case config.SecretsBackendPass:
		return passstore.NewStore(passstore.DefaultPrefix), nil
	default:
		return chainstore.NewPassFirstWithFileFallback(cfg.Dir)
	}
}

func newLocationSource(cfg config.LocationConfig, clock ports.Clock, logger *slog.Logger) (ports.LocationSource, error) {
	switch cfg.Source {
	case config.LocationSourceMQTT:
		return mqttlocation.NewSource(mqttlocation.Config{
			Broker:            cfg.MQTT.Broker,
			Topic:             cfg.MQTT.Topic,
			ClientID:          cfg.MQTT.ClientID,
			Username:          cfg.MQTT.Username,
			Password:          cfg.MQTT.Password,
			QoS:               cfg.MQTT.QoS,
			AccuracyThreshold: cfg.AccuracyThreshold,
		}, clock, logger)
	case config.LocationSourceStatic:
		return staticlocation.NewSource(cfg.Static.Latitude, cfg.Static.Longitude, clock)
	default:
		return filelocation.NewSource(filelocation.Config{
			Path:              cfg.File.Path,
			AccuracyThreshold: cfg.AccuracyThreshold,
		}, clock, logger)
	}
}

// newPublisher falls back to a no-op publisher: event forwarding is optional
// and never blocks tracking.
func newPublisher(cfg config.NATSConfig, logger *slog.Logger) ports.EventPublisher {
	if cfg.URL == "" {
		return &events.NoopPublisher{}
	}

	publisher, err := events.NewNATSPublisher(cfg.URL)
	if err != nil {
		logger.Warn("events: NATS unavailable, forwarding disabled", "url", cfg.URL, "error", err)
		return &events.NoopPublisher{}
	}
	return publisher
}

func closeSource(source ports.LocationSource, logger *slog.Logger) {
	closer, ok := source.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		logger.Warn("location: close source failed", "error", err)
	}
}
