package injector

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/wire"

	"github.com/zeusync/wavecore/internal/config"
	"github.com/zeusync/wavecore/internal/core/events/bus"
	"github.com/zeusync/wavecore/internal/core/observability/log"
	"github.com/zeusync/wavecore/internal/core/observability/metrics"
	"github.com/zeusync/wavecore/internal/core/waves"
	"github.com/zeusync/wavecore/internal/feed"
	"github.com/zeusync/wavecore/internal/sim"
)

// ProviderSet builds a complete App from a Config.
var ProviderSet = wire.NewSet(
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
	ProvideLevel,
	ProvideCollector,
	ProvideHub,
	ProvideDispatcher,
	sim.New,
	NewApp,
)

// App is everything cmd/wavesim runs.
type App struct {
	Config  config.Config
	Logger  *log.Logger
	Bus     *bus.Dispatcher
	Run     *sim.Run
	Metrics *metrics.Collector
	Feed    *feed.Hub
}

// ProvideLogger builds the logger from the log section.
func ProvideLogger(cfg config.Config) (*log.Logger, func(), error) {
	logger, err := cfg.Logger()
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = logger.Sync() }, nil
}

// ProvideLevel loads the configured level file.
func ProvideLevel(cfg config.Config) (*waves.Level, error) {
	if cfg.Level == "" {
		return nil, errors.New("no level file configured")
	}
	return waves.LoadFile(cfg.Level)
}

// ProvideCollector creates the Prometheus collector.
func ProvideCollector() *metrics.Collector {
	return metrics.NewCollector()
}

// ProvideHub creates the websocket feed.
func ProvideHub(cfg config.Config, logger log.Log) (*feed.Hub, func()) {
	hub := feed.NewHub(cfg.Feed.Buffer, logger)
	return hub, func() { _ = hub.Close() }
}

// ProvideDispatcher creates the run's dispatcher with the collector and the
// feed attached as observers.
func ProvideDispatcher(logger log.Log, collector *metrics.Collector, hub *feed.Hub) (*bus.Dispatcher, func()) {
	d := bus.New(bus.WithLogger(logger))
	d.AddObserver(collector)
	d.AddObserver(hub)
	return d, func() { _ = d.Close() }
}

// NewApp finishes the wiring that spans several components.
func NewApp(
	cfg config.Config,
	logger *log.Logger,
	d *bus.Dispatcher,
	run *sim.Run,
	collector *metrics.Collector,
	hub *feed.Hub,
) (*App, func(), error) {
	cleanup := func() {
		if err := run.Close(context.Background()); err != nil {
			logger.Warn("run teardown", log.Error(err))
		}
	}
	if err := collector.TrackRegistry(run.Registry()); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("track registry: %w", err)
	}
	if err := run.Systems().RegisterSystem(hub); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("register feed: %w", err)
	}
	return &App{
		Config:  cfg,
		Logger:  logger,
		Bus:     d,
		Run:     run,
		Metrics: collector,
		Feed:    hub,
	}, cleanup, nil
}
