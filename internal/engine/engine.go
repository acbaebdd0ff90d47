// Package engine assembles the state-synchronization engine from configuration.
package engine

import (
	"context"
	"github.com/myrjola/resqlink/internal/api"
	"github.com/myrjola/resqlink/internal/envstruct"
	"github.com/myrjola/resqlink/internal/errors"
	"github.com/myrjola/resqlink/internal/fetcher"
	"github.com/myrjola/resqlink/internal/metrics"
	"github.com/myrjola/resqlink/internal/mutator"
	"github.com/myrjola/resqlink/internal/scheduler"
	"github.com/myrjola/resqlink/internal/scoring"
	"github.com/myrjola/resqlink/internal/store"
	"log/slog"
	"time"
)

var ErrInvalidConfig = errors.NewSentinel("invalid engine configuration")

type Config struct {
	// APIBaseURL is the root of the backend REST surface, e.g. http://127.0.0.1:8000/api.
	APIBaseURL     string        `env:"RESQ_API_BASE_URL"    envDefault:"http://127.0.0.1:8000/api"`
	PollInterval   time.Duration `env:"RESQ_POLL_INTERVAL"   envDefault:"5s"`
	RequestTimeout time.Duration `env:"RESQ_REQUEST_TIMEOUT" envDefault:"10s"`
	MergePolicy    string        `env:"RESQ_MERGE_POLICY"    envDefault:"pending"`
}

// LoadConfig reads Config from the environment through lookupEnv.
func LoadConfig(lookupEnv func(string) (string, bool)) (Config, error) {
	var cfg Config
	if err := envstruct.Populate(&cfg, lookupEnv); err != nil {
		return Config{}, errors.Wrap(err, "populate engine config")
	}
	return cfg, nil
}

// Engine owns the view state and every component that reads or writes it.
type Engine struct {
	Store     *store.Store
	Client    *api.Client
	Fetcher   *fetcher.Fetcher
	Mutator   *mutator.Mutator
	Scheduler *scheduler.Scheduler
	metrics   *metrics.Aggregator
	logger    *slog.Logger
	now       func() time.Time
}

func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	if cfg.PollInterval <= 0 {
		return nil, errors.Wrap(ErrInvalidConfig, "poll interval must be positive",
			slog.Duration("pollInterval", cfg.PollInterval))
	}
	if cfg.RequestTimeout <= 0 {
		return nil, errors.Wrap(ErrInvalidConfig, "request timeout must be positive",
			slog.Duration("requestTimeout", cfg.RequestTimeout))
	}
	if cfg.APIBaseURL == "" {
		return nil, errors.Wrap(ErrInvalidConfig, "api base url is empty")
	}
	policy, err := store.ParseMergePolicy(cfg.MergePolicy)
	if err != nil {
		return nil, errors.Wrap(err, "parse merge policy")
	}

	client := api.NewClient(cfg.APIBaseURL, cfg.RequestTimeout)
	s := store.New(policy, logger)
	f := fetcher.New(client, cfg.RequestTimeout, logger)

	return &Engine{
		Store:     s,
		Client:    client,
		Fetcher:   f,
		Mutator:   mutator.New(s, client, cfg.RequestTimeout, logger),
		Scheduler: scheduler.New(s, f, cfg.PollInterval, logger),
		metrics:   metrics.NewAggregator(),
		logger:    logger.With("source", "Engine"),
		now:       time.Now,
	}, nil
}

// Start begins polling the backend. The first cycle runs immediately.
func (e *Engine) Start(ctx context.Context) error {
	e.logger.LogAttrs(ctx, slog.LevelInfo, "starting engine",
		slog.String("apiBaseURL", e.Client.BaseURL()),
		slog.String("mergePolicy", string(e.Store.Policy())))
	if err := e.Scheduler.Start(ctx); err != nil {
		return errors.Wrap(err, "start scheduler")
	}
	return nil
}

// Stop ends polling and waits for outstanding remote writes to settle.
func (e *Engine) Stop() {
	e.Scheduler.Stop()
	e.Scheduler.Wait()
	e.Mutator.Close()
	e.logger.LogAttrs(context.Background(), slog.LevelInfo, "engine stopped")
}

// Refresh runs one synchronous fetch cycle. It reports false when a cycle was already in flight.
func (e *Engine) Refresh(ctx context.Context) bool {
	return e.Scheduler.RunCycle(ctx)
}

func (e *Engine) View() store.View {
	return e.Store.View()
}

// Metrics returns the aggregates of the current view.
func (e *Engine) Metrics() metrics.Metrics {
	return e.metrics.Metrics(e.Store.View())
}

// Dashboard is a consistent read of the view with everything derived from it.
type Dashboard struct {
	View    store.View
	Metrics metrics.Metrics
	Ranked  []scoring.Ranked
	At      time.Time
}

func (e *Engine) Dashboard() Dashboard {
	v := e.Store.View()
	now := e.now()
	return Dashboard{
		View:    v,
		Metrics: e.metrics.Metrics(v),
		Ranked:  scoring.Rank(v.Cases, now),
		At:      now,
	}
}
