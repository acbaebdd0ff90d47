package main

import (
	"context"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/donseba/go-htmx"
	"github.com/joho/godotenv"
	"github.com/myrjola/resqlink/internal/assistant"
	"github.com/myrjola/resqlink/internal/engine"
	"github.com/myrjola/resqlink/internal/envstruct"
	"github.com/myrjola/resqlink/internal/errors"
	"github.com/myrjola/resqlink/internal/logging"
	"github.com/myrjola/resqlink/internal/pprofserver"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

type application struct {
	logger         *slog.Logger
	engine         *engine.Engine
	assistant      *assistant.Assistant
	sessionManager *scs.SessionManager
	htmx           *htmx.HTMX
	pollInterval   time.Duration
}

type config struct {
	// Addr is the address the dashboard listens on.
	Addr string `env:"RESQ_ADDR" envDefault:"localhost:4000"`
	// PprofPort enables profiling on the IPv6 loopback when set, e.g. ":6060".
	PprofPort string `env:"RESQ_PPROF_PORT" envDefault:""`
	LogLevel  string `env:"RESQ_LOG_LEVEL" envDefault:"info"`
	Engine    engine.Config
	Assistant assistant.Config
}

// minHandlerTimeout bounds page renders. Handlers waiting for the backend or the assistant get more.
const minHandlerTimeout = 5 * time.Second

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		cfg config
		err error
	)
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	if cfg.PprofPort != "" {
		pprofserver.Launch(ctx, cfg.PprofPort, logger)
	}

	var eng *engine.Engine
	if eng, err = engine.New(cfg.Engine, logger); err != nil {
		return errors.Wrap(err, "new engine")
	}

	sessionStore := memstore.New()
	defer sessionStore.StopCleanup()
	sessionManager := scs.New()
	sessionManager.Store = sessionStore
	sessionManager.Lifetime = 12 * time.Hour //nolint:mnd // one operator shift

	app := application{
		logger:         logger,
		engine:         eng,
		assistant:      assistant.New(cfg.Assistant, logger),
		sessionManager: sessionManager,
		htmx:           htmx.New(),
		pollInterval:   cfg.Engine.PollInterval,
	}

	if err = eng.Start(ctx); err != nil {
		return errors.Wrap(err, "start engine")
	}
	defer eng.Stop()

	handlerTimeout := max(minHandlerTimeout, cfg.Engine.RequestTimeout, cfg.Assistant.Timeout) + time.Second
	if err = app.configureAndStartServer(ctx, cfg.Addr, handlerTimeout); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// .env is optional.
	_ = godotenv.Load()

	level, ok := os.LookupEnv("RESQ_LOG_LEVEL")
	if !ok {
		level = "info"
	}
	logger, err := logging.NewLogger(os.Stdout, level)
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	if err = run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
