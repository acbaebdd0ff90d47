package main

import (
	"context"
	"github.com/joho/godotenv"
	"github.com/myrjola/resqlink/internal/envstruct"
	"github.com/myrjola/resqlink/internal/errors"
	"github.com/myrjola/resqlink/internal/logging"
	"github.com/myrjola/resqlink/internal/mockbackend"
	"github.com/myrjola/resqlink/internal/sqlite"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

type config struct {
	// Addr is the address the backend listens on. The dashboard defaults to http://127.0.0.1:8000/api.
	Addr string `env:"RESQ_MOCK_ADDR" envDefault:"127.0.0.1:8000"`
	// SqliteURL is a database file path or ":memory:".
	SqliteURL string `env:"RESQ_MOCK_SQLITE_URL" envDefault:":memory:"`
	LogLevel  string `env:"RESQ_LOG_LEVEL" envDefault:"debug"`
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		cfg config
		err error
	)
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, cfg.SqliteURL, logger); err != nil {
		return errors.Wrap(err, "open database", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "failed to close database", errors.SlogError(closeErr))
		}
	}()

	backend := mockbackend.New(mockbackend.NewRepository(db, logger), logger)
	srv := &http.Server{ //nolint:exhaustruct // defaults are fine for a development server
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
		Handler:           backend.Handler(),
		ReadHeaderTimeout: time.Second,
	}

	var listener net.Listener
	if listener, err = net.Listen("tcp", cfg.Addr); err != nil {
		return errors.Wrap(err, "TCP listen")
	}

	shutdownComplete := make(chan struct{})
	go func() {
		defer close(shutdownComplete)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second) //nolint:mnd // 5s
		defer cancel()
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "error shutting down server", errors.SlogError(shutdownErr))
		}
	}()

	logger.LogAttrs(ctx, slog.LevelInfo, "starting mock backend", slog.Any("addr", listener.Addr().String()))
	if err = srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server serve")
	}
	<-shutdownComplete
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// .env is optional.
	_ = godotenv.Load()

	level, ok := os.LookupEnv("RESQ_LOG_LEVEL")
	if !ok {
		level = "debug"
	}
	logger, err := logging.NewLogger(os.Stdout, level)
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	if err = run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting mock backend", errors.SlogError(err))
		os.Exit(1)
	}
}
