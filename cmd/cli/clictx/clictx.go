// Package clictx prepares the engine for one-shot CLI commands.
package clictx

import (
	"github.com/myrjola/resqlink/internal/engine"
	"github.com/myrjola/resqlink/internal/errors"
	"github.com/myrjola/resqlink/internal/logging"
	"github.com/spf13/cobra"
	"log/slog"
	"os"
)

var ErrBackendUnreachable = errors.NewSentinel("no collection could be read from the backend")

// Logger logs to the command's stderr at RESQ_LOG_LEVEL, warn by default.
func Logger(cmd *cobra.Command) (*slog.Logger, error) {
	level, ok := os.LookupEnv("RESQ_LOG_LEVEL")
	if !ok {
		level = "warn"
	}
	logger, err := logging.NewLogger(cmd.ErrOrStderr(), level)
	if err != nil {
		return nil, errors.Wrap(err, "new logger")
	}
	return logger, nil
}

// Load builds the engine from the environment and synchronises it once. The caller must Stop the engine.
func Load(cmd *cobra.Command) (*engine.Engine, *slog.Logger, error) {
	logger, err := Logger(cmd)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := engine.LoadConfig(os.LookupEnv)
	if err != nil {
		return nil, nil, errors.Wrap(err, "load engine config")
	}
	eng, err := engine.New(cfg, logger)
	if err != nil {
		return nil, nil, errors.Wrap(err, "new engine")
	}
	eng.Refresh(cmd.Context())
	if eng.View().LastRefreshed.IsZero() {
		eng.Stop()
		return nil, nil, errors.Wrap(ErrBackendUnreachable, "refresh", slog.String("apiBaseURL", cfg.APIBaseURL))
	}
	return eng, logger, nil
}

// Settle waits for the background writes of eng, stops it and returns the last failure an operator would have
// been notified about.
func Settle(eng *engine.Engine) error {
	eng.Mutator.Wait()
	notices := eng.View().Notices
	eng.Stop()
	if len(notices) > 0 {
		return errors.New(notices[len(notices)-1].Message)
	}
	return nil
}
