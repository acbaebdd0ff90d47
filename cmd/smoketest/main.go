package main

import (
	"context"
	"github.com/myrjola/resqlink/internal/e2etest"
	"github.com/myrjola/resqlink/internal/errors"
	"github.com/myrjola/resqlink/internal/logging"
	"log/slog"
	"os"
	"strings"
	"time"
)

// TestDashboard checks that the dashboard is up and has synchronised with its backend at least once.
func TestDashboard(ctx context.Context, client *e2etest.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second) //nolint:mnd // 10 seconds
	defer cancel()

	if err := client.WaitForReady(ctx, "/api/healthy"); err != nil {
		return errors.Wrap(err, "wait for ready")
	}
	doc, err := client.GetDoc(ctx, "/overview")
	if err != nil {
		return errors.Wrap(err, "get overview")
	}
	if doc.Find("nav.tabs a").Length() == 0 {
		return errors.New("overview has no tabs")
	}
	if strings.TrimSpace(doc.Find(".last-refreshed").Text()) == "" {
		return errors.New("dashboard has not synchronised with the backend",
			slog.String("status", strings.TrimSpace(doc.Find(".status-line").Text())))
	}
	return nil
}

func main() {
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only the base URL to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <base-url>")
		os.Exit(1)
	}

	var (
		url    = strings.TrimSuffix(os.Args[1], "/")
		client *e2etest.Client
		err    error
	)
	ctx = logging.WithAttrs(ctx, slog.String("url", url))

	if client, err = e2etest.NewClient(url); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", errors.SlogError(err))
		os.Exit(1)
	}
	if err = TestDashboard(ctx, client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing dashboard", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌")
	os.Exit(0)
}
