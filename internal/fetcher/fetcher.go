// Package fetcher reads every backend collection of a sync cycle concurrently.
package fetcher

import (
	"context"
	"github.com/myrjola/resqlink/internal/errors"
	"github.com/myrjola/resqlink/internal/logging"
	"github.com/myrjola/resqlink/internal/models"
	"github.com/myrjola/resqlink/internal/store"
	"log/slog"
	"sync"
	"time"
)

// Reader reads the backend collections. [api.Client] implements it.
type Reader interface {
	Cases(ctx context.Context) ([]models.Case, error)
	Tips(ctx context.Context) ([]models.Tip, error)
	Users(ctx context.Context) ([]models.User, error)
	Rewards(ctx context.Context) ([]models.Reward, error)
	Redemptions(ctx context.Context) ([]models.Redemption, error)
	Reports(ctx context.Context) ([]models.Report, error)
}

type Fetcher struct {
	reader  Reader
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a Fetcher. Every read is bounded by timeout. A zero timeout leaves reads bounded by the caller only.
func New(reader Reader, timeout time.Duration, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		reader:  reader,
		timeout: timeout,
		logger:  logger.With("source", "Fetcher"),
	}
}

// Fetch issues all reads concurrently and returns once every one of them has settled.
//
// A failed read never affects its siblings. It is logged and reported in the corresponding [store.Result].
func (f *Fetcher) Fetch(ctx context.Context) store.Snapshot {
	var (
		wg       sync.WaitGroup
		snapshot store.Snapshot
		start    = time.Now()
	)
	wg.Add(len(models.Resources))
	go read(ctx, f, &wg, models.ResourceCases, f.reader.Cases, &snapshot.Cases)
	go read(ctx, f, &wg, models.ResourceTips, f.reader.Tips, &snapshot.Tips)
	go read(ctx, f, &wg, models.ResourceUsers, f.reader.Users, &snapshot.Users)
	go read(ctx, f, &wg, models.ResourceRewards, f.reader.Rewards, &snapshot.Rewards)
	go read(ctx, f, &wg, models.ResourceRedemptions, f.reader.Redemptions, &snapshot.Redemptions)
	go read(ctx, f, &wg, models.ResourceReports, f.reader.Reports, &snapshot.Reports)
	wg.Wait()

	f.logger.LogAttrs(ctx, slog.LevelDebug, "fetched snapshot",
		slog.Int("succeeded", snapshot.Succeeded()),
		slog.Duration("duration", time.Since(start)))
	return snapshot
}

func read[T any](
	ctx context.Context,
	f *Fetcher,
	wg *sync.WaitGroup,
	resource models.Resource,
	fn func(context.Context) ([]T, error),
	out *store.Result[T],
) {
	defer wg.Done()
	ctx = logging.WithAttrs(ctx, slog.String("resource", string(resource)))
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	items, err := fn(ctx)
	if err != nil {
		err = errors.Wrap(err, "read collection", slog.String("resource", string(resource)))
		f.logger.LogAttrs(ctx, slog.LevelWarn, "collection left stale", errors.SlogError(err))
		*out = store.Result[T]{Items: nil, Err: err}
		return
	}
	*out = store.Result[T]{Items: items, Err: nil}
}
