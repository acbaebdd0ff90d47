// Package mutator applies operator actions to the view before the backend acknowledges them.
package mutator

import (
	"context"
	"fmt"
	"github.com/myrjola/resqlink/internal/errors"
	"github.com/myrjola/resqlink/internal/models"
	"github.com/myrjola/resqlink/internal/store"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	ErrNotFound             = store.ErrNotFound
	ErrInvalidMode          = models.ErrInvalidPointsMode
	ErrTransitionNotAllowed = errors.NewSentinel("case status transition not allowed")
	ErrAlreadyVerified      = errors.NewSentinel("tip already verified")
	ErrInvalidPoints        = errors.NewSentinel("points must be a finite number")
	ErrInvalidReview        = errors.NewSentinel("review outcome not allowed")
)

// Writer issues the remote writes. [api.Client] implements it.
type Writer interface {
	UpdateCaseStatus(ctx context.Context, id int64, status models.CaseStatus) error
	VerifyTip(ctx context.Context, id int64) error
	ReviewRedemption(ctx context.Context, id int64, status models.RedemptionStatus) error
	ReviewReport(ctx context.Context, id int64, status models.ReportStatus) error
	AwardPoints(ctx context.Context, id int64, points float64, mode models.PointsMode) (models.User, error)
}

type Mutator struct {
	store   *store.Store
	writer  Writer
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
	writes sync.WaitGroup
}

// New creates a Mutator. Remote writes are bounded by timeout and outlive the context of the action that
// started them.
func New(s *store.Store, writer Writer, timeout time.Duration, logger *slog.Logger) *Mutator {
	return &Mutator{
		store:   s,
		writer:  writer,
		timeout: timeout,
		logger:  logger.With("source", "Mutator"),
		mu:      sync.Mutex{},
		closed:  false,
		writes:  sync.WaitGroup{},
	}
}

// ChangeCaseStatus moves a case to status and writes the change to the backend in the background.
func (m *Mutator) ChangeCaseStatus(ctx context.Context, caseID int64, status models.CaseStatus) error {
	attrs := []slog.Attr{slog.Int64("caseID", caseID), slog.String("status", string(status))}
	mutation, err := m.store.MutateCase(caseID,
		func(c models.Case) error {
			if !c.Status.CanTransitionTo(status) {
				return errors.Wrap(ErrTransitionNotAllowed, "validate transition",
					slog.String("from", string(c.Status)), slog.String("to", string(status)))
			}
			return nil
		},
		func(c models.Case) models.Case {
			c.Status = status
			return c
		})
	if err != nil {
		return errors.Wrap(err, "change case status", attrs...)
	}
	description := fmt.Sprintf("Changing case #%d to %s", caseID, status)
	err = m.write(ctx, mutation, description, func(ctx context.Context) error {
		return m.writer.UpdateCaseStatus(ctx, caseID, status)
	})
	return errors.Wrap(err, "change case status", attrs...)
}

// VerifyTip marks a tip as verified and writes the change to the backend in the background.
func (m *Mutator) VerifyTip(ctx context.Context, tipID int64) error {
	mutation, err := m.store.MutateTip(tipID,
		func(t models.Tip) error {
			if t.Verified {
				return ErrAlreadyVerified
			}
			return nil
		},
		func(t models.Tip) models.Tip {
			t.Verified = true
			return t
		})
	if err != nil {
		return errors.Wrap(err, "verify tip", slog.Int64("tipID", tipID))
	}
	err = m.write(ctx, mutation, fmt.Sprintf("Verifying tip #%d", tipID), func(ctx context.Context) error {
		return m.writer.VerifyTip(ctx, tipID)
	})
	return errors.Wrap(err, "verify tip", slog.Int64("tipID", tipID))
}

// ReviewRedemption approves or rejects a pending redemption.
func (m *Mutator) ReviewRedemption(ctx context.Context, redemptionID int64, status models.RedemptionStatus) error {
	mutation, err := m.store.MutateRedemption(redemptionID,
		func(r models.Redemption) error {
			if !r.Status.CanReviewTo(status) {
				return errors.Wrap(ErrInvalidReview, "validate review",
					slog.String("from", string(r.Status)), slog.String("to", string(status)))
			}
			return nil
		},
		func(r models.Redemption) models.Redemption {
			r.Status = status
			return r
		})
	if err != nil {
		return errors.Wrap(err, "review redemption", slog.Int64("redemptionID", redemptionID))
	}
	description := fmt.Sprintf("Reviewing redemption #%d as %s", redemptionID, status)
	err = m.write(ctx, mutation, description, func(ctx context.Context) error {
		return m.writer.ReviewRedemption(ctx, redemptionID, status)
	})
	return errors.Wrap(err, "review redemption", slog.Int64("redemptionID", redemptionID))
}

// ReviewReport accepts or rejects a pending sighting report.
func (m *Mutator) ReviewReport(ctx context.Context, reportID int64, status models.ReportStatus) error {
	mutation, err := m.store.MutateReport(reportID,
		func(r models.Report) error {
			if !r.Status.CanReviewTo(status) {
				return errors.Wrap(ErrInvalidReview, "validate review",
					slog.String("from", string(r.Status)), slog.String("to", string(status)))
			}
			return nil
		},
		func(r models.Report) models.Report {
			r.Status = status
			return r
		})
	if err != nil {
		return errors.Wrap(err, "review report", slog.Int64("reportID", reportID))
	}
	description := fmt.Sprintf("Reviewing report #%d as %s", reportID, status)
	err = m.write(ctx, mutation, description, func(ctx context.Context) error {
		return m.writer.ReviewReport(ctx, reportID, status)
	})
	return errors.Wrap(err, "review report", slog.Int64("reportID", reportID))
}

// ParsePoints parses an operator's point value. Blank input and non-finite values are rejected.
func ParsePoints(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.Wrap(ErrInvalidPoints, "empty points")
	}
	points, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(points) || math.IsInf(points, 0) {
		return 0, errors.Wrap(ErrInvalidPoints, "parse points", slog.String("raw", raw))
	}
	return points, nil
}

// AwardPoints adds to or sets a user's score. Unlike the other actions it waits for the backend and only then
// replaces the local user with the returned one.
//
// Invalid input fails before any network call and leaves the view untouched.
func (m *Mutator) AwardPoints(
	ctx context.Context,
	userID int64,
	raw string,
	mode models.PointsMode,
) (models.User, error) {
	attrs := []slog.Attr{slog.Int64("userID", userID), slog.String("mode", string(mode))}
	mode, err := models.ParsePointsMode(string(mode))
	if err != nil {
		return models.User{}, errors.Wrap(err, "award points", attrs...)
	}
	var points float64
	if points, err = ParsePoints(raw); err != nil {
		return models.User{}, errors.Wrap(err, "award points", attrs...)
	}
	if _, ok := m.store.User(userID); !ok {
		return models.User{}, errors.Wrap(ErrNotFound, "award points", attrs...)
	}

	writeCtx, cancel := m.writeContext(ctx)
	defer cancel()
	var user models.User
	if user, err = m.writer.AwardPoints(writeCtx, userID, points, mode); err != nil {
		err = errors.Wrap(err, "award points", attrs...)
		m.logger.LogAttrs(ctx, slog.LevelError, "failed to award points", errors.SlogError(err))
		return models.User{}, err
	}

	if err = m.store.ConfirmUser(user); err != nil {
		m.logger.LogAttrs(ctx, slog.LevelWarn, "awarded user not applied", errors.SlogError(err))
	}
	m.store.ClearPointsInput(userID)
	m.logger.LogAttrs(ctx, slog.LevelInfo, "awarded points",
		append(attrs, slog.Float64("points", points), slog.Int64("score", user.Score))...)
	return user, nil
}

// SetPointsInput remembers the operator's in-progress point value for a user.
func (m *Mutator) SetPointsInput(userID int64, raw string) error {
	if err := m.store.SetPointsInput(userID, raw); err != nil {
		return errors.Wrap(err, "set points input", slog.Int64("userID", userID))
	}
	return nil
}

// Wait blocks until every background write started so far has settled. Actions may not run concurrently
// with Wait; use Close when they can.
func (m *Mutator) Wait() {
	m.writes.Wait()
}

// Close rejects further actions with [store.ErrClosed] and waits for the background writes already started.
// It is safe to call concurrently with actions and more than once.
func (m *Mutator) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.writes.Wait()
}

func (m *Mutator) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if m.timeout > 0 {
		return context.WithTimeout(ctx, m.timeout)
	}
	return context.WithCancel(ctx)
}

// write issues fn in the background and settles mutation with its outcome. It fails with [store.ErrClosed]
// once the mutator is closed.
func (m *Mutator) write(
	ctx context.Context,
	mutation store.Mutation,
	description string,
	fn func(context.Context) error,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return store.ErrClosed
	}
	m.writes.Add(1)
	go func() {
		defer m.writes.Done()
		writeCtx, cancel := m.writeContext(ctx)
		defer cancel()

		err := fn(writeCtx)
		rolledBack := m.store.Settle(mutation, err)
		if err == nil {
			return
		}
		err = errors.Wrap(err, "remote write", slog.String("resource", string(mutation.Resource)),
			slog.Int64("id", mutation.ID))
		m.logger.LogAttrs(ctx, slog.LevelError, "remote write failed",
			slog.Bool("rolledBack", rolledBack), errors.SlogError(err))
		notice := description + " failed."
		if rolledBack {
			notice += " The change was rolled back."
		}
		m.store.AddNotice(notice)
	}()
	return nil
}
