package mockbackend

import (
	"context"
	"database/sql"
	"encoding/json"
	"github.com/jmoiron/sqlx"
	"github.com/myrjola/resqlink/internal/errors"
	"github.com/myrjola/resqlink/internal/models"
	"github.com/myrjola/resqlink/internal/sqlite"
	"log/slog"
	"slices"
)

var (
	ErrNotFound     = errors.NewSentinel("not found")
	ErrInvalidInput = errors.NewSentinel("invalid input")
)

const (
	// communityHeroName is credited for every verified tip.
	communityHeroName  = "community_hero"
	verifiedTipBonus   = 10
	bronzeRescuerScore = 100
	bronzeRescuerMedal = "Bronze Rescuer"
)

type Repository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func NewRepository(db *sqlite.Database, logger *slog.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger.With("source", "Repository"),
	}
}

// userRow is a users row with the medals still JSON encoded.
type userRow struct {
	ID     int64  `db:"id"`
	Name   string `db:"name"`
	Score  int64  `db:"score"`
	Medals string `db:"medals"`
}

func (u userRow) toUser() (models.User, error) {
	medals := []string{}
	if err := json.Unmarshal([]byte(u.Medals), &medals); err != nil {
		return models.User{}, errors.Wrap(err, "decode medals", slog.Int64("userID", u.ID))
	}
	return models.User{ID: u.ID, Name: u.Name, Score: u.Score, Medals: medals}, nil
}

const (
	selectCases = `SELECT id, name, age, location, description, reliability, urgency, status, created_at, updated_at
FROM cases`
	selectTips        = `SELECT id, case_id, reporter, content, is_anonymous, verified, created_at FROM tips`
	selectRedemptions = `SELECT r.id, r.reward_id, rw.name AS reward_name, r.user_id, u.name AS user_name, r.status,
       r.requested_at
FROM redemptions r
         JOIN rewards rw ON rw.id = r.reward_id
         JOIN users u ON u.id = r.user_id`
	selectReports = `SELECT id, missing_case_id, reporter_name, description, latitude, longitude, status, created_at
FROM reports`
)

func (r *Repository) Cases(ctx context.Context) ([]models.Case, error) {
	cases := []models.Case{}
	if err := r.db.ReadOnly.SelectContext(ctx, &cases, selectCases+` ORDER BY created_at DESC, id DESC`); err != nil {
		return nil, errors.Wrap(err, "select cases")
	}
	return cases, nil
}

// CreateCase inserts c with defaults for the empty urgency and status.
func (r *Repository) CreateCase(ctx context.Context, c models.Case) (models.Case, error) {
	if c.Name == "" || c.Location == "" {
		return models.Case{}, errors.Wrap(ErrInvalidInput, "name and location are required")
	}
	if c.Urgency == "" {
		c.Urgency = models.UrgencyMedium
	}
	if c.Status == "" {
		c.Status = models.CaseStatusPending
	}
	if !slices.Contains(models.Urgencies, c.Urgency) || !c.Status.Valid() {
		return models.Case{}, errors.Wrap(ErrInvalidInput, "invalid urgency or status",
			slog.String("urgency", string(c.Urgency)), slog.String("status", string(c.Status)))
	}
	res, err := r.db.ReadWrite.NamedExecContext(ctx,
		`INSERT INTO cases (name, age, location, description, reliability, urgency, status)
VALUES (:name, :age, :location, :description, :reliability, :urgency, :status)`, c)
	if err != nil {
		return models.Case{}, errors.Wrap(err, "insert case")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Case{}, errors.Wrap(err, "last insert id")
	}
	return r.getCase(ctx, r.db.ReadWrite, id)
}

func (r *Repository) getCase(ctx context.Context, q sqlx.QueryerContext, id int64) (models.Case, error) {
	var c models.Case
	if err := sqlx.GetContext(ctx, q, &c, selectCases+` WHERE id = ?`, id); err != nil {
		return models.Case{}, notFound(err, "get case", id)
	}
	return c, nil
}

// UpdateCaseStatus sets the status of a case. Any valid status is accepted regardless of the current one.
func (r *Repository) UpdateCaseStatus(ctx context.Context, id int64, status models.CaseStatus) (models.Case, error) {
	if !status.Valid() {
		return models.Case{}, errors.Wrap(ErrInvalidInput, "invalid status", slog.String("status", string(status)))
	}
	res, err := r.db.ReadWrite.ExecContext(ctx,
		`UPDATE cases SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, status, id)
	if err != nil {
		return models.Case{}, errors.Wrap(err, "update case status")
	}
	if err = requireAffected(res, id); err != nil {
		return models.Case{}, err
	}
	return r.getCase(ctx, r.db.ReadWrite, id)
}

func (r *Repository) Tips(ctx context.Context) ([]models.Tip, error) {
	tips := []models.Tip{}
	if err := r.db.ReadOnly.SelectContext(ctx, &tips, selectTips+` ORDER BY created_at DESC, id DESC`); err != nil {
		return nil, errors.Wrap(err, "select tips")
	}
	return tips, nil
}

func (r *Repository) CreateTip(ctx context.Context, t models.Tip) (models.Tip, error) {
	if t.Content == "" {
		return models.Tip{}, errors.Wrap(ErrInvalidInput, "content is required")
	}
	if t.Reporter == "" || t.IsAnonymous {
		t.Reporter = "Anonymous"
	}
	if _, err := r.getCase(ctx, r.db.ReadWrite, t.CaseID); err != nil {
		return models.Tip{}, err
	}
	res, err := r.db.ReadWrite.NamedExecContext(ctx,
		`INSERT INTO tips (case_id, reporter, content, is_anonymous) VALUES (:case_id, :reporter, :content, :is_anonymous)`,
		t)
	if err != nil {
		return models.Tip{}, errors.Wrap(err, "insert tip")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Tip{}, errors.Wrap(err, "last insert id")
	}
	return r.getTip(ctx, r.db.ReadWrite, id)
}

func (r *Repository) getTip(ctx context.Context, q sqlx.QueryerContext, id int64) (models.Tip, error) {
	var t models.Tip
	if err := sqlx.GetContext(ctx, q, &t, selectTips+` WHERE id = ?`, id); err != nil {
		return models.Tip{}, notFound(err, "get tip", id)
	}
	return t, nil
}

// VerifyTip marks a tip verified and credits the community hero. Verifying an already verified tip is a no-op.
func (r *Repository) VerifyTip(ctx context.Context, id int64) (models.Tip, error) {
	tx, err := r.db.ReadWrite.BeginTxx(ctx, nil)
	if err != nil {
		return models.Tip{}, errors.Wrap(err, "begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	tip, err := r.getTip(ctx, tx, id)
	if err != nil {
		return models.Tip{}, err
	}
	if tip.Verified {
		return tip, nil
	}
	if _, err = tx.ExecContext(ctx, `UPDATE tips SET verified = TRUE WHERE id = ?`, id); err != nil {
		return models.Tip{}, errors.Wrap(err, "verify tip")
	}
	if err = r.creditCommunityHero(ctx, tx); err != nil {
		return models.Tip{}, err
	}
	if err = tx.Commit(); err != nil {
		return models.Tip{}, errors.Wrap(err, "commit")
	}
	tip.Verified = true
	return tip, nil
}

func (r *Repository) creditCommunityHero(ctx context.Context, tx *sqlx.Tx) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (name) VALUES (?) ON CONFLICT (name) DO NOTHING`, communityHeroName); err != nil {
		return errors.Wrap(err, "create community hero")
	}
	var row userRow
	if err := tx.GetContext(ctx, &row, `SELECT id, name, score, medals FROM users WHERE name = ?`,
		communityHeroName); err != nil {
		return errors.Wrap(err, "get community hero")
	}
	hero, err := row.toUser()
	if err != nil {
		return err
	}
	hero.Score += verifiedTipBonus
	if hero.Score >= bronzeRescuerScore && !slices.Contains(hero.Medals, bronzeRescuerMedal) {
		hero.Medals = append(hero.Medals, bronzeRescuerMedal)
	}
	return r.saveUser(ctx, tx, hero)
}

func (r *Repository) saveUser(ctx context.Context, tx *sqlx.Tx, u models.User) error {
	medals, err := json.Marshal(u.Medals)
	if err != nil {
		return errors.Wrap(err, "encode medals")
	}
	if _, err = tx.ExecContext(ctx, `UPDATE users SET score = ?, medals = ? WHERE id = ?`,
		u.Score, string(medals), u.ID); err != nil {
		return errors.Wrap(err, "update user", slog.Int64("userID", u.ID))
	}
	return nil
}

func (r *Repository) Users(ctx context.Context) ([]models.User, error) {
	var rows []userRow
	if err := r.db.ReadOnly.SelectContext(ctx, &rows, `SELECT id, name, score, medals FROM users ORDER BY id`); err != nil {
		return nil, errors.Wrap(err, "select users")
	}
	users := make([]models.User, 0, len(rows))
	for _, row := range rows {
		u, err := row.toUser()
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// AwardPoints adds points to a user's score or replaces it, depending on mode.
func (r *Repository) AwardPoints(
	ctx context.Context,
	id int64,
	points int64,
	mode models.PointsMode,
) (models.User, error) {
	tx, err := r.db.ReadWrite.BeginTxx(ctx, nil)
	if err != nil {
		return models.User{}, errors.Wrap(err, "begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var row userRow
	if err = tx.GetContext(ctx, &row, `SELECT id, name, score, medals FROM users WHERE id = ?`, id); err != nil {
		return models.User{}, notFound(err, "get user", id)
	}
	user, err := row.toUser()
	if err != nil {
		return models.User{}, err
	}
	switch mode {
	case models.PointsModeAdd:
		user.Score += points
	case models.PointsModeSet:
		user.Score = points
	default:
		return models.User{}, errors.Wrap(ErrInvalidInput, "invalid mode", slog.String("mode", string(mode)))
	}
	if user.Score < 0 {
		return models.User{}, errors.Wrap(ErrInvalidInput, "score cannot be negative", slog.Int64("score", user.Score))
	}
	if err = r.saveUser(ctx, tx, user); err != nil {
		return models.User{}, err
	}
	if err = tx.Commit(); err != nil {
		return models.User{}, errors.Wrap(err, "commit")
	}
	return user, nil
}

func (r *Repository) Rewards(ctx context.Context) ([]models.Reward, error) {
	rewards := []models.Reward{}
	if err := r.db.ReadOnly.SelectContext(ctx, &rewards,
		`SELECT id, name, description, points_required, is_active FROM rewards ORDER BY id`); err != nil {
		return nil, errors.Wrap(err, "select rewards")
	}
	return rewards, nil
}

func (r *Repository) Redemptions(ctx context.Context) ([]models.Redemption, error) {
	redemptions := []models.Redemption{}
	if err := r.db.ReadOnly.SelectContext(ctx, &redemptions,
		selectRedemptions+` ORDER BY r.requested_at DESC, r.id DESC`); err != nil {
		return nil, errors.Wrap(err, "select redemptions")
	}
	return redemptions, nil
}

func (r *Repository) ReviewRedemption(
	ctx context.Context,
	id int64,
	status models.RedemptionStatus,
) (models.Redemption, error) {
	if !slices.Contains(models.RedemptionReviewOutcomes, status) {
		return models.Redemption{}, errors.Wrap(ErrInvalidInput, "invalid review outcome",
			slog.String("status", string(status)))
	}
	res, err := r.db.ReadWrite.ExecContext(ctx, `UPDATE redemptions SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return models.Redemption{}, errors.Wrap(err, "review redemption")
	}
	if err = requireAffected(res, id); err != nil {
		return models.Redemption{}, err
	}
	var redemption models.Redemption
	if err = r.db.ReadWrite.GetContext(ctx, &redemption, selectRedemptions+` WHERE r.id = ?`, id); err != nil {
		return models.Redemption{}, notFound(err, "get redemption", id)
	}
	return redemption, nil
}

// Reports lists sighting reports, only those of caseID when it is non-zero.
func (r *Repository) Reports(ctx context.Context, caseID int64) ([]models.Report, error) {
	var (
		reports = []models.Report{}
		err     error
	)
	if caseID == 0 {
		err = r.db.ReadOnly.SelectContext(ctx, &reports, selectReports+` ORDER BY created_at DESC, id DESC`)
	} else {
		err = r.db.ReadOnly.SelectContext(ctx, &reports,
			selectReports+` WHERE missing_case_id = ? ORDER BY created_at DESC, id DESC`, caseID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select reports")
	}
	return reports, nil
}

func (r *Repository) CreateReport(ctx context.Context, report models.Report) (models.Report, error) {
	if _, err := r.getCase(ctx, r.db.ReadWrite, report.MissingCaseID); err != nil {
		return models.Report{}, err
	}
	if report.ReporterName == "" {
		report.ReporterName = "Anonymous"
	}
	res, err := r.db.ReadWrite.NamedExecContext(ctx,
		`INSERT INTO reports (missing_case_id, reporter_name, description, latitude, longitude)
VALUES (:missing_case_id, :reporter_name, :description, :latitude, :longitude)`, report)
	if err != nil {
		return models.Report{}, errors.Wrap(err, "insert report")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Report{}, errors.Wrap(err, "last insert id")
	}
	var created models.Report
	if err = r.db.ReadWrite.GetContext(ctx, &created, selectReports+` WHERE id = ?`, id); err != nil {
		return models.Report{}, notFound(err, "get report", id)
	}
	return created, nil
}

func (r *Repository) ReviewReport(ctx context.Context, id int64, status models.ReportStatus) (models.Report, error) {
	if !slices.Contains(models.ReportReviewOutcomes, status) && status != models.ReportStatusReviewed {
		return models.Report{}, errors.Wrap(ErrInvalidInput, "invalid review outcome",
			slog.String("status", string(status)))
	}
	res, err := r.db.ReadWrite.ExecContext(ctx, `UPDATE reports SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return models.Report{}, errors.Wrap(err, "review report")
	}
	if err = requireAffected(res, id); err != nil {
		return models.Report{}, err
	}
	var report models.Report
	if err = r.db.ReadWrite.GetContext(ctx, &report, selectReports+` WHERE id = ?`, id); err != nil {
		return models.Report{}, notFound(err, "get report", id)
	}
	return report, nil
}

func notFound(err error, msg string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(ErrNotFound, msg, slog.Int64("id", id))
	}
	return errors.Wrap(err, msg, slog.Int64("id", id))
}

func requireAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return errors.Wrap(ErrNotFound, "no rows updated", slog.Int64("id", id))
	}
	return nil
}
