// Package mockbackend is an in-memory stand-in for the case-management REST API.
package mockbackend

import (
	"encoding/json"
	"github.com/myrjola/resqlink/internal/errors"
	"github.com/myrjola/resqlink/internal/models"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync/atomic"
)

const maxBodySize = 1 << 20

var errDecode = errors.NewSentinel("could not decode request body")

type Backend struct {
	repo       *Repository
	logger     *slog.Logger
	failWrites atomic.Bool
}

func New(repo *Repository, logger *slog.Logger) *Backend {
	return &Backend{
		repo:       repo,
		logger:     logger.With("source", "MockBackend"),
		failWrites: atomic.Bool{},
	}
}

// FailWrites makes every write respond 503 Service Unavailable until it is called with false.
func (b *Backend) FailWrites(fail bool) {
	b.failWrites.Store(fail)
}

// Handler serves the REST surface under /api.
func (b *Backend) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", b.health)

	mux.HandleFunc("GET /api/cases", b.listCases)
	mux.HandleFunc("POST /api/cases", b.writes(b.createCase))
	mux.HandleFunc("PUT /api/cases/{id}/status", b.writes(b.updateCaseStatus))
	mux.HandleFunc("GET /api/cases/{id}/reports/", b.listCaseReports)
	mux.HandleFunc("POST /api/cases/{id}/report-sighting/", b.writes(b.createReport))

	mux.HandleFunc("GET /api/tips", b.listTips)
	mux.HandleFunc("POST /api/tips", b.writes(b.createTip))
	mux.HandleFunc("PUT /api/tips/{id}/verify", b.writes(b.verifyTip))

	mux.HandleFunc("GET /api/users", b.listUsers)
	mux.HandleFunc("POST /api/users/{id}/points", b.writes(b.awardPoints))

	mux.HandleFunc("GET /api/rewards", b.listRewards)
	mux.HandleFunc("GET /api/rewards/redemptions", b.listRedemptions)
	mux.HandleFunc("PATCH /api/rewards/redemptions/{id}/review", b.writes(b.reviewRedemption))

	mux.HandleFunc("GET /api/reports/", b.listReports)
	mux.HandleFunc("PATCH /api/reports/{id}/review/", b.writes(b.reviewReport))

	return b.logRequest(mux)
}

func (b *Backend) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.logger.LogAttrs(r.Context(), slog.LevelDebug, "received request",
			slog.String("method", r.Method), slog.String("uri", r.URL.RequestURI()))
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) writes(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if b.failWrites.Load() {
			b.writeJSON(w, r, http.StatusServiceUnavailable, detail{Detail: "writes are unavailable"})
			return
		}
		next(w, r)
	}
}

type detail struct {
	Detail string `json:"detail"`
}

func (b *Backend) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		b.logger.LogAttrs(r.Context(), slog.LevelError, "failed to encode response", errors.SlogError(err))
	}
}

func (b *Backend) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, errDecode):
		status = http.StatusBadRequest
	}
	level := slog.LevelDebug
	if status == http.StatusInternalServerError {
		level = slog.LevelError
	}
	b.logger.LogAttrs(r.Context(), level, "request failed", slog.Int("status", status), errors.SlogError(err))
	b.writeJSON(w, r, status, detail{Detail: err.Error()})
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.Join(errDecode, err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Wrap(ErrNotFound, "invalid id", slog.String("id", r.PathValue("id")))
	}
	return id, nil
}

func (b *Backend) health(w http.ResponseWriter, r *http.Request) {
	b.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (b *Backend) listCases(w http.ResponseWriter, r *http.Request) {
	cases, err := b.repo.Cases(r.Context())
	if err != nil {
		b.fail(w, r, err)
		return
	}
	b.writeJSON(w, r, http.StatusOK, cases)
}

func (b *Backend) createCase(w http.ResponseWriter, r *http.Request) {
	var in models.Case
	if err := readJSON(w, r, &in); err != nil {
		b.fail(w, r, err)
		return
	}
	c, err := b.repo.CreateCase(r.Context(), in)
	if err != nil {
		b.fail(w, r, err)
		return
	}
	b.writeJSON(w, r, http.StatusCreated, c)
}

type statusBody struct {
	Status string `json:"status"`
}

func (b *Backend) updateCaseStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		b.fail(w, r, err)
		return
	}
	var in statusBody
	if err = readJSON(w, r, &in); err != nil {
		b.fail(w, r, err)
		return
	}
	c, err := b.repo.UpdateCaseStatus(r.Context(), id, models.CaseStatus(in.Status))
	if err != nil {
		b.fail(w, r, err)
		return
	}
	b.writeJSON(w, r, http.StatusOK, c)
}

func (b *Backend) listTips(w http.ResponseWriter, r *http.Request) {
	tips, err := b.repo.Tips(r.Context())
	if err != nil {
		b.fail(w, r, err)
		return
	}
	b.writeJSON(w, r, http.StatusOK, tips)
}

type createTipBody struct {
	CaseID      int64  `json:"caseId"`
	Reporter    string `json:"reporter"`
	Content     string `json:"content"`
	IsAnonymous bool   `json:"isAnonymous"`
}

func (b *Backend) createTip(w http.ResponseWriter, r *http.Request) {
	var in createTipBody
	if err := readJSON(w, r, &in); err != nil {
		b.fail(w, r, err)
		return
	}
	tip, err := b.repo.CreateTip(r.Context(), models.Tip{ //nolint:exhaustruct // the rest is assigned by the database
		CaseID:      in.CaseID,
		Reporter:    in.Reporter,
		Content:     in.Content,
		IsAnonymous: in.IsAnonymous,
	})
	if err != nil {
		b.fail(w, r, err)
		return
	}
	b.writeJSON(w, r, http.StatusCreated, tip)
}

func (b *Backend) verifyTip(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		b.fail(w, r, err)
		return
	}
	tip, err := b.repo.VerifyTip(r.Context(), id)
	if err != nil {
		b.fail(w, r, err)
		return
	}
	b.writeJSON(w, r, http.StatusOK, tip)
}

func (b *Backend) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := b.repo.Users(r.Context())
	if err != nil {
		b.fail(w, r, err)
		return
	}
	b.writeJSON(w, r, http.StatusOK, users)
}

type awardPointsBody struct {
	Points float64 `json:"points"`
	Mode   string  `json:"mode"`
}

func (b *Backend) awardPoints(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		b.fail(w, r, err)
		return
	}
	var in awardPointsBody
	if err = readJSON(w, r, &in); err != nil {
		b.fail(w, r, err)
		return
	}
	mode, err := models.ParsePointsMode(in.Mode)
	if err != nil {
		b.fail(w, r, errors.Join(ErrInvalidInput, err))
		return
	}
	if math.IsNaN(in.Points) || math.IsInf(in.Points, 0) {
		b.fail(w, r, errors.Wrap(ErrInvalidInput, "points must be a finite number"))
		return
	}
	user, err := b.repo.AwardPoints(r.Context(), id, int64(math.Round(in.Points)), mode)
	if err != nil {
		b.fail(w, r, err)
		return
	}
	b.writeJSON(w, r, http.StatusOK, user)
}

func (b *Backend) listRewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := b.repo.Rewards(r.Context())
	if err != nil {
		b.fail(w, r, err)
		return
	}
	b.writeJSON(w, r, http.StatusOK, rewards)
}

func (b *Backend) listRedemptions(w http.ResponseWriter, r *http.Request) {
	redemptions, err := b.repo.Redemptions(r.Context())
	if err != nil {
		b.fail(w, r, err)
		return
	}
	b.writeJSON(w, r, http.StatusOK, redemptions)
}

func (b *Backend) reviewRedemption(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		b.fail(w, r, err)
		return
	}
	var in statusBody
	if err = readJSON(w, r, &in); err != nil {
		b.fail(w, r, err)
		return
	}
	redemption, err := b.repo.ReviewRedemption(r.Context(), id, models.RedemptionStatus(in.Status))
	if err != nil {
		b.fail(w, r, err)
		return
	}
	b.writeJSON(w, r, http.StatusOK, redemption)
}

func (b *Backend) listReports(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/reports/" {
		b.fail(w, r, errors.Wrap(ErrNotFound, "unknown path", slog.String("path", r.URL.Path)))
		return
	}
	reports, err := b.repo.Reports(r.Context(), 0)
	if err != nil {
		b.fail(w, r, err)
		return
	}
	b.writeJSON(w, r, http.StatusOK, reports)
}

func (b *Backend) listCaseReports(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		b.fail(w, r, err)
		return
	}
	reports, err := b.repo.Reports(r.Context(), id)
	if err != nil {
		b.fail(w, r, err)
		return
	}
	b.writeJSON(w, r, http.StatusOK, reports)
}

type createReportBody struct {
	ReporterName string  `json:"reporter_name"`
	Description  string  `json:"description"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
}

func (b *Backend) createReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		b.fail(w, r, err)
		return
	}
	var in createReportBody
	if err = readJSON(w, r, &in); err != nil {
		b.fail(w, r, err)
		return
	}
	report, err := b.repo.CreateReport(r.Context(), models.Report{ //nolint:exhaustruct // assigned by the database
		MissingCaseID: id,
		ReporterName:  in.ReporterName,
		Description:   in.Description,
		Latitude:      in.Latitude,
		Longitude:     in.Longitude,
	})
	if err != nil {
		b.fail(w, r, err)
		return
	}
	b.writeJSON(w, r, http.StatusCreated, report)
}

func (b *Backend) reviewReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		b.fail(w, r, err)
		return
	}
	var in statusBody
	if err = readJSON(w, r, &in); err != nil {
		b.fail(w, r, err)
		return
	}
	report, err := b.repo.ReviewReport(r.Context(), id, models.ReportStatus(in.Status))
	if err != nil {
		b.fail(w, r, err)
		return
	}
	b.writeJSON(w, r, http.StatusOK, report)
}
