// Package store holds the dashboard's in-memory view of the backend collections and reconciles fetched snapshots
// with optimistic operator mutations.
package store

import (
	"github.com/myrjola/resqlink/internal/errors"
	"github.com/myrjola/resqlink/internal/models"
	"log/slog"
	"maps"
	"sync"
	"time"
)

var (
	ErrClosed             = errors.NewSentinel("store closed")
	ErrNotFound           = errors.NewSentinel("entity not found")
	ErrInvalidMergePolicy = errors.NewSentinel("merge policy must be pending or overwrite")
)

// MergePolicy decides how a fetched snapshot is combined with optimistic mutations.
type MergePolicy string

const (
	// MergePolicyPending keeps unconfirmed mutations on top of fetched values and rolls back failed writes.
	MergePolicyPending MergePolicy = "pending"
	// MergePolicyOverwrite replaces every collection wholesale on each snapshot and never rolls back.
	MergePolicyOverwrite MergePolicy = "overwrite"
)

func ParseMergePolicy(s string) (MergePolicy, error) {
	switch MergePolicy(s) {
	case MergePolicyPending:
		return MergePolicyPending, nil
	case MergePolicyOverwrite:
		return MergePolicyOverwrite, nil
	default:
		return "", errors.Wrap(ErrInvalidMergePolicy, "parse merge policy", slog.String("policy", s))
	}
}

const maxNotices = 10

// Notice is an operator-facing message about something that happened in the background.
type Notice struct {
	At      time.Time
	Message string
}

// Mutation identifies an optimistic change waiting for its remote write to settle.
type Mutation struct {
	Resource models.Resource
	ID       int64
	Token    Token
}

// Store is the single owner of the dashboard view state. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	logger *slog.Logger
	policy MergePolicy
	now    func() time.Time

	epoch         uint64
	lastToken     Token
	closed        bool
	loaded        bool
	lastRefreshed time.Time

	cases       collection[models.Case]
	tips        collection[models.Tip]
	users       collection[models.User]
	rewards     collection[models.Reward]
	redemptions collection[models.Redemption]
	reports     collection[models.Report]

	pointInputs map[int64]string
	notices     []Notice
}

func New(policy MergePolicy, logger *slog.Logger) *Store {
	return &Store{
		mu:            sync.RWMutex{},
		logger:        logger.With("source", "Store"),
		policy:        policy,
		now:           time.Now,
		epoch:         0,
		lastToken:     0,
		closed:        false,
		loaded:        false,
		lastRefreshed: time.Time{},
		cases:         newCollection[models.Case](),
		tips:          newCollection[models.Tip](),
		users:         newCollection[models.User](),
		rewards:       newCollection[models.Reward](),
		redemptions:   newCollection[models.Redemption](),
		reports:       newCollection[models.Report](),
		pointInputs:   make(map[int64]string),
		notices:       nil,
	}
}

func (s *Store) Policy() MergePolicy {
	return s.policy
}

// BeginCycle marks the start of a sync cycle and returns its epoch, which must be passed to Apply.
func (s *Store) BeginCycle() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	return s.epoch
}

// Apply merges the successful reads of the cycle started at epoch into the view in one step.
//
// Failed reads leave their collections untouched. The last refreshed timestamp only moves when at least one read
// succeeded. After Close, Apply discards the snapshot and returns ErrClosed.
func (s *Store) Apply(epoch uint64, snapshot Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if snapshot.Cases.OK() {
		s.logDuplicates(models.ResourceCases, s.cases.merge(snapshot.Cases.Items, epoch, s.policy))
	}
	if snapshot.Tips.OK() {
		s.logDuplicates(models.ResourceTips, s.tips.merge(snapshot.Tips.Items, epoch, s.policy))
	}
	if snapshot.Users.OK() {
		s.logDuplicates(models.ResourceUsers, s.users.merge(snapshot.Users.Items, epoch, s.policy))
	}
	if snapshot.Rewards.OK() {
		s.logDuplicates(models.ResourceRewards, s.rewards.merge(snapshot.Rewards.Items, epoch, s.policy))
	}
	if snapshot.Redemptions.OK() {
		s.logDuplicates(models.ResourceRedemptions,
			s.redemptions.merge(snapshot.Redemptions.Items, epoch, s.policy))
	}
	if snapshot.Reports.OK() {
		s.logDuplicates(models.ResourceReports, s.reports.merge(snapshot.Reports.Items, epoch, s.policy))
	}

	if snapshot.Succeeded() > 0 {
		s.lastRefreshed = s.now()
	}
	s.loaded = true
	return nil
}

func (s *Store) logDuplicates(resource models.Resource, ids []int64) {
	if len(ids) > 0 {
		s.logger.Warn("duplicate ids in snapshot", slog.String("resource", string(resource)),
			slog.Any("ids", ids))
	}
}

func (s *Store) nextToken() Token {
	s.lastToken++
	return s.lastToken
}

// MutateCase optimistically patches case id after validate accepts its displayed value.
func (s *Store) MutateCase(
	id int64,
	validate func(models.Case) error,
	patch func(models.Case) models.Case,
) (Mutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Mutation{}, ErrClosed
	}
	token, err := s.cases.mutate(id, validate, patch, s.policy, s.nextToken(), s.now())
	return Mutation{Resource: models.ResourceCases, ID: id, Token: token}, err
}

// MutateTip optimistically patches tip id after validate accepts its displayed value.
func (s *Store) MutateTip(
	id int64,
	validate func(models.Tip) error,
	patch func(models.Tip) models.Tip,
) (Mutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Mutation{}, ErrClosed
	}
	token, err := s.tips.mutate(id, validate, patch, s.policy, s.nextToken(), s.now())
	return Mutation{Resource: models.ResourceTips, ID: id, Token: token}, err
}

// MutateRedemption optimistically patches redemption id after validate accepts its displayed value.
func (s *Store) MutateRedemption(
	id int64,
	validate func(models.Redemption) error,
	patch func(models.Redemption) models.Redemption,
) (Mutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Mutation{}, ErrClosed
	}
	token, err := s.redemptions.mutate(id, validate, patch, s.policy, s.nextToken(), s.now())
	return Mutation{Resource: models.ResourceRedemptions, ID: id, Token: token}, err
}

// MutateReport optimistically patches report id after validate accepts its displayed value.
func (s *Store) MutateReport(
	id int64,
	validate func(models.Report) error,
	patch func(models.Report) models.Report,
) (Mutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Mutation{}, ErrClosed
	}
	token, err := s.reports.mutate(id, validate, patch, s.policy, s.nextToken(), s.now())
	return Mutation{Resource: models.ResourceReports, ID: id, Token: token}, err
}

// Settle records the outcome of the remote write behind m. It reports whether the displayed value was rolled back.
//
// Untracked mutations and settlements arriving after Close are ignored.
func (s *Store) Settle(m Mutation, writeErr error) bool {
	if m.Token == 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	failed := writeErr != nil
	var rolledBack bool
	switch m.Resource {
	case models.ResourceCases:
		rolledBack = s.cases.settle(m.ID, m.Token, failed, s.epoch)
	case models.ResourceTips:
		rolledBack = s.tips.settle(m.ID, m.Token, failed, s.epoch)
	case models.ResourceRedemptions:
		rolledBack = s.redemptions.settle(m.ID, m.Token, failed, s.epoch)
	case models.ResourceReports:
		rolledBack = s.reports.settle(m.ID, m.Token, failed, s.epoch)
	case models.ResourceUsers, models.ResourceRewards:
		s.logger.Error("settle on untracked resource", slog.String("resource", string(m.Resource)))
	}
	return rolledBack
}

// ConfirmUser replaces user with the backend's authoritative value and keeps it until a cycle that began
// afterwards has been merged.
func (s *Store) ConfirmUser(user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if !s.users.pin(user, s.policy, s.nextToken(), s.epoch, s.now()) {
		return errors.Wrap(ErrNotFound, "confirm user", slog.Int64("userID", user.ID))
	}
	return nil
}

func (s *Store) Case(id int64) (models.Case, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cases.get(id)
}

func (s *Store) User(id int64) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users.get(id)
}

// SetPointsInput keeps the operator's in-progress point value for a user.
func (s *Store) SetPointsInput(userID int64, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.pointInputs[userID] = raw
	return nil
}

func (s *Store) PointsInput(userID int64) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pointInputs[userID]
}

func (s *Store) ClearPointsInput(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pointInputs, userID)
}

// AddNotice records a message for the operator. Only the most recent notices are kept.
func (s *Store) AddNotice(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.notices = append(s.notices, Notice{At: s.now(), Message: message})
	if len(s.notices) > maxNotices {
		s.notices = s.notices[len(s.notices)-maxNotices:]
	}
}

// Close stops the store from accepting further writes. Late completions are discarded.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *Store) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// View is a read-only copy of the store for presentation.
type View struct {
	Cases       []models.Case
	Tips        []models.Tip
	Users       []models.User
	Rewards     []models.Reward
	Redemptions []models.Redemption
	Reports     []models.Report

	// Versions changes for a resource whenever its collection changes.
	Versions map[models.Resource]uint64
	// Pending holds the ids with an unsettled optimistic mutation.
	Pending map[models.Resource]map[int64]bool

	Loaded        bool
	LastRefreshed time.Time
	PointInputs   map[int64]string
	Notices       []Notice
	Policy        MergePolicy
}

func (v View) IsPending(resource models.Resource, id int64) bool {
	return v.Pending[resource][id]
}

// View returns a consistent copy of the current state.
func (s *Store) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return View{
		Cases:       s.cases.items(),
		Tips:        s.tips.items(),
		Users:       s.users.items(),
		Rewards:     s.rewards.items(),
		Redemptions: s.redemptions.items(),
		Reports:     s.reports.items(),
		Versions: map[models.Resource]uint64{
			models.ResourceCases:       s.cases.version,
			models.ResourceTips:        s.tips.version,
			models.ResourceUsers:       s.users.version,
			models.ResourceRewards:     s.rewards.version,
			models.ResourceRedemptions: s.redemptions.version,
			models.ResourceReports:     s.reports.version,
		},
		Pending: map[models.Resource]map[int64]bool{
			models.ResourceCases:       s.cases.pendingIDs(),
			models.ResourceTips:        s.tips.pendingIDs(),
			models.ResourceRedemptions: s.redemptions.pendingIDs(),
			models.ResourceReports:     s.reports.pendingIDs(),
		},
		Loaded:        s.loaded,
		LastRefreshed: s.lastRefreshed,
		PointInputs:   maps.Clone(s.pointInputs),
		Notices:       append([]Notice(nil), s.notices...),
		Policy:        s.policy,
	}
}
