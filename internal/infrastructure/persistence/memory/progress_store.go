// Package memory provides an in-process progress store. It backs local
// development and tests, and follows the same unit-of-work contract as the
// Postgres store: per-user serialization and all-or-nothing commits.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qaplayground/playground-hub/internal/domain/progress"
	"github.com/qaplayground/playground-hub/internal/domain/ranking"
	"github.com/qaplayground/playground-hub/internal/domain/shared"
)

// Fault operations passed to a FaultFunc.
const (
	OpBegin         = "begin"
	OpHasCompleted  = "has_completed"
	OpSections      = "sections"
	OpAddCompletion = "add_completion"
	OpReset         = "reset"
	OpCommit        = "commit"
	OpList          = "list"
)

// FaultFunc can fail a store operation. It receives the operation name and
// the user it concerns (empty for OpList).
type FaultFunc func(op, userID string) error

// ProgressStore keeps progress in maps guarded by one mutex per user.
type ProgressStore struct {
	mu    sync.Mutex
	users map[string]*userRecord
	fault FaultFunc
}

type userRecord struct {
	mu        sync.Mutex
	persisted bool
	progress  progress.UserProgress
	sections  map[string]progress.CompletedSection
	order     []string
}

// NewProgressStore creates an empty store.
func NewProgressStore() *ProgressStore {
	return &ProgressStore{users: make(map[string]*userRecord)}
}

// InjectFault installs fn; nil removes it.
func (s *ProgressStore) InjectFault(fn FaultFunc) {
	s.mu.Lock()
	s.fault = fn
	s.mu.Unlock()
}

func (s *ProgressStore) check(op, userID string) error {
	s.mu.Lock()
	fn := s.fault
	s.mu.Unlock()
	if fn == nil {
		return nil
	}
	if err := fn(op, userID); err != nil {
		return fmt.Errorf("memory store %s: %w", op, err)
	}
	return nil
}

func (s *ProgressStore) record(userID string) *userRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[userID]
	if !ok {
		rec = &userRecord{}
		s.users[userID] = rec
	}
	return rec
}

// Update implements progress.Repository.
func (s *ProgressStore) Update(ctx context.Context, userID string, now time.Time, fn func(tx progress.UserTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.check(OpBegin, userID); err != nil {
		return err
	}

	rec := s.record(userID)
	rec.mu.Lock()
	defer rec.mu.Unlock()

	tx := &progressTx{store: s, userID: userID}
	if rec.persisted {
		tx.progress = rec.progress
		tx.sections = rec.sections
		tx.order = rec.order
	} else {
		tx.progress = progress.UserProgress{UserID: userID, LastUpdated: now, CreatedAt: now}
		tx.sections = map[string]progress.CompletedSection{}
		tx.dirty = true
		tx.owned = true
	}

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.check(OpCommit, userID); err != nil {
		return err
	}

	if tx.dirty {
		rec.progress = tx.progress
		rec.sections = tx.sections
		rec.order = tx.order
		rec.persisted = true
	}
	return nil
}

// ListStandings implements ranking.StandingsSource.
func (s *ProgressStore) ListStandings(ctx context.Context) ([]ranking.Standing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.check(OpList, ""); err != nil {
		return nil, err
	}

	s.mu.Lock()
	recs := make([]*userRecord, 0, len(s.users))
	for _, rec := range s.users {
		recs = append(recs, rec)
	}
	s.mu.Unlock()

	out := make([]ranking.Standing, 0, len(recs))
	for _, rec := range recs {
		rec.mu.Lock()
		if rec.persisted {
			out = append(out, ranking.Standing{
				UserID:         rec.progress.UserID,
				TotalXP:        rec.progress.TotalXP,
				CompletedCount: len(rec.order),
				LastUpdated:    rec.progress.LastUpdated,
			})
		}
		rec.mu.Unlock()
	}
	return out, nil
}

// Len returns the number of stored users.
func (s *ProgressStore) Len() int {
	standings, _ := s.ListStandings(context.Background())
	return len(standings)
}

// progressTx stages writes; the maps it shares with the record are copied
// before the first write.
type progressTx struct {
	store    *ProgressStore
	userID   string
	progress progress.UserProgress
	sections map[string]progress.CompletedSection
	order    []string
	dirty    bool
	owned    bool
}

func (tx *progressTx) Progress() progress.UserProgress {
	p := tx.progress
	p.CompletedCount = len(tx.order)
	return p
}

func (tx *progressTx) HasCompleted(ctx context.Context, scenarioID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := tx.store.check(OpHasCompleted, tx.userID); err != nil {
		return false, err
	}
	_, ok := tx.sections[scenarioID]
	return ok, nil
}

func (tx *progressTx) Sections(ctx context.Context) ([]progress.CompletedSection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := tx.store.check(OpSections, tx.userID); err != nil {
		return nil, err
	}
	out := make([]progress.CompletedSection, 0, len(tx.order))
	for _, id := range tx.order {
		out = append(out, tx.sections[id])
	}
	return out, nil
}

func (tx *progressTx) AddCompletion(ctx context.Context, section progress.CompletedSection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tx.store.check(OpAddCompletion, tx.userID); err != nil {
		return err
	}
	if _, ok := tx.sections[section.ScenarioID]; ok {
		return shared.WrapError("progress", "AddCompletion", shared.ErrAlreadyExists,
			"scenario "+section.ScenarioID+" already completed", nil)
	}

	tx.own()
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	section.UserID = tx.userID
	tx.sections[section.ScenarioID] = section
	tx.order = append(tx.order, section.ScenarioID)
	tx.progress.TotalXP += section.XPAwarded
	tx.progress.LastUpdated = section.CompletedAt
	tx.dirty = true
	return nil
}

func (tx *progressTx) Reset(ctx context.Context, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tx.store.check(OpReset, tx.userID); err != nil {
		return err
	}
	tx.sections = map[string]progress.CompletedSection{}
	tx.order = nil
	tx.owned = true
	tx.progress.TotalXP = 0
	tx.progress.LastUpdated = at
	tx.dirty = true
	return nil
}

func (tx *progressTx) own() {
	if tx.owned {
		return
	}
	sections := make(map[string]progress.CompletedSection, len(tx.sections)+1)
	for k, v := range tx.sections {
		sections[k] = v
	}
	tx.sections = sections
	tx.order = append(make([]string, 0, len(tx.order)+1), tx.order...)
	tx.owned = true
}

var (
	_ progress.Repository     = (*ProgressStore)(nil)
	_ ranking.StandingsSource = (*ProgressStore)(nil)
)
