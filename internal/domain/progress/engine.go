package progress

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/qaplayground/playground-hub/internal/domain/catalog"
	"github.com/qaplayground/playground-hub/internal/domain/shared"
)

// Engine applies completions and resets against a Repository.
// It is safe for concurrent use.
type Engine struct {
	repo   Repository
	xp     catalog.XPTable
	policy ResetPolicy
}

// NewEngine creates an engine. The XP table is copied.
func NewEngine(repo Repository, xp catalog.XPTable, policy ResetPolicy) *Engine {
	return &Engine{
		repo:   repo,
		xp:     xp.Clone(),
		policy: policy,
	}
}

// Policy returns the reset policy in use.
func (e *Engine) Policy() ResetPolicy {
	return e.policy
}

// CompleteScenario awards the tier's XP the first time userID completes
// scenarioID. Repeated calls return AlreadyCompleted with no mutation.
func (e *Engine) CompleteScenario(ctx context.Context, userID, scenarioID string, tier catalog.Tier) (Outcome, error) {
	const op = "CompleteScenario"

	userID, scenarioID = strings.TrimSpace(userID), strings.TrimSpace(scenarioID)
	if userID == "" {
		return Outcome{}, shared.ErrEmptyUserID
	}
	if scenarioID == "" {
		return Outcome{}, shared.ErrEmptyScenarioID
	}
	award, ok := e.xp.XPFor(tier)
	if !ok {
		return Outcome{}, shared.WrapError("progress", op, shared.ErrInvalidInput,
			"unknown difficulty tier "+string(tier), shared.ErrUnknownTier)
	}

	now := e.policy.Now()
	var out Outcome

	err := e.repo.Update(ctx, userID, now, func(tx UserTx) error {
		out = Outcome{}

		reset, err := e.resetIfDue(ctx, tx, now)
		if err != nil {
			return err
		}
		out.ResetApplied = reset

		done, err := tx.HasCompleted(ctx, scenarioID)
		if err != nil {
			return err
		}
		if done {
			out.AlreadyCompleted = true
			out.TotalXP = tx.Progress().TotalXP
			return nil
		}

		if err := tx.AddCompletion(ctx, CompletedSection{
			UserID:      userID,
			ScenarioID:  scenarioID,
			Tier:        tier,
			XPAwarded:   award,
			CompletedAt: now,
		}); err != nil {
			return err
		}
		out.XPAwarded = award
		out.TotalXP = tx.Progress().TotalXP
		return nil
	})
	if err != nil {
		return Outcome{}, storeError(op, err)
	}

	return out, nil
}

// ApplyResetIfDue zeroes the user's progress when the last update belongs to
// an earlier calendar month. It reports whether the reset fired.
func (e *Engine) ApplyResetIfDue(ctx context.Context, userID string) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, shared.ErrEmptyUserID
	}

	now := e.policy.Now()
	var reset bool
	err := e.repo.Update(ctx, userID, now, func(tx UserTx) error {
		var err error
		reset, err = e.resetIfDue(ctx, tx, now)
		return err
	})
	if err != nil {
		return false, storeError("ApplyResetIfDue", err)
	}
	return reset, nil
}

// Reset unconditionally zeroes the user's progress. It returns the balance
// that was cleared.
func (e *Engine) Reset(ctx context.Context, userID string) (int, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, shared.ErrEmptyUserID
	}

	now := e.policy.Now()
	var cleared int
	err := e.repo.Update(ctx, userID, now, func(tx UserTx) error {
		cleared = tx.Progress().TotalXP
		return tx.Reset(ctx, now)
	})
	if err != nil {
		return 0, storeError("Reset", err)
	}
	return cleared, nil
}

// Progress returns the user's progress after applying the reset check.
func (e *Engine) Progress(ctx context.Context, userID string) (Snapshot, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Snapshot{}, shared.ErrEmptyUserID
	}

	now := e.policy.Now()
	var snap Snapshot
	err := e.repo.Update(ctx, userID, now, func(tx UserTx) error {
		reset, err := e.resetIfDue(ctx, tx, now)
		if err != nil {
			return err
		}

		sections, err := tx.Sections(ctx)
		if err != nil {
			return err
		}

		p := tx.Progress()
		snap = Snapshot{
			UserID:              userID,
			TotalXP:             p.TotalXP,
			CompletedCount:      len(sections),
			CompletedSectionIDs: make([]string, 0, len(sections)),
			Level:               LevelFor(p.TotalXP),
			LastUpdated:         p.LastUpdated,
			ResetApplied:        reset,
		}
		for _, s := range sections {
			snap.CompletedSectionIDs = append(snap.CompletedSectionIDs, s.ScenarioID)
		}
		return nil
	})
	if err != nil {
		return Snapshot{}, storeError("Progress", err)
	}
	return snap, nil
}

func (e *Engine) resetIfDue(ctx context.Context, tx UserTx, now time.Time) (bool, error) {
	if !e.policy.IsDue(tx.Progress().LastUpdated, now) {
		return false, nil
	}
	if err := tx.Reset(ctx, now); err != nil {
		return false, err
	}
	return true, nil
}

// storeError maps a failed unit of work to the domain taxonomy. Anything that
// is not already classified is a storage failure.
func storeError(op string, err error) error {
	var de *shared.DomainError
	if errors.As(err, &de) && (shared.IsValidation(err) || shared.IsStorageUnavailable(err)) {
		return err
	}
	return shared.StorageUnavailable("progress", op, err)
}
