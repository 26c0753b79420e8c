package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/qaplayground/playground-hub/internal/domain/progress"
	"github.com/qaplayground/playground-hub/internal/domain/ranking"
	"github.com/qaplayground/playground-hub/internal/domain/shared"
	"github.com/qaplayground/playground-hub/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProgressStore implements progress.Repository and ranking.StandingsSource.
type ProgressStore struct {
	conn    *Connection
	breaker *circuitbreaker.CircuitBreaker
}

// NewProgressStore creates a store. breaker may be nil.
func NewProgressStore(conn *Connection, breaker *circuitbreaker.CircuitBreaker) *ProgressStore {
	return &ProgressStore{conn: conn, breaker: breaker}
}

// IsStoreFailure reports whether err should count against the breaker.
// Validation errors, duplicate rows and caller cancellation do not.
func IsStoreFailure(err error) bool {
	switch {
	case err == nil:
		return false
	case shared.IsValidation(err), errors.Is(err, shared.ErrAlreadyExists):
		return false
	case errors.Is(err, context.Canceled):
		return false
	}
	return true
}

func (s *ProgressStore) guard(ctx context.Context, op string, fn func(context.Context) error) error {
	var err error
	if s.breaker == nil {
		err = fn(ctx)
	} else {
		err = s.breaker.Execute(ctx, fn)
	}
	if err == nil {
		return nil
	}
	if circuitbreaker.IsRejection(err) {
		return shared.StorageUnavailable("postgres", op, err)
	}
	return err
}

// Update implements progress.Repository. The user's row is created if needed
// and locked with SELECT ... FOR UPDATE for the rest of the transaction, so
// concurrent units of work for one user queue on the row lock.
func (s *ProgressStore) Update(ctx context.Context, userID string, now time.Time, fn func(tx progress.UserTx) error) error {
	return s.guard(ctx, "Update", func(ctx context.Context) error {
		return s.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, `
				INSERT INTO user_progress (user_id, total_xp, last_updated, created_at)
				VALUES ($1, 0, $2, $2)
				ON CONFLICT (user_id) DO NOTHING
			`, userID, now.UTC())
			if err != nil {
				return fmt.Errorf("failed to create progress row: %w", err)
			}

			ut := &progressTx{tx: tx}
			err = tx.QueryRow(ctx, `
				SELECT user_id, total_xp, last_updated, created_at
				FROM user_progress
				WHERE user_id = $1
				FOR UPDATE
			`, userID).Scan(&ut.progress.UserID, &ut.progress.TotalXP, &ut.progress.LastUpdated, &ut.progress.CreatedAt)
			if err != nil {
				return fmt.Errorf("failed to lock progress row: %w", err)
			}

			err = tx.QueryRow(ctx, `SELECT count(*) FROM completed_sections WHERE user_id = $1`, userID).
				Scan(&ut.progress.CompletedCount)
			if err != nil {
				return fmt.Errorf("failed to count sections: %w", err)
			}

			return fn(ut)
		})
	})
}

// ListStandings implements ranking.StandingsSource.
func (s *ProgressStore) ListStandings(ctx context.Context) ([]ranking.Standing, error) {
	var out []ranking.Standing
	err := s.guard(ctx, "ListStandings", func(ctx context.Context) error {
		rows, err := s.conn.Query(ctx, `
			SELECT p.user_id, p.total_xp, p.last_updated, count(c.id)
			FROM user_progress p
			LEFT JOIN completed_sections c ON c.user_id = p.user_id
			GROUP BY p.user_id, p.total_xp, p.last_updated
			ORDER BY p.total_xp DESC, count(c.id) DESC, p.user_id
		`)
		if err != nil {
			return fmt.Errorf("failed to query standings: %w", err)
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			var st ranking.Standing
			if err := rows.Scan(&st.UserID, &st.TotalXP, &st.LastUpdated, &st.CompletedCount); err != nil {
				return fmt.Errorf("failed to scan standing: %w", err)
			}
			out = append(out, st)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Unit of work
// ─────────────────────────────────────────────────────────────────────────────

type progressTx struct {
	tx       pgx.Tx
	progress progress.UserProgress
}

func (t *progressTx) Progress() progress.UserProgress {
	return t.progress
}

func (t *progressTx) HasCompleted(ctx context.Context, scenarioID string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM completed_sections WHERE user_id = $1 AND scenario_id = $2)
	`, t.progress.UserID, scenarioID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check completion: %w", err)
	}
	return exists, nil
}

func (t *progressTx) Sections(ctx context.Context) ([]progress.CompletedSection, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, scenario_id, tier, xp_awarded, completed_at
		FROM completed_sections
		WHERE user_id = $1
		ORDER BY completed_at, scenario_id
	`, t.progress.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sections: %w", err)
	}
	defer rows.Close()

	var out []progress.CompletedSection
	for rows.Next() {
		var (
			id uuid.UUID
			cs progress.CompletedSection
		)
		if err := rows.Scan(&id, &cs.ScenarioID, &cs.Tier, &cs.XPAwarded, &cs.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan section: %w", err)
		}
		cs.ID = id.String()
		cs.UserID = t.progress.UserID
		out = append(out, cs)
	}
	return out, rows.Err()
}

func (t *progressTx) AddCompletion(ctx context.Context, section progress.CompletedSection) error {
	id := uuid.New()
	if section.ID != "" {
		parsed, err := uuid.Parse(section.ID)
		if err != nil {
			return shared.InvalidInput("postgres", "AddCompletion", "section id must be a uuid")
		}
		id = parsed
	}

	_, err := t.tx.Exec(ctx, `
		INSERT INTO completed_sections (id, user_id, scenario_id, tier, xp_awarded, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, t.progress.UserID, section.ScenarioID, string(section.Tier), section.XPAwarded, section.CompletedAt.UTC())
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.WrapError("postgres", "AddCompletion", shared.ErrAlreadyExists,
				"scenario "+section.ScenarioID+" already completed", err)
		}
		return fmt.Errorf("failed to insert section: %w", err)
	}

	var total int
	var updated time.Time
	err = t.tx.QueryRow(ctx, `
		UPDATE user_progress
		SET total_xp = total_xp + $2, last_updated = $3
		WHERE user_id = $1
		RETURNING total_xp, last_updated
	`, t.progress.UserID, section.XPAwarded, section.CompletedAt.UTC()).Scan(&total, &updated)
	if err != nil {
		return fmt.Errorf("failed to increment total xp: %w", err)
	}

	t.progress.TotalXP = total
	t.progress.LastUpdated = updated
	t.progress.CompletedCount++
	return nil
}

func (t *progressTx) Reset(ctx context.Context, at time.Time) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM completed_sections WHERE user_id = $1`, t.progress.UserID); err != nil {
		return fmt.Errorf("failed to delete sections: %w", err)
	}

	_, err := t.tx.Exec(ctx, `
		UPDATE user_progress SET total_xp = 0, last_updated = $2 WHERE user_id = $1
	`, t.progress.UserID, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to reset progress: %w", err)
	}

	t.progress.TotalXP = 0
	t.progress.CompletedCount = 0
	t.progress.LastUpdated = at
	return nil
}

var (
	_ progress.Repository     = (*ProgressStore)(nil)
	_ ranking.StandingsSource = (*ProgressStore)(nil)
)
