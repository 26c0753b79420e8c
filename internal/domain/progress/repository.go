package progress

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository is the durable progress store.
type Repository interface {
	// Update runs fn inside an atomic unit of work for userID. Units of work
	// for the same user are serialized; units for different users are
	// independent. The user's record is created lazily with LastUpdated and
	// CreatedAt set to now. Changes made through tx are committed only if fn
	// returns nil; otherwise nothing is persisted, including the lazy record.
	Update(ctx context.Context, userID string, now time.Time, fn func(tx UserTx) error) error
}

// UserTx is one user's progress inside a unit of work. It reflects writes
// made earlier in the same unit.
type UserTx interface {
	// Progress returns the current state of the record.
	Progress() UserProgress

	// HasCompleted reports whether a section exists for scenarioID.
	HasCompleted(ctx context.Context, scenarioID string) (bool, error)

	// Sections returns the completed sections in completion order.
	Sections(ctx context.Context) ([]CompletedSection, error)

	// AddCompletion inserts the section and raises TotalXP by its XPAwarded.
	// LastUpdated becomes section.CompletedAt. Inserting a pair that already
	// exists fails with shared.ErrAlreadyExists.
	AddCompletion(ctx context.Context, section CompletedSection) error

	// Reset deletes every section, zeroes TotalXP and sets LastUpdated to at.
	Reset(ctx context.Context, at time.Time) error
}
