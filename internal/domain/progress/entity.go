package progress

import (
	"math"
	"time"

	"github.com/qaplayground/playground-hub/internal/domain/catalog"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// UserProgress is the durable XP balance of one user.
type UserProgress struct {
	// UserID is the opaque identifier from the identity directory.
	UserID string

	// TotalXP is the sum of XPAwarded over the user's completed sections.
	TotalXP int

	// CompletedCount is the number of completed sections.
	CompletedCount int

	// LastUpdated is the time of the last award or reset. A fresh record
	// carries its creation time.
	LastUpdated time.Time

	CreatedAt time.Time
}

// Level derived from TotalXP.
func (p UserProgress) Level() int {
	return LevelFor(p.TotalXP)
}

// CompletedSection records that a user finished a scenario.
// Rows are never updated; a reset deletes all of a user's rows.
type CompletedSection struct {
	// ID is assigned by the store when left empty.
	ID         string
	UserID     string
	ScenarioID string
	Tier       catalog.Tier

	// XPAwarded is the award at completion time. Later catalog changes do not
	// touch it.
	XPAwarded int

	CompletedAt time.Time
}

// LevelFor maps an XP balance to a level: floor(sqrt(xp/25)) + 1.
func LevelFor(xp int) int {
	if xp <= 0 {
		return 1
	}
	return int(math.Floor(math.Sqrt(float64(xp)/25))) + 1
}

// ══════════════════════════════════════════════════════════════════════════════
// RESULTS
// ══════════════════════════════════════════════════════════════════════════════

// Outcome is the result of a completion attempt.
type Outcome struct {
	XPAwarded        int
	TotalXP          int
	AlreadyCompleted bool

	// ResetApplied is set when the monthly reset fired before the completion
	// was evaluated.
	ResetApplied bool
}

// Snapshot is a read of one user's progress after the reset check.
type Snapshot struct {
	UserID         string
	TotalXP        int
	CompletedCount int

	// CompletedSectionIDs holds scenario ids in completion order.
	CompletedSectionIDs []string

	Level        int
	LastUpdated  time.Time
	ResetApplied bool
}
