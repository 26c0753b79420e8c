package command

import (
	"context"
	"strings"
	"time"

	"github.com/qaplayground/playground-hub/internal/domain/shared"
	"github.com/qaplayground/playground-hub/pkg/logger"
	"github.com/qaplayground/playground-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESET PROGRESS COMMAND
// Unconditionally clears a user's XP and completions.
// ══════════════════════════════════════════════════════════════════════════════

// Resetter is the part of the progress engine this command drives.
type Resetter interface {
	Reset(ctx context.Context, userID string) (int, error)
}

// ResetProgressCommand requests a manual reset.
type ResetProgressCommand struct {
	UserID string
}

// Validate checks the command.
func (c ResetProgressCommand) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return shared.ErrEmptyUserID
	}
	return nil
}

// ResetProgressResult reports what was cleared.
type ResetProgressResult struct {
	UserID    string    `json:"userId"`
	ClearedXP int       `json:"clearedXP"`
	ResetAt   time.Time `json:"resetAt"`
}

// ResetProgressHandler handles ResetProgressCommand.
type ResetProgressHandler struct {
	engine Resetter
	handlerDeps
}

// NewResetProgressHandler creates a handler.
func NewResetProgressHandler(engine Resetter, opts ...Option) *ResetProgressHandler {
	return &ResetProgressHandler{
		engine:      engine,
		handlerDeps: buildDeps("reset_progress", opts),
	}
}

// Handle executes the command. Resetting twice is harmless, so storage
// failures are retried.
func (h *ResetProgressHandler) Handle(ctx context.Context, cmd ResetProgressCommand) (*ResetProgressResult, error) {
	start := time.Now()
	defer h.recorder.ObserveOperation("reset_progress", start)

	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	userID := strings.TrimSpace(cmd.UserID)

	cleared, err := retry.DoWithData(ctx, h.retrier, func(ctx context.Context) (int, error) {
		return h.engine.Reset(ctx, userID)
	})
	if err != nil {
		h.log.Error("progress reset failed", logger.UserID(userID), logger.Err(err))
		return nil, err
	}

	h.recorder.Reset(ResetManual)
	h.log.Info("progress reset", logger.UserID(userID), logger.Int("cleared_xp", cleared))
	h.invalidateRanking(ctx, userID)

	return &ResetProgressResult{
		UserID:    userID,
		ClearedXP: cleared,
		ResetAt:   time.Now().UTC(),
	}, nil
}
