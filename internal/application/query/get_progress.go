package query

import (
	"context"
	"strings"
	"time"

	"github.com/qaplayground/playground-hub/internal/domain/progress"
	"github.com/qaplayground/playground-hub/internal/domain/shared"
	"github.com/qaplayground/playground-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS QUERY
// Returns a user's monthly progress. Reading applies the monthly reset first,
// so a balance from a previous month is never reported.
// ══════════════════════════════════════════════════════════════════════════════

// ProgressReader is the part of the progress engine this query needs.
type ProgressReader interface {
	Progress(ctx context.Context, userID string) (progress.Snapshot, error)
	Policy() progress.ResetPolicy
}

// GetProgressQuery selects the user.
type GetProgressQuery struct {
	UserID string
}

// Validate checks the query.
func (q GetProgressQuery) Validate() error {
	if strings.TrimSpace(q.UserID) == "" {
		return shared.ErrEmptyUserID
	}
	return nil
}

// GetProgressResult is the user's progress for the current month.
type GetProgressResult struct {
	UserID              string     `json:"userId"`
	TotalXP             int        `json:"totalXP"`
	CompletedCount      int        `json:"completedCount"`
	CompletedSectionIDs []string   `json:"completedSectionIds"`
	Level               int        `json:"level"`
	LastUpdated         *time.Time `json:"lastUpdated,omitempty"`
	NextResetAt         time.Time  `json:"nextResetAt"`
}

// GetProgressHandler handles GetProgressQuery.
type GetProgressHandler struct {
	engine ProgressReader
	handlerDeps
}

// NewGetProgressHandler creates a handler.
func NewGetProgressHandler(engine ProgressReader, opts ...Option) *GetProgressHandler {
	return &GetProgressHandler{
		engine:      engine,
		handlerDeps: buildDeps("get_progress", opts),
	}
}

// Handle executes the query. A user with no progress gets a zero balance.
func (h *GetProgressHandler) Handle(ctx context.Context, q GetProgressQuery) (*GetProgressResult, error) {
	start := time.Now()
	defer h.recorder.ObserveOperation("get_progress", start)

	if err := q.Validate(); err != nil {
		return nil, err
	}
	userID := strings.TrimSpace(q.UserID)

	snap, err := h.engine.Progress(ctx, userID)
	if err != nil {
		h.log.Error("progress read failed", logger.UserID(userID), logger.Err(err))
		return nil, err
	}

	if snap.ResetApplied {
		h.recorder.Reset(ResetMonthly)
		h.log.Info("monthly progress reset applied", logger.UserID(userID))
		if err := h.invalidator.Invalidate(context.WithoutCancel(ctx)); err != nil {
			h.log.Warn("ranking cache invalidation failed", logger.UserID(userID), logger.Err(err))
		}
	}

	policy := h.engine.Policy()
	res := &GetProgressResult{
		UserID:              snap.UserID,
		TotalXP:             snap.TotalXP,
		CompletedCount:      snap.CompletedCount,
		CompletedSectionIDs: snap.CompletedSectionIDs,
		Level:               snap.Level,
		NextResetAt:         policy.NextReset(policy.Now()),
	}
	if res.CompletedSectionIDs == nil {
		res.CompletedSectionIDs = []string{}
	}
	if !snap.LastUpdated.IsZero() {
		t := snap.LastUpdated
		res.LastUpdated = &t
	}
	return res, nil
}
