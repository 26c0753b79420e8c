package command

import (
	"context"
	"strings"
	"time"

	"github.com/qaplayground/playground-hub/internal/domain/catalog"
	"github.com/qaplayground/playground-hub/internal/domain/progress"
	"github.com/qaplayground/playground-hub/internal/domain/shared"
	"github.com/qaplayground/playground-hub/pkg/logger"
	"github.com/qaplayground/playground-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE SCENARIO COMMAND
// Awards a scenario's XP the first time a user completes it.
// Repeated completions are acknowledged without changing the balance.
// ══════════════════════════════════════════════════════════════════════════════

// Completer is the part of the progress engine this command drives.
type Completer interface {
	CompleteScenario(ctx context.Context, userID, scenarioID string, tier catalog.Tier) (progress.Outcome, error)
}

// CompleteScenarioCommand contains the data of a completion request.
type CompleteScenarioCommand struct {
	UserID     string
	ScenarioID string

	// Difficulty is the tier reported by the client. It may be empty for
	// scenarios the catalog knows.
	Difficulty string
}

// Validate checks the identifiers. The tier is checked against the catalog
// by the handler.
func (c CompleteScenarioCommand) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return shared.ErrEmptyUserID
	}
	if strings.TrimSpace(c.ScenarioID) == "" {
		return shared.ErrEmptyScenarioID
	}
	return nil
}

// CompleteScenarioResult is the outcome of a completion.
type CompleteScenarioResult struct {
	UserID           string       `json:"userId"`
	ScenarioID       string       `json:"scenarioId"`
	Tier             catalog.Tier `json:"difficulty"`
	XPAwarded        int          `json:"xpAwarded"`
	TotalXP          int          `json:"totalXP"`
	AlreadyCompleted bool         `json:"alreadyCompleted"`
	ResetApplied     bool         `json:"resetApplied,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// CompleteScenarioHandler handles CompleteScenarioCommand.
type CompleteScenarioHandler struct {
	engine  Completer
	catalog *catalog.Catalog
	handlerDeps
}

// NewCompleteScenarioHandler creates a handler.
func NewCompleteScenarioHandler(engine Completer, cat *catalog.Catalog, opts ...Option) *CompleteScenarioHandler {
	return &CompleteScenarioHandler{
		engine:      engine,
		catalog:     cat,
		handlerDeps: buildDeps("complete_scenario", opts),
	}
}

// Handle executes the command. Storage failures are retried; the engine is
// idempotent, so a retry after a lost acknowledgement awards nothing twice.
func (h *CompleteScenarioHandler) Handle(ctx context.Context, cmd CompleteScenarioCommand) (*CompleteScenarioResult, error) {
	start := time.Now()
	defer h.recorder.ObserveOperation("complete_scenario", start)

	if err := cmd.Validate(); err != nil {
		h.recorder.Completion(OutcomeRejected, cmd.Difficulty, 0)
		return nil, err
	}
	userID := strings.TrimSpace(cmd.UserID)
	scenarioID := strings.TrimSpace(cmd.ScenarioID)

	tier, err := h.catalog.ResolveTier(scenarioID, cmd.Difficulty)
	if err != nil {
		h.recorder.Completion(OutcomeRejected, cmd.Difficulty, 0)
		return nil, err
	}

	log := h.log.With(logger.UserID(userID), logger.ScenarioID(scenarioID), logger.Tier(string(tier)))

	out, err := retry.DoWithData(ctx, h.retrier, func(ctx context.Context) (progress.Outcome, error) {
		return h.engine.CompleteScenario(ctx, userID, scenarioID, tier)
	})
	if err != nil {
		if shared.IsValidation(err) {
			h.recorder.Completion(OutcomeRejected, string(tier), 0)
		} else {
			h.recorder.Completion(OutcomeError, string(tier), 0)
			log.Error("scenario completion failed", logger.Err(err))
		}
		return nil, err
	}

	if out.ResetApplied {
		h.recorder.Reset(ResetMonthly)
		log.Info("monthly progress reset applied")
	}

	if out.AlreadyCompleted {
		h.recorder.Completion(OutcomeAlreadyCompleted, string(tier), 0)
		log.Debug("scenario already completed", logger.TotalXP(out.TotalXP))
	} else {
		h.recorder.Completion(OutcomeAwarded, string(tier), out.XPAwarded)
		log.Info("scenario completed", logger.XPAmount(out.XPAwarded), logger.TotalXP(out.TotalXP))
	}

	if !out.AlreadyCompleted || out.ResetApplied {
		h.invalidateRanking(ctx, userID)
	}

	return &CompleteScenarioResult{
		UserID:           userID,
		ScenarioID:       scenarioID,
		Tier:             tier,
		XPAwarded:        out.XPAwarded,
		TotalXP:          out.TotalXP,
		AlreadyCompleted: out.AlreadyCompleted,
		ResetApplied:     out.ResetApplied,
	}, nil
}
