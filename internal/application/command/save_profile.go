package command

import (
	"context"
	"strings"
	"time"

	"github.com/qaplayground/playground-hub/internal/domain/profile"
	"github.com/qaplayground/playground-hub/internal/domain/shared"
	"github.com/qaplayground/playground-hub/pkg/logger"
	"github.com/qaplayground/playground-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// SAVE PROFILE COMMAND
// Creates a directory user or updates the display data of an existing one.
// ══════════════════════════════════════════════════════════════════════════════

// ProfileDirectory is the user directory this command writes to.
type ProfileDirectory interface {
	Find(ctx context.Context, userID string) (profile.Profile, bool)
	Save(ctx context.Context, p profile.Profile) (profile.Profile, error)
}

// SaveProfileCommand carries the editable profile fields. Empty fields keep
// their current value; Email is required only when the user is new.
type SaveProfileCommand struct {
	UserID      string
	Email       string
	Name        string
	Image       string
	LinkedInURL string

	// PowerRankingEnabled is left unchanged when nil.
	PowerRankingEnabled *bool
}

// Validate checks the command.
func (c SaveProfileCommand) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return shared.ErrEmptyUserID
	}
	return profile.ValidateLinkedInURL(strings.TrimSpace(c.LinkedInURL))
}

// SaveProfileResult is the stored profile.
type SaveProfileResult struct {
	Profile profile.Profile `json:"profile"`
	Created bool            `json:"created"`
}

// SaveProfileHandler handles SaveProfileCommand.
type SaveProfileHandler struct {
	directory ProfileDirectory
	handlerDeps
}

// NewSaveProfileHandler creates a handler.
func NewSaveProfileHandler(directory ProfileDirectory, opts ...Option) *SaveProfileHandler {
	return &SaveProfileHandler{
		directory:   directory,
		handlerDeps: buildDeps("save_profile", opts),
	}
}

// Handle executes the command. Updating a user that does not exist without
// an e-mail is profile.ErrNotFound.
func (h *SaveProfileHandler) Handle(ctx context.Context, cmd SaveProfileCommand) (*SaveProfileResult, error) {
	start := time.Now()
	defer h.recorder.ObserveOperation("save_profile", start)

	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	update := profile.Profile{
		UserID:      cmd.UserID,
		Email:       cmd.Email,
		DisplayName: cmd.Name,
		AvatarURL:   cmd.Image,
		LinkedInURL: cmd.LinkedInURL,
	}.Normalize()

	current, found := h.directory.Find(ctx, update.UserID)
	if !found {
		if update.Email == "" {
			return nil, profile.ErrNotFound
		}
		current = profile.Profile{UserID: update.UserID}
	}
	next := current.Merge(update)
	if cmd.PowerRankingEnabled != nil {
		next.PowerRankingEnabled = *cmd.PowerRankingEnabled
	}

	saved, err := retry.DoWithData(ctx, h.retrier, func(ctx context.Context) (profile.Profile, error) {
		return h.directory.Save(ctx, next)
	})
	if err != nil {
		h.log.Warn("profile save failed", logger.UserID(update.UserID), logger.Err(err))
		return nil, err
	}

	h.log.Info("profile saved", logger.UserID(saved.UserID), logger.Bool("created", !found))
	h.invalidateRanking(ctx, saved.UserID)

	return &SaveProfileResult{Profile: saved, Created: !found}, nil
}
