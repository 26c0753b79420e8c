package query

import (
	"context"
	"strings"
	"time"

	"github.com/qaplayground/playground-hub/internal/domain/profile"
	"github.com/qaplayground/playground-hub/internal/domain/shared"
)

// ProfileFinder resolves directory users.
type ProfileFinder interface {
	Find(ctx context.Context, userID string) (profile.Profile, bool)
}

// GetProfileQuery selects the user.
type GetProfileQuery struct {
	UserID string
}

// GetProfileResult wraps the profile.
type GetProfileResult struct {
	Profile profile.Profile `json:"profile"`
}

// GetProfileHandler handles GetProfileQuery.
type GetProfileHandler struct {
	directory ProfileFinder
	handlerDeps
}

// NewGetProfileHandler creates a handler.
func NewGetProfileHandler(directory ProfileFinder, opts ...Option) *GetProfileHandler {
	return &GetProfileHandler{
		directory:   directory,
		handlerDeps: buildDeps("get_profile", opts),
	}
}

// Handle returns profile.ErrNotFound for users missing from the directory.
func (h *GetProfileHandler) Handle(ctx context.Context, q GetProfileQuery) (*GetProfileResult, error) {
	start := time.Now()
	defer h.recorder.ObserveOperation("get_profile", start)

	userID := strings.TrimSpace(q.UserID)
	if userID == "" {
		return nil, shared.ErrEmptyUserID
	}

	p, ok := h.directory.Find(ctx, userID)
	if !ok {
		return nil, profile.ErrNotFound
	}
	return &GetProfileResult{Profile: p}, nil
}
