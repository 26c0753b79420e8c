// Package identity is the user directory consulted by the Power Ranking.
// Users live in an in-process map keyed by id and by lower-cased e-mail; an
// optional ProfileStore overlays the display data persisted in the database.
package identity

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/qaplayground/playground-hub/internal/domain/profile"
	"github.com/qaplayground/playground-hub/internal/domain/ranking"
	"github.com/qaplayground/playground-hub/internal/domain/shared"
	"github.com/qaplayground/playground-hub/pkg/logger"
)

// ProfileStore returns persisted profile data for a user.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (profile.Profile, bool, error)
}

// ProfileWriter persists profiles. A ProfileStore passed to NewDirectory that
// also implements ProfileWriter receives every Save.
type ProfileWriter interface {
	UpsertProfile(ctx context.Context, p profile.Profile) error
}

// Directory implements ranking.IdentityLookup.
type Directory struct {
	mu      sync.RWMutex
	byID    map[string]profile.Profile
	byEmail map[string]string

	overlay ProfileStore
	writer  ProfileWriter
	log     *logger.Logger
}

// NewDirectory creates a directory holding users. overlay may be nil.
func NewDirectory(users []profile.Profile, overlay ProfileStore, log *logger.Logger) (*Directory, error) {
	if log == nil {
		log = logger.Nop()
	}
	d := &Directory{
		byID:    make(map[string]profile.Profile, len(users)),
		byEmail: make(map[string]string, len(users)),
		overlay: overlay,
		log:     log.With(logger.Component("identity")),
	}
	if w, ok := overlay.(ProfileWriter); ok {
		d.writer = w
	}
	for _, u := range users {
		if err := d.Register(u); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// SeedUsers returns the accounts every deployment starts with.
func SeedUsers() []profile.Profile {
	created := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	return []profile.Profile{
		{
			UserID:              "user_test_001",
			Email:               "test@example.com",
			DisplayName:         "Usuário Teste",
			PowerRankingEnabled: false,
			CreatedAt:           created,
		},
		{
			UserID:              "user_admin_001",
			Email:               "contatomichaelmaia@gmail.com",
			DisplayName:         "Michael Maia",
			LinkedInURL:         "https://www.linkedin.com/in/qamichael/",
			PowerRankingEnabled: true,
			CreatedAt:           created,
		},
	}
}

// Register adds or replaces a user in-process. E-mails are unique across
// users.
func (d *Directory) Register(p profile.Profile) error {
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if owner, ok := d.byEmail[p.Email]; ok && owner != p.UserID {
		return profile.ErrEmailTaken
	}
	if old, ok := d.byID[p.UserID]; ok && old.Email != p.Email {
		delete(d.byEmail, old.Email)
	}
	d.byID[p.UserID] = p
	d.byEmail[p.Email] = p.UserID
	return nil
}

// Save validates p, persists it through the overlay when it can write and
// registers it in-process.
func (d *Directory) Save(ctx context.Context, p profile.Profile) (profile.Profile, error) {
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return profile.Profile{}, err
	}
	if owner, ok := d.ByEmail(p.Email); ok && owner.UserID != p.UserID {
		return profile.Profile{}, profile.ErrEmailTaken
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	if d.writer != nil {
		if err := d.writer.UpsertProfile(ctx, p); err != nil {
			if errors.Is(err, profile.ErrEmailTaken) {
				return profile.Profile{}, err
			}
			return profile.Profile{}, shared.WrapError("profile", "Save", shared.ErrStorageUnavailable, "profile store unavailable", err)
		}
	}

	if err := d.Register(p); err != nil {
		return profile.Profile{}, err
	}
	d.log.Debug("profile registered", logger.UserID(p.UserID))
	return p, nil
}

// ByEmail finds a user by e-mail, case-insensitively.
func (d *Directory) ByEmail(email string) (profile.Profile, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.byEmail[profile.NormalizeEmail(email)]
	if !ok {
		return profile.Profile{}, false
	}
	return d.byID[id], true
}

// ByID finds a user by id.
func (d *Directory) ByID(userID string) (profile.Profile, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.byID[userID]
	return p, ok
}

// Users returns all in-process users.
func (d *Directory) Users() []profile.Profile {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]profile.Profile, 0, len(d.byID))
	for _, p := range d.byID {
		out = append(out, p)
	}
	return out
}

// Find resolves a user from the in-process record and the overlay. A profile
// found only in the overlay is a directory record too. Overlay failures are
// logged and the in-process record is used as is.
func (d *Directory) Find(ctx context.Context, userID string) (profile.Profile, bool) {
	base, found := d.ByID(userID)
	if d.overlay == nil {
		return base, found
	}

	stored, ok, err := d.overlay.GetProfile(ctx, userID)
	switch {
	case err != nil && !errors.Is(err, context.Canceled):
		d.log.Warn("profile overlay failed, using directory record",
			logger.UserID(userID), logger.Err(err))
	case ok && !found:
		return stored, true
	case ok:
		base = base.Merge(stored)
		base.PowerRankingEnabled = stored.PowerRankingEnabled
	}
	return base, found
}

// Lookup implements ranking.IdentityLookup. Every known user resolves.
func (d *Directory) Lookup(ctx context.Context, userID string) (ranking.Identity, bool) {
	p, ok := d.Find(ctx, userID)
	if !ok {
		return ranking.Identity{}, false
	}

	return ranking.Identity{
		UserID:      userID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		AvatarURL:   p.AvatarURL,
		ProfileURL:  p.LinkedInURL,
	}, true
}

var _ ranking.IdentityLookup = (*Directory)(nil)
