package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/qaplayground/playground-hub/internal/domain/profile"
	"github.com/qaplayground/playground-hub/internal/infrastructure/identity"
)

// ProfileRepository stores display profiles and implements
// identity.ProfileStore.
type ProfileRepository struct {
	conn *Connection
}

// NewProfileRepository creates a ProfileRepository.
func NewProfileRepository(conn *Connection) *ProfileRepository {
	return &ProfileRepository{conn: conn}
}

// GetProfile returns the stored profile for userID.
func (r *ProfileRepository) GetProfile(ctx context.Context, userID string) (profile.Profile, bool, error) {
	var p profile.Profile
	err := r.conn.QueryRow(ctx, `
		SELECT user_id, email, display_name, avatar_url, linkedin_url, power_ranking_enabled, updated_at
		FROM user_profiles
		WHERE user_id = $1
	`, userID).Scan(&p.UserID, &p.Email, &p.DisplayName, &p.AvatarURL, &p.LinkedInURL, &p.PowerRankingEnabled, &p.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return profile.Profile{}, false, nil
		}
		return profile.Profile{}, false, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, true, nil
}

// UpsertProfile inserts or updates a profile keyed by user id. Empty display
// fields keep their stored values.
func (r *ProfileRepository) UpsertProfile(ctx context.Context, p profile.Profile) error {
	_, err := r.conn.Exec(ctx, `
		INSERT INTO user_profiles (user_id, email, display_name, avatar_url, linkedin_url, power_ranking_enabled, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			email                 = EXCLUDED.email,
			display_name          = COALESCE(NULLIF(EXCLUDED.display_name, ''), user_profiles.display_name),
			avatar_url            = COALESCE(NULLIF(EXCLUDED.avatar_url, ''), user_profiles.avatar_url),
			linkedin_url          = COALESCE(NULLIF(EXCLUDED.linkedin_url, ''), user_profiles.linkedin_url),
			power_ranking_enabled = EXCLUDED.power_ranking_enabled,
			updated_at            = EXCLUDED.updated_at
	`, p.UserID, strings.ToLower(p.Email), p.DisplayName, p.AvatarURL, p.LinkedInURL, p.PowerRankingEnabled, time.Now().UTC())
	if err != nil {
		if IsUniqueViolation(err) {
			return profile.ErrEmailTaken
		}
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

var _ identity.ProfileStore = (*ProfileRepository)(nil)
