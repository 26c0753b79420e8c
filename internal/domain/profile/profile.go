// Package profile holds the public identity a player shows next to their XP
// on the Power Ranking.
package profile

import (
	"regexp"
	"strings"
	"time"

	"github.com/qaplayground/playground-hub/internal/domain/shared"
)

// Profile is a directory record.
type Profile struct {
	UserID      string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"name,omitempty"`
	AvatarURL   string `json:"image,omitempty"`
	LinkedInURL string `json:"linkedinUrl,omitempty"`

	// PowerRankingEnabled is the user's stated preference. It is stored and
	// returned but does not filter the ranking.
	PowerRankingEnabled bool `json:"powerRankingEnabled"`

	CreatedAt time.Time `json:"createdAt"`
}

var linkedInPattern = regexp.MustCompile(`^https?://(www\.)?linkedin\.com/in/[\w\-%.]+/?$`)

var (
	ErrEmailTaken      = shared.NewDomainError("profile", "Save", shared.ErrAlreadyExists, "e-mail already registered")
	ErrNotFound        = shared.NewDomainError("profile", "Get", shared.ErrNotFound, "user not found")
	ErrEmptyEmail      = shared.NewDomainError("profile", "Validate", shared.ErrInvalidInput, "e-mail is required")
	ErrInvalidEmail    = shared.NewDomainError("profile", "Validate", shared.ErrInvalidInput, "e-mail is malformed")
	ErrInvalidLinkedIn = shared.NewDomainError("profile", "Validate", shared.ErrInvalidInput, "LinkedIn URL must look like https://www.linkedin.com/in/<handle>")
)

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Normalize trims every text field and lower-cases the e-mail.
func (p Profile) Normalize() Profile {
	p.UserID = strings.TrimSpace(p.UserID)
	p.Email = NormalizeEmail(p.Email)
	p.DisplayName = strings.TrimSpace(p.DisplayName)
	p.AvatarURL = strings.TrimSpace(p.AvatarURL)
	p.LinkedInURL = strings.TrimSpace(p.LinkedInURL)
	return p
}

// Validate checks a normalized profile.
func (p Profile) Validate() error {
	if p.UserID == "" {
		return shared.ErrEmptyUserID
	}
	if p.Email == "" {
		return ErrEmptyEmail
	}
	if !strings.Contains(p.Email, "@") {
		return ErrInvalidEmail
	}
	return ValidateLinkedInURL(p.LinkedInURL)
}

// ValidateLinkedInURL accepts an empty value or a public profile URL.
func ValidateLinkedInURL(raw string) error {
	if raw == "" || linkedInPattern.MatchString(raw) {
		return nil
	}
	return ErrInvalidLinkedIn
}

// Merge overlays the non-empty text fields of update on p. The ranking
// preference and creation time are left alone.
func (p Profile) Merge(update Profile) Profile {
	if update.Email != "" {
		p.Email = update.Email
	}
	if update.DisplayName != "" {
		p.DisplayName = update.DisplayName
	}
	if update.AvatarURL != "" {
		p.AvatarURL = update.AvatarURL
	}
	if update.LinkedInURL != "" {
		p.LinkedInURL = update.LinkedInURL
	}
	return p
}
