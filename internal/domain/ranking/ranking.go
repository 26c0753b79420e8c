// Package ranking derives the Power Ranking: an ordered top-N leaderboard
// built from every user's progress and joined with identity data.
//
// The ranking is read-only. It never applies the monthly reset, so a user who
// has not been back since the month turned keeps showing the previous month's
// total until their next visit.
package ranking

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/qaplayground/playground-hub/internal/domain/progress"
	"github.com/qaplayground/playground-hub/internal/domain/shared"
)

const (
	// DefaultLimit is the size of the ranking when no limit is requested.
	DefaultLimit = 10

	// MaxLimit caps a single ranking request.
	MaxLimit = 100
)

// Standing is a user's balance as stored, without the reset check.
type Standing struct {
	UserID         string
	TotalXP        int
	CompletedCount int
	LastUpdated    time.Time
}

// StandingsSource lists every stored balance.
type StandingsSource interface {
	ListStandings(ctx context.Context) ([]Standing, error)
}

// Identity is the directory data shown next to a ranked user.
type Identity struct {
	UserID      string
	Email       string
	DisplayName string
	AvatarURL   string
	ProfileURL  string
}

// IdentityLookup resolves users to identities. A miss is not an error: the
// user is left out of the ranking.
type IdentityLookup interface {
	Lookup(ctx context.Context, userID string) (Identity, bool)
}

// IdentityLookupFunc adapts a function to IdentityLookup.
type IdentityLookupFunc func(ctx context.Context, userID string) (Identity, bool)

// Lookup calls f.
func (f IdentityLookupFunc) Lookup(ctx context.Context, userID string) (Identity, bool) {
	return f(ctx, userID)
}

// Entry is one row of the ranking.
type Entry struct {
	Position       int    `json:"position"`
	UserID         string `json:"userId"`
	DisplayName    string `json:"name"`
	AvatarURL      string `json:"image,omitempty"`
	ProfileURL     string `json:"linkedinProfileUrl,omitempty"`
	TotalXP        int    `json:"totalXP"`
	CompletedCount int    `json:"completedCount"`
	Level          int    `json:"level"`
}

// NormalizeLimit maps 0 to DefaultLimit and rejects values outside
// [1, MaxLimit].
func NormalizeLimit(limit int) (int, error) {
	if limit == 0 {
		return DefaultLimit, nil
	}
	if limit < 0 || limit > MaxLimit {
		return 0, shared.ErrInvalidLimit
	}
	return limit, nil
}

// Aggregator computes rankings from a StandingsSource.
type Aggregator struct {
	source StandingsSource
}

// NewAggregator creates an aggregator.
func NewAggregator(source StandingsSource) *Aggregator {
	return &Aggregator{source: source}
}

// ComputeRanking returns at most limit entries ordered by TotalXP, then by
// CompletedCount, both descending. The top limit standings are taken first;
// users among them unknown to lookup are then dropped, so fewer than limit
// entries may come back. Positions are always 1..n over what remains.
func (a *Aggregator) ComputeRanking(ctx context.Context, limit int, lookup IdentityLookup) ([]Entry, error) {
	limit, err := NormalizeLimit(limit)
	if err != nil {
		return nil, err
	}

	standings, err := a.source.ListStandings(ctx)
	if err != nil {
		if shared.IsStorageUnavailable(err) {
			return nil, err
		}
		return nil, shared.StorageUnavailable("ranking", "ComputeRanking", err)
	}

	return Rank(ctx, standings, limit, lookup), nil
}

// Rank orders standings and joins them with identities. The input slice is
// not modified.
func Rank(ctx context.Context, standings []Standing, limit int, lookup IdentityLookup) []Entry {
	sorted := make([]Standing, len(standings))
	copy(sorted, standings)
	SortStandings(sorted)

	if limit <= 0 {
		limit = DefaultLimit
	}
	sorted = sorted[:min(limit, len(sorted))]
	if lookup == nil {
		return []Entry{}
	}
	entries := make([]Entry, 0, len(sorted))

	for _, s := range sorted {
		id, ok := lookup.Lookup(ctx, s.UserID)
		if !ok {
			continue
		}
		entries = append(entries, Entry{
			Position:       len(entries) + 1,
			UserID:         s.UserID,
			DisplayName:    DisplayName(id, s.UserID),
			AvatarURL:      id.AvatarURL,
			ProfileURL:     id.ProfileURL,
			TotalXP:        s.TotalXP,
			CompletedCount: s.CompletedCount,
			Level:          progress.LevelFor(s.TotalXP),
		})
	}

	return entries
}

// SortStandings orders by TotalXP desc, CompletedCount desc, then UserID asc
// so the result does not depend on store row order.
func SortStandings(s []Standing) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].TotalXP != s[j].TotalXP {
			return s[i].TotalXP > s[j].TotalXP
		}
		if s[i].CompletedCount != s[j].CompletedCount {
			return s[i].CompletedCount > s[j].CompletedCount
		}
		return s[i].UserID < s[j].UserID
	})
}

// DisplayName picks the profile name, then the e-mail local part, then the
// user id.
func DisplayName(id Identity, userID string) string {
	if name := strings.TrimSpace(id.DisplayName); name != "" {
		return name
	}
	if local, _, ok := strings.Cut(id.Email, "@"); ok && local != "" {
		return local
	}
	if id.Email != "" && !strings.Contains(id.Email, "@") {
		return id.Email
	}
	return userID
}
