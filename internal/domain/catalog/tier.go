// Package catalog models the scenario catalog: the ordered list of playground
// scenarios, their difficulty tiers, and the tier -> XP table used to price a
// completion. The catalog is read-only once built and is injected wherever it
// is needed.
package catalog

import (
	"sort"
	"strings"

	"github.com/qaplayground/playground-hub/internal/domain/shared"
)

// Tier is a difficulty level.
type Tier string

const (
	TierBeginner     Tier = "beginner"
	TierIntermediate Tier = "intermediate"
	TierAdvanced     Tier = "advanced"
	TierExpert       Tier = "expert"
)

// Tiers lists the tiers from easiest to hardest.
func Tiers() []Tier {
	return []Tier{TierBeginner, TierIntermediate, TierAdvanced, TierExpert}
}

// tierAliases maps accepted spellings to tiers. The Portuguese labels are the
// ones the playground front end sends.
var tierAliases = map[string]Tier{
	"beginner":      TierBeginner,
	"iniciante":     TierBeginner,
	"intermediate":  TierIntermediate,
	"intermediario": TierIntermediate,
	"intermediário": TierIntermediate,
	"advanced":      TierAdvanced,
	"avancado":      TierAdvanced,
	"avançado":      TierAdvanced,
	"expert":        TierExpert,
}

// ParseTier resolves a tier name case-insensitively.
func ParseTier(s string) (Tier, error) {
	t, ok := tierAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", shared.WrapError("catalog", "ParseTier", shared.ErrInvalidInput,
			"unknown difficulty tier "+strings.TrimSpace(s), shared.ErrUnknownTier)
	}
	return t, nil
}

// String returns the canonical tier name.
func (t Tier) String() string {
	return string(t)
}

// XPTable maps each tier to a fixed positive XP award.
// Treat it as immutable after construction.
type XPTable map[Tier]int

// DefaultXPTable returns the standard award table.
func DefaultXPTable() XPTable {
	return XPTable{
		TierBeginner:     10,
		TierIntermediate: 25,
		TierAdvanced:     50,
		TierExpert:       100,
	}
}

// XPFor returns the award for tier and whether the tier is known.
func (t XPTable) XPFor(tier Tier) (int, bool) {
	xp, ok := t[tier]
	return xp, ok
}

// Validate checks that the table is non-empty and every award is positive.
func (t XPTable) Validate() error {
	if len(t) == 0 {
		return shared.InvalidInput("catalog", "ValidateXPTable", "xp table is empty")
	}
	for tier, xp := range t {
		if xp <= 0 {
			return shared.InvalidInput("catalog", "ValidateXPTable", "xp for tier "+string(tier)+" must be positive")
		}
	}
	return nil
}

// Clone returns an independent copy.
func (t XPTable) Clone() XPTable {
	out := make(XPTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Known returns the tiers present in the table in difficulty order; tiers
// outside the standard set follow, sorted by name.
func (t XPTable) Known() []Tier {
	out := make([]Tier, 0, len(t))
	seen := make(map[Tier]bool, len(t))
	for _, tier := range Tiers() {
		if _, ok := t[tier]; ok {
			out = append(out, tier)
			seen[tier] = true
		}
	}
	var extra []Tier
	for tier := range t {
		if !seen[tier] {
			extra = append(extra, tier)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}
