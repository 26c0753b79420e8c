package progress

import (
	"time"

	"github.com/qaplayground/playground-hub/pkg/timeutil"
)

// Clock returns the current time.
type Clock func() time.Time

// ResetPolicy decides when a user's monthly progress must be zeroed.
// Month boundaries are evaluated in a single reference zone, never in the
// user's local zone.
type ResetPolicy struct {
	loc *time.Location
	now Clock
}

// NewResetPolicy builds a policy. A nil location means UTC and a nil clock
// means time.Now.
func NewResetPolicy(loc *time.Location, now Clock) ResetPolicy {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return ResetPolicy{loc: loc, now: now}
}

// Now returns the current time in the reference zone.
func (p ResetPolicy) Now() time.Time {
	if p.now == nil {
		return time.Now().In(p.Location())
	}
	return p.now().In(p.Location())
}

// Location returns the reference zone.
func (p ResetPolicy) Location() *time.Location {
	if p.loc == nil {
		return time.UTC
	}
	return p.loc
}

// IsDue reports whether a record last touched at lastUpdated must be reset
// at now. A zero lastUpdated means the record was never written.
func (p ResetPolicy) IsDue(lastUpdated, now time.Time) bool {
	if lastUpdated.IsZero() {
		return false
	}
	return !timeutil.SameMonth(lastUpdated, now, p.Location())
}

// PeriodStart is the first instant of the month containing now.
func (p ResetPolicy) PeriodStart(now time.Time) time.Time {
	return timeutil.StartOfMonth(now, p.Location())
}

// NextReset is the first instant at which progress written at now becomes due.
func (p ResetPolicy) NextReset(now time.Time) time.Time {
	return timeutil.NextMonth(now, p.Location())
}
