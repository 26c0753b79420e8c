package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResetPolicy_IsDue(t *testing.T) {
	p := NewResetPolicy(time.UTC, nil)
	march := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	assert.False(t, p.IsDue(march, march.Add(30*24*time.Hour)))
	assert.True(t, p.IsDue(march, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, p.IsDue(march, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, p.IsDue(time.Time{}, march))
}

func TestResetPolicy_Boundaries(t *testing.T) {
	zone := time.FixedZone("UTC-3", -3*3600)
	p := NewResetPolicy(zone, func() time.Time { return time.Date(2025, time.January, 31, 23, 0, 0, 0, zone) })

	now := p.Now()
	assert.Equal(t, zone, now.Location())
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, zone), p.PeriodStart(now))
	assert.Equal(t, time.Date(2025, time.February, 1, 0, 0, 0, 0, zone), p.NextReset(now))
}

func TestResetPolicy_ZeroValue(t *testing.T) {
	var p ResetPolicy
	assert.Equal(t, time.UTC, p.Location())
	assert.False(t, p.Now().IsZero())
}
