package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qaplayground/playground-hub/internal/domain/shared"
)

func sampleCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := New([]Scenario{
		{ID: "elementos-basicos", Title: "Elementos Básicos", Tier: TierBeginner},
		{ID: "waits-sincronizacao", Tier: TierIntermediate},
		{ID: "drag-drop", Tier: TierAdvanced},
		{ID: "graphql-websockets", Tier: TierExpert},
	}, DefaultXPTable())
	require.NoError(t, err)
	return c
}

func TestParseTier(t *testing.T) {
	cases := map[string]Tier{
		"Beginner":      TierBeginner,
		"iniciante":     TierBeginner,
		"Intermediário": TierIntermediate,
		"INTERMEDIARIO": TierIntermediate,
		"Avançado":      TierAdvanced,
		"advanced":      TierAdvanced,
		"Expert":        TierExpert,
	}
	for in, want := range cases {
		got, err := ParseTier(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseTier("legendary")
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	assert.True(t, errors.Is(err, shared.ErrUnknownTier))
}

func TestDefaultXPTable(t *testing.T) {
	xp := DefaultXPTable()
	for tier, want := range map[Tier]int{TierBeginner: 10, TierIntermediate: 25, TierAdvanced: 50, TierExpert: 100} {
		got, ok := xp.XPFor(tier)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
	assert.NoError(t, xp.Validate())
	assert.Equal(t, Tiers(), xp.Known())
}

func TestXPTable_Validate(t *testing.T) {
	assert.Error(t, XPTable{}.Validate())
	assert.Error(t, XPTable{TierBeginner: 0}.Validate())
}

func TestNew_RejectsBadCatalogs(t *testing.T) {
	_, err := New([]Scenario{{ID: "a", Tier: TierBeginner}, {ID: "a", Tier: TierExpert}}, DefaultXPTable())
	assert.True(t, errors.Is(err, shared.ErrDuplicateScenario))

	_, err = New([]Scenario{{ID: " ", Tier: TierBeginner}}, DefaultXPTable())
	assert.True(t, shared.IsValidation(err))

	_, err = New([]Scenario{{ID: "a", Tier: TierExpert}}, XPTable{TierBeginner: 10})
	assert.True(t, shared.IsValidation(err))
}

func TestCatalog_LookupAndTotals(t *testing.T) {
	c := sampleCatalog(t)

	s, ok := c.Lookup("waits-sincronizacao")
	require.True(t, ok)
	assert.Equal(t, "waits-sincronizacao", s.Title)

	xp, ok := c.XPFor("drag-drop")
	assert.True(t, ok)
	assert.Equal(t, 50, xp)

	_, ok = c.Lookup("missing")
	assert.False(t, ok)

	assert.Equal(t, 4, c.Len())
	assert.Equal(t, 185, c.TotalPossibleXP())
	assert.Equal(t, 1, c.CountByTier()[TierExpert])
}

func TestCatalog_XPTableIsCopied(t *testing.T) {
	c := sampleCatalog(t)
	table := c.XPTable()
	table[TierBeginner] = 999

	xp, _ := c.XPFor("elementos-basicos")
	assert.Equal(t, 10, xp)
}

func TestCatalog_ResolveTier(t *testing.T) {
	c := sampleCatalog(t)

	tier, err := c.ResolveTier("drag-drop", "")
	require.NoError(t, err)
	assert.Equal(t, TierAdvanced, tier)

	tier, err = c.ResolveTier("drag-drop", "Avançado")
	require.NoError(t, err)
	assert.Equal(t, TierAdvanced, tier)

	_, err = c.ResolveTier("drag-drop", "Iniciante")
	assert.ErrorIs(t, err, shared.ErrTierMismatch)

	tier, err = c.ResolveTier("custom-scenario", "expert")
	require.NoError(t, err)
	assert.Equal(t, TierExpert, tier)

	_, err = c.ResolveTier("custom-scenario", "")
	assert.True(t, shared.IsValidation(err))

	_, err = c.ResolveTier("drag-drop", "mythic")
	assert.True(t, shared.IsValidation(err))
}
