package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/qaplayground/playground-hub/internal/domain/catalog"
	"github.com/qaplayground/playground-hub/internal/domain/shared"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, 23, c.Len())
	assert.Equal(t, 1050, c.TotalPossibleXP())
	assert.Equal(t, map[domain.Tier]int{
		domain.TierBeginner:     5,
		domain.TierIntermediate: 6,
		domain.TierAdvanced:     7,
		domain.TierExpert:       5,
	}, c.CountByTier())

	s, ok := c.Lookup("graphql-websockets")
	require.True(t, ok)
	assert.Equal(t, domain.TierExpert, s.Tier)
	assert.Equal(t, "elementos-basicos", c.Scenarios()[0].ID)
}

func TestParse_PortugueseTiersAndCustomXP(t *testing.T) {
	c, err := Parse([]byte(`
xp:
  Iniciante: 5
  Expert: 500
scenarios:
  - id: a
    tier: Iniciante
  - id: b
    title: Bee
    tier: expert
`))
	require.NoError(t, err)
	assert.Equal(t, 505, c.TotalPossibleXP())

	_, err = c.ResolveTier("x", "advanced")
	assert.ErrorIs(t, err, shared.ErrUnknownTier)
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"empty":         ``,
		"unknown field": "scenarios: []\nextra: 1\n",
		"bad tier":      "scenarios:\n  - id: a\n    tier: mythic\n",
		"duplicate":     "scenarios:\n  - id: a\n    tier: expert\n  - id: a\n    tier: expert\n",
		"zero xp":       "xp:\n  beginner: 0\nscenarios: []\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 23, c.Len())

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scenarios:\n  - id: only\n    tier: advanced\n"), 0o600))
	c, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50, c.TotalPossibleXP())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
