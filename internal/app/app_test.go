package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qaplayground/playground-hub/config"
	"github.com/qaplayground/playground-hub/internal/application/command"
	"github.com/qaplayground/playground-hub/internal/application/query"
	"github.com/qaplayground/playground-hub/internal/infrastructure/persistence/memory"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("APP_ENV", "test")
	t.Setenv("PROGRESS_TIMEZONE", "UTC-3")
	t.Setenv("REDIS_DISABLED", "true")

	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestNew_InMemoryWiring(t *testing.T) {
	cfg := memoryConfig(t)
	now := time.Date(2025, time.May, 10, 12, 0, 0, 0, time.UTC)

	a, err := New(context.Background(), cfg, nil, Options{Now: func() time.Time { return now }})
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Nil(t, a.DB)
	assert.Nil(t, a.RankingCache)
	assert.IsType(t, &memory.ProgressStore{}, a.Store)
	assert.Equal(t, 23, a.Catalog.Len())

	ctx := context.Background()
	res, err := a.CompleteScenario.Handle(ctx, command.CompleteScenarioCommand{
		UserID:     "user_admin_001",
		ScenarioID: "graphql-websockets",
	})
	require.NoError(t, err)
	assert.Equal(t, 100, res.XPAwarded)

	// powerRankingEnabled=false on the seed does not hide the user
	_, err = a.CompleteScenario.Handle(ctx, command.CompleteScenarioCommand{
		UserID:     "user_test_001",
		ScenarioID: "graphql-websockets",
	})
	require.NoError(t, err)

	rk, err := a.GetRanking.Handle(ctx, query.GetRankingQuery{})
	require.NoError(t, err)
	require.Len(t, rk.Ranking, 2)
	assert.Equal(t, "user_admin_001", rk.Ranking[0].UserID)
	assert.Equal(t, "Michael Maia", rk.Ranking[0].DisplayName)
	assert.Equal(t, "user_test_001", rk.Ranking[1].UserID)
	assert.Equal(t, "Usuário Teste", rk.Ranking[1].DisplayName)

	// a user created through the profile path ranks with default flags
	_, err = a.SaveProfile.Handle(ctx, command.SaveProfileCommand{
		UserID: "user_new_001",
		Email:  "nova@example.com",
		Name:   "Nova",
	})
	require.NoError(t, err)
	_, err = a.CompleteScenario.Handle(ctx, command.CompleteScenarioCommand{
		UserID:     "user_new_001",
		ScenarioID: "drag-drop",
	})
	require.NoError(t, err)

	rk, err = a.GetRanking.Handle(ctx, query.GetRankingQuery{})
	require.NoError(t, err)
	require.Len(t, rk.Ranking, 3)
	assert.Equal(t, "Nova", rk.Ranking[2].DisplayName)

	status := a.HealthChecker().Check(ctx)
	assert.True(t, status.Healthy)

	_, err = a.Migrate(ctx)
	assert.Error(t, err)
}

func TestNew_BadCatalogFile(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Progress.CatalogFile = t.TempDir() + "/missing.yaml"

	_, err := New(context.Background(), cfg, nil, Options{})
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Observability.LogFormat = "console"
	assert.NotNil(t, NewLogger(cfg))
}
