package query

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/qaplayground/playground-hub/internal/domain/catalog"
	"github.com/qaplayground/playground-hub/internal/domain/profile"
	"github.com/qaplayground/playground-hub/internal/domain/progress"
	"github.com/qaplayground/playground-hub/internal/domain/ranking"
	"github.com/qaplayground/playground-hub/internal/domain/shared"
	"github.com/qaplayground/playground-hub/internal/infrastructure/identity"
	"github.com/qaplayground/playground-hub/internal/infrastructure/persistence/memory"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEST DOUBLES
// ══════════════════════════════════════════════════════════════════════════════

type mockComputer struct {
	mock.Mock
}

func (m *mockComputer) ComputeRanking(ctx context.Context, limit int, lookup ranking.IdentityLookup) ([]ranking.Entry, error) {
	args := m.Called(ctx, limit, lookup)
	entries, _ := args.Get(0).([]ranking.Entry)
	return entries, args.Error(1)
}

type mapCache struct {
	mu      sync.Mutex
	gen     int64
	entries map[string][]ranking.Entry
	getErr  error
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string][]ranking.Entry{}}
}

func cacheKey(gen int64, limit int) string {
	return fmt.Sprintf("%d:%d", gen, limit)
}

func (c *mapCache) Generation(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen, nil
}

func (c *mapCache) Get(_ context.Context, limit int) ([]ranking.Entry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	e, ok := c.entries[cacheKey(c.gen, limit)]
	return e, ok, nil
}

func (c *mapCache) Set(_ context.Context, gen int64, limit int, entries []ranking.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(gen, limit)] = entries
	return nil
}

func (c *mapCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	return nil
}

type countingRecorder struct {
	mu     sync.Mutex
	reads  map[string]int
	resets map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{reads: map[string]int{}, resets: map[string]int{}}
}

func (r *countingRecorder) RankingRead(source string) {
	r.mu.Lock()
	r.reads[source]++
	r.mu.Unlock()
}

func (r *countingRecorder) Reset(reason string) {
	r.mu.Lock()
	r.resets[reason]++
	r.mu.Unlock()
}

func (r *countingRecorder) ObserveOperation(string, time.Time) {}

func named(_ context.Context, userID string) (ranking.Identity, bool) {
	return ranking.Identity{UserID: userID, DisplayName: "User " + userID}, true
}

// ══════════════════════════════════════════════════════════════════════════════
// GET RANKING
// ══════════════════════════════════════════════════════════════════════════════

func TestGetRanking_ComputesThenServesFromCache(t *testing.T) {
	entries := []ranking.Entry{
		{Position: 1, UserID: "U1", DisplayName: "User U1", TotalXP: 60, CompletedCount: 2, Level: 2},
		{Position: 2, UserID: "U2", DisplayName: "User U2", TotalXP: 40, CompletedCount: 4, Level: 2},
	}
	agg := new(mockComputer)
	agg.On("ComputeRanking", mock.Anything, 10, mock.Anything).Return(entries, nil).Once()
	cache := newMapCache()
	rec := newCountingRecorder()

	h := NewGetRankingHandler(agg, ranking.IdentityLookupFunc(named), cache, WithRecorder(rec))
	ctx := context.Background()

	first, err := h.Handle(ctx, GetRankingQuery{})
	require.NoError(t, err)
	assert.Equal(t, entries, first.Ranking)
	assert.Equal(t, 2, first.Total)
	assert.Equal(t, 10, first.Limit)
	assert.False(t, first.Cached)

	second, err := h.Handle(ctx, GetRankingQuery{Limit: 10})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, entries, second.Ranking)

	agg.AssertExpectations(t)
	assert.Equal(t, 1, rec.reads[SourceStore])
	assert.Equal(t, 1, rec.reads[SourceCache])
}

func TestGetRanking_InvalidationDuringComputeIsNotOverwritten(t *testing.T) {
	stale := []ranking.Entry{{Position: 1, UserID: "U1", TotalXP: 10}}
	fresh := []ranking.Entry{{Position: 1, UserID: "U1", TotalXP: 60}}
	cache := newMapCache()

	agg := new(mockComputer)
	agg.On("ComputeRanking", mock.Anything, 10, mock.Anything).
		Run(func(mock.Arguments) {
			// a completion lands while the ranking is being computed
			require.NoError(t, cache.Invalidate(context.Background()))
		}).
		Return(stale, nil).Once()
	agg.On("ComputeRanking", mock.Anything, 10, mock.Anything).Return(fresh, nil).Once()

	h := NewGetRankingHandler(agg, ranking.IdentityLookupFunc(named), cache)
	ctx := context.Background()

	first, err := h.Handle(ctx, GetRankingQuery{})
	require.NoError(t, err)
	assert.Equal(t, stale, first.Ranking)

	second, err := h.Handle(ctx, GetRankingQuery{})
	require.NoError(t, err)
	assert.False(t, second.Cached, "the stale result must not be served from the cache")
	assert.Equal(t, fresh, second.Ranking)

	third, err := h.Handle(ctx, GetRankingQuery{})
	require.NoError(t, err)
	assert.True(t, third.Cached)
	assert.Equal(t, fresh, third.Ranking)

	agg.AssertExpectations(t)
}

func TestGetRanking_EndToEndWithMemoryStore(t *testing.T) {
	now := time.Date(2025, time.May, 5, 12, 0, 0, 0, time.UTC)
	store := memory.NewProgressStore()
	engine := progress.NewEngine(store, catalog.DefaultXPTable(),
		progress.NewResetPolicy(time.UTC, func() time.Time { return now }))
	ctx := context.Background()

	_, err := engine.CompleteScenario(ctx, "U1", "elementos-basicos", catalog.TierBeginner)
	require.NoError(t, err)
	_, err = engine.CompleteScenario(ctx, "U1", "drag-drop", catalog.TierAdvanced)
	require.NoError(t, err)
	for _, id := range []string{"a", "b", "c", "d"} {
		_, err = engine.CompleteScenario(ctx, "U2", id, catalog.TierBeginner)
		require.NoError(t, err)
	}
	_, err = engine.CompleteScenario(ctx, "ghost", "graphql-websockets", catalog.TierExpert)
	require.NoError(t, err)

	lookup := ranking.IdentityLookupFunc(func(ctx context.Context, userID string) (ranking.Identity, bool) {
		if userID == "ghost" {
			return ranking.Identity{}, false
		}
		return named(ctx, userID)
	})

	h := NewGetRankingHandler(ranking.NewAggregator(store), lookup, nil)
	res, err := h.Handle(ctx, GetRankingQuery{Limit: 1})
	require.NoError(t, err)
	assert.Empty(t, res.Ranking, "the unresolved leader fills the only slot")

	res, err = h.Handle(ctx, GetRankingQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, res.Ranking, 1)
	assert.Equal(t, "U1", res.Ranking[0].UserID)
	assert.Equal(t, 1, res.Ranking[0].Position)

	res, err = h.Handle(ctx, GetRankingQuery{})
	require.NoError(t, err)
	require.Len(t, res.Ranking, 2)
	assert.Equal(t, "U2", res.Ranking[1].UserID)
	assert.Equal(t, 2, res.Ranking[1].Position)
}

func TestGetRanking_InvalidLimit(t *testing.T) {
	agg := new(mockComputer)
	h := NewGetRankingHandler(agg, ranking.IdentityLookupFunc(named), nil)

	for _, limit := range []int{-1, ranking.MaxLimit + 1} {
		_, err := h.Handle(context.Background(), GetRankingQuery{Limit: limit})
		assert.ErrorIs(t, err, shared.ErrInvalidLimit)
		assert.True(t, shared.IsValidation(err))
	}
	agg.AssertNotCalled(t, "ComputeRanking", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetRanking_StorageFailure(t *testing.T) {
	agg := new(mockComputer)
	storeErr := shared.StorageUnavailable("ranking", "ComputeRanking", errors.New("timeout"))
	agg.On("ComputeRanking", mock.Anything, 10, mock.Anything).Return(nil, storeErr)
	cache := newMapCache()

	h := NewGetRankingHandler(agg, ranking.IdentityLookupFunc(named), cache)
	_, err := h.Handle(context.Background(), GetRankingQuery{})
	assert.True(t, shared.IsStorageUnavailable(err))
	assert.Empty(t, cache.entries)
}

func TestGetRanking_CacheReadFailureFallsBackToStore(t *testing.T) {
	agg := new(mockComputer)
	agg.On("ComputeRanking", mock.Anything, 5, mock.Anything).Return([]ranking.Entry{}, nil)
	cache := newMapCache()
	cache.getErr = errors.New("redis: connection refused")

	h := NewGetRankingHandler(agg, ranking.IdentityLookupFunc(named), cache)
	res, err := h.Handle(context.Background(), GetRankingQuery{Limit: 5})
	require.NoError(t, err)
	assert.NotNil(t, res.Ranking)
	assert.Equal(t, 0, res.Total)
}

type blockingComputer struct {
	calls   atomic.Int32
	release chan struct{}
}

func (b *blockingComputer) ComputeRanking(_ context.Context, limit int, _ ranking.IdentityLookup) ([]ranking.Entry, error) {
	b.calls.Add(1)
	<-b.release
	return []ranking.Entry{{Position: 1, UserID: "u1", TotalXP: limit}}, nil
}

func TestGetRanking_ConcurrentMissesShareComputation(t *testing.T) {
	agg := &blockingComputer{release: make(chan struct{})}
	h := NewGetRankingHandler(agg, ranking.IdentityLookupFunc(named), nil)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*GetRankingResult, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = h.Handle(context.Background(), GetRankingQuery{Limit: 3})
		}(i)
	}

	time.Sleep(100 * time.Millisecond)
	close(agg.release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 3, results[i].Ranking[0].TotalXP)
	}
	assert.Less(t, int(agg.calls.Load()), callers)
}

func TestGetRanking_CallerCancellation(t *testing.T) {
	agg := &blockingComputer{release: make(chan struct{})}
	h := NewGetRankingHandler(agg, ranking.IdentityLookupFunc(named), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := h.Handle(ctx, GetRankingQuery{})
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	close(agg.release)
}

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

type mutableClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *mutableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *mutableClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func TestGetProgress(t *testing.T) {
	clock := &mutableClock{t: time.Date(2025, time.March, 30, 22, 0, 0, 0, time.UTC)}
	engine := progress.NewEngine(memory.NewProgressStore(), catalog.DefaultXPTable(),
		progress.NewResetPolicy(time.UTC, clock.Now))
	ctx := context.Background()
	rec := newCountingRecorder()
	h := NewGetProgressHandler(engine, WithRecorder(rec))

	fresh, err := h.Handle(ctx, GetProgressQuery{UserID: "newcomer"})
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.TotalXP)
	assert.Equal(t, 1, fresh.Level)
	assert.Equal(t, []string{}, fresh.CompletedSectionIDs)

	_, err = engine.CompleteScenario(ctx, "u1", "drag-drop", catalog.TierAdvanced)
	require.NoError(t, err)
	_, err = engine.CompleteScenario(ctx, "u1", "graphql-websockets", catalog.TierExpert)
	require.NoError(t, err)

	res, err := h.Handle(ctx, GetProgressQuery{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 150, res.TotalXP)
	assert.Equal(t, 2, res.CompletedCount)
	assert.ElementsMatch(t, []string{"drag-drop", "graphql-websockets"}, res.CompletedSectionIDs)
	assert.Equal(t, 3, res.Level)
	require.NotNil(t, res.LastUpdated)
	assert.Equal(t, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), res.NextResetAt)

	clock.Set(time.Date(2025, time.April, 1, 0, 0, 1, 0, time.UTC))
	res, err = h.Handle(ctx, GetProgressQuery{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalXP)
	assert.Empty(t, res.CompletedSectionIDs)
	assert.Equal(t, 1, rec.resets[ResetMonthly])
}

func TestGetProgress_Errors(t *testing.T) {
	store := memory.NewProgressStore()
	engine := progress.NewEngine(store, catalog.DefaultXPTable(), progress.NewResetPolicy(time.UTC, nil))
	h := NewGetProgressHandler(engine)

	_, err := h.Handle(context.Background(), GetProgressQuery{UserID: "   "})
	assert.ErrorIs(t, err, shared.ErrEmptyUserID)

	store.InjectFault(func(op, _ string) error {
		if op == memory.OpBegin {
			return errors.New("store offline")
		}
		return nil
	})
	_, err = h.Handle(context.Background(), GetProgressQuery{UserID: "u1"})
	assert.True(t, shared.IsStorageUnavailable(err))
}

// ══════════════════════════════════════════════════════════════════════════════
// LIST SCENARIOS
// ══════════════════════════════════════════════════════════════════════════════

func TestListScenarios(t *testing.T) {
	cat, err := catalog.New([]catalog.Scenario{
		{ID: "elementos-basicos", Title: "Elementos Básicos", Tier: catalog.TierBeginner},
		{ID: "drag-drop", Tier: catalog.TierAdvanced},
	}, catalog.DefaultXPTable())
	require.NoError(t, err)

	res := NewListScenariosHandler(cat).Handle(context.Background())
	require.Len(t, res.Scenarios, 2)
	assert.Equal(t, ScenarioDTO{ID: "elementos-basicos", Title: "Elementos Básicos", Tier: catalog.TierBeginner, XP: 10}, res.Scenarios[0])
	assert.Equal(t, "drag-drop", res.Scenarios[1].Title)
	assert.Equal(t, 60, res.TotalPossibleXP)
	assert.Equal(t, 100, res.XPTable[catalog.TierExpert])
	assert.Equal(t, 1, res.CountByTier[catalog.TierAdvanced])
}

func TestGetProfile(t *testing.T) {
	dir, err := identity.NewDirectory(identity.SeedUsers(), nil, nil)
	require.NoError(t, err)
	h := NewGetProfileHandler(dir)
	ctx := context.Background()

	res, err := h.Handle(ctx, GetProfileQuery{UserID: " user_admin_001 "})
	require.NoError(t, err)
	assert.Equal(t, "Michael Maia", res.Profile.DisplayName)
	assert.Equal(t, "https://www.linkedin.com/in/qamichael/", res.Profile.LinkedInURL)

	_, err = h.Handle(ctx, GetProfileQuery{UserID: "nobody"})
	assert.ErrorIs(t, err, profile.ErrNotFound)

	_, err = h.Handle(ctx, GetProfileQuery{})
	assert.ErrorIs(t, err, shared.ErrEmptyUserID)
}
