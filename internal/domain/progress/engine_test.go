package progress_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/qaplayground/playground-hub/internal/domain/catalog"
	"github.com/qaplayground/playground-hub/internal/domain/progress"
	"github.com/qaplayground/playground-hub/internal/domain/shared"
	"github.com/qaplayground/playground-hub/internal/infrastructure/persistence/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func newEngine(t *testing.T) (*progress.Engine, *memory.ProgressStore, *testClock) {
	t.Helper()
	clock := &testClock{t: time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)}
	store := memory.NewProgressStore()
	engine := progress.NewEngine(store, catalog.DefaultXPTable(), progress.NewResetPolicy(time.UTC, clock.Now))
	return engine, store, clock
}

func TestCompleteScenario_Idempotent(t *testing.T) {
	engine, _, _ := newEngine(t)
	ctx := context.Background()

	first, err := engine.CompleteScenario(ctx, "u1", "drag-drop", catalog.TierAdvanced)
	require.NoError(t, err)
	assert.Equal(t, progress.Outcome{XPAwarded: 50, TotalXP: 50}, first)

	second, err := engine.CompleteScenario(ctx, "u1", "drag-drop", catalog.TierAdvanced)
	require.NoError(t, err)
	assert.True(t, second.AlreadyCompleted)
	assert.Equal(t, 0, second.XPAwarded)
	assert.Equal(t, first.TotalXP, second.TotalXP)
}

func TestCompleteScenario_Conservation(t *testing.T) {
	engine, _, _ := newEngine(t)
	ctx := context.Background()
	table := catalog.DefaultXPTable()
	tiers := catalog.Tiers()

	expected := 0
	for i := 0; i < 40; i++ {
		// every third scenario repeats an earlier one
		scenario := fmt.Sprintf("scenario-%d", i-i%3)
		tier := tiers[(i-i%3)%len(tiers)]
		out, err := engine.CompleteScenario(ctx, "u1", scenario, tier)
		require.NoError(t, err)
		if !out.AlreadyCompleted {
			expected += table[tier]
		}
		assert.Equal(t, expected, out.TotalXP)
	}

	snap, err := engine.Progress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, expected, snap.TotalXP)
	assert.Equal(t, len(snap.CompletedSectionIDs), snap.CompletedCount)

	sum := 0
	for _, id := range snap.CompletedSectionIDs {
		var n int
		_, err := fmt.Sscanf(id, "scenario-%d", &n)
		require.NoError(t, err)
		sum += table[tiers[n%len(tiers)]]
	}
	assert.Equal(t, snap.TotalXP, sum)
}

func TestCompleteScenario_ConcurrentSameUser(t *testing.T) {
	engine, store, _ := newEngine(t)
	ctx := context.Background()
	const k = 64

	var wg sync.WaitGroup
	errs := make(chan error, k)
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := engine.CompleteScenario(ctx, "u1", fmt.Sprintf("s-%d", i), catalog.TierIntermediate)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	snap, err := engine.Progress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, k*25, snap.TotalXP)
	assert.Equal(t, k, snap.CompletedCount)
	assert.Equal(t, 1, store.Len())
}

func TestCompleteScenario_ConcurrentDuplicates(t *testing.T) {
	engine, _, _ := newEngine(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	awarded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := engine.CompleteScenario(ctx, "u1", "pagamentos", catalog.TierAdvanced)
			if err == nil && !out.AlreadyCompleted {
				mu.Lock()
				awarded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, awarded)
	snap, err := engine.Progress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 50, snap.TotalXP)
}

func TestCompleteScenario_InvalidInput(t *testing.T) {
	engine, store, _ := newEngine(t)
	ctx := context.Background()

	cases := []struct {
		name             string
		user, scenario   string
		tier             catalog.Tier
		wantErrorMatches error
	}{
		{"empty user", " ", "drag-drop", catalog.TierAdvanced, shared.ErrEmptyUserID},
		{"empty scenario", "u1", "", catalog.TierAdvanced, shared.ErrEmptyScenarioID},
		{"unknown tier", "u1", "drag-drop", catalog.Tier("legendary"), shared.ErrUnknownTier},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := engine.CompleteScenario(ctx, tc.user, tc.scenario, tc.tier)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErrorMatches)
			assert.ErrorIs(t, err, shared.ErrInvalidInput)
			assert.Equal(t, progress.Outcome{}, out)
		})
	}
	assert.Equal(t, 0, store.Len())
}

func TestCompleteScenario_StorageFailureLeavesNoPartialState(t *testing.T) {
	boom := errors.New("connection refused")

	for _, op := range []string{memory.OpBegin, memory.OpHasCompleted, memory.OpAddCompletion, memory.OpCommit} {
		t.Run(op, func(t *testing.T) {
			engine, store, _ := newEngine(t)
			ctx := context.Background()

			_, err := engine.CompleteScenario(ctx, "u1", "elementos-basicos", catalog.TierBeginner)
			require.NoError(t, err)

			store.InjectFault(func(got, _ string) error {
				if got == op {
					return boom
				}
				return nil
			})
			out, err := engine.CompleteScenario(ctx, "u1", "drag-drop", catalog.TierAdvanced)
			require.Error(t, err)
			assert.True(t, shared.IsStorageUnavailable(err))
			assert.True(t, shared.IsRetryable(err))
			assert.ErrorIs(t, err, boom)
			assert.Equal(t, progress.Outcome{}, out)

			store.InjectFault(nil)
			snap, err := engine.Progress(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, 10, snap.TotalXP)
			assert.Equal(t, []string{"elementos-basicos"}, snap.CompletedSectionIDs)

			// a retry of the failed request succeeds exactly once
			out, err = engine.CompleteScenario(ctx, "u1", "drag-drop", catalog.TierAdvanced)
			require.NoError(t, err)
			assert.Equal(t, 60, out.TotalXP)
		})
	}
}

func TestCompleteScenario_CancelledContext(t *testing.T) {
	engine, store, _ := newEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.CompleteScenario(ctx, "u1", "drag-drop", catalog.TierAdvanced)
	assert.True(t, shared.IsStorageUnavailable(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, store.Len())
}

func TestReset_MonthBoundary(t *testing.T) {
	engine, _, clock := newEngine(t)
	ctx := context.Background()

	_, err := engine.CompleteScenario(ctx, "u1", "drag-drop", catalog.TierAdvanced)
	require.NoError(t, err)
	_, err = engine.CompleteScenario(ctx, "u1", "acessibilidade", catalog.TierExpert)
	require.NoError(t, err)

	// same month: untouched
	clock.Set(time.Date(2025, time.March, 31, 23, 59, 59, 0, time.UTC))
	reset, err := engine.ApplyResetIfDue(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, reset)

	snap, err := engine.Progress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 150, snap.TotalXP)

	// next month: the read path resets
	clock.Set(time.Date(2025, time.April, 1, 0, 0, 1, 0, time.UTC))
	snap, err = engine.Progress(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, snap.ResetApplied)
	assert.Equal(t, 0, snap.TotalXP)
	assert.Empty(t, snap.CompletedSectionIDs)
	assert.Equal(t, clock.Now(), snap.LastUpdated)

	// a reset lets the same scenario award again
	out, err := engine.CompleteScenario(ctx, "u1", "drag-drop", catalog.TierAdvanced)
	require.NoError(t, err)
	assert.False(t, out.AlreadyCompleted)
	assert.Equal(t, 50, out.TotalXP)
}

func TestReset_WritePathAppliesResetFirst(t *testing.T) {
	engine, _, clock := newEngine(t)
	ctx := context.Background()

	_, err := engine.CompleteScenario(ctx, "u1", "drag-drop", catalog.TierAdvanced)
	require.NoError(t, err)

	clock.Set(time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC))
	out, err := engine.CompleteScenario(ctx, "u1", "drag-drop", catalog.TierAdvanced)
	require.NoError(t, err)
	assert.True(t, out.ResetApplied)
	assert.False(t, out.AlreadyCompleted)
	assert.Equal(t, 50, out.XPAwarded)
	assert.Equal(t, 50, out.TotalXP)
}

func TestReset_ReferenceZone(t *testing.T) {
	// 23:30 UTC on 31 March is already April in UTC+3
	zone := time.FixedZone("UTC+3", 3*3600)
	clock := &testClock{t: time.Date(2025, time.March, 31, 20, 0, 0, 0, time.UTC)}
	engine := progress.NewEngine(memory.NewProgressStore(), catalog.DefaultXPTable(), progress.NewResetPolicy(zone, clock.Now))
	ctx := context.Background()

	_, err := engine.CompleteScenario(ctx, "u1", "drag-drop", catalog.TierAdvanced)
	require.NoError(t, err)

	clock.Set(time.Date(2025, time.March, 31, 23, 30, 0, 0, time.UTC))
	reset, err := engine.ApplyResetIfDue(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, reset)
}

func TestReset_NewUserNotReset(t *testing.T) {
	engine, _, _ := newEngine(t)

	reset, err := engine.ApplyResetIfDue(context.Background(), "fresh")
	require.NoError(t, err)
	assert.False(t, reset)
}

func TestReset_Manual(t *testing.T) {
	engine, _, _ := newEngine(t)
	ctx := context.Background()

	_, err := engine.CompleteScenario(ctx, "u1", "drag-drop", catalog.TierAdvanced)
	require.NoError(t, err)

	cleared, err := engine.Reset(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 50, cleared)

	snap, err := engine.Progress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, snap.TotalXP)
	assert.Equal(t, 0, snap.CompletedCount)
	assert.Equal(t, 1, snap.Level)

	_, err = engine.Reset(ctx, "")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestReset_StorageFailure(t *testing.T) {
	engine, store, _ := newEngine(t)
	ctx := context.Background()

	_, err := engine.CompleteScenario(ctx, "u1", "drag-drop", catalog.TierAdvanced)
	require.NoError(t, err)

	store.InjectFault(func(op, _ string) error {
		if op == memory.OpCommit {
			return errors.New("disk full")
		}
		return nil
	})
	_, err = engine.Reset(ctx, "u1")
	assert.True(t, shared.IsStorageUnavailable(err))

	store.InjectFault(nil)
	snap, err := engine.Progress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 50, snap.TotalXP)
}

func TestProgress_LazyCreation(t *testing.T) {
	engine, store, clock := newEngine(t)

	snap, err := engine.Progress(context.Background(), "newbie")
	require.NoError(t, err)
	assert.Equal(t, progress.Snapshot{
		UserID:              "newbie",
		CompletedSectionIDs: []string{},
		Level:               1,
		LastUpdated:         clock.Now(),
	}, snap)
	assert.Equal(t, 1, store.Len())
}

func TestLevelFor(t *testing.T) {
	cases := map[int]int{0: 1, 24: 1, 25: 2, 99: 2, 100: 3, 225: 4, 2500: 11}
	for xp, want := range cases {
		assert.Equal(t, want, progress.LevelFor(xp), "xp=%d", xp)
	}
}
