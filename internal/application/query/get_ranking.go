package query

import (
	"context"
	"slices"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/qaplayground/playground-hub/internal/domain/ranking"
	"github.com/qaplayground/playground-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET RANKING QUERY
// Returns the Power Ranking. Results are served from the cache when present;
// concurrent misses for the same limit share one computation.
// ══════════════════════════════════════════════════════════════════════════════

// RankingComputer computes rankings from stored balances.
type RankingComputer interface {
	ComputeRanking(ctx context.Context, limit int, lookup ranking.IdentityLookup) ([]ranking.Entry, error)
}

// RankingCache stores computed rankings per limit and generation. An
// invalidation moves the generation forward.
type RankingCache interface {
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context, limit int) ([]ranking.Entry, bool, error)
	Set(ctx context.Context, generation int64, limit int, entries []ranking.Entry) error
}

// GetRankingQuery contains the ranking parameters.
type GetRankingQuery struct {
	// Limit is the number of entries; 0 means ranking.DefaultLimit.
	Limit int
}

// GetRankingResult is the ranking response.
type GetRankingResult struct {
	Ranking     []ranking.Entry `json:"ranking"`
	Total       int             `json:"total"`
	Limit       int             `json:"limit"`
	Cached      bool            `json:"cached"`
	GeneratedAt time.Time       `json:"generatedAt"`
}

// GetRankingHandler handles GetRankingQuery.
type GetRankingHandler struct {
	aggregator RankingComputer
	identities ranking.IdentityLookup
	cache      RankingCache

	// computeTimeout bounds a shared computation, which outlives the
	// context of the request that started it.
	computeTimeout time.Duration

	group singleflight.Group
	handlerDeps
}

// DefaultComputeTimeout bounds a shared ranking computation.
const DefaultComputeTimeout = 10 * time.Second

// NewGetRankingHandler creates a handler. cache may be nil.
func NewGetRankingHandler(aggregator RankingComputer, identities ranking.IdentityLookup, cache RankingCache, opts ...Option) *GetRankingHandler {
	return &GetRankingHandler{
		aggregator:     aggregator,
		identities:     identities,
		cache:          cache,
		computeTimeout: DefaultComputeTimeout,
		handlerDeps:    buildDeps("get_ranking", opts),
	}
}

type computed struct {
	entries     []ranking.Entry
	generatedAt time.Time
}

// Handle executes the query.
func (h *GetRankingHandler) Handle(ctx context.Context, q GetRankingQuery) (*GetRankingResult, error) {
	start := time.Now()
	defer h.recorder.ObserveOperation("get_ranking", start)

	limit, err := ranking.NormalizeLimit(q.Limit)
	if err != nil {
		return nil, err
	}

	if entries, ok := h.fromCache(ctx, limit); ok {
		h.recorder.RankingRead(SourceCache)
		return newRankingResult(entries, limit, true, time.Now().UTC()), nil
	}

	ch := h.group.DoChan(strconv.Itoa(limit), func() (any, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.computeTimeout)
		defer cancel()
		return h.compute(cctx, limit)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			h.log.Error("ranking computation failed", logger.Int("limit", limit), logger.Err(res.Err))
			return nil, res.Err
		}
		if res.Shared {
			h.recorder.RankingRead(SourceInFlight)
		} else {
			h.recorder.RankingRead(SourceStore)
		}
		c := res.Val.(computed)
		return newRankingResult(slices.Clone(c.entries), limit, false, c.generatedAt), nil
	}
}

func (h *GetRankingHandler) fromCache(ctx context.Context, limit int) ([]ranking.Entry, bool) {
	if h.cache == nil {
		return nil, false
	}
	entries, ok, err := h.cache.Get(ctx, limit)
	if err != nil {
		h.log.Warn("ranking cache read failed", logger.Int("limit", limit), logger.Err(err))
		return nil, false
	}
	return entries, ok
}

func (h *GetRankingHandler) compute(ctx context.Context, limit int) (computed, error) {
	// the generation is read first, so a result racing an invalidation is
	// stored under the stale generation
	var (
		gen      int64
		cachable = h.cache != nil
	)
	if cachable {
		var err error
		if gen, err = h.cache.Generation(ctx); err != nil {
			h.log.Warn("ranking cache generation read failed", logger.Int("limit", limit), logger.Err(err))
			cachable = false
		}
	}

	entries, err := h.aggregator.ComputeRanking(ctx, limit, h.identities)
	if err != nil {
		return computed{}, err
	}

	if cachable {
		if err := h.cache.Set(ctx, gen, limit, entries); err != nil {
			h.log.Warn("ranking cache write failed", logger.Int("limit", limit), logger.Err(err))
		}
	}
	return computed{entries: entries, generatedAt: time.Now().UTC()}, nil
}

func newRankingResult(entries []ranking.Entry, limit int, cached bool, at time.Time) *GetRankingResult {
	if entries == nil {
		entries = []ranking.Entry{}
	}
	return &GetRankingResult{
		Ranking:     entries,
		Total:       len(entries),
		Limit:       limit,
		Cached:      cached,
		GeneratedAt: at,
	}
}
