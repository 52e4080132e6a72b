package usecase

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/EmonKarmaker/ai-support-system/internal/adapter/cache"
	"github.com/EmonKarmaker/ai-support-system/internal/adapter/retriever"
	"github.com/EmonKarmaker/ai-support-system/internal/domain"
	"github.com/EmonKarmaker/ai-support-system/internal/port"
)

// RetrieveOptions tunes the retrieval pipeline.
type RetrieveOptions struct {
	TopN            int
	OverFetch       int
	MinSimilarity   float64
	LexicalMinScore float64 // Floor for BM25 fallback scores
	EmbedTimeout    time.Duration
	SearchTimeout   time.Duration
}

// Retrieval is the outcome of one retrieval call.
type Retrieval struct {
	Candidates []domain.RetrievedCandidate
	Lexical    bool // Served by the BM25 fallback
	Cached     bool
}

// Retriever turns a query into ranked knowledge entries.
type Retriever struct {
	embedder port.Embedder
	store    port.VectorStore
	lexical  *retriever.LexicalRetriever    // nil disables the fallback
	dedup    *retriever.NearDuplicateFilter // nil disables near-duplicate removal
	cache    *cache.QueryCache              // nil disables caching
	opts     RetrieveOptions
	logger   *zap.Logger
}

// NewRetriever creates a new retriever.
func NewRetriever(
	embedder port.Embedder,
	store port.VectorStore,
	lexical *retriever.LexicalRetriever,
	dedup *retriever.NearDuplicateFilter,
	cache *cache.QueryCache,
	opts RetrieveOptions,
	logger *zap.Logger,
) *Retriever {
	if opts.TopN <= 0 {
		opts.TopN = 3
	}
	if opts.OverFetch < 1 {
		opts.OverFetch = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{
		embedder: embedder,
		store:    store,
		lexical:  lexical,
		dedup:    dedup,
		cache:    cache,
		opts:     opts,
		logger:   logger,
	}
}

// Retrieve returns at most topN candidates for query, best first. A non-empty
// category restricts results to that category. Zero candidates is a valid
// result.
func (r *Retriever) Retrieve(ctx context.Context, query string, category domain.Category, topN int) (Retrieval, error) {
	const op = "retrieve"

	query = strings.TrimSpace(query)
	if query == "" {
		return Retrieval{}, domain.InvalidInput(op, "query is empty")
	}
	if topN <= 0 {
		topN = r.opts.TopN
	}

	key := cache.Key{Query: query, Category: category, TopN: topN}
	var gen uint64
	if r.cache != nil {
		if hit, ok := r.cache.Get(key); ok {
			return Retrieval{Candidates: hit, Cached: true}, nil
		}
		gen = r.cache.Generation()
	}

	k := topN * r.opts.OverFetch

	vector, err := r.embedQuery(ctx, query)
	if err != nil {
		if r.lexical == nil || ctx.Err() != nil {
			return Retrieval{}, domain.EmbeddingUnavailable(op, err)
		}
		r.logger.Warn("embedding unavailable, using lexical fallback", zap.Error(err))
		return r.retrieveLexical(ctx, query, category, topN, k)
	}

	sctx, cancel := withTimeout(ctx, r.opts.SearchTimeout)
	results, err := r.store.Search(sctx, vector, k, category)
	cancel()
	if err != nil {
		return Retrieval{}, domain.VectorStoreUnavailable(op, err)
	}

	candidates := r.finalize(results, r.opts.MinSimilarity, topN)
	if r.cache != nil {
		r.cache.Put(key, gen, candidates)
	}

	r.logger.Debug("retrieved candidates",
		zap.Int("fetched", len(results)),
		zap.Int("kept", len(candidates)),
		zap.String("category", string(category)),
	)
	return Retrieval{Candidates: candidates}, nil
}

func (r *Retriever) embedQuery(ctx context.Context, query string) ([]float32, error) {
	ectx, cancel := withTimeout(ctx, r.opts.EmbedTimeout)
	defer cancel()

	vecs, err := r.embedder.Embed(ectx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return nil, errMalformedEmbedding
	}
	return vecs[0], nil
}

func (r *Retriever) retrieveLexical(ctx context.Context, query string, category domain.Category, topN, k int) (Retrieval, error) {
	entries, err := r.store.All(ctx)
	if err != nil {
		return Retrieval{}, domain.VectorStoreUnavailable("retrieve lexical", err)
	}

	hits := r.lexical.Search(query, entries, k, category)
	results := make([]port.VectorResult, len(hits))
	for i, h := range hits {
		results[i] = port.VectorResult{Entry: h.Entry, Score: h.Score}
	}

	return Retrieval{
		Candidates: r.finalize(results, r.opts.LexicalMinScore, topN),
		Lexical:    true,
	}, nil
}

// finalize applies the threshold, keeps the best hit per entry ID, orders by
// similarity then ID, removes near-duplicate questions, truncates to topN and
// assigns 1-based ranks.
func (r *Retriever) finalize(results []port.VectorResult, minScore float64, topN int) []domain.RetrievedCandidate {
	best := make(map[string]domain.RetrievedCandidate, len(results))
	for _, res := range results {
		if res.Score < minScore {
			continue
		}
		if prev, ok := best[res.Entry.ID]; ok && prev.Similarity >= res.Score {
			continue
		}
		best[res.Entry.ID] = domain.RetrievedCandidate{Entry: res.Entry, Similarity: res.Score}
	}

	candidates := make([]domain.RetrievedCandidate, 0, len(best))
	for _, c := range best {
		candidates = append(candidates, c)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		return candidates[i].Entry.ID < candidates[j].Entry.ID
	})

	if r.dedup != nil {
		candidates = r.dedup.Filter(candidates)
	}
	if len(candidates) > topN {
		candidates = candidates[:topN]
	}
	for i := range candidates {
		candidates[i].Rank = i + 1
		candidates[i].Entry.Embedding = nil
	}
	return candidates
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
