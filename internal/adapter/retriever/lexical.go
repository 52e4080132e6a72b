package retriever

import (
	"math"
	"sort"

	"github.com/EmonKarmaker/ai-support-system/internal/adapter/analyzer"
	"github.com/EmonKarmaker/ai-support-system/internal/domain"
)

// LexicalRetriever ranks knowledge entries by BM25 over their question and
// answer text. It needs no embeddings and backs retrieval when the embedding
// provider is down.
type LexicalRetriever struct {
	tokenizer *analyzer.Tokenizer
	k1        float64
	b         float64
	scale     float64
}

// NewLexicalRetriever creates a BM25 retriever. Scores are normalised to
// [0, scale] so they never read as a perfect semantic match.
func NewLexicalRetriever(tokenizer *analyzer.Tokenizer, k1, b, scale float64) *LexicalRetriever {
	if scale <= 0 || scale > 1 {
		scale = 1
	}
	return &LexicalRetriever{
		tokenizer: tokenizer,
		k1:        k1,
		b:         b,
		scale:     scale,
	}
}

// LexicalHit is one BM25 match.
type LexicalHit struct {
	Entry domain.KnowledgeEntry
	Score float64
}

type indexedEntry struct {
	entry  domain.KnowledgeEntry
	tf     map[string]int
	length int
}

// Search scores entries against query and returns the best k, ordered by
// score descending then ID ascending. The score of a hit is the share of
// query terms it contains times its BM25 relative to the best hit.
func (r *LexicalRetriever) Search(query string, entries []domain.KnowledgeEntry, k int, category domain.Category) []LexicalHit {
	queryTerms := r.tokenizer.TokenSet(query)
	if len(queryTerms) == 0 || k <= 0 {
		return []LexicalHit{}
	}

	docs := make([]indexedEntry, 0, len(entries))
	docFreq := make(map[string]int)
	totalLen := 0
	for _, e := range entries {
		if category != "" && e.Category != category {
			continue
		}
		tokens := r.tokenizer.Tokenize(e.Question + " " + e.Answer)
		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		for tok := range tf {
			docFreq[tok]++
		}
		docs = append(docs, indexedEntry{entry: e, tf: tf, length: len(tokens)})
		totalLen += len(tokens)
	}
	if len(docs) == 0 {
		return []LexicalHit{}
	}

	N := float64(len(docs))
	avgDl := float64(totalLen) / N
	if avgDl == 0 {
		avgDl = 1
	}

	type scored struct {
		entry    domain.KnowledgeEntry
		bm25     float64
		coverage float64
	}
	var results []scored
	for _, d := range docs {
		var score float64
		matched := 0
		for term := range queryTerms {
			tf := float64(d.tf[term])
			if tf == 0 {
				continue
			}
			matched++
			n := float64(docFreq[term])
			idf := math.Log((N-n+0.5)/(n+0.5) + 1)
			dl := float64(d.length)
			score += idf * (tf * (r.k1 + 1)) / (tf + r.k1*(1-r.b+r.b*dl/avgDl))
		}
		if matched == 0 {
			continue
		}
		results = append(results, scored{
			entry:    d.entry,
			bm25:     score,
			coverage: float64(matched) / float64(len(queryTerms)),
		})
	}
	if len(results) == 0 {
		return []LexicalHit{}
	}

	top := 0.0
	for _, s := range results {
		top = math.Max(top, s.bm25)
	}

	hits := make([]LexicalHit, len(results))
	for i, s := range results {
		norm := 0.0
		if top > 0 {
			norm = s.bm25 / top
		}
		hits[i] = LexicalHit{Entry: s.entry, Score: r.scale * s.coverage * norm}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Entry.ID < hits[j].Entry.ID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}
