package store

import (
	"math"
	"sort"

	"github.com/EmonKarmaker/ai-support-system/internal/domain"
	"github.com/EmonKarmaker/ai-support-system/internal/port"
)

// TopK scores every entry against query by cosine similarity (brute force)
// and returns the best k, ordered by score descending then ID ascending.
// A non-empty category keeps only entries tagged with it.
func TopK(query []float32, entries []domain.KnowledgeEntry, k int, category domain.Category) []port.VectorResult {
	if k <= 0 || len(entries) == 0 {
		return []port.VectorResult{}
	}

	scores := make([]port.VectorResult, 0, len(entries))
	for _, entry := range entries {
		if category != "" && entry.Category != category {
			continue
		}
		scores = append(scores, port.VectorResult{
			Entry: entry,
			Score: CosineSimilarity(query, entry.Embedding),
		})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Entry.ID < scores[j].Entry.ID
	})

	if k > len(scores) {
		k = len(scores)
	}
	return scores[:k]
}

// CosineSimilarity calculates the cosine similarity between two vectors.
// Mismatched lengths and zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CountByCategory tallies entries per category.
func CountByCategory(entries map[string]domain.KnowledgeEntry) map[domain.Category]int {
	counts := make(map[domain.Category]int)
	for _, e := range entries {
		counts[e.Category]++
	}
	return counts
}

// SortedEntries returns the entries ordered by ID.
func SortedEntries(entries map[string]domain.KnowledgeEntry) []domain.KnowledgeEntry {
	out := make([]domain.KnowledgeEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
