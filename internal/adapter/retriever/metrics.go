package retriever

import "math"

// Retrieval quality metrics for the benchmark command. Identifiers are entry
// IDs in ranked order.

// PrecisionAtK is the share of retrieved IDs that are relevant.
func PrecisionAtK(retrieved, relevant []string) float64 {
	if len(retrieved) == 0 {
		return 0
	}
	return float64(countHits(retrieved, relevant)) / float64(len(retrieved))
}

// RecallAtK is the share of relevant IDs that were retrieved.
func RecallAtK(retrieved, relevant []string) float64 {
	if len(relevant) == 0 {
		return 0
	}
	return float64(countHits(retrieved, relevant)) / float64(len(relevant))
}

func countHits(retrieved, relevant []string) int {
	want := make(map[string]struct{}, len(relevant))
	for _, id := range relevant {
		want[id] = struct{}{}
	}
	hits := 0
	for _, id := range retrieved {
		if _, ok := want[id]; ok {
			hits++
		}
	}
	return hits
}

// ReciprocalRank returns 1/rank of the first occurrence of relevant, or 0.
func ReciprocalRank(retrieved []string, relevant string) float64 {
	for i, id := range retrieved {
		if id == relevant {
			return 1 / float64(i+1)
		}
	}
	return 0
}

// HitAtK reports whether relevant is among the first k retrieved.
func HitAtK(retrieved []string, relevant string, k int) bool {
	if k < len(retrieved) {
		retrieved = retrieved[:max(k, 0)]
	}
	for _, id := range retrieved {
		if id == relevant {
			return true
		}
	}
	return false
}

// NDCG normalizes the discounted cumulative gain of gains by that of the
// ideal ordering.
func NDCG(gains, ideal []float64) float64 {
	idcg := dcg(ideal)
	if idcg == 0 {
		return 0
	}
	return dcg(gains) / idcg
}

func dcg(gains []float64) float64 {
	var sum float64
	for i, g := range gains {
		sum += g / math.Log2(float64(i+2))
	}
	return sum
}
