package retriever

import (
	"github.com/EmonKarmaker/ai-support-system/internal/adapter/analyzer"
	"github.com/EmonKarmaker/ai-support-system/internal/domain"
)

// NearDuplicateFilter drops candidates whose question is nearly the same as
// a higher-ranked candidate's, measured by Jaccard overlap of question tokens.
type NearDuplicateFilter struct {
	tokenizer *analyzer.Tokenizer
	threshold float64
}

// NewNearDuplicateFilter creates a filter. A threshold of 0 disables it.
func NewNearDuplicateFilter(tokenizer *analyzer.Tokenizer, threshold float64) *NearDuplicateFilter {
	return &NearDuplicateFilter{
		tokenizer: tokenizer,
		threshold: threshold,
	}
}

// Filter keeps candidates in order, skipping any that overlap an already kept
// candidate at or above the threshold. Input must be sorted best first.
func (f *NearDuplicateFilter) Filter(candidates []domain.RetrievedCandidate) []domain.RetrievedCandidate {
	if f.threshold <= 0 || len(candidates) < 2 {
		return candidates
	}

	kept := make([]domain.RetrievedCandidate, 0, len(candidates))
	keptSets := make([]map[string]struct{}, 0, len(candidates))

	for _, c := range candidates {
		set := f.tokenizer.TokenSet(c.Entry.Question)
		duplicate := false
		for _, ks := range keptSets {
			if len(set) > 0 && analyzer.Jaccard(set, ks) >= f.threshold {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		kept = append(kept, c)
		keptSets = append(keptSets, set)
	}

	return kept
}
