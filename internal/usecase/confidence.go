package usecase

import (
	"math"

	"github.com/EmonKarmaker/ai-support-system/internal/domain"
)

// ConfidenceOptions weights the signals that make up an answer's confidence.
type ConfidenceOptions struct {
	SimilarityWeight    float64
	CorroborationWeight float64
	GenerationWeight    float64
	CorroborationTarget int     // candidate count at which corroboration saturates
	ZeroCandidateScore  float64 // returned whenever nothing was retrieved
}

// ConfidenceScorer derives a single score in [0,1] for one exchange.
type ConfidenceScorer struct {
	opts ConfidenceOptions
}

func NewConfidenceScorer(opts ConfidenceOptions) *ConfidenceScorer {
	if opts.CorroborationTarget <= 0 {
		opts.CorroborationTarget = 3
	}
	return &ConfidenceScorer{opts: opts}
}

// Score is deterministic in its inputs. Candidates are expected best first.
func (s *ConfidenceScorer) Score(candidates []domain.RetrievedCandidate, generationOK bool) float64 {
	if len(candidates) == 0 {
		return clamp01(s.opts.ZeroCandidateScore)
	}

	top := math.Max(0, candidates[0].Similarity)
	corroboration := math.Min(float64(len(candidates))/float64(s.opts.CorroborationTarget), 1)
	gen := 0.0
	if generationOK {
		gen = 1
	}

	score := s.opts.SimilarityWeight*top +
		s.opts.CorroborationWeight*corroboration +
		s.opts.GenerationWeight*gen
	return clamp01(score)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
