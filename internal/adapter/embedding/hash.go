package embedding

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/EmonKarmaker/ai-support-system/internal/adapter/analyzer"
)

const HashModelName = "hash-bow-v1"

// HashEmbedder is a local, deterministic embedder. It hashes stemmed unigrams
// and bigrams into a fixed number of signed buckets and L2-normalises the
// result, so texts sharing vocabulary land close together.
type HashEmbedder struct {
	dimension int
	tokenizer *analyzer.Tokenizer
}

func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = 384
	}
	return &HashEmbedder{
		dimension: dimension,
		tokenizer: analyzer.NewTokenizer(true),
	}
}

func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = e.embedOne(text)
	}
	return embeddings, nil
}

func (e *HashEmbedder) embedOne(text string) []float32 {
	vec := make([]float64, e.dimension)
	tokens := e.tokenizer.Tokenize(text)

	for i, tok := range tokens {
		e.add(vec, tok, 1.0)
		if i > 0 {
			e.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}

	return toFloat32(normalize(vec))
}

func (e *HashEmbedder) add(vec []float64, feature string, weight float64) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(e.dimension))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

func (e *HashEmbedder) Dimension() int {
	return e.dimension
}

func (e *HashEmbedder) ModelName() string {
	return HashModelName
}

// Blend mixes a question and answer embedding into one entry embedding,
// weighting the question by w, and L2-normalises the result.
func Blend(question, answer []float32, w float64) []float32 {
	n := min(len(question), len(answer))
	out := make([]float64, n)
	qn, an := norm(question), norm(answer)
	for i := 0; i < n; i++ {
		var q, a float64
		if qn > 0 {
			q = float64(question[i]) / qn
		}
		if an > 0 {
			a = float64(answer[i]) / an
		}
		out[i] = w*q + (1-w)*a
	}
	return toFloat32(normalize(out))
}

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func normalize(v []float64) []float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	if s == 0 {
		return v
	}
	n := math.Sqrt(s)
	for i := range v {
		v[i] /= n
	}
	return v
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
