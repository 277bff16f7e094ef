package embeddings

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

const defaultLocalDimension = 256

// localEmbedder is a deterministic term-frequency embedder: tokens are
// hashed into a fixed number of buckets and the bucket counts are L2
// normalized. It needs no network and no corpus preparation, which makes it
// usable offline and in tests, at the cost of retrieval quality.
type localEmbedder struct {
	dimension    int
	tokenPattern *regexp.Regexp
}

func NewLocalEmbedder(dimension int) Embedder {
	if dimension <= 0 {
		dimension = defaultLocalDimension
	}
	return &localEmbedder{
		dimension:    dimension,
		tokenPattern: regexp.MustCompile(`\p{L}+|\p{N}+`),
	}
}

func (e *localEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		results[i] = e.embedOne(text)
	}
	return results, nil
}

func (e *localEmbedder) embedOne(text string) []float32 {
	vec := make([]float32, e.dimension)
	tokens := e.tokenPattern.FindAllString(strings.ToLower(text), -1)
	for _, token := range tokens {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[int(h.Sum32())%e.dimension]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}
