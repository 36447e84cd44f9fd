package residue

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultDimensions is the vector size of HashEmbedder.
const DefaultDimensions = 256

// HashEmbedder maps text to a normalized hashed bag-of-words vector. It needs
// no model, so relevance works offline and deterministically.
type HashEmbedder struct {
	dims  int
	cache *lru.Cache[string, []float32]
}

// NewHashEmbedder returns an embedder with dims buckets and an LRU of
// cacheSize recent embeddings.
func NewHashEmbedder(dims, cacheSize int) (*HashEmbedder, error) {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	cache, err := lru.New[string, []float32](max(cacheSize, 1))
	if err != nil {
		return nil, err
	}
	return &HashEmbedder{dims: dims, cache: cache}, nil
}

// Embed returns the unit-length vector for text.
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := e.cache.Get(text); ok {
		return v, nil
	}

	vec := make([]float32, e.dims)
	for _, tok := range tokenize(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		sign := float32(1)
		if sum>>63 == 1 {
			sign = -1
		}
		vec[sum%uint64(e.dims)] += sign
	}
	normalize(vec)

	e.cache.Add(text, vec)
	return vec, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

// normalize scales vec to unit length. An all-zero vector becomes a unit
// vector on the first axis.
func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		vec[0] = 1
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
