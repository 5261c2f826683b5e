package runtime

import (
	"context"
	"math"
	"math/bits"
)

// FNV-1a 64-bit parameters.
const (
	fnvOffset = 1469598103934665603
	fnvPrime  = 1099511628211
)

// HashEmbedder is the built-in embedding backend. It derives a deterministic,
// L2-normalized vector from an FNV-1a hash of the input text. Vectors are
// stable across processes, which makes cache and API behavior testable
// without a model file.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder constructs a hash embedder with the given dimension.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = 384
	}
	return &HashEmbedder{dim: dim}
}

// Dimension returns the vector dimension.
func (e *HashEmbedder) Dimension() int { return e.dim }

func (e *HashEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, 0, len(inputs))
	for _, text := range inputs {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		var hash uint64 = fnvOffset
		for _, b := range []byte(text) {
			hash ^= uint64(b)
			hash *= fnvPrime
		}

		vec := make([]float32, e.dim)
		for i := range vec {
			vec[i] = float32(bits.RotateLeft64(hash, i%64)%1000) / 1000.0
		}

		var sum float64
		for _, v := range vec {
			sum += float64(v) * float64(v)
		}
		if norm := float32(math.Sqrt(sum)); norm > 0 {
			for i := range vec {
				vec[i] /= norm
			}
		}
		out = append(out, vec)
	}
	return out, nil
}

func (e *HashEmbedder) Close() error { return nil }
