package runtime

import "context"

// PlaceholderImageGenerator is the built-in image backend. It returns n
// placeholder byte blobs tagged with the requested size, so the image API
// surface is exercisable without a diffusion backend.
type PlaceholderImageGenerator struct{}

// NewPlaceholderImageGenerator constructs the fallback image backend.
func NewPlaceholderImageGenerator() *PlaceholderImageGenerator {
	return &PlaceholderImageGenerator{}
}

func (g *PlaceholderImageGenerator) GenerateImages(ctx context.Context, prompt string, n int, size string) ([][]byte, error) {
	if n <= 0 {
		n = 1
	}
	header := []byte("PLACEHOLDER_PNG:" + size + ":")
	out := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		blob := make([]byte, len(header))
		copy(blob, header)
		out = append(out, blob)
	}
	return out, nil
}

func (g *PlaceholderImageGenerator) Close() error { return nil }
