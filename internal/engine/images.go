package engine

import (
	"context"
	"time"

	"inferd/internal/runtime"
	"inferd/pkg/types"
)

// Images resolves the image-generation handle and produces raw image bytes.
// Encoding for the wire (base64) is the transport layer's concern.
func (e *Engine) Images(ctx context.Context, req types.ImagesGenerationRequest) ([][]byte, error) {
	requestsTotal.WithLabelValues("images").Inc()
	start := time.Now()

	name := e.resolveModel(runtime.ModalityImage, req.Model)

	release, err := e.admit(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	handle, ok := e.registry.Acquire(runtime.ModalityImage, name)
	if !ok {
		return nil, ErrModelNotFound(name)
	}
	defer handle.Release()

	gen, isImageGen := handle.Runtime().(runtime.ImageGenerator)
	if !isImageGen {
		return nil, ErrModelNotFound(name)
	}

	images, err := gen.GenerateImages(ctx, req.Prompt, req.N, req.Size)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrRuntime(name, err)
	}

	requestDuration.WithLabelValues("images").Observe(time.Since(start).Seconds())
	return images, nil
}
