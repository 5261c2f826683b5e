package engine

import (
	"context"
	"time"

	"inferd/internal/runtime"
	"inferd/pkg/types"
)

// Embeddings resolves the embedding handle and turns the inputs into
// vectors. Embedding responses are never cached.
func (e *Engine) Embeddings(ctx context.Context, req types.EmbeddingsRequest) (types.EmbeddingsResponse, error) {
	requestsTotal.WithLabelValues("embeddings").Inc()
	start := time.Now()

	name := e.resolveModel(runtime.ModalityEmbedding, req.Model)

	release, err := e.admit(ctx)
	if err != nil {
		return types.EmbeddingsResponse{}, err
	}
	defer release()

	handle, ok := e.registry.Acquire(runtime.ModalityEmbedding, name)
	if !ok {
		return types.EmbeddingsResponse{}, ErrModelNotFound(name)
	}
	defer handle.Release()

	embedder, isEmbedder := handle.Runtime().(runtime.Embedder)
	if !isEmbedder {
		return types.EmbeddingsResponse{}, ErrModelNotFound(name)
	}

	vectors, err := embedder.Embed(ctx, []string(req.Input))
	if err != nil {
		if ctx.Err() != nil {
			return types.EmbeddingsResponse{}, ctx.Err()
		}
		return types.EmbeddingsResponse{}, ErrRuntime(name, err)
	}

	data := make([]types.EmbeddingObject, len(vectors))
	promptTokens := 0
	for i, vec := range vectors {
		data[i] = types.EmbeddingObject{Object: "embedding", Index: i, Embedding: vec}
	}
	for _, in := range req.Input {
		promptTokens += len(in) / 4
	}

	requestDuration.WithLabelValues("embeddings").Observe(time.Since(start).Seconds())
	return types.EmbeddingsResponse{
		Object: "list",
		Data:   data,
		Model:  name,
		Usage:  types.EmbeddingUsage{PromptTokens: promptTokens, TotalTokens: promptTokens},
	}, nil
}
