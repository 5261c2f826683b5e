package engine

import (
	"fmt"

	"inferd/internal/runtime"
	"inferd/pkg/types"
)

// LoadModel constructs a backend for (kind, name) and commits it to the
// registry under a short exclusive critical section. Sources are validated
// before commit; replacing an existing name is a hot-swap and in-flight
// holders of the previous handle run to completion against it.
func (e *Engine) LoadModel(kind, name, path string) error {
	mod, err := runtime.ParseModality(kind)
	if err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("model name is required")
	}

	var rt runtime.Runtime
	var info runtime.GGUFInfo
	switch mod {
	case runtime.ModalityText:
		if path == "" {
			rt = runtime.NewEchoGenerator()
		} else {
			gen, ggufInfo, err := runtime.OpenGGUF(path, e.llamaOpts)
			if err != nil {
				return err
			}
			rt, info = gen, ggufInfo
		}
	case runtime.ModalityMultimodal:
		if path == "" {
			rt = runtime.NewVisionAdapter(runtime.NewEchoGenerator())
		} else {
			gen, ggufInfo, err := runtime.OpenGGUF(path, e.llamaOpts)
			if err != nil {
				return err
			}
			rt, info = runtime.NewVisionAdapter(gen), ggufInfo
		}
	case runtime.ModalityEmbedding:
		// No file-backed embedding backend is wired yet; the deterministic
		// hash embedder serves any registered name.
		rt = runtime.NewHashEmbedder(embeddingDim)
	case runtime.ModalityImage:
		rt = runtime.NewPlaceholderImageGenerator()
	}

	e.registry.Put(mod, name, rt)
	lifecycleOpsTotal.WithLabelValues("load").Inc()
	ev := e.log.Info().Str("kind", string(mod)).Str("model", name).Str("path", path)
	if info.Architecture != "" {
		ev = ev.Str("arch", info.Architecture).Str("quant", info.Quantization)
	}
	ev.Msg("model loaded")
	return nil
}

// UnloadModel removes (kind, name) from the registry. Requests already
// holding the handle keep running; cache entries keyed to the name are
// purged so no stale completion outlives its runtime.
func (e *Engine) UnloadModel(kind, name string) error {
	mod, err := runtime.ParseModality(kind)
	if err != nil {
		return err
	}
	if !e.registry.Remove(mod, name) {
		return ErrModelNotFound(name)
	}
	lifecycleOpsTotal.WithLabelValues("unload").Inc()

	purged, err := e.cache.PurgeModel(name)
	if err != nil {
		cacheOps.WithLabelValues("error").Inc()
		e.log.Warn().Err(err).Str("model", name).Msg("cache purge failed")
	} else if purged > 0 {
		cacheOps.WithLabelValues("purge").Add(float64(purged))
	}
	e.log.Info().Str("kind", string(mod)).Str("model", name).Int("cache_purged", purged).Msg("model unloaded")
	return nil
}

// ListModels returns a read-only snapshot of registered names per modality.
func (e *Engine) ListModels() types.ModelsListResponse {
	return types.ModelsListResponse{
		Text:       e.registry.List(runtime.ModalityText),
		Embedding:  e.registry.List(runtime.ModalityEmbedding),
		Multimodal: e.registry.List(runtime.ModalityMultimodal),
		Image:      e.registry.List(runtime.ModalityImage),
	}
}
