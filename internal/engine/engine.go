// Package engine contains the request scheduler: admission control, modality
// dispatch against the runtime registry, the non-streaming cache path, the
// streaming session, and the model lifecycle operations. All HTTP concerns
// stay in httpapi; the engine works with typed requests and io.Writer sinks.
package engine

import (
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"inferd/internal/cache"
	"inferd/internal/registry"
	"inferd/internal/runtime"
	"inferd/pkg/types"
)

// Built-in backend names registered at startup. They act as the per-modality
// fallback when a request omits the model and no other default is configured.
const (
	BuiltinTextModel       = "echo"
	BuiltinEmbeddingModel  = "hash-embedding"
	BuiltinMultimodalModel = "echo-vision"
	BuiltinImageModel      = "placeholder-image"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultGateCapacity = 4
	defaultQueueDepth   = 32
	embeddingDim        = 384
)

// Config encapsulates all tunables for Engine construction.
type Config struct {
	// Models discovered on disk, registered as text handles at startup.
	Registry []types.Model
	// Per-modality default model names; empty fields fall back to the
	// built-in deterministic backends.
	DefaultText       string
	DefaultEmbedding  string
	DefaultMultimodal string
	DefaultImage      string
	// GateCapacity bounds concurrently executing inference calls.
	GateCapacity int
	// QueueDepth bounds the inbound queue; a full queue rejects immediately.
	QueueDepth int
	// Cache for non-streaming completions; nil constructs a memory cache
	// with package defaults.
	Cache cache.Cache
	// Llama configures the native text backend for *.gguf sources.
	Llama runtime.LlamaOptions
	// Logger for lifecycle and stream termination events.
	Logger zerolog.Logger
}

// Engine schedules requests over the registry under bounded concurrency.
type Engine struct {
	log      zerolog.Logger
	registry *registry.Registry
	cache    cache.Cache

	gate    *semaphore.Weighted
	gateCap int
	queueCh chan struct{}

	defaults  map[runtime.Modality]string
	llamaOpts runtime.LlamaOptions
	startTime time.Time
}

// New constructs an Engine, registers the built-in fallback backends, and
// loads the supplied model files as text handles. A model file that fails
// validation is skipped with a log line rather than failing startup.
func New(cfg Config) *Engine {
	e := &Engine{
		log:       cfg.Logger,
		registry:  registry.New(),
		cache:     cfg.Cache,
		gateCap:   cfg.GateCapacity,
		llamaOpts: cfg.Llama,
		startTime: time.Now(),
	}
	if e.gateCap <= 0 {
		e.gateCap = defaultGateCapacity
	}
	queueDepth := cfg.QueueDepth
	if queueDepth <= 0 {
		queueDepth = defaultQueueDepth
	}
	e.gate = semaphore.NewWeighted(int64(e.gateCap))
	e.queueCh = make(chan struct{}, queueDepth)
	if e.cache == nil {
		e.cache = cache.NewMemory(0, 0)
	}

	e.registry.Put(runtime.ModalityText, BuiltinTextModel, runtime.NewEchoGenerator())
	e.registry.Put(runtime.ModalityEmbedding, BuiltinEmbeddingModel, runtime.NewHashEmbedder(embeddingDim))
	e.registry.Put(runtime.ModalityMultimodal, BuiltinMultimodalModel, runtime.NewVisionAdapter(runtime.NewEchoGenerator()))
	e.registry.Put(runtime.ModalityImage, BuiltinImageModel, runtime.NewPlaceholderImageGenerator())

	e.defaults = map[runtime.Modality]string{
		runtime.ModalityText:       orDefault(cfg.DefaultText, BuiltinTextModel),
		runtime.ModalityEmbedding:  orDefault(cfg.DefaultEmbedding, BuiltinEmbeddingModel),
		runtime.ModalityMultimodal: orDefault(cfg.DefaultMultimodal, BuiltinMultimodalModel),
		runtime.ModalityImage:      orDefault(cfg.DefaultImage, BuiltinImageModel),
	}

	for _, mdl := range cfg.Registry {
		gen, info, err := runtime.OpenGGUF(mdl.Path, e.llamaOpts)
		if err != nil {
			e.log.Warn().Str("model", mdl.ID).Str("path", mdl.Path).Err(err).Msg("skipping model file")
			continue
		}
		e.registry.Put(runtime.ModalityText, mdl.ID, gen)
		e.log.Info().
			Str("model", mdl.ID).
			Str("arch", info.Architecture).
			Str("quant", info.Quantization).
			Msg("registered model file")
	}

	return e
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// Ready reports whether the engine can serve text requests.
func (e *Engine) Ready() bool {
	return e.registry.Len(runtime.ModalityText) > 0
}

// Uptime returns how long the engine has been running.
func (e *Engine) Uptime() time.Duration { return time.Since(e.startTime) }

// resolveModel returns the dispatch target for a request: the explicit name
// when present, otherwise the configured per-modality default.
func (e *Engine) resolveModel(mod runtime.Modality, requested string) string {
	if requested != "" {
		return requested
	}
	return e.defaults[mod]
}
