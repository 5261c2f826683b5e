package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"inferd/internal/cache"
	"inferd/internal/config"
	"inferd/internal/engine"
	"inferd/internal/httpapi"
	"inferd/internal/registry"
	"inferd/internal/runtime"
	"inferd/pkg/types"
)

var flags struct {
	configPath string
	addr       string
	modelsDir  string

	maxConcurrency int
	queueDepth     int

	cacheCapacity   int
	cacheTTLSeconds int

	defaultText       string
	defaultEmbedding  string
	defaultMultimodal string
	defaultImage      string

	llamaCtxSize int
	llamaThreads int

	apiKeys  string
	logLevel string
}

func main() {
	root := &cobra.Command{
		Use:           "inferd",
		Short:         "Local OpenAI-compatible inference daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
	f := serve.Flags()
	f.StringVar(&flags.configPath, "config", "", "Optional config file (.toml, .yaml, .json)")
	f.StringVar(&flags.addr, "addr", "", "HTTP listen address, e.g. :8080")
	f.StringVar(&flags.modelsDir, "models-dir", "", "Directory to scan for *.gguf model files")
	f.IntVar(&flags.maxConcurrency, "max-concurrency", 0, "Max concurrently executing inference calls (0=default)")
	f.IntVar(&flags.queueDepth, "queue-depth", 0, "Bounded admission queue depth (0=default)")
	f.IntVar(&flags.cacheCapacity, "cache-capacity", 0, "Response cache entry capacity (0=default)")
	f.IntVar(&flags.cacheTTLSeconds, "cache-ttl", 0, "Response cache TTL in seconds (0=default)")
	f.StringVar(&flags.defaultText, "default-text-model", "", "Default text model when request omits one")
	f.StringVar(&flags.defaultEmbedding, "default-embedding-model", "", "Default embedding model when request omits one")
	f.StringVar(&flags.defaultMultimodal, "default-multimodal-model", "", "Default multimodal model when request omits one")
	f.StringVar(&flags.defaultImage, "default-image-model", "", "Default image model when request omits one")
	f.IntVar(&flags.llamaCtxSize, "llama-ctx-size", 0, "Context size for file-backed text models")
	f.IntVar(&flags.llamaThreads, "llama-threads", 0, "Thread count for file-backed text models")
	f.StringVar(&flags.apiKeys, "api-keys", "", "Comma-separated API keys; empty disables auth")
	f.StringVar(&flags.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	root.AddCommand(serve)

	if err := root.Execute(); err != nil {
		log := newLogger(flags.logLevel)
		log.Fatal().Err(err).Msg("inferd exited")
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	log := newLogger(flags.logLevel)

	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	var models []types.Model
	if cfg.ModelsDir != "" {
		scanned, err := registry.ScanDir(cfg.ModelsDir)
		if err != nil {
			log.Warn().Str("dir", cfg.ModelsDir).Err(err).Msg("model directory scan failed")
		} else {
			models = scanned
			log.Info().Int("count", len(scanned)).Str("dir", cfg.ModelsDir).Msg("scanned model directory")
		}
	}

	eng := engine.New(engine.Config{
		Registry:          models,
		DefaultText:       cfg.DefaultTextModel,
		DefaultEmbedding:  cfg.DefaultEmbeddingModel,
		DefaultMultimodal: cfg.DefaultMultimodalModel,
		DefaultImage:      cfg.DefaultImageModel,
		GateCapacity:      cfg.MaxConcurrency,
		QueueDepth:        cfg.QueueDepth,
		Cache:             cache.NewMemory(cfg.CacheCapacity, time.Duration(cfg.CacheTTLSeconds)*time.Second),
		Llama:             runtime.LlamaOptions{CtxSize: cfg.LlamaCtxSize, Threads: cfg.LlamaThreads},
		Logger:            log.With().Str("component", "engine").Logger(),
	})

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	mux := httpapi.NewMux(eng, httpapi.Options{
		BaseCtx:            baseCtx,
		APIKeys:            cfg.APIKeys,
		MaxBodyBytes:       cfg.MaxBodyBytes,
		CORSEnabled:        cfg.CORSEnabled,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:             log.With().Str("component", "http").Logger(),
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("inferd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	// Cancel in-flight work, then drain connections.
	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	return nil
}

// resolveConfig layers flags over the optional config file over env defaults.
func resolveConfig() (config.Config, error) {
	var cfg config.Config
	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if flags.addr != "" {
		cfg.Addr = flags.addr
	}
	if cfg.Addr == "" {
		cfg.Addr = envOr("INFERD_ADDR", ":8080")
	}
	if flags.modelsDir != "" {
		cfg.ModelsDir = flags.modelsDir
	}
	if cfg.ModelsDir == "" {
		cfg.ModelsDir = os.Getenv("INFERD_MODELS_DIR")
	}
	if flags.maxConcurrency > 0 {
		cfg.MaxConcurrency = flags.maxConcurrency
	}
	if flags.queueDepth > 0 {
		cfg.QueueDepth = flags.queueDepth
	}
	if flags.cacheCapacity > 0 {
		cfg.CacheCapacity = flags.cacheCapacity
	}
	if flags.cacheTTLSeconds > 0 {
		cfg.CacheTTLSeconds = flags.cacheTTLSeconds
	}
	if flags.defaultText != "" {
		cfg.DefaultTextModel = flags.defaultText
	}
	if flags.defaultEmbedding != "" {
		cfg.DefaultEmbeddingModel = flags.defaultEmbedding
	}
	if flags.defaultMultimodal != "" {
		cfg.DefaultMultimodalModel = flags.defaultMultimodal
	}
	if flags.defaultImage != "" {
		cfg.DefaultImageModel = flags.defaultImage
	}
	if flags.llamaCtxSize > 0 {
		cfg.LlamaCtxSize = flags.llamaCtxSize
	}
	if flags.llamaThreads > 0 {
		cfg.LlamaThreads = flags.llamaThreads
	}
	if flags.apiKeys != "" {
		cfg.APIKeys = splitCSV(flags.apiKeys)
	}
	if len(cfg.APIKeys) == 0 {
		cfg.APIKeys = splitCSV(os.Getenv("INFERD_API_KEYS"))
	}
	return cfg, nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated list, trimming whitespace and dropping
// empty elements.
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
