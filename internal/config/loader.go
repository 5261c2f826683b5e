package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`

	// Scheduler knobs.
	MaxConcurrency int `json:"max_concurrency" yaml:"max_concurrency" toml:"max_concurrency"`
	QueueDepth     int `json:"queue_depth" yaml:"queue_depth" toml:"queue_depth"`

	// Response cache knobs.
	CacheCapacity   int `json:"cache_capacity" yaml:"cache_capacity" toml:"cache_capacity"`
	CacheTTLSeconds int `json:"cache_ttl_seconds" yaml:"cache_ttl_seconds" toml:"cache_ttl_seconds"`

	// Default model per modality when a request omits one.
	DefaultTextModel       string `json:"default_text_model" yaml:"default_text_model" toml:"default_text_model"`
	DefaultEmbeddingModel  string `json:"default_embedding_model" yaml:"default_embedding_model" toml:"default_embedding_model"`
	DefaultMultimodalModel string `json:"default_multimodal_model" yaml:"default_multimodal_model" toml:"default_multimodal_model"`
	DefaultImageModel      string `json:"default_image_model" yaml:"default_image_model" toml:"default_image_model"`

	// Llama backend tuning, used for file-backed text models.
	LlamaCtxSize int `json:"llama_ctx_size" yaml:"llama_ctx_size" toml:"llama_ctx_size"`
	LlamaThreads int `json:"llama_threads" yaml:"llama_threads" toml:"llama_threads"`

	// API keys accepted by the /v1 and /admin groups. Empty disables auth.
	APIKeys []string `json:"api_keys" yaml:"api_keys" toml:"api_keys"`

	// Optional CORS settings.
	CORSEnabled        bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins"`

	MaxBodyBytes int64 `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
