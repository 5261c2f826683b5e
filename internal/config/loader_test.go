package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "cfg.yaml", `
addr: ":9090"
models_dir: "/models"
max_concurrency: 8
queue_depth: 64
cache_ttl_seconds: 120
default_text_model: "mistral"
api_keys:
  - "k1"
  - "k2"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.ModelsDir != "/models" {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.MaxConcurrency != 8 || cfg.QueueDepth != 64 || cfg.CacheTTLSeconds != 120 {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.DefaultTextModel != "mistral" || len(cfg.APIKeys) != 2 {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "cfg.toml", `
addr = ":7070"
cache_capacity = 2048
cors_enabled = true
cors_allowed_origins = ["http://localhost:3000"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.CacheCapacity != 2048 {
		t.Fatalf("cfg=%+v", cfg)
	}
	if !cfg.CORSEnabled || len(cfg.CORSAllowedOrigins) != 1 {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "cfg.json", `{"addr":":6060","llama_threads":4}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":6060" || cfg.LlamaThreads != 4 {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatal("empty path accepted")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("missing file accepted")
	}
	path := writeFile(t, "cfg.ini", "addr=:8080")
	if _, err := Load(path); err == nil {
		t.Fatal("unsupported extension accepted")
	}
	bad := writeFile(t, "bad.json", "{nope")
	if _, err := Load(bad); err == nil {
		t.Fatal("malformed json accepted")
	}
}
