// Package runtime defines the capability contracts satisfied by model
// backends and provides the built-in deterministic implementations. The
// scheduler treats backends as opaque: it resolves a handle by modality and
// name, invokes the capability method, and never inspects what is behind it.
package runtime

import (
	"context"
	"fmt"
)

// Modality classifies a request and the backends able to serve it.
type Modality string

const (
	ModalityText       Modality = "text"
	ModalityEmbedding  Modality = "embedding"
	ModalityMultimodal Modality = "multimodal"
	ModalityImage      Modality = "image"
)

// ParseModality maps a wire string to a Modality.
func ParseModality(s string) (Modality, error) {
	switch s {
	case "text", "llm":
		return ModalityText, nil
	case "embedding":
		return ModalityEmbedding, nil
	case "multimodal", "vision":
		return ModalityMultimodal, nil
	case "image":
		return ModalityImage, nil
	}
	return "", fmt.Errorf("unknown modality: %q", s)
}

// Runtime is the common surface of every backend. Close releases any
// backend-owned resources (mapped files, native sessions).
type Runtime interface {
	Close() error
}

// TextGenerator produces a completion for a prompt, invoking onToken for
// each increment. Implementations must return promptly once ctx is canceled
// or onToken reports an error.
type TextGenerator interface {
	Runtime
	Generate(ctx context.Context, prompt string, opts GenerateOptions, onToken func(string) error) (FinalResult, error)
}

// Embedder turns input strings into fixed-dimension vectors.
type Embedder interface {
	Runtime
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// VisionGenerator produces a completion conditioned on text plus images.
type VisionGenerator interface {
	Runtime
	GenerateVision(ctx context.Context, prompt string, imageURLs []string, opts GenerateOptions, onToken func(string) error) (FinalResult, error)
}

// ImageGenerator produces n images for a prompt.
type ImageGenerator interface {
	Runtime
	GenerateImages(ctx context.Context, prompt string, n int, size string) ([][]byte, error)
}

// GenerateOptions carries sampling parameters after defaults are applied.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// Generation defaults used when the request leaves a parameter unset.
const (
	DefaultMaxTokens   = 256
	DefaultTemperature = 0.8
	DefaultTopP        = 0.95
)

// OptionsFromRequest applies defaults to optional request parameters.
func OptionsFromRequest(maxTokens *int, temperature, topP *float64) GenerateOptions {
	opts := GenerateOptions{
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
		TopP:        DefaultTopP,
	}
	if maxTokens != nil && *maxTokens > 0 {
		opts.MaxTokens = *maxTokens
	}
	if temperature != nil {
		opts.Temperature = *temperature
	}
	if topP != nil {
		opts.TopP = *topP
	}
	return opts
}

// FinalResult summarizes a generation after streaming completes.
type FinalResult struct {
	Content      string
	FinishReason string
	Usage        TokenUsage
}

// TokenUsage contains token accounting for one generation.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
