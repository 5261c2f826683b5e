//go:build !llama

package runtime

import "context"

// This file is compiled when the 'llama' build tag is NOT set, keeping
// default builds and CI CGO-free. The generator still validates and carries
// GGUF metadata, but refuses to run inference instead of mocking output.

type llamaGenerator struct {
	path string
	info GGUFInfo
}

func newLlamaGenerator(path string, info GGUFInfo, _ LlamaOptions) TextGenerator {
	return &llamaGenerator{path: path, info: info}
}

func (g *llamaGenerator) Generate(ctx context.Context, prompt string, opts GenerateOptions, onToken func(string) error) (FinalResult, error) {
	return FinalResult{}, ErrBackendUnavailable("binary built without llama support (rebuild with -tags=llama)")
}

func (g *llamaGenerator) Close() error { return nil }
