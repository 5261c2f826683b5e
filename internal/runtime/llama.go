//go:build llama

package runtime

import (
	"context"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"
)

// llamaGenerator runs a GGUF model in-process through go-llama.cpp. The model
// is loaded lazily on first use and reused across requests; llama.cpp does
// not support concurrent prediction on one context, so generation is
// serialized per handle.
type llamaGenerator struct {
	path string
	info GGUFInfo
	opts LlamaOptions

	mu    sync.Mutex
	model *llama.LLama
}

func newLlamaGenerator(path string, info GGUFInfo, opts LlamaOptions) TextGenerator {
	return &llamaGenerator{path: path, info: info, opts: opts}
}

func (g *llamaGenerator) ensureLoaded() error {
	if g.model != nil {
		return nil
	}
	mo := []llama.ModelOption{}
	if g.opts.CtxSize > 0 {
		mo = append(mo, llama.SetContext(g.opts.CtxSize))
	}
	m, err := llama.New(g.path, mo...)
	if err != nil {
		return err
	}
	g.model = m
	return nil
}

func (g *llamaGenerator) Generate(ctx context.Context, prompt string, opts GenerateOptions, onToken func(string) error) (FinalResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.ensureLoaded(); err != nil {
		return FinalResult{}, err
	}

	count := 0
	g.model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		if onToken != nil {
			if err := onToken(tok); err != nil {
				return false
			}
		}
		count++
		return true
	})

	threads := g.opts.Threads
	if threads <= 0 {
		threads = 1
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	po := []llama.PredictOption{
		llama.SetTokens(maxTokens),
		llama.SetThreads(threads),
		llama.SetTemperature(float32(opts.Temperature)),
		llama.SetTopP(float32(opts.TopP)),
	}

	text, err := g.model.Predict(prompt, po...)
	if err != nil {
		if ctx.Err() != nil {
			return FinalResult{}, ctx.Err()
		}
		return FinalResult{}, err
	}

	finish := "stop"
	if count >= maxTokens {
		finish = "length"
	}
	promptTokens := approxTokens(prompt)
	return FinalResult{
		Content:      text,
		FinishReason: finish,
		Usage: TokenUsage{
			PromptTokens:     promptTokens,
			CompletionTokens: count,
			TotalTokens:      promptTokens + count,
		},
	}, nil
}

func (g *llamaGenerator) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.model != nil {
		g.model.Free()
		g.model = nil
	}
	return nil
}
