package runtime

import (
	"context"
	"strings"
)

// EchoGenerator is the built-in fallback text backend. It deterministically
// echoes the prompt truncated to MaxTokens characters, streaming one
// whitespace-delimited piece per token callback. It exists so the serving
// pipeline works end to end on machines without any native backend.
type EchoGenerator struct{}

// NewEchoGenerator constructs the fallback text backend.
func NewEchoGenerator() *EchoGenerator { return &EchoGenerator{} }

func (g *EchoGenerator) Generate(ctx context.Context, prompt string, opts GenerateOptions, onToken func(string) error) (FinalResult, error) {
	runes := []rune(prompt)
	finish := "stop"
	if opts.MaxTokens > 0 && len(runes) > opts.MaxTokens {
		runes = runes[:opts.MaxTokens]
		finish = "length"
	}
	content := "Echo: " + string(runes)

	pieces := strings.SplitAfter(content, " ")
	emitted := 0
	for _, piece := range pieces {
		if piece == "" {
			continue
		}
		select {
		case <-ctx.Done():
			return FinalResult{}, ctx.Err()
		default:
		}
		if onToken != nil {
			if err := onToken(piece); err != nil {
				return FinalResult{}, err
			}
		}
		emitted++
	}

	promptTokens := approxTokens(prompt)
	return FinalResult{
		Content:      content,
		FinishReason: finish,
		Usage: TokenUsage{
			PromptTokens:     promptTokens,
			CompletionTokens: emitted,
			TotalTokens:      promptTokens + emitted,
		},
	}, nil
}

func (g *EchoGenerator) Close() error { return nil }

// approxTokens is the usual 4-chars-per-token rough estimate.
func approxTokens(s string) int { return len(s) / 4 }
