package runtime

import (
	"context"
	"fmt"
)

// VisionAdapter satisfies the multimodal contract by annotating the prompt
// with the image count and delegating generation to a text backend. Running
// a real vision encoder and conditioning on visual tokens is a backend
// concern; the scheduler only needs the capability surface.
type VisionAdapter struct {
	llm TextGenerator
}

// NewVisionAdapter wraps a text generator as a multimodal backend.
func NewVisionAdapter(llm TextGenerator) *VisionAdapter {
	return &VisionAdapter{llm: llm}
}

func (v *VisionAdapter) GenerateVision(ctx context.Context, prompt string, imageURLs []string, opts GenerateOptions, onToken func(string) error) (FinalResult, error) {
	augmented := prompt
	if len(imageURLs) > 0 {
		augmented = fmt.Sprintf("[images:%d] %s", len(imageURLs), prompt)
	}
	return v.llm.Generate(ctx, augmented, opts, onToken)
}

func (v *VisionAdapter) Close() error { return v.llm.Close() }
