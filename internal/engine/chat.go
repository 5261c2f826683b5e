package engine

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"inferd/internal/cache"
	"inferd/internal/runtime"
	"inferd/pkg/types"
)

// chatModality routes a chat request: any image content part means the
// multimodal backend; everything else is plain text generation.
func chatModality(req types.ChatCompletionRequest) runtime.Modality {
	for _, m := range req.Messages {
		if m.Content.HasImages() {
			return runtime.ModalityMultimodal
		}
	}
	return runtime.ModalityText
}

// flattenChat extracts the prompt (the last message's text) and every image
// reference in message order.
func flattenChat(messages []types.ChatMessage) (prompt string, imageURLs []string) {
	if n := len(messages); n > 0 {
		prompt = messages[n-1].Content.PromptText()
	}
	for _, m := range messages {
		imageURLs = append(imageURLs, m.Content.ImageURLs()...)
	}
	return prompt, imageURLs
}

// newCompletionID mints a response identifier.
func newCompletionID() string { return "chatcmpl-" + uuid.NewString() }

// generate runs the resolved handle's capability for a chat request,
// forwarding increments to onToken when non-nil.
func (e *Engine) generate(ctx context.Context, mod runtime.Modality, name string, req types.ChatCompletionRequest, opts runtime.GenerateOptions, onToken func(string) error) (runtime.FinalResult, error) {
	handle, ok := e.registry.Acquire(mod, name)
	if !ok {
		return runtime.FinalResult{}, ErrModelNotFound(name)
	}
	defer handle.Release()

	prompt, imageURLs := flattenChat(req.Messages)

	var final runtime.FinalResult
	var err error
	switch mod {
	case runtime.ModalityMultimodal:
		vg, isVision := handle.Runtime().(runtime.VisionGenerator)
		if !isVision {
			return runtime.FinalResult{}, ErrModelNotFound(name)
		}
		final, err = vg.GenerateVision(ctx, prompt, imageURLs, opts, onToken)
	default:
		tg, isText := handle.Runtime().(runtime.TextGenerator)
		if !isText {
			return runtime.FinalResult{}, ErrModelNotFound(name)
		}
		final, err = tg.Generate(ctx, prompt, opts, onToken)
	}
	if err != nil {
		if ctx.Err() != nil {
			return runtime.FinalResult{}, ctx.Err()
		}
		if runtime.IsBackendUnavailable(err) {
			return runtime.FinalResult{}, err
		}
		return runtime.FinalResult{}, ErrRuntime(name, err)
	}
	return final, nil
}

// ChatCompletion serves the non-streaming path: cache consult, admission,
// dispatch, response assembly, cache store. The cache is advisory; any store
// failure falls through to normal dispatch.
func (e *Engine) ChatCompletion(ctx context.Context, req types.ChatCompletionRequest) (types.ChatCompletionResponse, error) {
	requestsTotal.WithLabelValues("chat").Inc()
	start := time.Now()

	mod := chatModality(req)
	name := e.resolveModel(mod, req.Model)
	opts := runtime.OptionsFromRequest(req.MaxTokens, req.Temperature, req.TopP)

	fp := cache.Fingerprint(name, req.Messages, opts)
	if resp, hit, err := e.cache.Get(fp); err != nil {
		cacheOps.WithLabelValues("error").Inc()
		e.log.Warn().Err(err).Msg("cache get failed, treating as miss")
	} else if hit {
		cacheOps.WithLabelValues("hit").Inc()
		return resp, nil
	} else {
		cacheOps.WithLabelValues("miss").Inc()
	}

	release, err := e.admit(ctx)
	if err != nil {
		return types.ChatCompletionResponse{}, err
	}
	defer release()

	final, err := e.generate(ctx, mod, name, req, opts, nil)
	if err != nil {
		return types.ChatCompletionResponse{}, err
	}

	resp := types.ChatCompletionResponse{
		ID:      newCompletionID(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   name,
		Choices: []types.ChatCompletionChoice{
			{
				Index:        0,
				Message:      types.ResponseMessage{Role: "assistant", Content: final.Content},
				FinishReason: final.FinishReason,
			},
		},
		Usage: types.Usage{
			PromptTokens:     final.Usage.PromptTokens,
			CompletionTokens: final.Usage.CompletionTokens,
			TotalTokens:      final.Usage.TotalTokens,
		},
	}

	if err := e.cache.Put(fp, resp); err != nil {
		cacheOps.WithLabelValues("error").Inc()
		e.log.Warn().Err(err).Msg("cache put failed")
	} else {
		cacheOps.WithLabelValues("store").Inc()
	}

	requestDuration.WithLabelValues("chat").Observe(time.Since(start).Seconds())
	return resp, nil
}

// StreamChatCompletion serves the streaming path over the identical
// admission/dispatch pipeline; only the sink differs. An error returned
// before any frame was written can still be mapped to a structured error
// body by the caller; IsStreamAborted errors mean frames are already on the
// wire and the connection should simply be closed.
func (e *Engine) StreamChatCompletion(ctx context.Context, req types.ChatCompletionRequest, w io.Writer, flush func()) error {
	requestsTotal.WithLabelValues("chat_stream").Inc()
	start := time.Now()

	mod := chatModality(req)
	name := e.resolveModel(mod, req.Model)
	opts := runtime.OptionsFromRequest(req.MaxTokens, req.Temperature, req.TopP)

	release, err := e.admit(ctx)
	if err != nil {
		return err
	}
	defer release()

	sess := newStreamSession(w, flush, newCompletionID(), name)

	onToken := func(tok string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if sess.frames() == 0 {
			if err := sess.emitRole("assistant"); err != nil {
				return err
			}
		}
		return sess.emitContent(tok)
	}

	final, err := e.generate(ctx, mod, name, req, opts, onToken)
	if err != nil {
		if ctx.Err() != nil {
			streamsAbortedTotal.WithLabelValues("disconnect").Inc()
			e.log.Info().Str("model", name).Uint64("frames", sess.frames()).Msg("stream canceled by client")
			return ErrStreamAborted(ctx.Err())
		}
		if sess.frames() > 0 {
			sess.fail()
			streamsAbortedTotal.WithLabelValues("backend").Inc()
			e.log.Error().Err(err).Str("model", name).Uint64("frames", sess.frames()).Msg("backend failed mid-stream")
			return ErrStreamAborted(err)
		}
		return err
	}

	if sess.frames() == 0 {
		// Backend produced no increments; still open the stream so the
		// client sees a well-formed role + terminal sequence.
		if err := sess.emitRole("assistant"); err != nil {
			return ErrStreamAborted(err)
		}
	}
	if err := sess.finish(final.FinishReason); err != nil {
		streamsAbortedTotal.WithLabelValues("disconnect").Inc()
		return ErrStreamAborted(err)
	}

	requestDuration.WithLabelValues("chat_stream").Observe(time.Since(start).Seconds())
	return nil
}
