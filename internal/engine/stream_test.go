package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"inferd/internal/runtime"
	"inferd/pkg/types"
)

// parseSSE splits an SSE body into decoded chunks plus a sentinel flag. It
// fails the test if anything follows the sentinel.
func parseSSE(t *testing.T, body string) (chunks []types.ChatCompletionChunk, sentinel bool) {
	t.Helper()
	events := strings.Split(body, "\n\n")
	for _, ev := range events {
		if ev == "" {
			continue
		}
		if sentinel {
			t.Fatalf("frame after sentinel: %q", ev)
		}
		payload, ok := strings.CutPrefix(ev, "data: ")
		if !ok {
			t.Fatalf("malformed event: %q", ev)
		}
		if payload == "[DONE]" {
			sentinel = true
			continue
		}
		var chunk types.ChatCompletionChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			t.Fatalf("chunk json: %v (%q)", err, payload)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, sentinel
}

func TestStream_WellFormedSequence(t *testing.T) {
	e := newTestEngine(t, Config{})
	var buf bytes.Buffer

	req := chatReq("", "one two three")
	req.Stream = true
	flushed := 0
	if err := e.StreamChatCompletion(context.Background(), req, &buf, func() { flushed++ }); err != nil {
		t.Fatalf("stream: %v", err)
	}

	chunks, sentinel := parseSSE(t, buf.String())
	if !sentinel {
		t.Fatal("missing [DONE] sentinel")
	}
	if len(chunks) < 3 {
		t.Fatalf("chunks=%d", len(chunks))
	}
	if flushed == 0 {
		t.Fatal("flush never called")
	}

	// First frame opens with the assistant role.
	first := chunks[0].Choices[0].Delta
	if first.Role == nil || *first.Role != "assistant" {
		t.Fatalf("first delta=%+v", first)
	}

	// One id, strictly increasing seq, exactly one terminal frame at the end.
	id := chunks[0].ID
	var content strings.Builder
	for i, c := range chunks {
		if c.ID != id {
			t.Fatalf("chunk %d id=%s, want %s", i, c.ID, id)
		}
		if c.Seq != uint64(i) {
			t.Fatalf("chunk %d seq=%d", i, c.Seq)
		}
		if c.Object != "chat.completion.chunk" {
			t.Fatalf("object=%s", c.Object)
		}
		fin := c.Choices[0].FinishReason
		if i == len(chunks)-1 {
			if fin == nil || *fin != "stop" {
				t.Fatalf("terminal finish=%v", fin)
			}
		} else if fin != nil {
			t.Fatalf("chunk %d carries finish_reason %q", i, *fin)
		}
		if d := c.Choices[0].Delta.Content; d != nil {
			content.WriteString(*d)
		}
	}
	if content.String() != "Echo: one two three" {
		t.Fatalf("reassembled=%q", content.String())
	}
}

func TestStream_BackendFailureMidStream(t *testing.T) {
	e := newTestEngine(t, Config{})
	e.registry.Put(runtime.ModalityText, "flaky", &failAfterGen{tokens: 2})

	var buf bytes.Buffer
	req := chatReq("flaky", "will break")
	req.Stream = true
	err := e.StreamChatCompletion(context.Background(), req, &buf, nil)
	if !IsStreamAborted(err) {
		t.Fatalf("err=%v, want stream aborted", err)
	}

	chunks, sentinel := parseSSE(t, buf.String())
	if sentinel {
		t.Fatal("aborted stream emitted the sentinel")
	}
	last := chunks[len(chunks)-1]
	if fin := last.Choices[0].FinishReason; fin == nil || *fin != "error" {
		t.Fatalf("terminal finish=%v", fin)
	}
}

func TestStream_ErrorBeforeFirstFrameIsMappable(t *testing.T) {
	e := newTestEngine(t, Config{})
	var buf bytes.Buffer
	req := chatReq("absent", "hi")
	req.Stream = true
	err := e.StreamChatCompletion(context.Background(), req, &buf, nil)
	if !IsModelNotFound(err) {
		t.Fatalf("err=%v", err)
	}
	if IsStreamAborted(err) {
		t.Fatal("pre-frame failure reported as aborted")
	}
	if buf.Len() != 0 {
		t.Fatalf("frames written before failure: %q", buf.String())
	}
}

func TestStream_DisconnectReleasesPermit(t *testing.T) {
	e := newTestEngine(t, Config{GateCapacity: 1, QueueDepth: 1})
	gen := newBlockingGen()
	e.registry.Put(runtime.ModalityText, "blocking", gen)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	var buf bytes.Buffer
	go func() {
		req := chatReq("blocking", "hold")
		req.Stream = true
		done <- e.StreamChatCompletion(ctx, req, &buf, nil)
	}()
	<-gen.started
	cancel()

	err := <-done
	if !IsStreamAborted(err) {
		t.Fatalf("err=%v, want stream aborted", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("cause=%v", err)
	}

	// The permit must be back; the engine still serves.
	if _, err := e.ChatCompletion(context.Background(), chatReq("", "hello")); err != nil {
		t.Fatalf("post-disconnect request: %v", err)
	}
}

func TestStream_EmptyGenerationStillWellFormed(t *testing.T) {
	e := newTestEngine(t, Config{})
	e.registry.Put(runtime.ModalityText, "silent", &silentGen{})

	var buf bytes.Buffer
	req := chatReq("silent", "anything")
	req.Stream = true
	if err := e.StreamChatCompletion(context.Background(), req, &buf, nil); err != nil {
		t.Fatalf("stream: %v", err)
	}
	chunks, sentinel := parseSSE(t, buf.String())
	if !sentinel {
		t.Fatal("missing sentinel")
	}
	// Role frame plus terminal frame.
	if len(chunks) != 2 {
		t.Fatalf("chunks=%d", len(chunks))
	}
	if fin := chunks[1].Choices[0].FinishReason; fin == nil || *fin != "stop" {
		t.Fatalf("finish=%v", fin)
	}
}

// failAfterGen emits n tokens and then fails.
type failAfterGen struct{ tokens int }

func (g *failAfterGen) Generate(ctx context.Context, prompt string, opts runtime.GenerateOptions, onToken func(string) error) (runtime.FinalResult, error) {
	for i := 0; i < g.tokens; i++ {
		if err := onToken("tok "); err != nil {
			return runtime.FinalResult{}, err
		}
	}
	return runtime.FinalResult{}, errors.New("backend exploded")
}

func (g *failAfterGen) Close() error { return nil }

// silentGen produces a result without ever invoking onToken.
type silentGen struct{}

func (g *silentGen) Generate(ctx context.Context, prompt string, opts runtime.GenerateOptions, onToken func(string) error) (runtime.FinalResult, error) {
	return runtime.FinalResult{FinishReason: "stop"}, nil
}

func (g *silentGen) Close() error { return nil }
