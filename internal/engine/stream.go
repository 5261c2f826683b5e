package engine

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"inferd/pkg/types"
)

// streamState tracks the protocol state machine of one streaming session:
// open → emitting → done, or open/emitting → aborted.
type streamState int

const (
	streamOpen streamState = iota
	streamEmitting
	streamDone
	streamAborted
)

// doneSentinel is the literal end-of-stream marker. Nothing may follow it.
const doneSentinel = "data: [DONE]\n\n"

// streamSession turns backend increments into an ordered SSE frame sequence.
// Every frame carries the owning request id and a strictly increasing seq;
// the session refuses to emit once it reached a terminal state. Sessions are
// confined to one request goroutine and need no locking.
type streamSession struct {
	w       io.Writer
	flush   func()
	id      string
	model   string
	created int64
	seq     uint64
	state   streamState
}

func newStreamSession(w io.Writer, flush func(), id, model string) *streamSession {
	return &streamSession{
		w:       w,
		flush:   flush,
		id:      id,
		model:   model,
		created: time.Now().Unix(),
	}
}

// frames reports how many frames have been written so far.
func (s *streamSession) frames() uint64 { return s.seq }

// terminal reports whether the session reached done or aborted.
func (s *streamSession) terminal() bool {
	return s.state == streamDone || s.state == streamAborted
}

func (s *streamSession) emit(delta types.Delta, finish *string) error {
	if s.terminal() {
		return fmt.Errorf("stream session %s already terminal", s.id)
	}
	chunk := types.ChatCompletionChunk{
		ID:      s.id,
		Object:  "chat.completion.chunk",
		Created: s.created,
		Model:   s.model,
		Seq:     s.seq,
		Choices: []types.ChatCompletionChunkChoice{
			{Index: 0, Delta: delta, FinishReason: finish},
		},
	}
	payload, err := json.Marshal(chunk)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		s.state = streamAborted
		return err
	}
	if s.flush != nil {
		s.flush()
	}
	s.seq++
	s.state = streamEmitting
	return nil
}

// emitRole sends the initial assistant role delta.
func (s *streamSession) emitRole(role string) error {
	return s.emit(types.Delta{Role: &role}, nil)
}

// emitContent sends one content increment.
func (s *streamSession) emitContent(delta string) error {
	return s.emit(types.Delta{Content: &delta}, nil)
}

// finish sends the terminal frame carrying the finish reason, then the
// end-of-stream sentinel, and closes the session.
func (s *streamSession) finish(reason string) error {
	if reason == "" {
		reason = "stop"
	}
	if err := s.emit(types.Delta{}, &reason); err != nil {
		return err
	}
	if _, err := io.WriteString(s.w, doneSentinel); err != nil {
		s.state = streamAborted
		return err
	}
	if s.flush != nil {
		s.flush()
	}
	s.state = streamDone
	return nil
}

// fail makes a best-effort attempt to tell the client the stream broke: a
// terminal frame with finish_reason "error" and no sentinel. Once frames
// are on the wire no structured error body can be substituted, so this is
// the documented boundary, not masked success.
func (s *streamSession) fail() {
	reason := "error"
	_ = s.emit(types.Delta{}, &reason)
	s.state = streamAborted
}
