// Package cache implements the advisory response cache for non-streaming
// completions. A fingerprint is a deterministic hash over the semantically
// relevant request fields; the store is bounded by TTL and capacity. The
// cache is never authoritative: any store failure is treated as a miss.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"inferd/internal/runtime"
	"inferd/pkg/types"
)

// Cache stores completed chat responses keyed by request fingerprint.
// Implementations must be safe for concurrent use. Errors from Get/Put are
// advisory: callers fall through to normal dispatch.
type Cache interface {
	Get(fingerprint string) (types.ChatCompletionResponse, bool, error)
	Put(fingerprint string, resp types.ChatCompletionResponse) error
	// PurgeModel removes every entry whose response was produced by the
	// named model and returns the number of entries removed.
	PurgeModel(model string) (int, error)
	Len() int
}

// Fingerprint hashes the resolved model name, the ordered message sequence
// and the applied generation parameters. Request identifier, arrival time
// and the stream flag deliberately never contribute: two semantically equal
// requests must collide.
func Fingerprint(model string, messages []types.ChatMessage, opts runtime.GenerateOptions) string {
	h := sha256.New()
	writeString(h, model)
	for _, m := range messages {
		writeString(h, m.Role)
		if m.Content.Parts == nil {
			writeString(h, m.Content.Text)
			continue
		}
		for _, p := range m.Content.Parts {
			writeString(h, p.Type)
			writeString(h, p.Text)
			if p.ImageURL != nil {
				writeString(h, p.ImageURL.URL)
			}
		}
	}
	var params [20]byte
	binary.LittleEndian.PutUint32(params[0:4], uint32(opts.MaxTokens))
	binary.LittleEndian.PutUint64(params[4:12], math.Float64bits(opts.Temperature))
	binary.LittleEndian.PutUint64(params[12:20], math.Float64bits(opts.TopP))
	h.Write(params[:])
	return hex.EncodeToString(h.Sum(nil))
}

// writeString writes a length-prefixed string so adjacent fields can never
// alias under concatenation.
func writeString(h hash.Hash, s string) {
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(s)))
	h.Write(n[:])
	h.Write([]byte(s))
}

// Memory is the default in-process store: an expirable LRU bounded by entry
// count and TTL, whichever evicts first.
type Memory struct {
	lru *lru.LRU[string, types.ChatCompletionResponse]
}

// NewMemory constructs a memory cache. capacity <= 0 falls back to 1024
// entries; ttl <= 0 falls back to one minute.
func NewMemory(capacity int, ttl time.Duration) *Memory {
	if capacity <= 0 {
		capacity = 1024
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Memory{lru: lru.NewLRU[string, types.ChatCompletionResponse](capacity, nil, ttl)}
}

func (m *Memory) Get(fingerprint string) (types.ChatCompletionResponse, bool, error) {
	resp, ok := m.lru.Get(fingerprint)
	return resp, ok, nil
}

func (m *Memory) Put(fingerprint string, resp types.ChatCompletionResponse) error {
	m.lru.Add(fingerprint, resp)
	return nil
}

func (m *Memory) PurgeModel(model string) (int, error) {
	purged := 0
	for _, key := range m.lru.Keys() {
		if resp, ok := m.lru.Peek(key); ok && resp.Model == model {
			m.lru.Remove(key)
			purged++
		}
	}
	return purged, nil
}

func (m *Memory) Len() int { return m.lru.Len() }
