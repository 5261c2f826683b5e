package types

import (
	"encoding/json"
	"testing"
)

func TestMessageContent_UnmarshalString(t *testing.T) {
	var m ChatMessage
	if err := json.Unmarshal([]byte(`{"role":"user","content":"hello"}`), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Content.Text != "hello" || m.Content.Parts != nil {
		t.Fatalf("content=%+v", m.Content)
	}
	if m.Content.PromptText() != "hello" {
		t.Fatalf("prompt=%q", m.Content.PromptText())
	}
	if m.Content.HasImages() {
		t.Fatal("plain text reported images")
	}
}

func TestMessageContent_UnmarshalParts(t *testing.T) {
	raw := `{"role":"user","content":[
		{"type":"text","text":"what is "},
		{"type":"text","text":"this"},
		{"type":"image_url","image_url":{"url":"http://x/cat.png"}}
	]}`
	var m ChatMessage
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(m.Content.Parts) != 3 {
		t.Fatalf("parts=%d", len(m.Content.Parts))
	}
	if m.Content.PromptText() != "what is this" {
		t.Fatalf("prompt=%q", m.Content.PromptText())
	}
	urls := m.Content.ImageURLs()
	if len(urls) != 1 || urls[0] != "http://x/cat.png" {
		t.Fatalf("urls=%v", urls)
	}
	if !m.Content.HasImages() {
		t.Fatal("image part not detected")
	}
}

func TestMessageContent_UnmarshalInvalid(t *testing.T) {
	var m ChatMessage
	if err := json.Unmarshal([]byte(`{"role":"user","content":42}`), &m); err == nil {
		t.Fatal("numeric content accepted")
	}
}

func TestMessageContent_MarshalRoundTrip(t *testing.T) {
	orig := ChatMessage{Role: "user", Content: MessageContent{Text: "hi"}}
	b, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back ChatMessage
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Content.Text != "hi" {
		t.Fatalf("content=%+v", back.Content)
	}
}

func TestEmbeddingInput_String(t *testing.T) {
	var req EmbeddingsRequest
	if err := json.Unmarshal([]byte(`{"input":"just one"}`), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(req.Input) != 1 || req.Input[0] != "just one" {
		t.Fatalf("input=%v", req.Input)
	}
}

func TestEmbeddingInput_List(t *testing.T) {
	var req EmbeddingsRequest
	if err := json.Unmarshal([]byte(`{"input":["a","b"]}`), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(req.Input) != 2 {
		t.Fatalf("input=%v", req.Input)
	}
}

func TestEmbeddingInput_Null(t *testing.T) {
	var req EmbeddingsRequest
	if err := json.Unmarshal([]byte(`{"input":null}`), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(req.Input) != 0 {
		t.Fatalf("null input decoded to %v", req.Input)
	}
}

func TestMessageContent_UnmarshalNull(t *testing.T) {
	var m ChatMessage
	if err := json.Unmarshal([]byte(`{"role":"user","content":null}`), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Content.Text != "" || m.Content.Parts != nil {
		t.Fatalf("null content decoded to %+v", m.Content)
	}
}

func TestEmbeddingInput_Invalid(t *testing.T) {
	var req EmbeddingsRequest
	if err := json.Unmarshal([]byte(`{"input":{"k":"v"}}`), &req); err == nil {
		t.Fatal("object input accepted")
	}
}

func TestChatCompletionRequest_OptionalFields(t *testing.T) {
	raw := `{"model":"m","messages":[{"role":"user","content":"x"}],"max_tokens":8,"temperature":0.2}`
	var req ChatCompletionRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if req.MaxTokens == nil || *req.MaxTokens != 8 {
		t.Fatalf("max_tokens=%v", req.MaxTokens)
	}
	if req.Temperature == nil || *req.Temperature != 0.2 {
		t.Fatalf("temperature=%v", req.Temperature)
	}
	if req.TopP != nil {
		t.Fatalf("top_p=%v", req.TopP)
	}
}
