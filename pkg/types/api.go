package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ChatCompletionRequest is the body of POST /v1/chat/completions.
type ChatCompletionRequest struct {
	// Optional model name. If empty, the server default is used.
	Model string `json:"model,omitempty"`
	// Ordered conversation messages.
	Messages []ChatMessage `json:"messages"`
	// If true, stream chunks as server-sent events.
	Stream bool `json:"stream,omitempty"`
	// Maximum number of new tokens to generate.
	MaxTokens *int `json:"max_tokens,omitempty"`
	// Sampling temperature (higher = more random).
	Temperature *float64 `json:"temperature,omitempty"`
	// Nucleus sampling probability.
	TopP *float64 `json:"top_p,omitempty"`
}

// ChatMessage is one conversation turn. Content accepts either a plain
// string or an array of typed content parts (text / image_url).
type ChatMessage struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
}

// ContentPart is one element of a multi-part message content array.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL wraps an image reference inside a content part.
type ImageURL struct {
	URL string `json:"url"`
}

// MessageContent holds either plain text or structured content parts.
// Exactly one of Text/Parts is populated after unmarshaling.
type MessageContent struct {
	Text  string
	Parts []ContentPart
}

func (c *MessageContent) UnmarshalJSON(b []byte) error {
	// A json.Unmarshal of the null literal into *string is a silent no-op,
	// so it must be handled before the string attempt.
	if string(b) == "null" {
		*c = MessageContent{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		c.Text = s
		c.Parts = nil
		return nil
	}
	var parts []ContentPart
	if err := json.Unmarshal(b, &parts); err == nil {
		c.Text = ""
		c.Parts = parts
		return nil
	}
	return fmt.Errorf("content must be a string or an array of content parts")
}

func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.Parts != nil {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

// PromptText returns the concatenated text portions of the content.
func (c MessageContent) PromptText() string {
	if c.Parts == nil {
		return c.Text
	}
	var sb strings.Builder
	for _, p := range c.Parts {
		if p.Type == "text" {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// ImageURLs returns all image references in the content, in order.
func (c MessageContent) ImageURLs() []string {
	var urls []string
	for _, p := range c.Parts {
		if p.Type == "image_url" && p.ImageURL != nil {
			urls = append(urls, p.ImageURL.URL)
		}
	}
	return urls
}

// HasImages reports whether the content carries any image parts.
func (c MessageContent) HasImages() bool {
	for _, p := range c.Parts {
		if p.Type == "image_url" {
			return true
		}
	}
	return false
}

// ChatCompletionResponse is a non-streaming completion result.
type ChatCompletionResponse struct {
	ID      string                 `json:"id"`
	Object  string                 `json:"object"`
	Created int64                  `json:"created"`
	Model   string                 `json:"model"`
	Choices []ChatCompletionChoice `json:"choices"`
	Usage   Usage                  `json:"usage"`
}

// ChatCompletionChoice is one generated alternative.
type ChatCompletionChoice struct {
	Index        int             `json:"index"`
	Message      ResponseMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

// ResponseMessage is the assistant message of a completed choice.
type ResponseMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage carries token accounting for a completed request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionChunk is one streamed SSE frame payload. Seq is a
// monotonically increasing index within a single stream.
type ChatCompletionChunk struct {
	ID      string                      `json:"id"`
	Object  string                      `json:"object"`
	Created int64                       `json:"created"`
	Model   string                      `json:"model"`
	Seq     uint64                      `json:"seq"`
	Choices []ChatCompletionChunkChoice `json:"choices"`
}

// ChatCompletionChunkChoice is the delta element of a streamed chunk.
type ChatCompletionChunkChoice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

// Delta carries the incremental part of a streamed message.
type Delta struct {
	Role    *string `json:"role,omitempty"`
	Content *string `json:"content,omitempty"`
}

// EmbeddingsRequest is the body of POST /v1/embeddings.
type EmbeddingsRequest struct {
	Model string         `json:"model,omitempty"`
	Input EmbeddingInput `json:"input"`
}

// EmbeddingInput accepts a single string or an array of strings and
// normalizes to a list.
type EmbeddingInput []string

func (in *EmbeddingInput) UnmarshalJSON(b []byte) error {
	// null must yield an empty input, not [""], or it would slip past the
	// handler's emptiness check.
	if string(b) == "null" {
		*in = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*in = EmbeddingInput{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*in = EmbeddingInput(list)
		return nil
	}
	return fmt.Errorf("input must be a string or an array of strings")
}

func (in EmbeddingInput) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string(in))
}

// EmbeddingsResponse is the result of POST /v1/embeddings.
type EmbeddingsResponse struct {
	Object string            `json:"object"`
	Data   []EmbeddingObject `json:"data"`
	Model  string            `json:"model"`
	Usage  EmbeddingUsage    `json:"usage"`
}

// EmbeddingObject is one vector in an embeddings response.
type EmbeddingObject struct {
	Object    string    `json:"object"`
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

// EmbeddingUsage carries token accounting for an embeddings request.
type EmbeddingUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// ImagesGenerationRequest is the body of POST /v1/images/generations.
type ImagesGenerationRequest struct {
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt"`
	N      int    `json:"n,omitempty"`
	Size   string `json:"size,omitempty"`
}

// ImagesGenerationResponse is the result of POST /v1/images/generations.
type ImagesGenerationResponse struct {
	Created int64             `json:"created"`
	Data    []ImageDataObject `json:"data"`
}

// ImageDataObject is one generated image, base64-encoded.
type ImageDataObject struct {
	B64JSON string `json:"b64_json,omitempty"`
	URL     string `json:"url,omitempty"`
}

// LoadModelRequest is the body of POST /admin/models/load.
type LoadModelRequest struct {
	Model string `json:"model"`
	// Modality: "text" | "embedding" | "multimodal" | "image".
	Kind string `json:"kind"`
	// Backend source, e.g. a *.gguf file path. Optional: when empty a
	// built-in deterministic backend is registered under the name.
	Path string `json:"path,omitempty"`
}

// UnloadModelRequest is the body of POST /admin/models/unload.
type UnloadModelRequest struct {
	Model string `json:"model"`
	Kind  string `json:"kind"`
}

// ModelsListResponse is returned by GET /admin/models.
type ModelsListResponse struct {
	Text       []string `json:"text"`
	Embedding  []string `json:"embedding"`
	Multimodal []string `json:"multimodal"`
	Image      []string `json:"image"`
}

// ErrorResponse is the uniform error body across all endpoints.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the message, a stable machine-readable type and the
// HTTP status code of an error.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}
