// ABOUTME: Request and response types for chat completion and image generation calls.
// ABOUTME: Completer and ImageClient are the seams steps depend on, so tests can fake them.
package llm

import "context"

// ChatRequest is a single-turn chat completion with an optional attached image.
type ChatRequest struct {
	Model        string
	System       string
	Prompt       string
	ImageDataURL string // data: URL or remote URL sent as an image content part
	ImageDetail  string // "auto", "low", or "high"; empty means provider default
	MaxTokens    int
	Temperature  *float64
}

// ChatResponse is the text answer plus usage accounting.
type ChatResponse struct {
	Text             string
	Model            string
	PromptTokens     int64
	CompletionTokens int64
}

// ImageRequest asks a hosted model to render a prompt.
type ImageRequest struct {
	Prompt string
	Model  string
	Size   string // e.g. "1024x1024"
}

// ImageResponse carries decoded image bytes.
type ImageResponse struct {
	Data          []byte
	RevisedPrompt string
	Model         string
}

// Completer produces chat completions.
type Completer interface {
	Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ImageClient renders images from text prompts.
type ImageClient interface {
	GenerateImage(ctx context.Context, req ImageRequest) (*ImageResponse, error)
}

// Float returns a pointer to v, for ChatRequest.Temperature.
func Float(v float64) *float64 {
	return &v
}
