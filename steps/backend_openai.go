// ABOUTME: Image backend that renders prompts with a hosted OpenAI image model.
package steps

import (
	"context"

	"github.com/saicharanallam/sigmachain/llm"
)

// OpenAIImageBackend generates images through the OpenAI Images API.
type OpenAIImageBackend struct {
	client llm.ImageClient
	model  string
	size   string
}

// NewOpenAIImageBackend creates a backend for the given image model and size.
func NewOpenAIImageBackend(client llm.ImageClient, model, size string) *OpenAIImageBackend {
	if model == "" {
		model = "dall-e-3"
	}
	if size == "" {
		size = "1024x1024"
	}
	return &OpenAIImageBackend{client: client, model: model, size: size}
}

func (b *OpenAIImageBackend) Provider() string { return "openai" }
func (b *OpenAIImageBackend) Model() string    { return b.model }

// Generate renders prompt at the configured size.
func (b *OpenAIImageBackend) Generate(ctx context.Context, prompt string) (*GeneratedImage, error) {
	resp, err := b.client.GenerateImage(ctx, llm.ImageRequest{Prompt: prompt, Model: b.model, Size: b.size})
	if err != nil {
		return nil, err
	}
	return &GeneratedImage{
		Data:          resp.Data,
		Model:         b.model,
		Device:        "remote",
		RevisedPrompt: resp.RevisedPrompt,
	}, nil
}
