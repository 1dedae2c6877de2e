// ABOUTME: OpenAI client for chat completions (text and vision) and image generation.
// ABOUTME: Supports custom base URLs so OpenAI-compatible providers can stand in.
package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Config configures the OpenAI client.
type Config struct {
	APIKey     string
	BaseURL    string        // empty = api.openai.com
	Timeout    time.Duration // per request (0 = SDK default)
	MaxRetries int           // SDK-level retries on transient errors (negative = SDK default)
}

// Client implements Completer and ImageClient on the OpenAI API.
type Client struct {
	client openai.Client
}

// NewClient creates an OpenAI client. The API key is required.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.MaxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}
	return &Client{client: openai.NewClient(opts...)}, nil
}

// Complete sends a single-turn chat completion and returns the first choice.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	resp, err := c.client.Chat.Completions.New(ctx, buildChatParams(req))
	if err != nil {
		return nil, wrapError("chat", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion: %w", ErrEmptyResponse)
	}
	return &ChatResponse{
		Text:             resp.Choices[0].Message.Content,
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// GenerateImage renders one image and returns its decoded bytes.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*ImageResponse, error) {
	params := openai.ImageGenerateParams{
		Prompt: req.Prompt,
		Model:  openai.ImageModel(req.Model),
		N:      openai.Int(1),
	}
	if req.Size != "" {
		params.Size = openai.ImageGenerateParamsSize(req.Size)
	}
	// gpt-image models always answer in base64 and reject response_format.
	if !strings.HasPrefix(req.Model, "gpt-image") {
		params.ResponseFormat = openai.ImageGenerateParamsResponseFormatB64JSON
	}

	resp, err := c.client.Images.Generate(ctx, params)
	if err != nil {
		return nil, wrapError("image", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("image generation: %w", ErrEmptyResponse)
	}
	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode generated image: %w", err)
	}
	return &ImageResponse{
		Data:          data,
		RevisedPrompt: resp.Data[0].RevisedPrompt,
		Model:         req.Model,
	}, nil
}

// buildChatParams converts a ChatRequest to OpenAI ChatCompletionNewParams.
func buildChatParams(req ChatRequest) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model: req.Model,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	if req.ImageDataURL == "" {
		messages = append(messages, openai.UserMessage(req.Prompt))
	} else {
		parts := []openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(req.Prompt),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL:    req.ImageDataURL,
				Detail: req.ImageDetail,
			}),
		}
		messages = append(messages, openai.UserMessage(parts))
	}
	params.Messages = messages
	return params
}

// DataURL encodes raw bytes as a data: URL with the given MIME type.
func DataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
