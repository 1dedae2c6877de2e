// ABOUTME: Prompt enhancer step: rewrites the user's prompt into a detailed image prompt.
// ABOUTME: Calls a chat model with a prompt-engineering system prompt.
package steps

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/saicharanallam/sigmachain/llm"
	"github.com/saicharanallam/sigmachain/pipeline"
	"go.uber.org/zap"
)

// EnhancerName is the registered name of the prompt enhancer step.
const EnhancerName = "prompt_enhancer"

const enhancementSystemPrompt = `You are an expert prompt engineer for AI image generation.
Your task is to enhance user prompts to generate high-quality, anatomically correct images.

Guidelines:
1. Add technical photography/art terms (lighting, composition, perspective)
2. Include anatomical accuracy cues if the prompt involves humans/animals
3. Add style specifications (realistic, artistic, cinematic)
4. Improve clarity and specificity
5. Add quality modifiers (high detail, sharp focus, professional photography)
6. Keep the original intent while enhancing technical aspects

Return ONLY the enhanced prompt, nothing else.`

// EnhancerConfig tunes the enhancement call.
type EnhancerConfig struct {
	Model       string
	Temperature *float64 // nil takes the default; an explicit 0 is kept
	MaxTokens   int
}

// DefaultEnhancerConfig returns the stock enhancement settings.
func DefaultEnhancerConfig() EnhancerConfig {
	return EnhancerConfig{Model: "gpt-4", Temperature: llm.Float(0.7), MaxTokens: 500}
}

// PromptEnhancer turns {prompt} into {original_prompt, enhanced_prompt}.
type PromptEnhancer struct {
	client llm.Completer
	config EnhancerConfig
	logger *zap.Logger
}

// NewPromptEnhancer creates the enhancer step. Zero config fields take defaults.
func NewPromptEnhancer(client llm.Completer, config EnhancerConfig, logger *zap.Logger) *PromptEnhancer {
	defaults := DefaultEnhancerConfig()
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.Temperature == nil {
		config.Temperature = defaults.Temperature
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = defaults.MaxTokens
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromptEnhancer{client: client, config: config, logger: logger}
}

func (e *PromptEnhancer) Name() string { return EnhancerName }
func (e *PromptEnhancer) Description() string {
	return "Enhances user prompts with technical details and best practices"
}
func (e *PromptEnhancer) Requires() []string { return []string{pipeline.InputKey} }
func (e *PromptEnhancer) Produces() []string { return []string{"original_prompt", "enhanced_prompt"} }

// Process asks the chat model for an enhanced version of the prompt.
func (e *PromptEnhancer) Process(ctx context.Context, pctx *pipeline.Context) (*pipeline.Outcome, error) {
	prompt := pctx.GetString(pipeline.InputKey, "")
	if strings.TrimSpace(prompt) == "" {
		return pipeline.Fail(pipeline.KindPrecondition, "No prompt provided"), nil
	}

	resp, err := e.client.Complete(ctx, llm.ChatRequest{
		Model:       e.config.Model,
		System:      enhancementSystemPrompt,
		Prompt:      "Enhance this prompt for image generation: " + prompt,
		MaxTokens:   e.config.MaxTokens,
		Temperature: llm.Float(*e.config.Temperature),
	})
	if err != nil {
		return upstreamFailure("Error enhancing prompt", err), nil
	}

	enhanced := strings.TrimSpace(resp.Text)
	if enhanced == "" {
		return upstreamFailure("Error enhancing prompt", errors.New("model returned an empty prompt")), nil
	}

	e.logger.Debug("prompt enhanced",
		zap.Int("original_length", utf8.RuneCountInString(prompt)),
		zap.Int("enhanced_length", utf8.RuneCountInString(enhanced)),
		zap.Int64("completion_tokens", resp.CompletionTokens),
	)

	return pipeline.Succeed("Prompt enhanced successfully", map[string]any{
		"original_prompt": prompt,
		"enhanced_prompt": enhanced,
	}).WithMetadata(map[string]any{
		"model":              e.config.Model,
		"enhancement_length": utf8.RuneCountInString(enhanced),
	}), nil
}
