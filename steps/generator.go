// ABOUTME: Image generator step: renders the enhanced prompt through a pluggable backend.
// ABOUTME: Saves the image to the store and publishes its URL and path for later steps.
package steps

import (
	"context"
	"fmt"

	"github.com/saicharanallam/sigmachain/pipeline"
	"go.uber.org/zap"
)

// GeneratorName is the registered name of the image generator step.
const GeneratorName = "image_generator"

// GeneratedImage is the raw output of a backend.
type GeneratedImage struct {
	Data          []byte
	Model         string
	Device        string
	RevisedPrompt string
}

// ImageBackend renders a prompt into encoded image bytes.
type ImageBackend interface {
	Provider() string
	Model() string
	Generate(ctx context.Context, prompt string) (*GeneratedImage, error)
}

// ImageGenerator turns {enhanced_prompt} into a stored image.
type ImageGenerator struct {
	backend ImageBackend
	store   *ImageStore
	logger  *zap.Logger
}

// NewImageGenerator creates the generator step.
func NewImageGenerator(backend ImageBackend, store *ImageStore, logger *zap.Logger) *ImageGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageGenerator{backend: backend, store: store, logger: logger}
}

func (g *ImageGenerator) Name() string { return GeneratorName }
func (g *ImageGenerator) Description() string {
	return fmt.Sprintf("Generates images from enhanced prompts using %s (%s)", g.backend.Model(), g.backend.Provider())
}
func (g *ImageGenerator) Requires() []string { return []string{"enhanced_prompt"} }
func (g *ImageGenerator) Produces() []string {
	return []string{"image_url", "image_path", "prompt", "provider", "model", "device"}
}

// Process renders the enhanced prompt and saves the result.
func (g *ImageGenerator) Process(ctx context.Context, pctx *pipeline.Context) (*pipeline.Outcome, error) {
	prompt := pctx.GetString("enhanced_prompt", "")
	if prompt == "" {
		return pipeline.Fail(pipeline.KindPrecondition, "No enhanced prompt provided"), nil
	}

	img, err := g.backend.Generate(ctx, prompt)
	if err != nil {
		return upstreamFailure("Error generating image", err), nil
	}
	if len(img.Data) == 0 {
		return pipeline.Fail(pipeline.KindUpstream, "Error generating image: backend returned no image data"), nil
	}

	stored, err := g.store.Save(img.Data, ".png")
	if err != nil {
		return upstreamFailure("Error generating image", err), nil
	}

	model := img.Model
	if model == "" {
		model = g.backend.Model()
	}
	provider := g.backend.Provider()

	g.logger.Info("image generated",
		zap.String("provider", provider),
		zap.String("model", model),
		zap.String("device", img.Device),
		zap.String("file", stored.Filename),
		zap.Int("bytes", len(img.Data)),
	)

	data := map[string]any{
		"image_url":  stored.URL,
		"image_path": stored.Path,
		"prompt":     prompt,
		"provider":   provider,
		"model":      model,
		"device":     img.Device,
	}
	if img.RevisedPrompt != "" {
		data["revised_prompt"] = img.RevisedPrompt
	}
	return pipeline.Succeed("Image generated successfully", data).WithMetadata(map[string]any{
		"model":    model,
		"provider": provider,
		"device":   img.Device,
		"filename": stored.Filename,
	}), nil
}
