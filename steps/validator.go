// ABOUTME: Validator step: scores a generated image for anatomy, quality, and prompt adherence.
// ABOUTME: Loads the image from disk or by URL and sends it to a vision model as a data URL.
package steps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"github.com/saicharanallam/sigmachain/llm"
	"github.com/saicharanallam/sigmachain/pipeline"
	"go.uber.org/zap"
)

// ValidatorName is the registered name of the validator step.
const ValidatorName = "validator"

const validationSystemPrompt = `You are an expert image quality and anatomical correctness validator.
Analyze the provided image and check for:

1. **Anatomical Correctness**: Are human/animal body parts proportional and correctly positioned?
2. **Image Quality**: Is the image sharp, well-composed, and professional?
3. **Prompt Adherence**: Does the image match the intended prompt?
4. **Professional Standards**: Would this meet professional photography/art standards?

Provide a detailed analysis with:
- Overall score (0-100)
- Anatomical correctness score (0-100)
- Quality score (0-100)
- Specific issues found (if any)
- Recommendations for improvement
- Pass/Fail status

Format your response as JSON with these fields:
{
    "overall_score": number,
    "anatomical_score": number,
    "quality_score": number,
    "issues": [array of strings],
    "recommendations": [array of strings],
    "passed": boolean,
    "detailed_analysis": "string"
}`

// ValidatorConfig tunes the validation call.
type ValidatorConfig struct {
	Model         string
	MaxTokens     int
	Detail        string // image detail hint for the vision model
	MaxImageBytes int64  // download cap for remote images
}

// DefaultValidatorConfig returns the stock validation settings.
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{Model: "gpt-4o", MaxTokens: 1000, MaxImageBytes: 20 << 20}
}

// Validator turns {image_url|image_path, original_prompt, enhanced_prompt}
// into {validation, image_url, passed}.
type Validator struct {
	client     llm.Completer
	store      *ImageStore
	httpClient *http.Client
	config     ValidatorConfig
	logger     *zap.Logger
}

// NewValidator creates the validator step. A nil httpClient uses http.DefaultClient.
func NewValidator(client llm.Completer, store *ImageStore, httpClient *http.Client, config ValidatorConfig, logger *zap.Logger) *Validator {
	d := DefaultValidatorConfig()
	if config.Model == "" {
		config.Model = d.Model
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = d.MaxTokens
	}
	if config.MaxImageBytes <= 0 {
		config.MaxImageBytes = d.MaxImageBytes
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{client: client, store: store, httpClient: httpClient, config: config, logger: logger}
}

func (v *Validator) Name() string { return ValidatorName }
func (v *Validator) Description() string {
	return "Validates images for anatomical correctness and quality"
}
func (v *Validator) Requires() []string {
	return []string{"image_url" + pipeline.AnyOfSeparator + "image_path"}
}
func (v *Validator) Produces() []string { return []string{"validation", "image_url", "passed"} }

// Process loads the image and asks the vision model for a scorecard.
func (v *Validator) Process(ctx context.Context, pctx *pipeline.Context) (*pipeline.Outcome, error) {
	imageURL := pctx.GetString("image_url", "")
	imagePath := pctx.GetString("image_path", "")

	data, failure := v.loadImage(ctx, imageURL, imagePath)
	if failure != nil {
		return failure, nil
	}

	prompt := fmt.Sprintf("Original prompt: %s\nEnhanced prompt: %s\n\nAnalyze this image:",
		pctx.GetString("original_prompt", ""), pctx.GetString("enhanced_prompt", ""))
	resp, err := v.client.Complete(ctx, llm.ChatRequest{
		Model:        v.config.Model,
		System:       validationSystemPrompt,
		Prompt:       prompt,
		ImageDataURL: llm.DataURL(imageMIMEType(data), data),
		ImageDetail:  v.config.Detail,
		MaxTokens:    v.config.MaxTokens,
	})
	if err != nil {
		return upstreamFailure("Error validating image", err), nil
	}

	card, parsed := ParseScorecard(resp.Text)
	if !parsed {
		v.logger.Warn("validation answer was not JSON, using fallback scorecard", zap.Int("answer_length", len(resp.Text)))
	}
	if imageURL == "" && v.store != nil {
		imageURL = v.store.URLForPath(imagePath)
	}

	v.logger.Info("image validated",
		zap.Float64("overall_score", card.OverallScore),
		zap.Bool("passed", card.Passed),
	)

	return pipeline.Succeed("Validation completed", map[string]any{
		"validation": card.Map(),
		"image_url":  imageURL,
		"passed":     card.Passed,
	}).WithMetadata(map[string]any{
		"model":  v.config.Model,
		"scores": card.Scores(),
	}), nil
}

// loadImage reads the image from image_path, else from a stored image URL,
// else by downloading image_url.
func (v *Validator) loadImage(ctx context.Context, imageURL, imagePath string) ([]byte, *pipeline.Outcome) {
	switch {
	case imagePath != "":
		return readImageFile(imagePath)
	case imageURL == "":
		return nil, pipeline.Fail(pipeline.KindPrecondition, "No image URL or path provided")
	}

	if v.store != nil {
		if path, ok := v.store.PathForURL(imageURL); ok {
			return readImageFile(path)
		}
	}
	if !strings.HasPrefix(imageURL, "http://") && !strings.HasPrefix(imageURL, "https://") {
		return nil, pipeline.Failf(pipeline.KindPrecondition, "Error reading image: unsupported image URL %q", imageURL)
	}
	return v.download(ctx, imageURL)
}

func readImageFile(path string) ([]byte, *pipeline.Outcome) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, pipeline.Failf(pipeline.KindPrecondition, "Image file not found: %s", path)
	}
	if err != nil {
		return nil, upstreamFailure("Error reading image", err)
	}
	return data, nil
}

func (v *Validator) download(ctx context.Context, url string) ([]byte, *pipeline.Outcome) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, upstreamFailure("Error reading image", err)
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, upstreamFailure("Error reading image", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, pipeline.Failf(pipeline.KindUpstream, "Failed to download image: %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, v.config.MaxImageBytes+1))
	if err != nil {
		return nil, upstreamFailure("Error reading image", err)
	}
	if int64(len(data)) > v.config.MaxImageBytes {
		return nil, pipeline.Failf(pipeline.KindUpstream, "Error reading image: larger than %d bytes", v.config.MaxImageBytes)
	}
	return data, nil
}

// imageMIMEType sniffs the image type, defaulting to PNG.
func imageMIMEType(data []byte) string {
	if ct := http.DetectContentType(data); strings.HasPrefix(ct, "image/") {
		return ct
	}
	return "image/png"
}
