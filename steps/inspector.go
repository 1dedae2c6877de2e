// ABOUTME: Image inspector step: an optional post-processing step that reads image metadata.
// ABOUTME: Reports dimensions, format, and size of the stored image without re-encoding it.
package steps

import (
	"context"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"

	"github.com/saicharanallam/sigmachain/pipeline"
	"go.uber.org/zap"
)

// InspectorName is the registered name of the image inspector step.
const InspectorName = "image_inspector"

// ImageInspector turns {image_url} into {image_url, processed, width, height, bytes, format}.
type ImageInspector struct {
	store  *ImageStore
	logger *zap.Logger
}

// NewImageInspector creates the inspector step.
func NewImageInspector(store *ImageStore, logger *zap.Logger) *ImageInspector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageInspector{store: store, logger: logger}
}

func (i *ImageInspector) Name() string { return InspectorName }
func (i *ImageInspector) Description() string {
	return "Inspects the generated image and records its dimensions and format"
}
func (i *ImageInspector) Requires() []string { return []string{"image_url"} }
func (i *ImageInspector) Produces() []string {
	return []string{"image_url", "processed", "width", "height", "bytes", "format"}
}

// Process decodes the image header of the stored file.
func (i *ImageInspector) Process(ctx context.Context, pctx *pipeline.Context) (*pipeline.Outcome, error) {
	imageURL := pctx.GetString("image_url", "")
	if imageURL == "" {
		return pipeline.Fail(pipeline.KindPrecondition, "No image URL provided"), nil
	}

	path := pctx.GetString("image_path", "")
	if path == "" && i.store != nil {
		path, _ = i.store.PathForURL(imageURL)
	}
	if path == "" {
		return pipeline.Failf(pipeline.KindPrecondition, "Image is not stored locally: %s", imageURL), nil
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return pipeline.Failf(pipeline.KindPrecondition, "Image file not found: %s", path), nil
	}
	if err != nil {
		return upstreamFailure("Error inspecting image", err), nil
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return upstreamFailure("Error inspecting image", err), nil
	}
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return upstreamFailure("Error inspecting image", err), nil
	}

	i.logger.Debug("image inspected", zap.String("path", path), zap.Int("width", cfg.Width), zap.Int("height", cfg.Height))

	return pipeline.Succeed("Image inspection completed", map[string]any{
		"image_url": imageURL,
		"processed": true,
		"width":     cfg.Width,
		"height":    cfg.Height,
		"bytes":     info.Size(),
		"format":    format,
	}).WithMetadata(map[string]any{"step_type": "post_processing"}), nil
}
