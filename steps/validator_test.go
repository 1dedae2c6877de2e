// ABOUTME: Tests for the validator step and scorecard parsing.
// ABOUTME: Covers each image source, the vision request, fenced and malformed model answers.
package steps

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/saicharanallam/sigmachain/pipeline"
)

const goodScorecard = "```json\n" + `{
  "overall_score": 88,
  "anatomical_score": 92,
  "quality_score": 85,
  "issues": ["slight blur on left paw"],
  "recommendations": ["increase steps"],
  "passed": true,
  "detailed_analysis": "Well composed."
}` + "\n```"

func TestParseScorecard(t *testing.T) {
	cases := []struct {
		name       string
		text       string
		parsed     bool
		overall    float64
		passed     bool
		issueCount int
	}{
		{"fenced json", goodScorecard, true, 88, true, 1},
		{"bare fence", "```\n{\"overall_score\": 40, \"passed\": false}\n```", true, 40, false, 0},
		{"plain json", `{"overall_score": 70}`, true, 70, true, 0},
		{"prose", "Looks fine to me.", false, 75, true, 0},
		{"mixed issues", `{"issues": ["a", 3, {"k": "v"}]}`, true, 0, true, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			card, parsed := ParseScorecard(tc.text)
			if parsed != tc.parsed {
				t.Errorf("parsed = %v", parsed)
			}
			if card.OverallScore != tc.overall || card.Passed != tc.passed || len(card.Issues) != tc.issueCount {
				t.Errorf("unexpected card %+v", card)
			}
		})
	}
}

func TestParseScorecardFallbackKeepsText(t *testing.T) {
	card, _ := ParseScorecard("The hands have six fingers.")
	if card.DetailedAnalysis != "The hands have six fingers." || card.AnatomicalScore != 75 || card.QualityScore != 75 {
		t.Errorf("unexpected fallback %+v", card)
	}
}

func TestValidatorFromImagePath(t *testing.T) {
	store := newTestStore(t)
	stored, err := store.Save(testPNG(t, 2, 2), ".png")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	client := &fakeCompleter{text: goodScorecard}
	step := NewValidator(client, store, nil, ValidatorConfig{}, nil)

	out := process(t, step, map[string]any{
		"image_path":      stored.Path,
		"original_prompt": "fox",
		"enhanced_prompt": "E(fox)",
	})
	if !out.Success || out.Message != "Validation completed" {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if out.Data["passed"] != true || out.Data["image_url"] != stored.URL {
		t.Errorf("unexpected data %v", out.Data)
	}
	validation := out.Data["validation"].(map[string]any)
	if validation["overall_score"] != 88.0 {
		t.Errorf("validation = %v", validation)
	}
	scores := out.Metadata["scores"].(map[string]any)
	if out.Metadata["model"] != "gpt-4o" || scores["anatomical"] != 92.0 {
		t.Errorf("metadata = %v", out.Metadata)
	}

	req := client.lastRequest(t)
	if !strings.HasPrefix(req.ImageDataURL, "data:image/png;base64,") {
		t.Errorf("image data url = %.40s", req.ImageDataURL)
	}
	if req.Prompt != "Original prompt: fox\nEnhanced prompt: E(fox)\n\nAnalyze this image:" {
		t.Errorf("prompt = %q", req.Prompt)
	}
	if req.Model != "gpt-4o" || req.MaxTokens != 1000 {
		t.Errorf("unexpected request settings %+v", req)
	}
}

func TestValidatorFromStoredURL(t *testing.T) {
	store := newTestStore(t)
	stored, _ := store.Save(testPNG(t, 2, 2), ".png")
	step := NewValidator(&fakeCompleter{text: goodScorecard}, store, nil, ValidatorConfig{}, nil)

	out := process(t, step, map[string]any{"image_url": stored.URL})
	if !out.Success {
		t.Fatalf("expected success, got %q", out.Message)
	}
}

func TestValidatorDownloadsExternalURL(t *testing.T) {
	png := testPNG(t, 2, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(png)
	}))
	defer srv.Close()

	step := NewValidator(&fakeCompleter{text: goodScorecard}, newTestStore(t), srv.Client(), ValidatorConfig{}, nil)

	out := process(t, step, map[string]any{"image_url": srv.URL + "/fox.png"})
	if !out.Success {
		t.Fatalf("expected success, got %q", out.Message)
	}
	if out.Data["image_url"] != srv.URL+"/fox.png" {
		t.Errorf("image_url = %v", out.Data["image_url"])
	}

	out = process(t, step, map[string]any{"image_url": srv.URL + "/missing.png"})
	if out.Success || out.Message != "Failed to download image: 404" {
		t.Errorf("unexpected outcome %+v", out)
	}
}

func TestValidatorDownloadTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 64))
	}))
	defer srv.Close()
	step := NewValidator(&fakeCompleter{text: goodScorecard}, nil, srv.Client(), ValidatorConfig{MaxImageBytes: 16}, nil)
	out := process(t, step, map[string]any{"image_url": srv.URL + "/big.png"})
	if out.Success {
		t.Fatal("expected failure for oversized image")
	}
}

func TestValidatorImageSourceFailures(t *testing.T) {
	store := newTestStore(t)
	step := NewValidator(&fakeCompleter{text: goodScorecard}, store, nil, ValidatorConfig{}, nil)
	missingPath := filepath.Join(store.Dir(), "nope.png")

	cases := []struct {
		name   string
		values map[string]any
		want   string
	}{
		{"nothing", map[string]any{}, "No image URL or path provided"},
		{"missing path", map[string]any{"image_path": missingPath}, "Image file not found: " + missingPath},
		{"missing stored url", map[string]any{"image_url": "/static/images/nope.png"}, "Image file not found: " + missingPath},
		{"relative url", map[string]any{"image_url": "elsewhere/fox.png"}, "Error reading image: unsupported image URL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := process(t, step, tc.values)
			if out.Success || !strings.HasPrefix(out.Message, tc.want) {
				t.Errorf("got %+v, want message %q", out, tc.want)
			}
			if out.Kind != pipeline.KindPrecondition {
				t.Errorf("kind = %q", out.Kind)
			}
		})
	}
}

func TestValidatorModelError(t *testing.T) {
	store := newTestStore(t)
	stored, _ := store.Save(testPNG(t, 2, 2), ".png")
	step := NewValidator(&fakeCompleter{err: errors.New("vision model unavailable")}, store, nil, ValidatorConfig{}, nil)
	out := process(t, step, map[string]any{"image_url": stored.URL})
	if out.Success || out.Message != "Error validating image: vision model unavailable" {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestValidatorFallbackScorecard(t *testing.T) {
	store := newTestStore(t)
	stored, _ := store.Save(testPNG(t, 2, 2), ".png")
	step := NewValidator(&fakeCompleter{text: "It is a lovely fox."}, store, nil, ValidatorConfig{}, nil)
	out := process(t, step, map[string]any{"image_url": stored.URL})
	if !out.Success || out.Data["passed"] != true {
		t.Fatalf("unexpected outcome %+v", out)
	}
	validation := out.Data["validation"].(map[string]any)
	if validation["detailed_analysis"] != "It is a lovely fox." {
		t.Errorf("validation = %v", validation)
	}
}

func TestImageMIMEType(t *testing.T) {
	if got := imageMIMEType(testPNG(t, 1, 1)); got != "image/png" {
		t.Errorf("png sniffed as %q", got)
	}
	if got := imageMIMEType([]byte("not an image")); got != "image/png" {
		t.Errorf("fallback = %q", got)
	}
}

func TestValidatorContractAcceptsEitherImageKey(t *testing.T) {
	validator := NewValidator(&fakeCompleter{text: goodScorecard}, newTestStore(t), nil, ValidatorConfig{}, nil)
	pathOnly := pipeline.NewFuncStep("render", "", func(ctx context.Context, pctx *pipeline.Context) (*pipeline.Outcome, error) {
		return pipeline.Succeed("rendered", nil), nil
	}).WithContract([]string{pipeline.InputKey}, []string{"image_path"})
	textOnly := pipeline.NewFuncStep("caption", "", func(ctx context.Context, pctx *pipeline.Context) (*pipeline.Outcome, error) {
		return pipeline.Succeed("captioned", nil), nil
	}).WithContract([]string{pipeline.InputKey}, []string{"caption"})

	if _, err := pipeline.NewEngine(pipeline.EngineConfig{}, pathOnly, validator); err != nil {
		t.Errorf("validator after an image_path producer: %v", err)
	}
	if _, err := pipeline.NewEngine(pipeline.EngineConfig{}, textOnly, validator); !errors.Is(err, pipeline.ErrUnsatisfiedKey) {
		t.Errorf("expected ErrUnsatisfiedKey without an image source, got %v", err)
	}
}
