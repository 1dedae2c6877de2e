// ABOUTME: Shared fakes for step tests: a scripted chat completer, a fake backend, and PNG fixtures.
// ABOUTME: Keeps individual step tests free of network access.
package steps

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/saicharanallam/sigmachain/llm"
	"github.com/saicharanallam/sigmachain/pipeline"
)

// fakeCompleter returns a canned answer and records the requests it saw.
type fakeCompleter struct {
	mu       sync.Mutex
	text     string
	err      error
	requests []llm.ChatRequest
}

func (f *fakeCompleter) Complete(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatResponse{Text: f.text, Model: req.Model}, nil
}

func (f *fakeCompleter) lastRequest(t *testing.T) llm.ChatRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatal("completer was never called")
	}
	return f.requests[len(f.requests)-1]
}

// fakeBackend returns fixed image bytes.
type fakeBackend struct {
	data   []byte
	err    error
	prompt string
}

func (b *fakeBackend) Provider() string { return "fake" }
func (b *fakeBackend) Model() string    { return "fake-diffusion" }

func (b *fakeBackend) Generate(ctx context.Context, prompt string) (*GeneratedImage, error) {
	b.prompt = prompt
	if b.err != nil {
		return nil, b.err
	}
	return &GeneratedImage{Data: b.data, Device: "cpu"}, nil
}

// testPNG encodes a solid w×h PNG.
func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newTestStore(t *testing.T) *ImageStore {
	t.Helper()
	store, err := NewImageStore(t.TempDir(), DefaultURLPrefix)
	if err != nil {
		t.Fatalf("NewImageStore: %v", err)
	}
	return store
}

func process(t *testing.T, step pipeline.Step, values map[string]any) *pipeline.Outcome {
	t.Helper()
	out, err := step.Process(context.Background(), pipeline.NewContext(values))
	if err != nil {
		t.Fatalf("%s returned error: %v", step.Name(), err)
	}
	if out == nil {
		t.Fatalf("%s returned nil outcome", step.Name())
	}
	return out
}
