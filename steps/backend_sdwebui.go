// ABOUTME: Image backend for a self-hosted Stable Diffusion WebUI (AUTOMATIC1111 API).
// ABOUTME: Posts txt2img requests with the house negative prompt and sampling settings.
package steps

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultNegativePrompt steers generations away from common artifacts.
const DefaultNegativePrompt = "blurry, low quality, distorted, deformed, bad anatomy, bad proportions"

// SDWebUIConfig configures the Stable Diffusion WebUI backend.
type SDWebUIConfig struct {
	BaseURL        string
	Model          string
	Device         string
	NegativePrompt string
	Steps          int
	Guidance       float64
	Width          int
	Height         int
	Timeout        time.Duration
}

// DefaultSDWebUIConfig returns the stock local generation settings.
func DefaultSDWebUIConfig() SDWebUIConfig {
	return SDWebUIConfig{
		BaseURL:        "http://127.0.0.1:7860",
		Model:          "runwayml/stable-diffusion-v1-5",
		Device:         "cuda",
		NegativePrompt: DefaultNegativePrompt,
		Steps:          50,
		Guidance:       7.5,
		Width:          512,
		Height:         512,
		Timeout:        5 * time.Minute,
	}
}

// SDWebUIBackend renders prompts on a Stable Diffusion WebUI server.
type SDWebUIBackend struct {
	config SDWebUIConfig
	client *http.Client
}

// NewSDWebUIBackend creates the backend. A nil client gets one with the
// configured timeout.
func NewSDWebUIBackend(config SDWebUIConfig, client *http.Client) *SDWebUIBackend {
	d := DefaultSDWebUIConfig()
	if config.BaseURL == "" {
		config.BaseURL = d.BaseURL
	}
	if config.Model == "" {
		config.Model = d.Model
	}
	if config.Device == "" {
		config.Device = d.Device
	}
	if config.NegativePrompt == "" {
		config.NegativePrompt = d.NegativePrompt
	}
	if config.Steps <= 0 {
		config.Steps = d.Steps
	}
	if config.Guidance <= 0 {
		config.Guidance = d.Guidance
	}
	if config.Width <= 0 {
		config.Width = d.Width
	}
	if config.Height <= 0 {
		config.Height = d.Height
	}
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &SDWebUIBackend{config: config, client: client}
}

func (b *SDWebUIBackend) Provider() string { return "local" }
func (b *SDWebUIBackend) Model() string    { return b.config.Model }

type txt2imgRequest struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt"`
	Steps          int     `json:"steps"`
	CFGScale       float64 `json:"cfg_scale"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	BatchSize      int     `json:"batch_size"`
}

type txt2imgResponse struct {
	Images []string `json:"images"`
}

// Generate posts a txt2img request and decodes the first returned image.
func (b *SDWebUIBackend) Generate(ctx context.Context, prompt string) (*GeneratedImage, error) {
	body, err := json.Marshal(txt2imgRequest{
		Prompt:         prompt,
		NegativePrompt: b.config.NegativePrompt,
		Steps:          b.config.Steps,
		CFGScale:       b.config.Guidance,
		Width:          b.config.Width,
		Height:         b.config.Height,
		BatchSize:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("encode txt2img request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.config.BaseURL+"/sdapi/v1/txt2img", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stable diffusion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("stable diffusion server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out txt2imgResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode txt2img response: %w", err)
	}
	if len(out.Images) == 0 {
		return nil, fmt.Errorf("stable diffusion server returned no images")
	}
	data, err := base64.StdEncoding.DecodeString(out.Images[0])
	if err != nil {
		return nil, fmt.Errorf("decode generated image: %w", err)
	}
	return &GeneratedImage{Data: data, Model: b.config.Model, Device: b.config.Device}, nil
}
