// ABOUTME: Tests for configuration loading from defaults, YAML files, and environment variables.
// ABOUTME: Verifies precedence, unprefixed variable aliases, and validation errors.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	unsetForTest(t, "OPENAI_API_KEY")
	unsetForTest(t, "CORS_ORIGINS")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8000" {
		t.Errorf("server.addr = %q", cfg.Server.Addr)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "http://localhost:3000" {
		t.Errorf("cors origins = %v", cfg.Server.CORSOrigins)
	}
	wantSteps := []string{"prompt_enhancer", "image_generator", "validator"}
	if strings.Join(cfg.Pipeline.Steps, ",") != strings.Join(wantSteps, ",") {
		t.Errorf("steps = %v, want %v", cfg.Pipeline.Steps, wantSteps)
	}
	if cfg.Pipeline.HistoryLimit != 1000 {
		t.Errorf("history_limit = %d", cfg.Pipeline.HistoryLimit)
	}
	if cfg.Pipeline.StepTimeout != 5*time.Minute {
		t.Errorf("step_timeout = %s", cfg.Pipeline.StepTimeout)
	}
	if cfg.OpenAI.EnhanceModel != "gpt-4" || cfg.OpenAI.VisionModel != "gpt-4o" {
		t.Errorf("models = %q/%q", cfg.OpenAI.EnhanceModel, cfg.OpenAI.VisionModel)
	}
	if cfg.OpenAI.Temperature != 0.7 {
		t.Errorf("temperature = %v", cfg.OpenAI.Temperature)
	}
	if cfg.Image.Provider != ProviderOpenAI || cfg.Image.OutputDir != "generated_images" {
		t.Errorf("image = %+v", cfg.Image)
	}
	if cfg.Validation.MaxImageBytes != 20<<20 {
		t.Errorf("max_image_bytes = %d", cfg.Validation.MaxImageBytes)
	}
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	content := `
server:
  addr: ":9000"
pipeline:
  steps: [prompt_enhancer, image_generator]
  step_timeout: 90s
  retry: standard
image:
  provider: sdwebui
  steps: 25
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SIGMACHAIN_SERVER_ADDR", ":9100")
	t.Setenv("SIGMACHAIN_IMAGE_GUIDANCE", "9.5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9100" {
		t.Errorf("env should override file, got %q", cfg.Server.Addr)
	}
	if len(cfg.Pipeline.Steps) != 2 {
		t.Errorf("steps = %v", cfg.Pipeline.Steps)
	}
	if cfg.Pipeline.StepTimeout != 90*time.Second {
		t.Errorf("step_timeout = %s", cfg.Pipeline.StepTimeout)
	}
	if cfg.Pipeline.Retry != "standard" {
		t.Errorf("retry = %q", cfg.Pipeline.Retry)
	}
	if cfg.Image.Provider != ProviderSDWebUI || cfg.Image.Steps != 25 {
		t.Errorf("image = %+v", cfg.Image)
	}
	if cfg.Image.Guidance != 9.5 {
		t.Errorf("guidance = %v", cfg.Image.Guidance)
	}
}

func TestLoadSearchesWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())
	if err := os.WriteFile(filepath.Join(dir, "sigmachain.yaml"), []byte("log:\n  format: json\n"), 0644); err != nil {
		t.Fatal(err)
	}

	v := NewViper()
	used, err := ReadFile(v, "")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if filepath.Base(used) != "sigmachain.yaml" {
		t.Errorf("used = %q", used)
	}
	cfg, err := Decode(v)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("log.format = %q", cfg.Log.Format)
	}
}

func TestLoadUnprefixedEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	unsetForTest(t, "SIGMACHAIN_OPENAI_API_KEY")
	t.Setenv("OPENAI_API_KEY", "sk-plain")
	t.Setenv("CORS_ORIGINS", "http://a.example,http://b.example")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OpenAI.APIKey != "sk-plain" {
		t.Errorf("api key = %q", cfg.OpenAI.APIKey)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "http://b.example" {
		t.Errorf("cors origins = %v", cfg.Server.CORSOrigins)
	}
}

func TestPrefixedEnvWinsOverUnprefixed(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SIGMACHAIN_OPENAI_API_KEY", "sk-prefixed")
	t.Setenv("OPENAI_API_KEY", "sk-plain")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OpenAI.APIKey != "sk-prefixed" {
		t.Errorf("api key = %q", cfg.OpenAI.APIKey)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Pipeline: PipelineConfig{Steps: []string{"prompt_enhancer"}, HistoryLimit: 10},
			Image:    ImageConfig{Provider: ProviderOpenAI, OutputDir: "out"},
		}
	}

	cfg := valid()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad provider", func(c *Config) { c.Image.Provider = "midjourney" }, "image.provider"},
		{"empty output dir", func(c *Config) { c.Image.OutputDir = "" }, "image.output_dir"},
		{"negative history", func(c *Config) { c.Pipeline.HistoryLimit = -1 }, "history_limit"},
		{"negative timeout", func(c *Config) { c.Pipeline.StepTimeout = -time.Second }, "step_timeout"},
		{"unknown retry", func(c *Config) { c.Pipeline.Retry = "forever" }, "pipeline.retry"},
		{"duplicate step", func(c *Config) { c.Pipeline.Steps = []string{"validator", "validator"} }, "twice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}
