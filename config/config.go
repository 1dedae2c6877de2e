// ABOUTME: Application configuration loaded from defaults, a YAML file, and the environment.
// ABOUTME: Uses viper with the SIGMACHAIN_ env prefix; a few unprefixed variables are honored too.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/saicharanallam/sigmachain/pipeline"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name used for config files and directories.
	AppName = "sigmachain"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "SIGMACHAIN"
)

// Image providers.
const (
	ProviderOpenAI  = "openai"
	ProviderSDWebUI = "sdwebui"
)

// Config holds the application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline" yaml:"pipeline"`
	OpenAI     OpenAIConfig     `mapstructure:"openai" yaml:"openai"`
	Image      ImageConfig      `mapstructure:"image" yaml:"image"`
	Validation ValidationConfig `mapstructure:"validation" yaml:"validation"`
	Tracing    TracingConfig    `mapstructure:"tracing" yaml:"tracing"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	CORSOrigins     []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	RunTimeout      time.Duration `mapstructure:"run_timeout" yaml:"run_timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Debug  bool   `mapstructure:"debug" yaml:"debug"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

// PipelineConfig selects and tunes the workflow steps.
type PipelineConfig struct {
	Steps        []string      `mapstructure:"steps" yaml:"steps"`
	StepTimeout  time.Duration `mapstructure:"step_timeout" yaml:"step_timeout"`
	HistoryLimit int           `mapstructure:"history_limit" yaml:"history_limit"`
	Retry        string        `mapstructure:"retry" yaml:"retry"`
}

// OpenAIConfig configures the chat, vision, and image models.
type OpenAIConfig struct {
	APIKey           string        `mapstructure:"api_key" yaml:"-"`
	BaseURL          string        `mapstructure:"base_url" yaml:"base_url"`
	EnhanceModel     string        `mapstructure:"enhance_model" yaml:"enhance_model"`
	VisionModel      string        `mapstructure:"vision_model" yaml:"vision_model"`
	Temperature      float64       `mapstructure:"temperature" yaml:"temperature"`
	EnhanceMaxTokens int           `mapstructure:"enhance_max_tokens" yaml:"enhance_max_tokens"`
	VisionMaxTokens  int           `mapstructure:"vision_max_tokens" yaml:"vision_max_tokens"`
	ImageDetail      string        `mapstructure:"image_detail" yaml:"image_detail"`
	Timeout          time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxRetries       int           `mapstructure:"max_retries" yaml:"max_retries"`
}

// ImageConfig configures image generation and storage.
type ImageConfig struct {
	Provider       string  `mapstructure:"provider" yaml:"provider"`
	Model          string  `mapstructure:"model" yaml:"model"`
	Size           string  `mapstructure:"size" yaml:"size"`
	OutputDir      string  `mapstructure:"output_dir" yaml:"output_dir"`
	URLPrefix      string  `mapstructure:"url_prefix" yaml:"url_prefix"`
	SDWebUIURL     string  `mapstructure:"sdwebui_url" yaml:"sdwebui_url"`
	Device         string  `mapstructure:"device" yaml:"device"`
	Steps          int     `mapstructure:"steps" yaml:"steps"`
	Guidance       float64 `mapstructure:"guidance" yaml:"guidance"`
	Width          int     `mapstructure:"width" yaml:"width"`
	Height         int     `mapstructure:"height" yaml:"height"`
	NegativePrompt string  `mapstructure:"negative_prompt" yaml:"negative_prompt"`
}

// ValidationConfig tunes how images are fetched for validation.
type ValidationConfig struct {
	DownloadTimeout time.Duration `mapstructure:"download_timeout" yaml:"download_timeout"`
	MaxImageBytes   int64         `mapstructure:"max_image_bytes" yaml:"max_image_bytes"`
}

// TracingConfig enables span export for workflow runs.
type TracingConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	File    string `mapstructure:"file" yaml:"file"` // empty writes to stderr
}

// unprefixedEnv maps config keys to conventional variable names honored
// alongside the SIGMACHAIN_ ones.
var unprefixedEnv = map[string]string{
	"openai.api_key":      "OPENAI_API_KEY",
	"openai.base_url":     "OPENAI_BASE_URL",
	"server.cors_origins": "CORS_ORIGINS",
}

// NewViper creates a viper instance with defaults and environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, env := range unprefixedEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_").Replace(key))
		_ = v.BindEnv(key, prefixed, env)
	}
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Minute)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.run_timeout", 10*time.Minute)

	v.SetDefault("log.debug", false)
	v.SetDefault("log.format", "human")
	v.SetDefault("log.file", "")

	v.SetDefault("pipeline.steps", []string{"prompt_enhancer", "image_generator", "validator"})
	v.SetDefault("pipeline.step_timeout", 5*time.Minute)
	v.SetDefault("pipeline.history_limit", pipeline.DefaultHistoryLimit)
	v.SetDefault("pipeline.retry", "none")

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.enhance_model", "gpt-4")
	v.SetDefault("openai.vision_model", "gpt-4o")
	v.SetDefault("openai.temperature", 0.7)
	v.SetDefault("openai.enhance_max_tokens", 500)
	v.SetDefault("openai.vision_max_tokens", 1000)
	v.SetDefault("openai.image_detail", "")
	v.SetDefault("openai.timeout", 2*time.Minute)
	v.SetDefault("openai.max_retries", 2)

	v.SetDefault("image.provider", ProviderOpenAI)
	v.SetDefault("image.model", "")
	v.SetDefault("image.size", "1024x1024")
	v.SetDefault("image.output_dir", "generated_images")
	v.SetDefault("image.url_prefix", "/static/images")
	v.SetDefault("image.sdwebui_url", "http://127.0.0.1:7860")
	v.SetDefault("image.device", "cuda")
	v.SetDefault("image.steps", 50)
	v.SetDefault("image.guidance", 7.5)
	v.SetDefault("image.width", 512)
	v.SetDefault("image.height", 512)
	v.SetDefault("image.negative_prompt", "blurry, low quality, distorted, deformed, bad anatomy, bad proportions")

	v.SetDefault("validation.download_timeout", 30*time.Second)
	v.SetDefault("validation.max_image_bytes", 20<<20)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.file", "")
}

// ReadFile reads cfgFile, or searches the default locations when it is
// empty. It returns the file used, or "" when none was found.
func ReadFile(v *viper.Viper, cfgFile string) (string, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", AppName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("error reading config file: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// Decode unmarshals and validates the configuration held by v.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads defaults, cfgFile (or the search path), and the environment.
func Load(cfgFile string) (*Config, error) {
	v := NewViper()
	if _, err := ReadFile(v, cfgFile); err != nil {
		return nil, err
	}
	return Decode(v)
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	var errs []error
	switch c.Image.Provider {
	case ProviderOpenAI, ProviderSDWebUI:
	default:
		errs = append(errs, fmt.Errorf("image.provider must be %q or %q, got %q", ProviderOpenAI, ProviderSDWebUI, c.Image.Provider))
	}
	if c.Image.OutputDir == "" {
		errs = append(errs, errors.New("image.output_dir must not be empty"))
	}
	if c.Pipeline.HistoryLimit < 0 {
		errs = append(errs, fmt.Errorf("pipeline.history_limit must not be negative, got %d", c.Pipeline.HistoryLimit))
	}
	if c.Pipeline.StepTimeout < 0 {
		errs = append(errs, fmt.Errorf("pipeline.step_timeout must not be negative, got %s", c.Pipeline.StepTimeout))
	}
	if _, err := pipeline.RetryPolicyByName(c.Pipeline.Retry); err != nil {
		errs = append(errs, fmt.Errorf("pipeline.retry: %w", err))
	}
	seen := map[string]bool{}
	for _, name := range c.Pipeline.Steps {
		if seen[name] {
			errs = append(errs, fmt.Errorf("pipeline.steps lists %q twice", name))
		}
		seen[name] = true
	}
	return errors.Join(errs...)
}
