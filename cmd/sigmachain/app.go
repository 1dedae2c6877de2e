// ABOUTME: Wires configuration into a running application: logger, OpenAI client, image backend,
// ABOUTME: image store, step catalog, metrics registry, tracer, and the workflow engine.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/saicharanallam/sigmachain/config"
	"github.com/saicharanallam/sigmachain/llm"
	"github.com/saicharanallam/sigmachain/pipeline"
	"github.com/saicharanallam/sigmachain/steps"
	"go.uber.org/zap"
)

// app holds the collaborators shared by the serve and run commands.
type app struct {
	cfg         *config.Config
	logger      *zap.Logger
	engine      *pipeline.Engine
	catalog     *steps.Catalog
	images      *steps.ImageStore
	registry    *prometheus.Registry
	stepOptions []pipeline.StepOption
	shutdown    func(context.Context) error
}

// newApp builds the engine with the configured steps. The logger is owned by
// the caller.
func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
		shutdown: func(context.Context) error { return nil },
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	images, err := steps.NewImageStore(cfg.Image.OutputDir, cfg.Image.URLPrefix)
	if err != nil {
		return nil, err
	}
	a.images = images

	var client *llm.Client
	if cfg.OpenAI.APIKey != "" {
		client, err = llm.NewClient(llm.Config{
			APIKey:     cfg.OpenAI.APIKey,
			BaseURL:    cfg.OpenAI.BaseURL,
			Timeout:    cfg.OpenAI.Timeout,
			MaxRetries: cfg.OpenAI.MaxRetries,
		})
		if err != nil {
			return nil, err
		}
	} else {
		logger.Warn("no OpenAI API key configured; prompt enhancement, validation, and OpenAI image generation are unavailable")
	}

	httpClient := &http.Client{Timeout: cfg.Validation.DownloadTimeout}
	deps := steps.Dependencies{
		Store:      images,
		HTTPClient: httpClient,
		Enhancer: steps.EnhancerConfig{
			Model:       cfg.OpenAI.EnhanceModel,
			Temperature: llm.Float(cfg.OpenAI.Temperature),
			MaxTokens:   cfg.OpenAI.EnhanceMaxTokens,
		},
		Validator: steps.ValidatorConfig{
			Model:         cfg.OpenAI.VisionModel,
			MaxTokens:     cfg.OpenAI.VisionMaxTokens,
			Detail:        cfg.OpenAI.ImageDetail,
			MaxImageBytes: cfg.Validation.MaxImageBytes,
		},
		Logger: logger.Named("steps"),
	}
	if client != nil {
		deps.Completer = client
	}
	deps.Backend, err = imageBackend(cfg.Image, client)
	if err != nil {
		return nil, err
	}
	a.catalog = steps.DefaultCatalog(deps)

	policy, err := pipeline.RetryPolicyByName(cfg.Pipeline.Retry)
	if err != nil {
		return nil, err
	}
	if policy.MaxAttempts > 1 {
		a.stepOptions = append(a.stepOptions, pipeline.WithRetryPolicy(policy))
	}

	tracer, shutdown, err := newTracer(cfg.Tracing)
	if err != nil {
		return nil, err
	}
	a.shutdown = shutdown

	engine, err := pipeline.NewEngine(pipeline.EngineConfig{
		StepTimeout:  cfg.Pipeline.StepTimeout,
		HistoryLimit: cfg.Pipeline.HistoryLimit,
		Metrics:      pipeline.NewMetrics(a.registry),
		Tracer:       tracer,
		Logger:       logger.Named("engine"),
	})
	if err != nil {
		return nil, err
	}
	for _, name := range cfg.Pipeline.Steps {
		step, err := a.catalog.Build(name)
		if err != nil {
			return nil, err
		}
		if err := engine.AddStep(step, a.stepOptions...); err != nil {
			return nil, fmt.Errorf("configure pipeline: %w", err)
		}
	}
	a.engine = engine
	return a, nil
}

// imageBackend selects the generator backend for the configured provider.
// A nil backend leaves the image generator unbuildable.
func imageBackend(cfg config.ImageConfig, client *llm.Client) (steps.ImageBackend, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		if client == nil {
			return nil, nil
		}
		return steps.NewOpenAIImageBackend(client, cfg.Model, cfg.Size), nil
	case config.ProviderSDWebUI:
		sd := steps.DefaultSDWebUIConfig()
		sd.BaseURL = cfg.SDWebUIURL
		if cfg.Model != "" {
			sd.Model = cfg.Model
		}
		sd.Device = cfg.Device
		sd.NegativePrompt = cfg.NegativePrompt
		sd.Steps = cfg.Steps
		sd.Guidance = cfg.Guidance
		sd.Width = cfg.Width
		sd.Height = cfg.Height
		return steps.NewSDWebUIBackend(sd, nil), nil
	default:
		return nil, errors.New("unknown image provider " + cfg.Provider)
	}
}

// Close flushes exported spans.
func (a *app) Close(ctx context.Context) error {
	return a.shutdown(ctx)
}
