// ABOUTME: Optional OpenTelemetry span export for workflow runs using the stdout exporter.
// ABOUTME: Disabled tracing returns a nil tracer so the engine falls back to the global provider.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/saicharanallam/sigmachain/config"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/saicharanallam/sigmachain"

// newTracer builds a tracer that writes finished spans as JSON to the
// configured file or stderr. The returned func flushes and closes it.
func newTracer(cfg config.TracingConfig) (trace.Tracer, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return nil, noop, nil
	}

	var w io.Writer = os.Stderr
	var closer io.Closer
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, noop, fmt.Errorf("open trace file: %w", err)
		}
		w, closer = f, f
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, noop, fmt.Errorf("create trace exporter: %w", err)
	}
	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))

	shutdown := func(ctx context.Context) error {
		err := provider.Shutdown(ctx)
		if closer != nil {
			err = errors.Join(err, closer.Close())
		}
		return err
	}
	return provider.Tracer(tracerName), shutdown, nil
}
