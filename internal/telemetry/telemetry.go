// Package telemetry bridges log/slog to OpenTelemetry for the
// admin/adapter layer, the way the teacher bridges its own handler-level
// logging to OTel via go.opentelemetry.io/contrib/bridges/otelslog. The
// core packages (internal/eee, internal/supervisor, ...) never import
// this package or otel directly; only cmd/app.go wires it into the
// admin server and AMQP bridge loggers.
package telemetry

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// Provider owns the OTel log pipeline backing the bridged slog handler.
type Provider struct {
	lp *sdklog.LoggerProvider
}

// NewProvider builds a log.LoggerProvider with a batch processor over a
// stdout exporter. A real deployment would swap stdoutlog for an OTLP
// exporter pointed at a collector; the pipeline shape is unchanged.
func NewProvider() (*Provider, error) {
	exporter, err := stdoutlog.New()
	if err != nil {
		return nil, err
	}
	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)
	return &Provider{lp: lp}, nil
}

// Logger returns a slog.Logger whose records are bridged to OTel under
// the given instrumentation name, in addition to being usable like any
// other *slog.Logger.
func (p *Provider) Logger(name string) *slog.Logger {
	handler := otelslog.NewHandler(name, otelslog.WithLoggerProvider(p.lp))
	return slog.New(handler)
}

// Shutdown flushes and closes the underlying log pipeline.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.lp.Shutdown(ctx)
}
