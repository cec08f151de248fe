package tracing

import (
	"context"
	"time"

	"github.com/groupe-jds/doku-seal/config"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Tracer defines the interface for tracing
type Tracer interface {
	Application() *newrelic.Application
	StartTransaction(ctx context.Context, name string) (context.Context, *newrelic.Transaction)
	StartSegment(ctx context.Context, name string) *newrelic.Segment
	RecordError(ctx context.Context, err error)
	AddAttribute(ctx context.Context, key string, value interface{})
	Close()
}

// NewRelicTracer implements Tracer using New Relic
type NewRelicTracer struct {
	app     *newrelic.Application
	enabled bool
}

// NewTracer creates a new tracer. Tracing stays off without a license key.
func NewTracer(cfg config.TracingConfig) (Tracer, error) {
	if cfg.LicenseKey == "" {
		log.Warn().Msg("New Relic license key not provided, tracing will be disabled")
		return Disabled(), nil
	}

	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigDistributedTracerEnabled(cfg.DistributedTracing),
		newrelic.ConfigAppLogForwardingEnabled(cfg.LogForwarding),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize New Relic")
	}

	return &NewRelicTracer{app: app, enabled: true}, nil
}

// Disabled returns a tracer that records nothing
func Disabled() Tracer {
	return &NewRelicTracer{}
}

// Application returns the New Relic application, nil when disabled
func (t *NewRelicTracer) Application() *newrelic.Application {
	if !t.enabled {
		return nil
	}
	return t.app
}

// StartTransaction starts a background transaction and binds it to the returned context
func (t *NewRelicTracer) StartTransaction(ctx context.Context, name string) (context.Context, *newrelic.Transaction) {
	if !t.enabled || t.app == nil {
		return ctx, nil
	}
	txn := t.app.StartTransaction(name)
	return newrelic.NewContext(ctx, txn), txn
}

// StartSegment starts a segment in the transaction bound to ctx.
// The returned segment may be nil; ending a nil segment is a no-op.
func (t *NewRelicTracer) StartSegment(ctx context.Context, name string) *newrelic.Segment {
	if !t.enabled {
		return nil
	}
	txn := newrelic.FromContext(ctx)
	if txn == nil {
		return nil
	}
	return txn.StartSegment(name)
}

// RecordError notices err on the transaction bound to ctx
func (t *NewRelicTracer) RecordError(ctx context.Context, err error) {
	if !t.enabled || err == nil {
		return
	}
	if txn := newrelic.FromContext(ctx); txn != nil {
		txn.NoticeError(err)
	}
}

// AddAttribute adds an attribute to the transaction bound to ctx
func (t *NewRelicTracer) AddAttribute(ctx context.Context, key string, value interface{}) {
	if !t.enabled {
		return
	}
	if txn := newrelic.FromContext(ctx); txn != nil {
		txn.AddAttribute(key, value)
	}
}

// Close flushes pending data to New Relic
func (t *NewRelicTracer) Close() {
	if !t.enabled || t.app == nil {
		return
	}
	t.app.Shutdown(10 * time.Second)
	log.Info().Msg("New Relic tracer shutdown")
}
