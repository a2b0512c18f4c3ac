package fluxion

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name for the runtime.
const defaultTracerName = "fluxion"

// tracerPtr holds the tracer for named transactions; nil until enabled.
var tracerPtr atomic.Pointer[trace.Tracer]

// EnableTracing turns on OpenTelemetry spans for named transactions using
// the globally registered tracer provider.
func EnableTracing() {
	t := otel.Tracer(defaultTracerName)
	tracerPtr.Store(&t)
}

// SetTracer installs a specific tracer for named transactions. Passing nil
// disables tracing.
func SetTracer(t trace.Tracer) {
	if t == nil {
		tracerPtr.Store(nil)
		return
	}
	tracerPtr.Store(&t)
}

// TxNamed runs fn as a named transaction: a Batch whose writes resolve as
// one update, wrapped in an OpenTelemetry span when tracing is enabled.
// The name identifies the logical state change in traces.
//
//	fluxion.TxNamed("profile-update", func() {
//	    user.Set(newUser)
//	    settings.Set(newSettings)
//	})
func TxNamed(name string, fn func()) {
	if tp := tracerPtr.Load(); tp != nil {
		_, span := (*tp).Start(context.Background(), "fluxion.tx",
			trace.WithAttributes(attribute.String("fluxion.tx.name", name)))
		defer span.End()
	}
	Batch(fn)
}
