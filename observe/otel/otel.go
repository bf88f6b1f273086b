package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Observer records scope lifecycle events on the span carried by the context.
// Contexts without a recording span produce no events, so the observer is
// safe to install unconditionally.
type Observer struct{}

// New returns a span-event observer.
func New() *Observer { return &Observer{} }

func (*Observer) ScopeCreated(ctx context.Context) {
	trace.SpanFromContext(ctx).AddEvent("scope.created")
}

func (*Observer) ScopeCancelled(ctx context.Context, cause error) {
	var attrs []attribute.KeyValue
	if cause != nil {
		attrs = append(attrs, attribute.String("cause", cause.Error()))
	}
	trace.SpanFromContext(ctx).AddEvent("scope.cancelled", trace.WithAttributes(attrs...))
}

func (*Observer) ScopeJoined(ctx context.Context, wait time.Duration) {
	trace.SpanFromContext(ctx).AddEvent("scope.joined",
		trace.WithAttributes(attribute.Int64("wait_ns", wait.Nanoseconds())))
}

func (*Observer) TaskStarted(ctx context.Context) {
	trace.SpanFromContext(ctx).AddEvent("scope.task.started")
}

func (*Observer) TaskFinished(ctx context.Context, dur time.Duration, err error, panicked bool) {
	attrs := []attribute.KeyValue{
		attribute.Int64("duration_ns", dur.Nanoseconds()),
		attribute.Bool("panicked", panicked),
	}
	if err != nil {
		attrs = append(attrs, attribute.String("error", err.Error()))
	}
	trace.SpanFromContext(ctx).AddEvent("scope.task.finished", trace.WithAttributes(attrs...))
}

// Nop is a no-op implementation of the scope.Observer interface.
type Nop struct{}

// NewNop returns a no-op observer.
func NewNop() *Nop { return &Nop{} }

func (*Nop) ScopeCreated(context.Context)                             {}
func (*Nop) ScopeCancelled(context.Context, error)                    {}
func (*Nop) ScopeJoined(context.Context, time.Duration)               {}
func (*Nop) TaskStarted(context.Context)                              {}
func (*Nop) TaskFinished(context.Context, time.Duration, error, bool) {}
