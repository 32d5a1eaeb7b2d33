package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/steveyegge/beadboard/internal/remote"
	"github.com/steveyegge/beadboard/internal/types"
)

const remoteScopeName = "github.com/steveyegge/beadboard/remote"

// InstrumentedRemote wraps remote.Remote with OTel tracing and metrics.
// Every call gets a span and is counted in bb.remote.* metrics.
type InstrumentedRemote struct {
	inner  remote.Remote
	tracer trace.Tracer
	ops    metric.Int64Counter
	dur    metric.Float64Histogram
	errs   metric.Int64Counter
}

// WrapRemote returns r decorated with OTel instrumentation.
// When telemetry is disabled, r is returned as-is with zero overhead.
func WrapRemote(r remote.Remote) remote.Remote {
	if !Enabled() {
		return r
	}
	return NewInstrumentedRemote(r)
}

// NewInstrumentedRemote always decorates r, using the global providers.
func NewInstrumentedRemote(r remote.Remote) *InstrumentedRemote {
	m := Meter(remoteScopeName)
	ops, _ := m.Int64Counter("bb.remote.operations",
		metric.WithDescription("Total remote operations executed"),
	)
	dur, _ := m.Float64Histogram("bb.remote.operation.duration",
		metric.WithDescription("Remote operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("bb.remote.errors",
		metric.WithDescription("Total remote operation errors"),
	)
	return &InstrumentedRemote{
		inner:  r,
		tracer: Tracer(remoteScopeName),
		ops:    ops,
		dur:    dur,
		errs:   errs,
	}
}

func (r *InstrumentedRemote) op(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	all := append([]attribute.KeyValue{attribute.String("bb.remote.operation", name)}, attrs...)
	ctx, span := r.tracer.Start(ctx, "remote."+name,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	r.ops.Add(ctx, 1, metric.WithAttributes(all...))
	return ctx, span, time.Now()
}

func (r *InstrumentedRemote) done(ctx context.Context, span trace.Span, start time.Time, err error, attrs ...attribute.KeyValue) {
	ms := float64(time.Since(start).Milliseconds())
	r.dur.Record(ctx, ms, metric.WithAttributes(attrs...))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.errs.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	span.End()
}

func (r *InstrumentedRemote) FetchAll(ctx context.Context) ([]*types.Issue, error) {
	ctx, span, t := r.op(ctx, "FetchAll")
	issues, err := r.inner.FetchAll(ctx)
	if err == nil {
		span.SetAttributes(attribute.Int("bb.issue.count", len(issues)))
	}
	r.done(ctx, span, t, err)
	return issues, err
}

func (r *InstrumentedRemote) Update(ctx context.Context, id string, patch types.IssueUpdate) (types.IssueUpdate, error) {
	attrs := []attribute.KeyValue{attribute.String("bb.issue.id", id)}
	ctx, span, t := r.op(ctx, "Update", attrs...)
	echo, err := r.inner.Update(ctx, id, patch)
	r.done(ctx, span, t, err, attrs...)
	return echo, err
}
