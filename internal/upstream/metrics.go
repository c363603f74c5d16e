package upstream

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/fr0stylo/shoptag/internal/upstream"

type gatewayMetrics struct {
	calls    metric.Int64Counter
	attempts metric.Int64Counter
}

func newGatewayMetrics() gatewayMetrics {
	meter := otel.Meter(instrumentationName)
	calls, _ := meter.Int64Counter("shoptag.upstream.calls")
	attempts, _ := meter.Int64Counter("shoptag.upstream.attempts")
	return gatewayMetrics{calls: calls, attempts: attempts}
}

func (m gatewayMetrics) recordCall(ctx context.Context, method, outcome string, variants int) {
	if m.calls == nil {
		return
	}
	m.calls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("outcome", outcome),
		attribute.Int("variants_tried", variants),
	))
}

func (m gatewayMetrics) recordAttempt(ctx context.Context, method string, variant Variant, status int, ok bool) {
	if m.attempts == nil {
		return
	}
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	m.attempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("auth", variant.Auth.String()),
		attribute.String("status", strconv.Itoa(status)),
		attribute.String("outcome", outcome),
	))
}

type callSpan struct {
	inner trace.Span
}

func startCallSpan(ctx context.Context, method, path string) (context.Context, callSpan) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "upstream."+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("shoptag.upstream.method", method),
			attribute.String("shoptag.upstream.path", path),
		),
	)
	return ctx, callSpan{inner: span}
}

func (s callSpan) SetVariant(index int, variant Variant) {
	s.inner.SetAttributes(
		attribute.Int("shoptag.upstream.variant", index),
		attribute.String("shoptag.upstream.url", variant.URL()),
		attribute.String("shoptag.upstream.auth", variant.Auth.String()),
	)
}

func (s callSpan) RecordError(err error) {
	if err == nil {
		return
	}
	s.inner.RecordError(err)
	s.inner.SetStatus(codes.Error, err.Error())
}

func (s callSpan) End() {
	s.inner.End()
}
