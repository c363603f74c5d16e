package observability

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const syncTracerName = "shoptag/sync"

type contextKey string

const (
	shopDomainKey contextKey = "observability.shop_domain"
	webhookIDKey  contextKey = "observability.webhook_id"
	requestIDKey  contextKey = "observability.request_id"
	routeKey      contextKey = "observability.route"
)

// Span is the application-level tracing span contract.
type Span interface {
	End()
	RecordError(error)
	SetOutcome(outcome string)
}

type otelSpan struct {
	inner trace.Span
}

// StartSyncSpan starts an internal span for one purchase sync step.
func StartSyncSpan(ctx context.Context, step string, attrs ...attribute.KeyValue) (context.Context, Span) {
	step = strings.TrimSpace(step)
	if step == "" {
		step = "unknown"
	}
	if shop, ok := ShopDomainFromContext(ctx); ok {
		attrs = append(attrs, attribute.String("shopify.shop_domain", shop))
	}
	if webhookID, ok := WebhookIDFromContext(ctx); ok {
		attrs = append(attrs, attribute.String("shopify.webhook_id", webhookID))
	}

	ctx, span := otel.Tracer(syncTracerName).Start(ctx, "sync."+step,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	return ctx, otelSpan{inner: span}
}

// WithWebhookIdentity enriches context and current span with the delivering shop and delivery id.
func WithWebhookIdentity(ctx context.Context, shopDomain, webhookID string) context.Context {
	shopDomain = strings.TrimSpace(shopDomain)
	webhookID = strings.TrimSpace(webhookID)
	if shopDomain != "" {
		ctx = context.WithValue(ctx, shopDomainKey, shopDomain)
	}
	if webhookID != "" {
		ctx = context.WithValue(ctx, webhookIDKey, webhookID)
	}
	setSpanWebhookAttributes(ctx, shopDomain, webhookID)
	return ctx
}

// WithRequestMetadata enriches context and current span with request metadata.
func WithRequestMetadata(ctx context.Context, requestID, route string) context.Context {
	requestID = strings.TrimSpace(requestID)
	route = strings.TrimSpace(route)
	if requestID != "" {
		ctx = context.WithValue(ctx, requestIDKey, requestID)
	}
	if route != "" {
		ctx = context.WithValue(ctx, routeKey, route)
	}
	setSpanRequestAttributes(ctx, requestID, route)
	return ctx
}

// ShopDomainFromContext extracts the delivering shop.
func ShopDomainFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, shopDomainKey)
}

// WebhookIDFromContext extracts the Shopify delivery id.
func WebhookIDFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, webhookIDKey)
}

// RequestIDFromContext extracts request id.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, requestIDKey)
}

// RouteFromContext extracts normalized route path.
func RouteFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, routeKey)
}

func stringFromContext(ctx context.Context, key contextKey) (string, bool) {
	value, ok := ctx.Value(key).(string)
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

func setSpanWebhookAttributes(ctx context.Context, shopDomain, webhookID string) {
	span := trace.SpanFromContext(ctx)
	if span == nil {
		return
	}
	attrs := make([]attribute.KeyValue, 0, 2)
	if shopDomain != "" {
		attrs = append(attrs, attribute.String("shopify.shop_domain", shopDomain))
	}
	if webhookID != "" {
		attrs = append(attrs, attribute.String("shopify.webhook_id", webhookID))
	}
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
}

func setSpanRequestAttributes(ctx context.Context, requestID, route string) {
	span := trace.SpanFromContext(ctx)
	if span == nil {
		return
	}
	attrs := make([]attribute.KeyValue, 0, 2)
	if requestID != "" {
		attrs = append(attrs, attribute.String("request.id", requestID))
	}
	if route != "" {
		attrs = append(attrs, attribute.String("http.route", route))
	}
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
}

func (s otelSpan) End() {
	if s.inner == nil {
		return
	}
	s.inner.End()
}

func (s otelSpan) RecordError(err error) {
	if s.inner == nil || err == nil {
		return
	}
	s.inner.RecordError(err)
	s.inner.SetStatus(codes.Error, err.Error())
}

func (s otelSpan) SetOutcome(outcome string) {
	if s.inner == nil || outcome == "" {
		return
	}
	s.inner.SetAttributes(attribute.String("shoptag.outcome", outcome))
}
