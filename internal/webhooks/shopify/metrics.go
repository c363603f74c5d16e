package shopify

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type webhookMetrics struct {
	requests metric.Int64Counter
	rejected metric.Int64Counter
	outcomes metric.Int64Counter
}

func newWebhookMetrics() webhookMetrics {
	meter := otel.Meter("github.com/fr0stylo/shoptag/internal/webhooks/shopify")
	requests, _ := meter.Int64Counter("shoptag.webhook.requests")
	rejected, _ := meter.Int64Counter("shoptag.webhook.rejected")
	outcomes, _ := meter.Int64Counter("shoptag.webhook.outcomes")
	return webhookMetrics{
		requests: requests,
		rejected: rejected,
		outcomes: outcomes,
	}
}

func (m webhookMetrics) recordRequest(ctx context.Context, topic string) {
	m.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", topic)))
}

func (m webhookMetrics) recordRejected(ctx context.Context, reason string) {
	m.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m webhookMetrics) recordOutcome(ctx context.Context, outcome, errorKind string) {
	m.outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("error_kind", errorKind),
	))
}
