package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fr0stylo/shoptag/internal/app/domain"
	appservices "github.com/fr0stylo/shoptag/internal/app/services"
	"github.com/fr0stylo/shoptag/internal/observability"
)

const statusIgnored = "ignored"

// PurchaseSyncer runs the tagging flow for one purchase.
type PurchaseSyncer interface {
	Sync(ctx context.Context, record domain.PurchaseRecord) (domain.SyncResult, error)
}

// Response is the JSON body returned for every accepted delivery.
type Response struct {
	Status    string `json:"status"`
	ContactID int64  `json:"contact_id,omitempty"`
	TagID     int64  `json:"tag_id,omitempty"`
	SKU       string `json:"sku,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Handler processes Shopify paid-order deliveries.
type Handler struct {
	verifier *Verifier
	syncer   PurchaseSyncer
	policy   DeliveryPolicy
	logger   *slog.Logger
	metrics  webhookMetrics
}

// NewHandler constructs a Shopify webhook handler.
func NewHandler(verifier *Verifier, syncer PurchaseSyncer, policy DeliveryPolicy, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		verifier: verifier,
		syncer:   syncer,
		policy:   policy,
		logger:   logger,
		metrics:  newWebhookMetrics(),
	}
}

// Handle validates and processes a webhook request. Only malformed or
// unauthenticated requests get a non-2xx status; see DeliveryPolicy for the rest.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return nil
	}

	event, err := ReadEvent(r)
	if err != nil {
		h.reject(ctx, w, err)
		return nil
	}
	h.metrics.recordRequest(ctx, event.Topic)

	if err := h.verifier.Verify(event); err != nil {
		h.reject(ctx, w, err)
		return nil
	}

	ctx = observability.WithWebhookIdentity(ctx, event.ShopDomain, event.WebhookID)
	logger := h.logger.With("webhook_id", event.WebhookID, "topic", event.Topic)
	if event.Topic != TopicOrdersPaid {
		logger.InfoContext(ctx, "ignoring webhook topic")
		h.metrics.recordOutcome(ctx, statusIgnored, "")
		return writeJSON(w, http.StatusOK, Response{Status: statusIgnored})
	}

	order, err := ExtractPurchase(event.Body)
	if err != nil {
		h.reject(ctx, w, err)
		return nil
	}
	logger = logger.With("order_id", order.ID, "order_name", order.Name)

	syncCtx, span := observability.StartSyncSpan(ctx, "purchase")
	result, err := h.syncer.Sync(syncCtx, order.Purchase)
	span.RecordError(err)
	span.SetOutcome(string(result.Outcome))
	span.End()
	response := Response{
		Status:    string(result.Outcome),
		ContactID: result.ContactID,
		TagID:     result.TagID,
		SKU:       result.SKU,
	}
	if err != nil {
		kind := appservices.ClassifySyncError(err)
		status := h.policy.StatusFor(err)
		response.Status = string(domain.OutcomeFailed)
		response.Error = err.Error()
		logger.ErrorContext(ctx, "purchase sync failed", "error", err, "error_kind", kind, "sku", result.SKU, "http_status", status)
		h.metrics.recordOutcome(ctx, response.Status, string(kind))
		return writeJSON(w, status, response)
	}

	logger.InfoContext(ctx, "purchase synced", "outcome", result.Outcome, "sku", result.SKU, "contact_id", result.ContactID, "tag_id", result.TagID)
	h.metrics.recordOutcome(ctx, response.Status, "")
	return writeJSON(w, http.StatusOK, response)
}

func (h *Handler) reject(ctx context.Context, w http.ResponseWriter, err error) {
	reason, status := rejection(err)
	h.logger.WarnContext(ctx, "rejected shopify webhook", "reason", reason, "error", err)
	h.metrics.recordRejected(ctx, reason)
	http.Error(w, reason, status)
}

func rejection(err error) (string, int) {
	switch {
	case errors.Is(err, ErrMissingHeader):
		return ErrMissingHeader.Error(), http.StatusBadRequest
	case errors.Is(err, ErrInvalidTenant):
		return ErrInvalidTenant.Error(), http.StatusUnauthorized
	case errors.Is(err, ErrInvalidSignature):
		return ErrInvalidSignature.Error(), http.StatusUnauthorized
	case errors.Is(err, ErrPayloadTooLarge):
		return ErrPayloadTooLarge.Error(), http.StatusBadRequest
	default:
		return ErrInvalidPayload.Error(), http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, body Response) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(body)
}
