package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"
)

const (
	// SignatureHeader carries base64(HMAC-SHA256(secret, body)).
	SignatureHeader = "X-Shopify-Hmac-Sha256"
	// TopicHeader names the webhook topic.
	TopicHeader = "X-Shopify-Topic"
	// ShopDomainHeader identifies the sending shop.
	ShopDomainHeader = "X-Shopify-Shop-Domain"
	// WebhookIDHeader is the per-delivery identifier, used for log correlation.
	WebhookIDHeader = "X-Shopify-Webhook-Id"

	// TopicOrdersPaid is the only topic that triggers tagging.
	TopicOrdersPaid = "orders/paid"

	maxPayloadBytes = 1 << 20
)

var (
	// ErrMissingHeader indicates a required Shopify header is absent.
	ErrMissingHeader = errors.New("missing required header")
	// ErrInvalidTenant indicates the shop domain is not the configured shop.
	ErrInvalidTenant = errors.New("invalid shop domain")
	// ErrInvalidSignature indicates request signature validation failure.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrInvalidPayload indicates the body is not a well-formed order document.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrPayloadTooLarge indicates the body exceeds the accepted size and was not verified.
	ErrPayloadTooLarge = errors.New("payload too large")
)

// InboundEvent is one received webhook delivery with its body exactly as sent.
type InboundEvent struct {
	Topic      string
	ShopDomain string
	Signature  string
	WebhookID  string
	Body       []byte
}

// ReadEvent captures headers and the raw body before anything parses it.
// Bodies over maxPayloadBytes are rejected whole, never truncated.
func ReadEvent(r *http.Request) (InboundEvent, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes+1))
	if err != nil {
		return InboundEvent{}, errors.Join(ErrInvalidPayload, err)
	}
	if len(body) > maxPayloadBytes {
		return InboundEvent{}, ErrPayloadTooLarge
	}
	return InboundEvent{
		Topic:      strings.TrimSpace(r.Header.Get(TopicHeader)),
		ShopDomain: r.Header.Get(ShopDomainHeader),
		Signature:  strings.TrimSpace(r.Header.Get(SignatureHeader)),
		WebhookID:  strings.TrimSpace(r.Header.Get(WebhookIDHeader)),
		Body:       body,
	}, nil
}

// Verifier authenticates deliveries for a single shop.
type Verifier struct {
	secret     []byte
	shopDomain string
}

// NewVerifier constructs a verifier for shopDomain signed with secret.
func NewVerifier(secret, shopDomain string) *Verifier {
	return &Verifier{secret: []byte(secret), shopDomain: shopDomain}
}

// Verify checks header presence, the exact shop domain and the body HMAC.
func (v *Verifier) Verify(event InboundEvent) error {
	if event.Signature == "" || event.Topic == "" || event.ShopDomain == "" {
		return ErrMissingHeader
	}
	if event.ShopDomain != v.shopDomain {
		return ErrInvalidTenant
	}
	expected := []byte(Sign(v.secret, event.Body))
	if !hmac.Equal(expected, []byte(event.Signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign returns the Shopify signature header value for body.
func Sign(secret []byte, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
