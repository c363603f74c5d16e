package orderpublisher

import (
	"net/http"
	"time"
)

// Client delivers signed paid-order webhooks to a shoptag receiver.
type Client struct {
	Endpoint   string
	Secret     string
	ShopDomain string
	Topic      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Order is the purchaser and items of one synthetic paid order.
type Order struct {
	ID        int64
	Email     string
	FirstName string
	LastName  string
	SKUs      []string
}

// Receipt is the receiver's answer to one delivery.
type Receipt struct {
	WebhookID  string
	StatusCode int
	Body       string
}
