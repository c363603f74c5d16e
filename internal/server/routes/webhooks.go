package routes

import (
	"github.com/labstack/echo/v4"

	shopifywebhook "github.com/fr0stylo/shoptag/internal/webhooks/shopify"
)

// WebhookRoutes registers webhook endpoints.
type WebhookRoutes struct {
	path    string
	shopify *shopifywebhook.Handler
}

// NewWebhookRoutes constructs webhook routes serving the Shopify handler at path.
func NewWebhookRoutes(path string, handler *shopifywebhook.Handler) *WebhookRoutes {
	return &WebhookRoutes{path: path, shopify: handler}
}

// RegisterRoutes registers webhook endpoints. Every method is routed so the
// handler answers non-POST requests itself.
func (w *WebhookRoutes) RegisterRoutes(s *echo.Echo) {
	s.Any(w.path, w.handleShopifyWebhook)
}

func (w *WebhookRoutes) handleShopifyWebhook(c echo.Context) error {
	return w.shopify.Handle(c.Response(), c.Request())
}
