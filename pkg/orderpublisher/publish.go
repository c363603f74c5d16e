package orderpublisher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fr0stylo/shoptag/internal/webhooks/shopify"
)

// Publish builds, signs and sends order.
func (c Client) Publish(ctx context.Context, order Order) (Receipt, error) {
	body, err := BuildOrderBody(order)
	if err != nil {
		return Receipt{}, err
	}
	return c.PublishBody(ctx, body)
}

// PublishBody signs and sends a raw order body.
func (c Client) PublishBody(ctx context.Context, body []byte) (Receipt, error) {
	endpoint := strings.TrimSpace(c.Endpoint)
	secret := strings.TrimSpace(c.Secret)
	shop := strings.TrimSpace(c.ShopDomain)
	if endpoint == "" || secret == "" || shop == "" {
		return Receipt{}, fmt.Errorf("endpoint/secret/shop are required")
	}
	topic := strings.TrimSpace(c.Topic)
	if topic == "" {
		topic = shopify.TopicOrdersPaid
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	webhookID := uuid.NewString()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Receipt{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(shopify.SignatureHeader, shopify.Sign([]byte(secret), body))
	req.Header.Set(shopify.TopicHeader, topic)
	req.Header.Set(shopify.ShopDomainHeader, shop)
	req.Header.Set(shopify.WebhookIDHeader, webhookID)

	resp, err := httpClient.Do(req)
	if err != nil {
		return Receipt{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	receipt := Receipt{WebhookID: webhookID, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return receipt, fmt.Errorf("webhook rejected: status=%s body=%s", resp.Status, receipt.Body)
	}
	return receipt, nil
}
