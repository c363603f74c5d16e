package shopify

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fr0stylo/shoptag/internal/app/domain"
)

type orderPerson struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type orderLineItem struct {
	SKU string `json:"sku"`
}

type orderPayload struct {
	ID             json.RawMessage `json:"id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	ContactEmail   string          `json:"contact_email"`
	Customer       *orderPerson    `json:"customer"`
	BillingAddress *orderPerson    `json:"billing_address"`
	LineItems      []orderLineItem `json:"line_items"`
}

// Order is the subset of a paid order needed for tagging plus identifiers for logs.
type Order struct {
	ID       string
	Name     string
	Purchase domain.PurchaseRecord
}

// ExtractPurchase parses a raw order body into a purchase record. A missing
// email is not an error.
func ExtractPurchase(body []byte) (Order, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Order{}, fmt.Errorf("%w: order body must be a JSON object", ErrInvalidPayload)
	}
	var payload orderPayload
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return Order{}, errors.Join(ErrInvalidPayload, err)
	}

	var customer, billing orderPerson
	if payload.Customer != nil {
		customer = *payload.Customer
	}
	if payload.BillingAddress != nil {
		billing = *payload.BillingAddress
	}

	skus := make([]string, 0, len(payload.LineItems))
	for _, item := range payload.LineItems {
		if sku := strings.TrimSpace(item.SKU); sku != "" {
			skus = append(skus, sku)
		}
	}

	return Order{
		ID:   strings.Trim(string(payload.ID), `"`),
		Name: strings.TrimSpace(payload.Name),
		Purchase: domain.PurchaseRecord{
			Email:     firstNonEmpty(payload.Email, payload.ContactEmail, customer.Email),
			FirstName: firstNonEmpty(customer.FirstName, billing.FirstName),
			LastName:  firstNonEmpty(customer.LastName, billing.LastName),
			SKUs:      skus,
		},
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
