package orderpublisher

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type lineItem struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

type person struct {
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type orderBody struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	FinancialStatus string     `json:"financial_status"`
	CreatedAt       string     `json:"created_at"`
	Customer        person     `json:"customer"`
	BillingAddress  person     `json:"billing_address"`
	LineItems       []lineItem `json:"line_items"`
}

// BuildOrderBody renders order in the shape Shopify sends for orders/paid.
func BuildOrderBody(order Order) ([]byte, error) {
	email := strings.TrimSpace(order.Email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	id := order.ID
	if id <= 0 {
		id = time.Now().UTC().UnixNano()
	}

	items := make([]lineItem, 0, len(order.SKUs))
	for _, sku := range order.SKUs {
		items = append(items, lineItem{SKU: strings.TrimSpace(sku), Quantity: 1})
	}
	buyer := person{
		Email:     email,
		FirstName: strings.TrimSpace(order.FirstName),
		LastName:  strings.TrimSpace(order.LastName),
	}

	return json.Marshal(orderBody{
		ID:              id,
		Name:            fmt.Sprintf("#%d", id%100000),
		Email:           email,
		FinancialStatus: "paid",
		CreatedAt:       time.Now().UTC().Format(time.RFC3339),
		Customer:        buyer,
		BillingAddress:  person{FirstName: buyer.FirstName, LastName: buyer.LastName},
		LineItems:       items,
	})
}
