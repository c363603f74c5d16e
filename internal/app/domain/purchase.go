package domain

import "strings"

// PurchaseRecord is the purchaser and items extracted from one paid order.
type PurchaseRecord struct {
	Email     string
	FirstName string
	LastName  string
	SKUs      []string
}

// PrimarySKU returns the first non-empty SKU in line item order.
func (p PurchaseRecord) PrimarySKU() string {
	for _, sku := range p.SKUs {
		if value := strings.TrimSpace(sku); value != "" {
			return value
		}
	}
	return ""
}

// Outcome is the terminal state of one synced purchase.
type Outcome string

const (
	// OutcomeSkippedNoEmail indicates the order carried no purchaser email.
	OutcomeSkippedNoEmail Outcome = "skipped_no_email"
	// OutcomeSkippedNoSKU indicates no line item carried a SKU.
	OutcomeSkippedNoSKU Outcome = "skipped_no_sku"
	// OutcomeSkippedUnmappedSKU indicates the SKU has no configured tag.
	OutcomeSkippedUnmappedSKU Outcome = "skipped_unmapped_sku"
	// OutcomeTagged indicates the contact exists upstream and carries the tag.
	OutcomeTagged Outcome = "tagged"
	// OutcomeFailed indicates an upstream or configuration failure.
	OutcomeFailed Outcome = "error"
)

// SyncResult describes what happened to one purchase.
type SyncResult struct {
	Outcome   Outcome
	SKU       string
	ContactID int64
	TagID     int64
}
