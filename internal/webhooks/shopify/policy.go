package shopify

import (
	"fmt"
	"net/http"
	"strings"

	appservices "github.com/fr0stylo/shoptag/internal/app/services"
)

// DeliveryMode selects how post-verification failures are acknowledged.
type DeliveryMode string

const (
	// DeliveryAbsorb acknowledges every verified delivery with 200 so the
	// sender never redelivers; failures are reported in the body and logs.
	DeliveryAbsorb DeliveryMode = "absorb"
	// DeliveryRetryTransient answers 503 for transient upstream failures so
	// the sender's retry schedule can recover them.
	DeliveryRetryTransient DeliveryMode = "retry-transient"
)

// ParseDeliveryMode parses a configured mode. Empty means absorb.
func ParseDeliveryMode(raw string) (DeliveryMode, error) {
	switch DeliveryMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", DeliveryAbsorb:
		return DeliveryAbsorb, nil
	case DeliveryRetryTransient:
		return DeliveryRetryTransient, nil
	default:
		return "", fmt.Errorf("unknown delivery mode %q", raw)
	}
}

// DeliveryPolicy maps a failed sync to the status returned to Shopify.
type DeliveryPolicy struct {
	Mode DeliveryMode
}

// StatusFor returns the transport status for a post-verification sync error.
func (p DeliveryPolicy) StatusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if p.Mode == DeliveryRetryTransient && appservices.ClassifySyncError(err) == appservices.SyncErrorUpstreamTransient {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}
