package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fr0stylo/shoptag/internal/app/domain"
	"github.com/fr0stylo/shoptag/internal/app/ports"
	"github.com/fr0stylo/shoptag/internal/tagging"
	"github.com/fr0stylo/shoptag/internal/upstream"
)

// SyncErrorKind classifies purchase sync failures for transport-specific mapping.
type SyncErrorKind string

const (
	// SyncErrorUnknown is used when error is nil or not classified.
	SyncErrorUnknown SyncErrorKind = "unknown"
	// SyncErrorConfig indicates an unusable tag mapping or tag contract.
	SyncErrorConfig SyncErrorKind = "config"
	// SyncErrorUpstreamTransient indicates upstream was unreachable, throttled or failing.
	SyncErrorUpstreamTransient SyncErrorKind = "upstream_transient"
	// SyncErrorUpstreamRejected indicates upstream answered with a definitive rejection.
	SyncErrorUpstreamRejected SyncErrorKind = "upstream_rejected"
	// SyncErrorCanceled indicates the request context ended mid-flow.
	SyncErrorCanceled SyncErrorKind = "canceled"
)

// ClassifySyncError classifies a returned purchase sync error.
func ClassifySyncError(err error) SyncErrorKind {
	switch {
	case err == nil:
		return SyncErrorUnknown
	case errors.Is(err, tagging.ErrConfig):
		return SyncErrorConfig
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return SyncErrorCanceled
	case upstream.IsTransient(err):
		return SyncErrorUpstreamTransient
	case errors.Is(err, upstream.ErrUpstreamUnavailable):
		return SyncErrorUpstreamRejected
	default:
		return SyncErrorUnknown
	}
}

// PurchaseSyncService ensures the purchaser of a paid order carries the tag
// mapped to the purchased SKU.
type PurchaseSyncService struct {
	mapping  ports.TagMapping
	tags     ports.TagResolver
	contacts ports.ContactDirectory
	logger   *slog.Logger
}

// NewPurchaseSyncService constructs a purchase sync service.
func NewPurchaseSyncService(mapping ports.TagMapping, tags ports.TagResolver, contacts ports.ContactDirectory, logger *slog.Logger) *PurchaseSyncService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PurchaseSyncService{mapping: mapping, tags: tags, contacts: contacts, logger: logger}
}

// Sync runs SKU lookup, tag resolution, contact upsert and tag attachment.
// Skipped outcomes return before any upstream call. Only the first line item
// carrying a SKU is considered.
func (s *PurchaseSyncService) Sync(ctx context.Context, record domain.PurchaseRecord) (domain.SyncResult, error) {
	email := strings.TrimSpace(record.Email)
	if email == "" {
		return domain.SyncResult{Outcome: domain.OutcomeSkippedNoEmail}, nil
	}

	sku := record.PrimarySKU()
	if sku == "" {
		return domain.SyncResult{Outcome: domain.OutcomeSkippedNoSKU}, nil
	}
	result := domain.SyncResult{Outcome: domain.OutcomeFailed, SKU: sku}

	spec, ok := s.mapping.Lookup(sku)
	if !ok {
		result.Outcome = domain.OutcomeSkippedUnmappedSKU
		return result, nil
	}

	tagID, err := s.tags.Resolve(ctx, spec)
	if err != nil {
		return result, fmt.Errorf("resolve tag %s for SKU %s: %w", spec, sku, err)
	}
	result.TagID = tagID

	contactID, err := s.contacts.Upsert(ctx, email, record.FirstName, record.LastName)
	if err != nil {
		return result, fmt.Errorf("upsert contact: %w", err)
	}
	result.ContactID = contactID

	tagID, err = s.attach(ctx, spec, contactID, tagID)
	result.TagID = tagID
	if err != nil {
		return result, fmt.Errorf("attach tag %d: %w", tagID, err)
	}

	result.Outcome = domain.OutcomeTagged
	return result, nil
}

// attach tags the contact. A named tag whose ID upstream rejects may be a
// stale cache entry, so it is re-resolved once.
func (s *PurchaseSyncService) attach(ctx context.Context, spec tagging.Spec, contactID, tagID int64) (int64, error) {
	err := s.contacts.AttachTag(ctx, contactID, tagID)
	if err == nil || spec.Numeric() || upstream.IsTransient(err) || !errors.Is(err, upstream.ErrUpstreamUnavailable) {
		return tagID, err
	}

	s.tags.Invalidate(ctx, spec)
	freshID, resolveErr := s.tags.Resolve(ctx, spec)
	if resolveErr != nil {
		return tagID, errors.Join(err, resolveErr)
	}
	if freshID == tagID {
		return tagID, err
	}
	s.logger.InfoContext(ctx, "retrying attach with refreshed tag id", "tag", spec.String(), "stale_tag_id", tagID, "tag_id", freshID)
	return freshID, s.contacts.AttachTag(ctx, contactID, freshID)
}
