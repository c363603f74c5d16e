package ports

import (
	"context"

	"github.com/fr0stylo/shoptag/internal/tagging"
)

// TagMapping resolves a SKU to its configured tag.
type TagMapping interface {
	Lookup(sku string) (tagging.Spec, bool)
}

// TagResolver turns tag specs into upstream tag IDs.
type TagResolver interface {
	Resolve(ctx context.Context, spec tagging.Spec) (int64, error)
	Invalidate(ctx context.Context, spec tagging.Spec)
}

// ContactDirectory is the upstream contact surface needed by purchase sync.
type ContactDirectory interface {
	Upsert(ctx context.Context, email, firstName, lastName string) (int64, error)
	AttachTag(ctx context.Context, contactID, tagID int64) error
}
