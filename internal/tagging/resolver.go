package tagging

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/fr0stylo/shoptag/internal/upstream"
)

const (
	tagsPath     = "/tags"
	tagsPageSize = "1000"
	maxTagPages  = 50
)

// Gateway is the upstream call surface the resolver needs.
type Gateway interface {
	Call(ctx context.Context, req upstream.Request) (upstream.Result, error)
}

// Resolver turns tag specs into upstream tag IDs, creating named tags on demand.
type Resolver struct {
	gateway Gateway
	cache   Cache
	logger  *slog.Logger
}

// NewResolver constructs a resolver. A nil cache disables memoization.
func NewResolver(gateway Gateway, cache Cache, logger *slog.Logger) *Resolver {
	if cache == nil {
		cache = NopCache{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{gateway: gateway, cache: cache, logger: logger}
}

type tagListResponse struct {
	Tags       []upstream.Tag `json:"tags"`
	Pagination struct {
		HasNextPage bool   `json:"has_next_page"`
		EndCursor   string `json:"end_cursor"`
	} `json:"pagination"`
}

type tagCreateResponse struct {
	Tag *upstream.Tag `json:"tag"`
	ID  int64         `json:"id"`
}

// Resolve returns the upstream tag ID for spec. Numeric specs never touch upstream.
func (r *Resolver) Resolve(ctx context.Context, spec Spec) (int64, error) {
	if spec.Numeric() {
		return spec.ID, nil
	}
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return 0, fmt.Errorf("%w: tag spec has neither id nor name", ErrConfig)
	}

	if id, ok := r.cache.Get(ctx, name); ok {
		return id, nil
	}

	id, found, err := r.findByName(ctx, name)
	if err != nil {
		return 0, err
	}
	if found {
		r.cache.Set(ctx, name, id)
		return id, nil
	}

	id, err = r.create(ctx, name)
	if err != nil {
		return 0, err
	}
	r.cache.Set(ctx, name, id)
	return id, nil
}

// Invalidate drops a cached name lookup after upstream rejected its ID.
func (r *Resolver) Invalidate(ctx context.Context, spec Spec) {
	if spec.Numeric() || strings.TrimSpace(spec.Name) == "" {
		return
	}
	r.cache.Delete(ctx, spec.Name)
}

func (r *Resolver) findByName(ctx context.Context, name string) (int64, bool, error) {
	cursor := ""
	for page := 0; page < maxTagPages; page++ {
		query := url.Values{"per_page": []string{tagsPageSize}}
		if cursor != "" {
			query.Set("after", cursor)
		}
		result, err := r.gateway.Call(ctx, upstream.Request{
			Method:           http.MethodGet,
			Path:             tagsPath,
			Query:            query,
			TolerateNotFound: true,
		})
		if err != nil {
			return 0, false, fmt.Errorf("list tags: %w", err)
		}
		if result.NotFound {
			return 0, false, nil
		}

		var listing tagListResponse
		if err := result.Decode(&listing); err != nil {
			return 0, false, fmt.Errorf("%w: decode tag listing: %v", upstream.ErrUpstreamUnavailable, err)
		}
		for _, tag := range listing.Tags {
			if strings.EqualFold(strings.TrimSpace(tag.Name), name) && tag.ID > 0 {
				return tag.ID, true, nil
			}
		}
		if !listing.Pagination.HasNextPage || listing.Pagination.EndCursor == "" || listing.Pagination.EndCursor == cursor {
			return 0, false, nil
		}
		cursor = listing.Pagination.EndCursor
	}
	r.logger.WarnContext(ctx, "tag listing truncated", "tag", name, "pages", maxTagPages)
	return 0, false, nil
}

func (r *Resolver) create(ctx context.Context, name string) (int64, error) {
	result, err := r.gateway.Call(ctx, upstream.Request{
		Method: http.MethodPost,
		Path:   tagsPath,
		Body:   map[string]string{"name": name},
	})
	if err != nil {
		// A concurrent delivery may have created the tag first.
		if id, found, findErr := r.findByName(ctx, name); findErr == nil && found {
			return id, nil
		}
		return 0, fmt.Errorf("create tag %q: %w", name, err)
	}

	var created tagCreateResponse
	if err := result.Decode(&created); err != nil {
		return 0, fmt.Errorf("%w: decode created tag %q: %v", ErrConfig, name, err)
	}
	id := created.ID
	if created.Tag != nil && created.Tag.ID > 0 {
		id = created.Tag.ID
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: upstream created tag %q without an id", ErrConfig, name)
	}
	r.logger.InfoContext(ctx, "created upstream tag", "tag", name, "tag_id", id)
	return id, nil
}
