package contacts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fr0stylo/shoptag/internal/upstream"
)

const (
	subscribersPath = "/subscribers"

	defaultFallbackPolls     = 3
	defaultFallbackPollDelay = time.Second
)

// ErrCreateRoutesNotFound means every contact creation route answered 404.
var ErrCreateRoutesNotFound = errors.New("contact creation routes not found")

// Gateway is the upstream call surface the directory needs.
type Gateway interface {
	Call(ctx context.Context, req upstream.Request) (upstream.Result, error)
}

// Config tunes the fallback subscription channel.
type Config struct {
	FallbackFormID    string
	FallbackPolls     int
	FallbackPollDelay time.Duration
}

// Directory finds, creates and tags upstream contacts.
type Directory struct {
	gateway   Gateway
	formID    string
	polls     int
	pollDelay time.Duration
	logger    *slog.Logger
	sleep     func(context.Context, time.Duration) error
}

// NewDirectory constructs a contact directory backed by gateway.
func NewDirectory(gateway Gateway, cfg Config, logger *slog.Logger) *Directory {
	if cfg.FallbackPolls <= 0 {
		cfg.FallbackPolls = defaultFallbackPolls
	}
	if cfg.FallbackPollDelay <= 0 {
		cfg.FallbackPollDelay = defaultFallbackPollDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{
		gateway:   gateway,
		formID:    strings.TrimSpace(cfg.FallbackFormID),
		polls:     cfg.FallbackPolls,
		pollDelay: cfg.FallbackPollDelay,
		logger:    logger,
		sleep:     sleepContext,
	}
}

type contactRecord struct {
	ID           int64  `json:"id"`
	EmailAddress string `json:"email_address"`
	Email        string `json:"email"`
}

func (c contactRecord) address() string {
	if strings.TrimSpace(c.EmailAddress) != "" {
		return strings.TrimSpace(c.EmailAddress)
	}
	return strings.TrimSpace(c.Email)
}

type contactListResponse struct {
	Subscribers []contactRecord `json:"subscribers"`
	Contacts    []contactRecord `json:"contacts"`
	Data        []contactRecord `json:"data"`
}

type contactCreateResponse struct {
	Subscriber *contactRecord `json:"subscriber"`
	Contact    *contactRecord `json:"contact"`
	ID         int64          `json:"id"`
}

func (r contactCreateResponse) id() int64 {
	switch {
	case r.Subscriber != nil && r.Subscriber.ID > 0:
		return r.Subscriber.ID
	case r.Contact != nil && r.Contact.ID > 0:
		return r.Contact.ID
	default:
		return r.ID
	}
}

// Lookup searches upstream for a contact whose email matches exactly,
// ignoring case.
func (d *Directory) Lookup(ctx context.Context, email string) (int64, bool, error) {
	email = strings.TrimSpace(email)
	result, err := d.gateway.Call(ctx, upstream.Request{
		Method:           http.MethodGet,
		Path:             subscribersPath,
		Query:            url.Values{"email_address": []string{email}},
		TolerateNotFound: true,
	})
	if err != nil {
		return 0, false, fmt.Errorf("search contact: %w", err)
	}
	if result.NotFound {
		return 0, false, nil
	}

	var listing contactListResponse
	if err := result.Decode(&listing); err != nil {
		return 0, false, fmt.Errorf("%w: decode contact search: %v", upstream.ErrUpstreamUnavailable, err)
	}
	for _, group := range [][]contactRecord{listing.Subscribers, listing.Contacts, listing.Data} {
		for _, record := range group {
			if record.ID > 0 && strings.EqualFold(record.address(), email) {
				return record.ID, true, nil
			}
		}
	}
	return 0, false, nil
}

// Upsert returns the ID of the contact for email, creating it when absent.
//
// Lookup, then create, then a second lookup in case a concurrent delivery
// created the contact first, then the fallback form channel when direct
// creation routes do not exist upstream.
func (d *Directory) Upsert(ctx context.Context, email, firstName, lastName string) (int64, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return 0, fmt.Errorf("%w: empty email", upstream.ErrUpstreamUnavailable)
	}

	id, found, lookupErr := d.Lookup(ctx, email)
	if found {
		return id, nil
	}
	if lookupErr != nil {
		d.logger.WarnContext(ctx, "contact lookup failed, attempting create", "email", email, "error", lookupErr)
	}

	id, createErr := d.create(ctx, email, firstName, lastName)
	if createErr == nil {
		d.logger.InfoContext(ctx, "created upstream contact", "email", email, "contact_id", id)
		return id, nil
	}

	id, found, raceErr := d.Lookup(ctx, email)
	if found {
		d.logger.InfoContext(ctx, "contact appeared after failed create", "email", email, "contact_id", id, "create_error", createErr)
		return id, nil
	}

	if errors.Is(createErr, ErrCreateRoutesNotFound) && d.formID != "" {
		id, err := d.subscribeViaForm(ctx, email, firstName)
		if err == nil {
			return id, nil
		}
		return 0, fmt.Errorf("upsert contact %s: %w", email, errors.Join(createErr, err))
	}

	if raceErr != nil {
		return 0, fmt.Errorf("upsert contact %s: %w", email, errors.Join(createErr, raceErr))
	}
	return 0, fmt.Errorf("upsert contact %s: %w", email, createErr)
}

func (d *Directory) create(ctx context.Context, email, firstName, lastName string) (int64, error) {
	body := map[string]any{"email_address": email}
	if first := strings.TrimSpace(firstName); first != "" {
		body["first_name"] = first
	}
	if last := strings.TrimSpace(lastName); last != "" {
		body["fields"] = map[string]string{"last_name": last}
	}

	result, err := d.gateway.Call(ctx, upstream.Request{
		Method:           http.MethodPost,
		Path:             subscribersPath,
		Body:             body,
		TolerateNotFound: true,
	})
	if err != nil {
		return 0, fmt.Errorf("create contact: %w", err)
	}
	if result.NotFound {
		return 0, fmt.Errorf("%w: %w", upstream.ErrUpstreamUnavailable, ErrCreateRoutesNotFound)
	}

	var created contactCreateResponse
	if err := result.Decode(&created); err != nil {
		return 0, fmt.Errorf("%w: decode created contact: %v", upstream.ErrUpstreamUnavailable, err)
	}
	if id := created.id(); id > 0 {
		return id, nil
	}
	return 0, fmt.Errorf("%w: created contact without an id", upstream.ErrUpstreamUnavailable)
}

func (d *Directory) subscribeViaForm(ctx context.Context, email, firstName string) (int64, error) {
	body := map[string]any{"email_address": email}
	if first := strings.TrimSpace(firstName); first != "" {
		body["first_name"] = first
	}
	if _, err := d.gateway.Call(ctx, upstream.Request{
		Method: http.MethodPost,
		Path:   "/forms/" + url.PathEscape(d.formID) + "/subscribers",
		Body:   body,
	}); err != nil {
		return 0, fmt.Errorf("subscribe via form %s: %w", d.formID, err)
	}
	d.logger.InfoContext(ctx, "submitted contact through fallback form", "email", email, "form_id", d.formID)

	var lastErr error
	for poll := 1; poll <= d.polls; poll++ {
		if err := d.sleep(ctx, d.pollDelay); err != nil {
			return 0, fmt.Errorf("%w: %w", upstream.ErrUpstreamUnavailable, err)
		}
		id, found, err := d.Lookup(ctx, email)
		if found {
			return id, nil
		}
		lastErr = err
	}
	if lastErr != nil {
		return 0, fmt.Errorf("contact not visible after form subscription: %w", lastErr)
	}
	return 0, fmt.Errorf("%w: contact not visible after %d polls", upstream.ErrUpstreamUnavailable, d.polls)
}

// AttachTag tags a contact. Upstream treats re-tagging as a no-op, so no
// local dedup is done; a failed primary route is retried once on the
// alternate spelling.
func (d *Directory) AttachTag(ctx context.Context, contactID, tagID int64) error {
	contact := strconv.FormatInt(contactID, 10)
	tag := strconv.FormatInt(tagID, 10)

	_, primaryErr := d.gateway.Call(ctx, upstream.Request{
		Method: http.MethodPost,
		Path:   "/tags/" + tag + subscribersPath + "/" + contact,
		Body:   map[string]any{},
	})
	if primaryErr == nil {
		return nil
	}
	d.logger.WarnContext(ctx, "primary tag route failed, trying alternate", "contact_id", contactID, "tag_id", tagID, "error", primaryErr)

	_, alternateErr := d.gateway.Call(ctx, upstream.Request{
		Method: http.MethodPost,
		Path:   subscribersPath + "/" + contact + "/tags",
		Body:   map[string]any{"tag_id": tagID},
	})
	if alternateErr == nil {
		return nil
	}
	return fmt.Errorf("attach tag %d to contact %d: %w", tagID, contactID, errors.Join(primaryErr, alternateErr))
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
