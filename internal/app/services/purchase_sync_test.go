package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/fr0stylo/shoptag/internal/app/domain"
	portmocks "github.com/fr0stylo/shoptag/internal/app/ports/mocks"
	"github.com/fr0stylo/shoptag/internal/tagging"
	"github.com/fr0stylo/shoptag/internal/upstream"
)

func testMapping() tagging.Mapping {
	return tagging.Mapping{
		"X1":     {ID: 7},
		"COURSE": {Name: "Course Buyers"},
	}
}

func TestPurchaseSyncService_Sync_TagsContact(t *testing.T) {
	tags := portmocks.NewMockTagResolver(t)
	contacts := portmocks.NewMockContactDirectory(t)
	svc := NewPurchaseSyncService(testMapping(), tags, contacts, nil)

	tags.EXPECT().Resolve(mock.Anything, tagging.Spec{ID: 7}).Return(int64(7), nil).Once()
	contacts.EXPECT().Upsert(mock.Anything, "a@b.co", "Ada", "Lovelace").Return(int64(42), nil).Once()
	contacts.EXPECT().AttachTag(mock.Anything, int64(42), int64(7)).Return(nil).Once()

	result, err := svc.Sync(context.Background(), domain.PurchaseRecord{
		Email:     "a@b.co",
		FirstName: "Ada",
		LastName:  "Lovelace",
		SKUs:      []string{"", "X1", "COURSE"},
	})
	if err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if result.Outcome != domain.OutcomeTagged || result.ContactID != 42 || result.TagID != 7 || result.SKU != "X1" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestPurchaseSyncService_Sync_EarlyTerminalsSkipUpstream(t *testing.T) {
	cases := []struct {
		name   string
		record domain.PurchaseRecord
		want   domain.Outcome
	}{
		{name: "no email", record: domain.PurchaseRecord{SKUs: []string{"X1"}}, want: domain.OutcomeSkippedNoEmail},
		{name: "blank email", record: domain.PurchaseRecord{Email: "  ", SKUs: []string{"X1"}}, want: domain.OutcomeSkippedNoEmail},
		{name: "no line items", record: domain.PurchaseRecord{Email: "a@b.co"}, want: domain.OutcomeSkippedNoSKU},
		{name: "blank skus", record: domain.PurchaseRecord{Email: "a@b.co", SKUs: []string{"", " "}}, want: domain.OutcomeSkippedNoSKU},
		{name: "unmapped first sku", record: domain.PurchaseRecord{Email: "a@b.co", SKUs: []string{"NOPE", "X1"}}, want: domain.OutcomeSkippedUnmappedSKU},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tags := portmocks.NewMockTagResolver(t)
			contacts := portmocks.NewMockContactDirectory(t)
			svc := NewPurchaseSyncService(testMapping(), tags, contacts, nil)

			result, err := svc.Sync(context.Background(), tc.record)
			if err != nil {
				t.Fatalf("Sync returned error: %v", err)
			}
			if result.Outcome != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, result.Outcome)
			}
			tags.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
			contacts.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestPurchaseSyncService_Sync_ResolveFailureStopsFlow(t *testing.T) {
	tags := portmocks.NewMockTagResolver(t)
	contacts := portmocks.NewMockContactDirectory(t)
	svc := NewPurchaseSyncService(testMapping(), tags, contacts, nil)

	tags.EXPECT().Resolve(mock.Anything, tagging.Spec{Name: "Course Buyers"}).
		Return(int64(0), fmt.Errorf("%w: created tag without an id", tagging.ErrConfig)).Once()

	result, err := svc.Sync(context.Background(), domain.PurchaseRecord{Email: "a@b.co", SKUs: []string{"COURSE"}})
	if ClassifySyncError(err) != SyncErrorConfig {
		t.Fatalf("expected config error, got %v", err)
	}
	if result.Outcome != domain.OutcomeFailed || result.SKU != "COURSE" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestPurchaseSyncService_Sync_UpsertFailureIsTransient(t *testing.T) {
	tags := portmocks.NewMockTagResolver(t)
	contacts := portmocks.NewMockContactDirectory(t)
	svc := NewPurchaseSyncService(testMapping(), tags, contacts, nil)

	tags.EXPECT().Resolve(mock.Anything, tagging.Spec{ID: 7}).Return(int64(7), nil).Once()
	contacts.EXPECT().Upsert(mock.Anything, "a@b.co", "", "").
		Return(int64(0), &upstream.StatusError{Method: http.MethodPost, URL: "/v4/subscribers", Status: http.StatusServiceUnavailable}).Once()

	_, err := svc.Sync(context.Background(), domain.PurchaseRecord{Email: "a@b.co", SKUs: []string{"X1"}})
	if ClassifySyncError(err) != SyncErrorUpstreamTransient {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestPurchaseSyncService_Sync_RefreshesRejectedNamedTag(t *testing.T) {
	tags := portmocks.NewMockTagResolver(t)
	contacts := portmocks.NewMockContactDirectory(t)
	svc := NewPurchaseSyncService(testMapping(), tags, contacts, nil)

	spec := tagging.Spec{Name: "Course Buyers"}
	tags.EXPECT().Resolve(mock.Anything, spec).Return(int64(3), nil).Once()
	contacts.EXPECT().Upsert(mock.Anything, "a@b.co", "", "").Return(int64(42), nil).Once()
	contacts.EXPECT().AttachTag(mock.Anything, int64(42), int64(3)).
		Return(&upstream.StatusError{Method: http.MethodPost, URL: "/v4/tags/3/subscribers/42", Status: http.StatusUnprocessableEntity}).Once()
	tags.EXPECT().Invalidate(mock.Anything, spec).Return().Once()
	tags.EXPECT().Resolve(mock.Anything, spec).Return(int64(9), nil).Once()
	contacts.EXPECT().AttachTag(mock.Anything, int64(42), int64(9)).Return(nil).Once()

	result, err := svc.Sync(context.Background(), domain.PurchaseRecord{Email: "a@b.co", SKUs: []string{"COURSE"}})
	if err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if result.Outcome != domain.OutcomeTagged || result.TagID != 9 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestPurchaseSyncService_Sync_NumericTagRejectionIsFinal(t *testing.T) {
	tags := portmocks.NewMockTagResolver(t)
	contacts := portmocks.NewMockContactDirectory(t)
	svc := NewPurchaseSyncService(testMapping(), tags, contacts, nil)

	tags.EXPECT().Resolve(mock.Anything, tagging.Spec{ID: 7}).Return(int64(7), nil).Once()
	contacts.EXPECT().Upsert(mock.Anything, "a@b.co", "", "").Return(int64(42), nil).Once()
	contacts.EXPECT().AttachTag(mock.Anything, int64(42), int64(7)).
		Return(&upstream.StatusError{Method: http.MethodPost, URL: "/v4/tags/7/subscribers/42", Status: http.StatusNotFound}).Once()

	_, err := svc.Sync(context.Background(), domain.PurchaseRecord{Email: "a@b.co", SKUs: []string{"X1"}})
	if ClassifySyncError(err) != SyncErrorUpstreamRejected {
		t.Fatalf("expected rejected error, got %v", err)
	}
	tags.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
}

func TestClassifySyncError(t *testing.T) {
	cases := map[SyncErrorKind]error{
		SyncErrorUnknown:           errors.New("boom"),
		SyncErrorConfig:            fmt.Errorf("wrap: %w", tagging.ErrConfig),
		SyncErrorCanceled:          fmt.Errorf("wrap: %w", context.Canceled),
		SyncErrorUpstreamTransient: &upstream.StatusError{Status: 0},
		SyncErrorUpstreamRejected:  &upstream.StatusError{Status: http.StatusBadRequest},
	}
	for want, err := range cases {
		if got := ClassifySyncError(err); got != want {
			t.Fatalf("ClassifySyncError(%v) = %s, want %s", err, got, want)
		}
	}
	if got := ClassifySyncError(nil); got != SyncErrorUnknown {
		t.Fatalf("nil error classified as %s", got)
	}
}

func TestClassifySyncErrorTreatsRejectedCreateWithFailedLookupAsTransient(t *testing.T) {
	createErr := fmt.Errorf("create contact: %w", &upstream.StatusError{Method: http.MethodPost, URL: "/v4/subscribers", Status: http.StatusUnprocessableEntity})
	lookupErr := fmt.Errorf("lookup contact: %w", &upstream.StatusError{Method: http.MethodGet, URL: "/v4/subscribers", Status: http.StatusServiceUnavailable})
	err := fmt.Errorf("upsert contact a@b.com: %w", errors.Join(createErr, lookupErr))

	if got := ClassifySyncError(err); got != SyncErrorUpstreamTransient {
		t.Fatalf("ClassifySyncError = %s, want %s", got, SyncErrorUpstreamTransient)
	}
}
