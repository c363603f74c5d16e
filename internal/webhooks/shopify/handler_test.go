package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fr0stylo/shoptag/internal/app/domain"
	"github.com/fr0stylo/shoptag/internal/upstream"
)

type fakeSyncer struct {
	calls  []domain.PurchaseRecord
	result domain.SyncResult
	err    error
}

func (f *fakeSyncer) Sync(_ context.Context, record domain.PurchaseRecord) (domain.SyncResult, error) {
	f.calls = append(f.calls, record)
	return f.result, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func signedRequest(method, topic string, body []byte) *http.Request {
	req := httptest.NewRequest(method, "/webhooks/shopify/orders-paid", bytes.NewReader(body))
	req.Header.Set(SignatureHeader, Sign([]byte(testSecret), body))
	req.Header.Set(TopicHeader, topic)
	req.Header.Set(ShopDomainHeader, testShop)
	req.Header.Set(WebhookIDHeader, "b54557e4-bdd9-4b37-8a5f-bf7d70bcd043")
	return req
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func newTestHandler(syncer PurchaseSyncer, mode DeliveryMode) *Handler {
	return NewHandler(NewVerifier(testSecret, testShop), syncer, DeliveryPolicy{Mode: mode}, discardLogger())
}

func TestHandleRejectsNonPost(t *testing.T) {
	syncer := &fakeSyncer{}
	handler := newTestHandler(syncer, DeliveryAbsorb)

	rec := httptest.NewRecorder()
	if err := handler.Handle(rec, signedRequest(http.MethodGet, TopicOrdersPaid, nil)); err != nil {
		t.Fatalf("Handle error = %v", err)
	}
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if rec.Header().Get("Allow") != http.MethodPost {
		t.Fatalf("expected Allow header, got %q", rec.Header().Get("Allow"))
	}
}

func TestHandleRejectsBadRequests(t *testing.T) {
	body := []byte(`{"email":"a@b.com"}`)
	cases := []struct {
		name   string
		mutate func(*http.Request)
		want   int
	}{
		{name: "missing signature", mutate: func(r *http.Request) { r.Header.Del(SignatureHeader) }, want: http.StatusBadRequest},
		{name: "missing topic", mutate: func(r *http.Request) { r.Header.Del(TopicHeader) }, want: http.StatusBadRequest},
		{name: "missing shop", mutate: func(r *http.Request) { r.Header.Del(ShopDomainHeader) }, want: http.StatusBadRequest},
		{name: "wrong shop", mutate: func(r *http.Request) { r.Header.Set(ShopDomainHeader, "evil.myshopify.com") }, want: http.StatusUnauthorized},
		{name: "bad signature", mutate: func(r *http.Request) { r.Header.Set(SignatureHeader, Sign([]byte("nope"), body)) }, want: http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			syncer := &fakeSyncer{}
			handler := newTestHandler(syncer, DeliveryAbsorb)
			req := signedRequest(http.MethodPost, TopicOrdersPaid, body)
			tc.mutate(req)

			rec := httptest.NewRecorder()
			if err := handler.Handle(rec, req); err != nil {
				t.Fatalf("Handle error = %v", err)
			}
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
			if len(syncer.calls) != 0 {
				t.Fatal("rejected request must not reach sync")
			}
		})
	}
}

func TestHandleRejectsUnparseableSignedBody(t *testing.T) {
	syncer := &fakeSyncer{}
	handler := newTestHandler(syncer, DeliveryAbsorb)

	rec := httptest.NewRecorder()
	if err := handler.Handle(rec, signedRequest(http.MethodPost, TopicOrdersPaid, []byte(`{not json`))); err != nil {
		t.Fatalf("Handle error = %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleRejectsOversizedBodyBeforeVerifying(t *testing.T) {
	syncer := &fakeSyncer{}
	handler := newTestHandler(syncer, DeliveryAbsorb)

	padding := strings.Repeat("x", maxPayloadBytes)
	body := []byte(`{"email":"a@b.com","note":"` + padding + `"}`)

	rec := httptest.NewRecorder()
	if err := handler.Handle(rec, signedRequest(http.MethodPost, TopicOrdersPaid, body)); err != nil {
		t.Fatalf("Handle error = %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), ErrPayloadTooLarge.Error()) {
		t.Fatalf("expected payload too large reason, got %q", rec.Body.String())
	}
	if len(syncer.calls) != 0 {
		t.Fatal("oversized request must not reach sync")
	}
}

func TestReadEventKeepsBodyAtSizeLimit(t *testing.T) {
	body := bytes.Repeat([]byte(" "), maxPayloadBytes)
	event, err := ReadEvent(signedRequest(http.MethodPost, TopicOrdersPaid, body))
	if err != nil {
		t.Fatalf("ReadEvent error = %v", err)
	}
	if len(event.Body) != maxPayloadBytes {
		t.Fatalf("expected %d bytes, got %d", maxPayloadBytes, len(event.Body))
	}
	if err := NewVerifier(testSecret, testShop).Verify(event); err != nil {
		t.Fatalf("Verify error = %v", err)
	}
}

func TestHandleIgnoresOtherTopics(t *testing.T) {
	syncer := &fakeSyncer{}
	handler := newTestHandler(syncer, DeliveryAbsorb)

	rec := httptest.NewRecorder()
	if err := handler.Handle(rec, signedRequest(http.MethodPost, "orders/create", []byte(`{"email":"a@b.com"}`))); err != nil {
		t.Fatalf("Handle error = %v", err)
	}
	if rec.Code != http.StatusOK || decodeResponse(t, rec).Status != statusIgnored {
		t.Fatalf("expected ignored 200, got %d %s", rec.Code, rec.Body.String())
	}
	if len(syncer.calls) != 0 {
		t.Fatal("other topics must not reach sync")
	}
}

func TestHandleReportsSyncResult(t *testing.T) {
	syncer := &fakeSyncer{result: domain.SyncResult{Outcome: domain.OutcomeTagged, SKU: "X1", ContactID: 42, TagID: 7}}
	handler := newTestHandler(syncer, DeliveryAbsorb)

	rec := httptest.NewRecorder()
	body := []byte(`{"email":"a@b.com","customer":{"first_name":"Ada"},"line_items":[{"sku":"X1"}]}`)
	if err := handler.Handle(rec, signedRequest(http.MethodPost, TopicOrdersPaid, body)); err != nil {
		t.Fatalf("Handle error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Status != "tagged" || resp.ContactID != 42 || resp.TagID != 7 || resp.SKU != "X1" || resp.Error != "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(syncer.calls) != 1 || syncer.calls[0].Email != "a@b.com" || syncer.calls[0].FirstName != "Ada" {
		t.Fatalf("unexpected sync input: %+v", syncer.calls)
	}
}

func TestHandleAbsorbsSyncFailures(t *testing.T) {
	failure := &upstream.StatusError{Method: http.MethodPost, URL: "https://api.kit.com/v4/subscribers", Status: http.StatusServiceUnavailable}

	cases := []struct {
		mode DeliveryMode
		err  error
		want int
	}{
		{mode: DeliveryAbsorb, err: failure, want: http.StatusOK},
		{mode: DeliveryRetryTransient, err: failure, want: http.StatusServiceUnavailable},
		{mode: DeliveryRetryTransient, err: &upstream.StatusError{Method: http.MethodPost, Status: http.StatusUnprocessableEntity}, want: http.StatusOK},
	}

	for _, tc := range cases {
		syncer := &fakeSyncer{result: domain.SyncResult{Outcome: domain.OutcomeFailed, SKU: "X1"}, err: tc.err}
		handler := newTestHandler(syncer, tc.mode)

		rec := httptest.NewRecorder()
		if err := handler.Handle(rec, signedRequest(http.MethodPost, TopicOrdersPaid, []byte(`{"email":"a@b.com","line_items":[{"sku":"X1"}]}`))); err != nil {
			t.Fatalf("Handle error = %v", err)
		}
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.mode, tc.want, rec.Code)
		}
		resp := decodeResponse(t, rec)
		if resp.Status != "error" || resp.Error == "" || resp.SKU != "X1" {
			t.Fatalf("unexpected response: %+v", resp)
		}
	}
}

func TestParseDeliveryMode(t *testing.T) {
	for raw, want := range map[string]DeliveryMode{"": DeliveryAbsorb, "ABSORB": DeliveryAbsorb, " retry-transient ": DeliveryRetryTransient} {
		got, err := ParseDeliveryMode(raw)
		if err != nil || got != want {
			t.Fatalf("ParseDeliveryMode(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := ParseDeliveryMode("retry-all"); err == nil {
		t.Fatal("expected unknown mode error")
	}
}
