package contacts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fr0stylo/shoptag/internal/upstream"
)

type scriptedGateway struct {
	mu    sync.Mutex
	calls []upstream.Request
	fn    func(req upstream.Request) (upstream.Result, error)
}

func (g *scriptedGateway) Call(_ context.Context, req upstream.Request) (upstream.Result, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	g.mu.Unlock()
	return g.fn(req)
}

func (g *scriptedGateway) count(method, pathPrefix string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, call := range g.calls {
		if call.Method == method && strings.HasPrefix(call.Path, pathPrefix) {
			n++
		}
	}
	return n
}

func ok(t *testing.T, body any) upstream.Result {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return upstream.Result{Status: http.StatusOK, Body: raw}
}

func notFound() upstream.Result {
	return upstream.Result{Status: http.StatusNotFound, NotFound: true}
}

func rejected(status int) error {
	return &upstream.StatusError{Method: http.MethodPost, URL: "https://api.example/v4/subscribers", Status: status}
}

func newTestDirectory(gw Gateway, formID string) (*Directory, *[]time.Duration) {
	dir := NewDirectory(gw, Config{FallbackFormID: formID}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	var sleeps []time.Duration
	dir.sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return dir, &sleeps
}

func TestUpsertReturnsExistingContact(t *testing.T) {
	t.Parallel()

	gw := &scriptedGateway{fn: func(req upstream.Request) (upstream.Result, error) {
		if req.Method != http.MethodGet {
			t.Fatalf("unexpected write: %+v", req)
		}
		if req.Query.Get("email_address") != "buyer@example.com" {
			t.Fatalf("unexpected query: %v", req.Query)
		}
		return ok(t, map[string]any{"subscribers": []map[string]any{
			{"id": 3, "email_address": "other@example.com"},
			{"id": 12, "email_address": "Buyer@Example.com"},
		}}), nil
	}}
	dir, _ := newTestDirectory(gw, "")

	id, err := dir.Upsert(context.Background(), " buyer@example.com ", "Ada", "Lovelace")
	if err != nil {
		t.Fatalf("Upsert error = %v", err)
	}
	if id != 12 {
		t.Fatalf("expected 12, got %d", id)
	}
	if len(gw.calls) != 1 {
		t.Fatalf("expected a single lookup, got %d calls", len(gw.calls))
	}
}

func TestUpsertCreatesMissingContact(t *testing.T) {
	t.Parallel()

	gw := &scriptedGateway{fn: func(req upstream.Request) (upstream.Result, error) {
		if req.Method == http.MethodGet {
			return ok(t, map[string]any{"subscribers": []any{}}), nil
		}
		body, _ := req.Body.(map[string]any)
		if body["email_address"] != "buyer@example.com" || body["first_name"] != "Ada" {
			t.Fatalf("unexpected create body: %#v", req.Body)
		}
		fields, _ := body["fields"].(map[string]string)
		if fields["last_name"] != "Lovelace" {
			t.Fatalf("expected last name field, got %#v", body["fields"])
		}
		return ok(t, map[string]any{"subscriber": map[string]any{"id": 77}}), nil
	}}
	dir, _ := newTestDirectory(gw, "")

	id, err := dir.Upsert(context.Background(), "buyer@example.com", "Ada", "Lovelace")
	if err != nil {
		t.Fatalf("Upsert error = %v", err)
	}
	if id != 77 {
		t.Fatalf("expected 77, got %d", id)
	}
}

func TestUpsertRecoversFromCreateRace(t *testing.T) {
	t.Parallel()

	lookups := 0
	gw := &scriptedGateway{fn: func(req upstream.Request) (upstream.Result, error) {
		if req.Method == http.MethodGet {
			lookups++
			if lookups == 1 {
				return ok(t, map[string]any{"subscribers": []any{}}), nil
			}
			return ok(t, map[string]any{"data": []map[string]any{{"id": 31, "email": "buyer@example.com"}}}), nil
		}
		return upstream.Result{}, rejected(http.StatusUnprocessableEntity)
	}}
	dir, _ := newTestDirectory(gw, "")

	id, err := dir.Upsert(context.Background(), "buyer@example.com", "", "")
	if err != nil {
		t.Fatalf("Upsert error = %v", err)
	}
	if id != 31 {
		t.Fatalf("expected 31, got %d", id)
	}
	if gw.count(http.MethodGet, "/subscribers") != 2 || gw.count(http.MethodPost, "/subscribers") != 1 {
		t.Fatalf("expected lookup, create, lookup; got %+v", gw.calls)
	}
}

func TestUpsertUsesFallbackFormWhenCreateRoutesMissing(t *testing.T) {
	t.Parallel()

	formSubmitted := false
	lookupsAfterForm := 0
	gw := &scriptedGateway{fn: func(req upstream.Request) (upstream.Result, error) {
		switch {
		case req.Method == http.MethodGet && !formSubmitted:
			return notFound(), nil
		case req.Method == http.MethodGet:
			lookupsAfterForm++
			if lookupsAfterForm < 2 {
				return ok(t, map[string]any{"subscribers": []any{}}), nil
			}
			return ok(t, map[string]any{"subscribers": []map[string]any{{"id": 55, "email_address": "buyer@example.com"}}}), nil
		case req.Path == "/subscribers":
			return notFound(), nil
		case req.Path == "/forms/991/subscribers":
			formSubmitted = true
			return ok(t, map[string]any{}), nil
		}
		t.Fatalf("unexpected request: %+v", req)
		return upstream.Result{}, nil
	}}
	dir, sleeps := newTestDirectory(gw, "991")

	id, err := dir.Upsert(context.Background(), "buyer@example.com", "Ada", "")
	if err != nil {
		t.Fatalf("Upsert error = %v", err)
	}
	if id != 55 {
		t.Fatalf("expected 55, got %d", id)
	}
	if len(*sleeps) != 2 || (*sleeps)[0] != time.Second {
		t.Fatalf("expected two 1s polls, got %v", *sleeps)
	}
}

func TestUpsertFallbackGivesUpAfterPolls(t *testing.T) {
	t.Parallel()

	gw := &scriptedGateway{fn: func(req upstream.Request) (upstream.Result, error) {
		if req.Method == http.MethodGet || req.Path == "/subscribers" {
			return notFound(), nil
		}
		return ok(t, map[string]any{}), nil
	}}
	dir, sleeps := newTestDirectory(gw, "991")

	_, err := dir.Upsert(context.Background(), "buyer@example.com", "", "")
	if !errors.Is(err, upstream.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if len(*sleeps) != defaultFallbackPolls {
		t.Fatalf("expected %d polls, got %d", defaultFallbackPolls, len(*sleeps))
	}
}

func TestUpsertWithoutFallbackFormFails(t *testing.T) {
	t.Parallel()

	gw := &scriptedGateway{fn: func(req upstream.Request) (upstream.Result, error) {
		return notFound(), nil
	}}
	dir, _ := newTestDirectory(gw, "")

	_, err := dir.Upsert(context.Background(), "buyer@example.com", "", "")
	if !errors.Is(err, upstream.ErrUpstreamUnavailable) || !errors.Is(err, ErrCreateRoutesNotFound) {
		t.Fatalf("expected create routes not found, got %v", err)
	}
	if gw.count(http.MethodPost, "/forms/") != 0 {
		t.Fatal("form channel must not be used without a configured form")
	}
}

func TestUpsertTransientFailureIsUnavailable(t *testing.T) {
	t.Parallel()

	gw := &scriptedGateway{fn: func(req upstream.Request) (upstream.Result, error) {
		return upstream.Result{}, rejected(http.StatusServiceUnavailable)
	}}
	dir, _ := newTestDirectory(gw, "991")

	_, err := dir.Upsert(context.Background(), "buyer@example.com", "", "")
	if !upstream.IsTransient(err) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if gw.count(http.MethodPost, "/forms/") != 0 {
		t.Fatal("form channel is only for missing create routes")
	}
}

func TestAttachTagUsesPrimaryRoute(t *testing.T) {
	t.Parallel()

	gw := &scriptedGateway{fn: func(req upstream.Request) (upstream.Result, error) {
		if req.Path != "/tags/7/subscribers/42" {
			t.Fatalf("unexpected path %s", req.Path)
		}
		return ok(t, map[string]any{}), nil
	}}
	dir, _ := newTestDirectory(gw, "")

	if err := dir.AttachTag(context.Background(), 42, 7); err != nil {
		t.Fatalf("AttachTag error = %v", err)
	}
	if len(gw.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(gw.calls))
	}
}

func TestAttachTagFallsBackToAlternateRoute(t *testing.T) {
	t.Parallel()

	gw := &scriptedGateway{fn: func(req upstream.Request) (upstream.Result, error) {
		if req.Path == "/tags/7/subscribers/42" {
			return upstream.Result{}, rejected(http.StatusNotFound)
		}
		body, _ := req.Body.(map[string]any)
		if req.Path != "/subscribers/42/tags" || body["tag_id"] != int64(7) {
			t.Fatalf("unexpected alternate request: %+v", req)
		}
		return ok(t, map[string]any{}), nil
	}}
	dir, _ := newTestDirectory(gw, "")

	if err := dir.AttachTag(context.Background(), 42, 7); err != nil {
		t.Fatalf("AttachTag error = %v", err)
	}
}

func TestAttachTagReportsBothFailures(t *testing.T) {
	t.Parallel()

	gw := &scriptedGateway{fn: func(req upstream.Request) (upstream.Result, error) {
		return upstream.Result{}, rejected(http.StatusUnprocessableEntity)
	}}
	dir, _ := newTestDirectory(gw, "")

	err := dir.AttachTag(context.Background(), 42, 7)
	if upstream.StatusOf(err) != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 status, got %v", err)
	}
	if len(gw.calls) != 2 {
		t.Fatalf("expected primary and alternate, got %d calls", len(gw.calls))
	}
}
