package upstream

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// ErrUpstreamUnavailable marks a logical call that exhausted every request variant.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

const maxErrorBodyLen = 512

// StatusError describes the most specific failure recorded for a logical call.
// Status is zero when no HTTP response was received (timeout, connection error).
type StatusError struct {
	Method string
	URL    string
	Status int
	Body   string
	Err    error
}

func (e *StatusError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("upstream %s %s: %v", e.Method, e.URL, e.Err)
	}
	if e.Body == "" {
		return fmt.Sprintf("upstream %s %s: status=%d", e.Method, e.URL, e.Status)
	}
	return fmt.Sprintf("upstream %s %s: status=%d body=%s", e.Method, e.URL, e.Status, e.Body)
}

func (e *StatusError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrUpstreamUnavailable, e.Err}
	}
	return []error{ErrUpstreamUnavailable}
}

// Transient reports whether the failure is eligible for retry.
func (e *StatusError) Transient() bool {
	return isTransientStatus(e.Status)
}

// NotFound reports whether upstream answered 404.
func (e *StatusError) NotFound() bool {
	return e.Status == http.StatusNotFound
}

// StatusOf extracts the upstream HTTP status from err, or 0.
func StatusOf(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status
	}
	return 0
}

// IsTransient reports whether err is an upstream failure worth redelivering later.
// Every StatusError in a joined tree counts: one transient failure leaves the
// outcome uncertain even when another step was rejected outright.
func IsTransient(err error) bool {
	transient := false
	visitStatusErrors(err, func(statusErr *StatusError) {
		if statusErr.Transient() {
			transient = true
		}
	})
	return transient
}

func visitStatusErrors(err error, visit func(*StatusError)) {
	if err == nil {
		return
	}
	if statusErr, ok := err.(*StatusError); ok {
		visit(statusErr)
		return
	}
	switch wrapped := err.(type) {
	case interface{ Unwrap() error }:
		visitStatusErrors(wrapped.Unwrap(), visit)
	case interface{ Unwrap() []error }:
		for _, inner := range wrapped.Unwrap() {
			visitStatusErrors(inner, visit)
		}
	}
}

func isTransientStatus(status int) bool {
	return status == 0 || status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// specificity ranks failures so the most informative one is surfaced:
// validation-style 4xx, then throttling/server errors, then transport errors, then 404.
func specificity(status int) int {
	switch {
	case status == http.StatusNotFound:
		return 0
	case status == 0:
		return 1
	case isTransientStatus(status):
		return 2
	default:
		return 3
	}
}

func truncateBody(body string) string {
	body = strings.TrimSpace(body)
	if len(body) > maxErrorBodyLen {
		cut := maxErrorBodyLen
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		return body[:cut] + "..."
	}
	return body
}
