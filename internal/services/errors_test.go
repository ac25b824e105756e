package services_test

import (
	"errors"
	"strings"
	"testing"

	"sentimark/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrRemoteCall, "provider", "complete", "request failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrRemoteCall) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"provider", "complete", "request failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "cache", "load", "", nil)
	if !errors.Is(err, services.ErrRemoteCall) {
		t.Fatalf("expected default marker, got %v", err)
	}
}

func TestStatusErrorClassification(t *testing.T) {
	cases := []struct {
		status       int
		temporary    bool
		unauthorized bool
	}{
		{status: 408, temporary: true},
		{status: 429, temporary: true},
		{status: 500, temporary: true},
		{status: 503, temporary: true},
		{status: 400},
		{status: 401, unauthorized: true},
		{status: 403, unauthorized: true},
		{status: 404},
	}
	for _, tc := range cases {
		err := &services.StatusError{StatusCode: tc.status, Body: "detail"}
		if got := err.Temporary(); got != tc.temporary {
			t.Errorf("status %d: Temporary() = %v, want %v", tc.status, got, tc.temporary)
		}
		if got := err.Unauthorized(); got != tc.unauthorized {
			t.Errorf("status %d: Unauthorized() = %v, want %v", tc.status, got, tc.unauthorized)
		}
	}
}

func TestStatusErrorSurvivesWrap(t *testing.T) {
	statusErr := &services.StatusError{StatusCode: 429, Body: "rate limited"}
	wrapped := services.Wrap(services.ErrRemoteCall, "provider", "complete", "", statusErr)

	var unwrapped *services.StatusError
	if !errors.As(wrapped, &unwrapped) {
		t.Fatalf("expected StatusError in chain, got %v", wrapped)
	}
	if unwrapped.StatusCode != 429 {
		t.Fatalf("expected status 429, got %d", unwrapped.StatusCode)
	}
	if !strings.Contains(wrapped.Error(), "http 429") {
		t.Fatalf("expected status in message, got %q", wrapped.Error())
	}
}

func TestTerminal(t *testing.T) {
	cfgErr := services.Wrap(services.ErrConfiguration, "config", "validate", "missing api key", nil)
	if !services.Terminal(cfgErr) {
		t.Fatalf("expected configuration error to be terminal, got %v", cfgErr)
	}

	parseErr := services.Wrap(services.ErrParse, "normalizer", "decode", "no json", nil)
	if services.Terminal(parseErr) {
		t.Fatalf("expected parse error to be recoverable, got %v", parseErr)
	}
	if services.Terminal(nil) {
		t.Fatal("nil error must not be terminal")
	}
}
