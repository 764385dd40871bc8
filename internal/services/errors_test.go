package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"airdesk/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "notify", "resend", "send failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"notify", "resend", "send failed", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{services.Wrap(services.ErrTransient, "extract", "llm", "rate limited", nil), true},
		{services.Wrap(services.ErrTimeout, "notify", "resend", "deadline", context.DeadlineExceeded), true},
		{services.Wrap(services.ErrValidation, "ticket", "create", "missing firm", nil), false},
		{errors.New("plain"), false},
		{nil, false},
	}
	for _, tc := range cases {
		if got := services.Retryable(tc.err); got != tc.want {
			t.Fatalf("Retryable(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestDetails(t *testing.T) {
	cause := errors.New("connection refused")
	err := services.Wrap(services.ErrConfiguration, "notify", "resend", "api key missing", cause)
	details := services.Details(err)
	if details.Kind != services.KindConfiguration {
		t.Fatalf("unexpected kind: %s", details.Kind)
	}
	if details.Stage != "notify" || details.Operation != "resend" {
		t.Fatalf("unexpected stage/operation: %+v", details)
	}
	if details.Message != "api key missing" {
		t.Fatalf("unexpected message: %q", details.Message)
	}
	if details.Cause != cause {
		t.Fatalf("expected cause to be preserved")
	}
	if details.Hint == "" {
		t.Fatal("expected hint for configuration errors")
	}

	plain := services.Details(errors.New("  raw failure "))
	if plain.Kind != services.KindUnknown || plain.Message != "raw failure" {
		t.Fatalf("unexpected plain details: %+v", plain)
	}
}
