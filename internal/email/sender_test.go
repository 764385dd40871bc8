package email

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type scriptedDeliverer struct {
	errs  []error
	calls []Message
}

func (d *scriptedDeliverer) Deliver(_ context.Context, msg Message) (string, error) {
	d.calls = append(d.calls, msg)
	if i := len(d.calls) - 1; i < len(d.errs) && d.errs[i] != nil {
		return "", d.errs[i]
	}
	return fmt.Sprintf("email_%d", len(d.calls)), nil
}

func recordSleeps(slept *[]time.Duration) SenderOption {
	return WithSleep(func(_ context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	})
}

func TestBackoffSchedule(t *testing.T) {
	got := []time.Duration{Backoff(1), Backoff(2), Backoff(3), Backoff(4)}
	want := []time.Duration{0, time.Second, 2 * time.Second, 4 * time.Second}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("backoff mismatch (-want +got):\n%s", diff)
	}
}

func TestSenderRetriesThenSucceeds(t *testing.T) {
	deliverer := &scriptedDeliverer{errs: []error{errors.New("503"), errors.New("502")}}
	var slept []time.Duration
	sender := NewSender(deliverer, SenderConfig{CC: []string{"owner@example.com"}}, recordSleeps(&slept))

	result, err := sender.Send(context.Background(), Message{To: []string{"dispatch@example.com"}})
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if result.Attempts != 3 || result.ID != "email_3" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if diff := cmp.Diff([]time.Duration{time.Second, 2 * time.Second}, slept); diff != "" {
		t.Fatalf("sleep mismatch (-want +got):\n%s", diff)
	}
	last := deliverer.calls[2]
	if last.From != DefaultFrom || len(last.CC) != 1 {
		t.Fatalf("envelope defaults not applied: %+v", last)
	}
}

func TestSenderReturnsLastError(t *testing.T) {
	final := errors.New("resend 500 third")
	deliverer := &scriptedDeliverer{errs: []error{errors.New("first"), errors.New("second"), final}}
	var slept []time.Duration
	sender := NewSender(deliverer, SenderConfig{}, recordSleeps(&slept))

	result, err := sender.Send(context.Background(), Message{To: []string{"a@b.co"}})
	if !errors.Is(err, final) {
		t.Fatalf("expected last error, got %v", err)
	}
	if result.Attempts != 3 || len(deliverer.calls) != 3 || len(slept) != 2 {
		t.Fatalf("unexpected attempts: result=%+v calls=%d sleeps=%d", result, len(deliverer.calls), len(slept))
	}
}

func TestSenderHonorsMaxAttempts(t *testing.T) {
	deliverer := &scriptedDeliverer{errs: []error{errors.New("1"), errors.New("2"), errors.New("3"), errors.New("4")}}
	var slept []time.Duration
	sender := NewSender(deliverer, SenderConfig{MaxAttempts: 4}, recordSleeps(&slept))

	if _, err := sender.Send(context.Background(), Message{To: []string{"a@b.co"}}); err == nil {
		t.Fatal("expected failure")
	}
	if diff := cmp.Diff([]time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, slept); diff != "" {
		t.Fatalf("sleep mismatch (-want +got):\n%s", diff)
	}
}

func TestSenderStopsOnCancel(t *testing.T) {
	deliverer := &scriptedDeliverer{errs: []error{errors.New("1"), errors.New("2"), errors.New("3")}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sender := NewSender(deliverer, SenderConfig{})

	result, err := sender.Send(ctx, Message{To: []string{"a@b.co"}})
	if err == nil || result.Attempts != 1 {
		t.Fatalf("expected single failed attempt, got %+v %v", result, err)
	}
	if len(deliverer.calls) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(deliverer.calls))
	}
}

func TestSenderDoesNotRetryMissingKey(t *testing.T) {
	deliverer := &scriptedDeliverer{errs: []error{ErrNotConfigured}}
	sender := NewSender(deliverer, SenderConfig{})

	result, err := sender.Send(context.Background(), Message{To: []string{"a@b.co"}})
	if !errors.Is(err, ErrNotConfigured) || result.Attempts != 1 {
		t.Fatalf("expected immediate configuration failure, got %+v %v", result, err)
	}
}
