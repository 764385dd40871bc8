package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"airdesk/internal/config"
	"airdesk/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventUrgentTicket, notifications.Payload{"ticketId": "HVAC-1"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := notifications.NewService(nil).Publish(context.Background(), notifications.EventTest, nil); err != nil {
		t.Fatalf("nil config should yield noop, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
		expectClick    string
	}{
		{
			name:  "urgent ticket",
			event: notifications.EventUrgentTicket,
			payload: notifications.Payload{
				"ticketId": "HVAC-2026-0115-0042",
				"issue":    "No heat",
				"city":     "Chicago",
				"caller":   "John Smith",
				"phone":    "(555) 123-4567",
				"url":      "https://airdesk.app/calls/abc",
			},
			expectTitle:    "AirDesk - Urgent Ticket HVAC-2026-0115-0042",
			expectMessage:  "🔥 No heat in Chicago\nCaller: John Smith\nPhone: (555) 123-4567",
			expectTags:     "airdesk,ticket,urgent",
			expectPriority: "urgent",
			expectClick:    "https://airdesk.app/calls/abc",
		},
		{
			name:           "urgent ticket without details",
			event:          notifications.EventUrgentTicket,
			payload:        notifications.Payload{"ticketId": "HVAC-1"},
			expectTitle:    "AirDesk - Urgent Ticket HVAC-1",
			expectMessage:  "🔥 HVAC issue in unknown location",
			expectTags:     "airdesk,ticket,urgent",
			expectPriority: "urgent",
		},
		{
			name:           "email failed",
			event:          notifications.EventEmailFailed,
			payload:        notifications.Payload{"ticketId": "HVAC-9", "error": errors.New("resend returned 500")},
			expectTitle:    "AirDesk - Dispatch Email Failed",
			expectMessage:  "📧 Ticket HVAC-9 was not e-mailed: resend returned 500",
			expectTags:     "airdesk,email,failed",
			expectPriority: "high",
		},
		{
			name:           "error",
			event:          notifications.EventError,
			payload:        notifications.Payload{"context": "extract", "error": "llm timeout"},
			expectTitle:    "AirDesk - Error",
			expectMessage:  "❌ Error with extract: llm timeout",
			expectTags:     "airdesk,error,alert",
			expectPriority: "high",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			expectTitle:    "AirDesk - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "airdesk,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				click    string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				captured.click = r.Header.Get("Click")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5
			cfg.Notifications.Urgent = true
			cfg.Notifications.Errors = true

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
			if captured.click != tc.expectClick {
				t.Fatalf("expected click %q, got %q", tc.expectClick, captured.click)
			}
		})
	}
}

func TestNtfyServiceIgnoresDisabledEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for suppressed event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Urgent = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(&cfg)
	for _, event := range []notifications.Event{
		notifications.EventUrgentTicket,
		notifications.EventEmailFailed,
		notifications.EventError,
		notifications.Event("unknown"),
	} {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"value": "ignored"}); err != nil {
			t.Fatalf("expected no error for suppressed event %s, got %v", event, err)
		}
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "topic quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventTest, nil)
	if err == nil || !strings.Contains(err.Error(), "ntfy returned 429") {
		t.Fatalf("expected ntfy status error, got %v", err)
	}
}
