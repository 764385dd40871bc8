package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"airdesk/internal/config"
)

const userAgent = "AirDesk/1.0"

// Event names a notification category.
type Event string

const (
	// EventUrgentTicket fires when an URGENT ticket is created.
	EventUrgentTicket Event = "urgent_ticket"
	// EventEmailFailed fires when a dispatch e-mail exhausted its retries.
	EventEmailFailed Event = "email_failed"
	// EventError fires when a call fails a workflow stage.
	EventError Event = "error"
	// EventTest is sent by `airdesk notify test`.
	EventTest Event = "test"
)

// Payload carries event fields.
type Payload map[string]any

// Service publishes notifications.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service, or a no-op when no topic is set.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		urgent:   cfg.Notifications.Urgent,
		errors:   cfg.Notifications.Errors,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
	click    string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	urgent   bool
	errors   bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := n.format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventUrgentTicket:
		if !n.urgent {
			return message{}, false
		}
		issue := textOr(payload, "issue", "HVAC issue")
		city := textOr(payload, "city", "unknown location")
		body := fmt.Sprintf("🔥 %s in %s", issue, city)
		if caller := payloadText(payload, "caller"); caller != "" {
			body += "\nCaller: " + caller
		}
		if phone := payloadText(payload, "phone"); phone != "" {
			body += "\nPhone: " + phone
		}
		return message{
			title:    "AirDesk - Urgent Ticket " + textOr(payload, "ticketId", ""),
			body:     body,
			tags:     []string{"airdesk", "ticket", "urgent"},
			priority: "urgent",
			click:    payloadText(payload, "url"),
		}, true
	case EventEmailFailed:
		if !n.errors {
			return message{}, false
		}
		return message{
			title:    "AirDesk - Dispatch Email Failed",
			body:     fmt.Sprintf("📧 Ticket %s was not e-mailed: %s", textOr(payload, "ticketId", "unknown"), textOr(payload, "error", "unknown error")),
			tags:     []string{"airdesk", "email", "failed"},
			priority: "high",
		}, true
	case EventError:
		if !n.errors {
			return message{}, false
		}
		var b strings.Builder
		b.WriteString("❌ Error")
		if label := payloadText(payload, "context"); label != "" {
			b.WriteString(" with ")
			b.WriteString(label)
		}
		b.WriteString(": ")
		b.WriteString(textOr(payload, "error", "unknown"))
		return message{
			title:    "AirDesk - Error",
			body:     b.String(),
			tags:     []string{"airdesk", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "AirDesk - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"airdesk", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", strings.TrimSpace(data.title))
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}
	if data.click != "" {
		req.Header.Set("Click", data.click)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func payloadText(payload Payload, key string) string {
	if payload == nil {
		return ""
	}
	switch v := payload[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func textOr(payload Payload, key, fallback string) string {
	if v := payloadText(payload, key); v != "" {
		return v
	}
	return fallback
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
