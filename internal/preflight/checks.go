package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"airdesk/internal/config"
	"airdesk/internal/deps"
	"airdesk/internal/services/llm"
)

const defaultResendURL = "https://api.resend.com"

// CheckLLM verifies that the LLM API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt (no retries).
func CheckLLM(ctx context.Context, name string, cfg config.LLMConfig) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Referer: cfg.Referer,
		Title:   cfg.Title,
	}, llm.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckResend verifies the Resend API key by listing sending domains.
func CheckResend(ctx context.Context, baseURL, apiKey string) Result {
	const name = "Resend"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = defaultResendURL
	}
	if strings.TrimSpace(apiKey) == "" {
		return Result{Name: name, Detail: "missing api key"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/domains", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%v)", err)}
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(apiKey))

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%v)", err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid api key)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%d)", resp.StatusCode)}
	}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckIntegrations reports which external services the config enables.
// Both the daemon and the CLI status command use this list.
func CheckIntegrations(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "Resend",
			Setting:     "email.resend_api_key",
			Value:       cfg.Email.ResendAPIKey,
			Description: "Required to deliver dispatch e-mails",
		},
		{
			Name:        "LLM",
			Setting:     "llm.api_key",
			Value:       cfg.LLM.APIKey,
			Description: "Extracts intake fields and writes ticket summaries",
			Optional:    true,
		},
		{
			Name:        "ntfy",
			Setting:     "notifications.ntfy_topic",
			Value:       cfg.Notifications.NtfyTopic,
			Description: "Push alerts for urgent tickets and failures",
			Optional:    true,
		},
		{
			Name:        "Postgres mirror",
			Setting:     "database.postgres_url",
			Value:       cfg.Database.PostgresURL,
			Description: "Mirrors tickets into a shared Postgres database",
			Optional:    true,
		},
		{
			Name:        "Redis sessions",
			Setting:     "redis.url",
			Value:       cfg.Redis.URL,
			Description: "Shares live intake sessions across daemons",
			Optional:    true,
		},
		{
			Name:        "NATS events",
			Setting:     "events.nats_url",
			Value:       cfg.Events.NATSURL,
			Description: "Publishes ticket events to dashboards",
			Optional:    true,
		},
	}
	return deps.CheckSettings(requirements)
}

// summarizeLLMError produces a human-readable summary for LLM health check failures.
func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (LLM API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (LLM API unreachable)"
	}
	return err.Error()
}
