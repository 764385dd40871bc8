package preflight

import (
	"context"
	"strings"

	"airdesk/internal/config"
)

// CheckResendFromConfig evaluates Resend status from config and connectivity.
func CheckResendFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "Resend"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Email.ResendAPIKey) == "" {
		return Result{Name: name, Detail: "Missing API key"}
	}
	return CheckResend(ctx, cfg.Email.BaseURL, cfg.Email.ResendAPIKey)
}

// CheckLLMFromConfig evaluates LLM status. An unset key is reported as
// disabled rather than failed because the rules-based intake still works.
func CheckLLMFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "LLM"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.LLMEnabled() {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	return CheckLLM(ctx, name, cfg.GetLLM())
}
