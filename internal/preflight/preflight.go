package preflight

import (
	"context"
	"strings"

	"airdesk/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Network checks only run when the corresponding service is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	if strings.TrimSpace(cfg.Email.ResendAPIKey) != "" {
		results = append(results, CheckResend(ctx, cfg.Email.BaseURL, cfg.Email.ResendAPIKey))
	}

	if cfg.LLMEnabled() {
		results = append(results, CheckLLM(ctx, "LLM", cfg.GetLLM()))
	}

	return results
}

// Failed filters results down to the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}
