package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateEmail(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateURLs(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLLM() error {
	switch c.LLM.IntakeMode {
	case IntakeModeRules:
	case IntakeModeLLM:
		if strings.TrimSpace(c.LLM.APIKey) == "" {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				defaultPath = defaultConfigPath
			}
			return fmt.Errorf("llm.api_key is required when llm.intake_mode is %q. Set OPENAI_API_KEY or edit %s (create with 'airdesk config init')", IntakeModeLLM, defaultPath)
		}
	default:
		return fmt.Errorf("llm.intake_mode must be %q or %q, got %q", IntakeModeRules, IntakeModeLLM, c.LLM.IntakeMode)
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return errors.New("llm.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateEmail() error {
	if c.Email.MaxAttempts < 1 || c.Email.MaxAttempts > 10 {
		return errors.New("email.max_attempts must be between 1 and 10")
	}
	if strings.TrimSpace(c.Email.From) == "" {
		return errors.New("email.from must be set")
	}
	for _, addr := range c.Email.CC {
		if !strings.Contains(addr, "@") {
			return fmt.Errorf("email.cc contains invalid address %q", addr)
		}
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.RatePerSecond <= 0 {
		return errors.New("api.rate_per_second must be positive")
	}
	if c.API.Burst < 1 {
		return errors.New("api.burst must be >= 1")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"workflow.poll_interval":        c.Workflow.PollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"workflow.stage_timeout":        c.Workflow.StageTimeout,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
		"email.request_timeout":         c.Email.RequestTimeout,
		"redis.session_ttl_seconds":     c.Redis.SessionTTLSeconds,
	})
}

func (c *Config) validateURLs() error {
	checks := map[string]string{
		"llm.base_url":             c.LLM.BaseURL,
		"email.base_url":           c.Email.BaseURL,
		"email.dashboard_url":      c.Email.DashboardURL,
		"notifications.ntfy_topic": c.Notifications.NtfyTopic,
		"voice.app_url":            c.Voice.AppURL,
	}
	for key, value := range checks {
		if value == "" {
			continue
		}
		parsed, err := url.Parse(value)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", key, value)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	for component, level := range c.Logging.ComponentLevels {
		switch level {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("logging.component_levels.%s must be one of debug, info, warn, error", component)
		}
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
