package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeDatabase(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeEmail()
	c.normalizeNotifications()
	c.normalizeRedis()
	c.normalizeEvents()
	c.normalizeVoice()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		c.Paths.APIToken = envValue("AIRDESK_API_TOKEN")
	}
	return nil
}

func (c *Config) normalizeDatabase() error {
	var err error
	if strings.TrimSpace(c.Database.Path) == "" {
		c.Database.Path = filepath.Join(c.Paths.DataDir, defaultDatabaseName)
	}
	if c.Database.Path, err = expandPath(c.Database.Path); err != nil {
		return fmt.Errorf("database.path: %w", err)
	}
	c.Database.PostgresURL = strings.TrimSpace(c.Database.PostgresURL)
	if c.Database.PostgresURL == "" {
		c.Database.PostgresURL = envValue("DATABASE_URL")
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = envValue("AIRDESK_LLM_API_KEY", "OPENAI_API_KEY")
	}
	c.LLM.IntakeMode = strings.ToLower(strings.TrimSpace(c.LLM.IntakeMode))
	if c.LLM.IntakeMode == "" {
		c.LLM.IntakeMode = defaultIntakeMode
	}
}

func (c *Config) normalizeEmail() {
	c.Email.ResendAPIKey = strings.TrimSpace(c.Email.ResendAPIKey)
	if c.Email.ResendAPIKey == "" {
		c.Email.ResendAPIKey = envValue("RESEND_API_KEY")
	}
	c.Email.BaseURL = strings.TrimRight(strings.TrimSpace(c.Email.BaseURL), "/")
	if c.Email.BaseURL == "" {
		c.Email.BaseURL = defaultResendBaseURL
	}
	c.Email.From = strings.TrimSpace(c.Email.From)
	if c.Email.From == "" {
		c.Email.From = defaultEmailFrom
	}
	if c.Email.MaxAttempts == 0 {
		c.Email.MaxAttempts = defaultEmailMaxAttempts
	}
	if c.Email.RequestTimeout <= 0 {
		c.Email.RequestTimeout = defaultEmailRequestTimeout
	}
	c.Email.DashboardURL = strings.TrimRight(strings.TrimSpace(c.Email.DashboardURL), "/")
	if c.Email.DashboardURL == "" {
		c.Email.DashboardURL = defaultDashboardURL
	}
	if len(c.Email.CC) > 0 {
		cc := make([]string, 0, len(c.Email.CC))
		seen := make(map[string]struct{}, len(c.Email.CC))
		for _, addr := range c.Email.CC {
			normalized := strings.ToLower(strings.TrimSpace(addr))
			if normalized == "" {
				continue
			}
			if _, exists := seen[normalized]; exists {
				continue
			}
			seen[normalized] = struct{}{}
			cc = append(cc, normalized)
		}
		c.Email.CC = cc
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeRedis() {
	c.Redis.URL = strings.TrimSpace(c.Redis.URL)
	if c.Redis.URL == "" {
		c.Redis.URL = envValue("REDIS_URL")
	}
	if strings.TrimSpace(c.Redis.Prefix) == "" {
		c.Redis.Prefix = defaultRedisPrefix
	}
	if c.Redis.SessionTTLSeconds <= 0 {
		c.Redis.SessionTTLSeconds = defaultRedisSessionTTLSeconds
	}
}

func (c *Config) normalizeEvents() {
	c.Events.NATSURL = strings.TrimSpace(c.Events.NATSURL)
	if c.Events.NATSURL == "" {
		c.Events.NATSURL = envValue("NATS_URL")
	}
	c.Events.SubjectPrefix = strings.Trim(strings.TrimSpace(c.Events.SubjectPrefix), ".")
	if c.Events.SubjectPrefix == "" {
		c.Events.SubjectPrefix = defaultEventsSubjectPrefix
	}
}

func (c *Config) normalizeVoice() {
	c.Voice.AppURL = strings.TrimRight(strings.TrimSpace(c.Voice.AppURL), "/")
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
	if len(c.Logging.ComponentLevels) > 0 {
		levels := make(map[string]string, len(c.Logging.ComponentLevels))
		for component, level := range c.Logging.ComponentLevels {
			key := strings.ToLower(strings.TrimSpace(component))
			if key == "" {
				continue
			}
			levels[key] = strings.ToLower(strings.TrimSpace(level))
		}
		c.Logging.ComponentLevels = levels
	}
}

// envValue returns the first of the named environment variables that is set
// to a non-blank value.
func envValue(names ...string) string {
	for _, name := range names {
		if value := strings.TrimSpace(os.Getenv(name)); value != "" {
			return value
		}
	}
	return ""
}
