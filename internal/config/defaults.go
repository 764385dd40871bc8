package config

const (
	defaultConfigPath             = "~/.config/airdesk/config.toml"
	defaultDataDir                = "~/.local/share/airdesk"
	defaultLogDir                 = "~/.local/share/airdesk/logs"
	defaultDatabaseName           = "airdesk.db"
	defaultAPIBind                = "127.0.0.1:7490"
	defaultLLMBaseURL             = "https://api.openai.com/v1/chat/completions"
	defaultLLMModel               = "gpt-4o-mini"
	defaultLLMTitle               = "AirDesk Intake"
	defaultLLMTimeoutSeconds      = 30
	defaultIntakeMode             = IntakeModeRules
	defaultResendBaseURL          = "https://api.resend.com"
	defaultEmailFrom              = "AirDesk <onboarding@resend.dev>"
	defaultEmailMaxAttempts       = 3
	defaultEmailRequestTimeout    = 15
	defaultDashboardURL           = "https://airdesk.app"
	defaultNotifyRequestTimeout   = 10
	defaultRedisPrefix            = "airdesk:intake:"
	defaultRedisSessionTTLSeconds = 1800
	defaultEventsSubjectPrefix    = "airdesk"
	defaultAPIRatePerSecond       = 5
	defaultAPIBurst               = 20
	defaultWorkflowPollInterval   = 2
	defaultWorkflowErrorRetry     = 10
	defaultWorkflowStageTimeout   = 120
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogRetentionDays       = 30
)

// Intake modes accepted by llm.intake_mode.
const (
	IntakeModeRules = "rules"
	IntakeModeLLM   = "llm"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			IntakeMode:     defaultIntakeMode,
		},
		Email: Email{
			BaseURL:        defaultResendBaseURL,
			From:           defaultEmailFrom,
			MaxAttempts:    defaultEmailMaxAttempts,
			RequestTimeout: defaultEmailRequestTimeout,
			DashboardURL:   defaultDashboardURL,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Urgent:         true,
			Errors:         true,
		},
		Redis: Redis{
			Prefix:            defaultRedisPrefix,
			SessionTTLSeconds: defaultRedisSessionTTLSeconds,
		},
		Events: Events{
			SubjectPrefix: defaultEventsSubjectPrefix,
		},
		API: API{
			RatePerSecond: defaultAPIRatePerSecond,
			Burst:         defaultAPIBurst,
		},
		Workflow: Workflow{
			PollInterval:       defaultWorkflowPollInterval,
			ErrorRetryInterval: defaultWorkflowErrorRetry,
			StageTimeout:       defaultWorkflowStageTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
