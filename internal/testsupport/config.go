package testsupport

import (
	"path/filepath"
	"testing"

	"airdesk/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// TestAPIToken is the bearer token configured by NewConfig.
const TestAPIToken = "test-token"

// NewConfig produces a config seeded with unique temp directories per test.
// External services are disabled unless an option enables them.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Paths.APIToken = TestAPIToken
	cfgVal.Database.Path = filepath.Join(base, "data", "airdesk.db")
	cfgVal.Database.PostgresURL = ""
	cfgVal.LLM.APIKey = ""
	cfgVal.Email.ResendAPIKey = ""
	cfgVal.Notifications.NtfyTopic = ""
	cfgVal.Redis.URL = ""
	cfgVal.Events.NATSURL = ""
	cfgVal.Workflow.PollInterval = 1
	cfgVal.Workflow.ErrorRetryInterval = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithLLM points the LLM client at a test server.
func WithLLM(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.APIKey = "test"
		b.cfg.LLM.BaseURL = baseURL
	}
}

// WithResend points the e-mail client at a test server.
func WithResend(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Email.ResendAPIKey = "re_test"
		b.cfg.Email.BaseURL = baseURL
	}
}

// WithRedis enables the Redis session store at the given URL.
func WithRedis(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Redis.URL = url
	}
}

// WithAPIToken overrides the bearer token.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
