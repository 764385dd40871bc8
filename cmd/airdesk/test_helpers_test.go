package main

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"airdesk/internal/config"
	"airdesk/internal/daemon"
	"airdesk/internal/events"
	"airdesk/internal/logging"
	"airdesk/internal/sessions"
	"airdesk/internal/stage"
	"airdesk/internal/store"
	"airdesk/internal/testsupport"
	"airdesk/internal/workflow"
)

type noopStage struct{}

func (noopStage) Prepare(context.Context, *store.Call) error { return nil }

func (noopStage) Execute(context.Context, *store.Call) error { return nil }

func (noopStage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("noop")
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.TicketEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event events.TicketEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() {}

type cliTestEnv struct {
	cfg        *config.Config
	store      *store.Store
	configPath string
	publisher  *recordingPublisher
}

// setupCLITestEnv writes a config whose api_bind refuses connections, so
// commands take their store fallback unless startDaemon is called.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	for _, key := range []string{"AIRDESK_FIRM_ID", "AIRDESK_API_TOKEN", "OPENAI_API_KEY", "AIRDESK_LLM_API_KEY", "RESEND_API_KEY", "REDIS_URL", "NATS_URL", "DATABASE_URL"} {
		t.Setenv(key, "")
	}

	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = closedAddr(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	env := &cliTestEnv{
		cfg:        cfg,
		store:      testsupport.MustOpenStore(t, cfg),
		configPath: filepath.Join(testsupport.BaseDir(cfg), "config.toml"),
		publisher:  &recordingPublisher{},
	}
	env.writeConfig(t)
	return env
}

// startDaemon serves the daemon API over httptest and points the config at it.
func (e *cliTestEnv) startDaemon(t *testing.T) {
	t.Helper()
	mgr := workflow.NewManager(e.cfg, e.store, logging.NewNop())
	mgr.ConfigureStages(workflow.StageSet{Extract: noopStage{}})
	d, err := daemon.New(e.cfg, logging.NewNop(), daemon.Dependencies{
		Store:     e.store,
		Workflow:  mgr,
		Sessions:  sessions.NewMemoryStore(0),
		Publisher: e.publisher,
	})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	srv := httptest.NewServer(d.Handler())
	t.Cleanup(srv.Close)
	e.cfg.Paths.APIBind = srv.URL
	e.writeConfig(t)
}

func (e *cliTestEnv) writeConfig(t *testing.T) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nlog_dir = %q\napi_bind = %q\napi_token = %q\n\n[database]\npath = %q\n",
		e.cfg.Paths.DataDir,
		e.cfg.Paths.LogDir,
		e.cfg.Paths.APIBind,
		e.cfg.Paths.APIToken,
		e.cfg.Database.Path,
	)
	if err := os.WriteFile(e.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, env *cliTestEnv, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stdout)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func closedAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return addr
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
