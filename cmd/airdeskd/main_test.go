package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"airdesk/internal/config"
	"airdesk/internal/daemonrun"
)

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	content := strings.Join([]string{
		"[paths]",
		"data_dir = " + quote(filepath.Join(dir, "data")),
		"log_dir = " + quote(filepath.Join(dir, "logs")),
		"api_bind = \"127.0.0.1:7499\"",
		"",
		"[database]",
		"path = " + quote(filepath.Join(dir, "data", "airdesk.db")),
		"",
	}, "\n")
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func quote(value string) string {
	return "\"" + value + "\""
}

func TestRootCommandLoadsConfigAndFlags(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir)

	var gotCfg *config.Config
	var gotOpts daemonrun.Options
	cmd := newRootCommandWith(func(_ context.Context, cfg *config.Config, opts daemonrun.Options) error {
		gotCfg = cfg
		gotOpts = opts
		return nil
	})
	cmd.SetArgs([]string{"--config", path, "--log-level", "debug", "--bind", "127.0.0.1:9000"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if gotCfg == nil {
		t.Fatal("run was not called")
	}
	if gotCfg.Paths.APIBind != "127.0.0.1:9000" {
		t.Fatalf("api bind = %q", gotCfg.Paths.APIBind)
	}
	if gotOpts.LogLevel != "debug" {
		t.Fatalf("log level = %q", gotOpts.LogLevel)
	}
	if _, err := os.Stat(filepath.Join(dir, "logs")); err != nil {
		t.Fatalf("expected log dir to be created: %v", err)
	}
}

func TestRootCommandRejectsArgs(t *testing.T) {
	cmd := newRootCommandWith(func(context.Context, *config.Config, daemonrun.Options) error {
		t.Fatal("run must not be called")
		return nil
	})
	cmd.SetArgs([]string{"extra"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for positional args")
	}
}

func TestLoadConfigReportsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[paths\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := loadConfig(path); err == nil || !strings.Contains(err.Error(), "load config") {
		t.Fatalf("expected load error, got %v", err)
	}
}
