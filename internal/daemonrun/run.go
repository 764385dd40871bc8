package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"airdesk/internal/config"
	"airdesk/internal/daemon"
	"airdesk/internal/deps"
	"airdesk/internal/email"
	"airdesk/internal/events"
	"airdesk/internal/extract"
	"airdesk/internal/intake"
	"airdesk/internal/logging"
	"airdesk/internal/metrics"
	"airdesk/internal/mirror"
	"airdesk/internal/notifications"
	"airdesk/internal/pipeline"
	"airdesk/internal/preflight"
	"airdesk/internal/services/llm"
	"airdesk/internal/sessions"
	"airdesk/internal/store"
	"airdesk/internal/summary"
	"airdesk/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

const pidFileName = "airdeskd.pid"

// Run starts the airdesk daemon and blocks until the context is cancelled or
// the process receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	collector := metrics.New()
	logger, err := newLogger(cfg, opts, collector)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(signalCtx, logger, cfg)
	logging.CleanupOldLogs(logger, cfg.Paths.LogDir, "airdesk*.log", cfg.Logging.RetentionDays,
		filepath.Join(cfg.Paths.LogDir, logging.LogFileName))

	pidPath := filepath.Join(cfg.Paths.LogDir, pidFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	deps, err := buildDependencies(signalCtx, cfg, logger, collector)
	if err != nil {
		logger.Error("initialize dependencies", logging.Error(err))
		return err
	}

	d, err := daemon.New(cfg, logger, deps)
	if err != nil {
		closeDependencies(deps)
		return fmt.Errorf("create daemon: %w", err)
	}
	defer func() {
		if err := d.Close(); err != nil {
			logger.Warn("daemon close reported errors", logging.Error(err))
		}
	}()

	if err := d.Run(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon stopped with error", "daemon_run_failed",
			logging.String(logging.FieldErrorHint, "check paths.api_bind and that no other airdeskd is running"),
			logging.Error(err),
		)
		return err
	}
	logger.Info("airdesk daemon shutting down")
	return nil
}

func newLogger(cfg *config.Config, opts Options, collector *metrics.Collector) (*slog.Logger, error) {
	counter := &logging.CountingHandler{Min: slog.LevelWarn, Observe: collector.ObserveLog}
	if strings.TrimSpace(opts.LogLevel) == "" && !opts.Development {
		return logging.NewFromConfig(cfg, counter)
	}
	level := cfg.Logging.Level
	if strings.TrimSpace(opts.LogLevel) != "" {
		level = opts.LogLevel
	}
	outputs := []string{"stdout"}
	if dir := strings.TrimSpace(cfg.Paths.LogDir); dir != "" {
		outputs = append(outputs, filepath.Join(dir, logging.LogFileName))
	}
	return logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
		Development: opts.Development,
		Tee:         []slog.Handler{counter},
	})
}

// buildDependencies opens the store and connects every optional backend the
// configuration enables.
func buildDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger, collector *metrics.Collector) (daemon.Dependencies, error) {
	storeOpts := []store.Option{store.WithLogger(logger)}
	if url := strings.TrimSpace(cfg.Database.PostgresURL); url != "" {
		pg, err := mirror.NewPostgres(ctx, mirror.Config{URL: url})
		if err != nil {
			logging.WarnWithContext(logger, "postgres mirror unavailable", "mirror_connect_failed",
				logging.String(logging.FieldErrorHint, "check database.postgres_url"),
				logging.String(logging.FieldImpact, "tickets are stored in sqlite only"),
				logging.Error(err),
			)
		} else {
			storeOpts = append(storeOpts, store.WithMirror(pg))
		}
	}
	st, err := store.Open(cfg, storeOpts...)
	if err != nil {
		return daemon.Dependencies{}, fmt.Errorf("open store: %w", err)
	}

	var chatter interface {
		extract.Chatter
		summary.Chatter
		intake.Chatter
	}
	if cfg.LLMEnabled() {
		llmCfg := cfg.GetLLM()
		chatter = llm.NewClient(llm.Config{
			APIKey:         llmCfg.APIKey,
			BaseURL:        llmCfg.BaseURL,
			Model:          llmCfg.Model,
			Referer:        llmCfg.Referer,
			Title:          llmCfg.Title,
			TimeoutSeconds: llmCfg.TimeoutSeconds,
		})
	}

	notifier := notifications.NewService(cfg)
	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		_ = st.Close()
		return daemon.Dependencies{}, err
	}
	sessionStore, err := newSessionStore(ctx, cfg, logger)
	if err != nil {
		publisher.Close()
		_ = st.Close()
		return daemon.Dependencies{}, err
	}

	client := email.NewClient(email.ClientConfig{
		APIKey:  cfg.Email.ResendAPIKey,
		BaseURL: cfg.Email.BaseURL,
		Timeout: time.Duration(cfg.Email.RequestTimeout) * time.Second,
	})
	sender := email.NewSender(client, email.SenderConfig{
		From:        cfg.Email.From,
		CC:          cfg.Email.CC,
		MaxAttempts: cfg.Email.MaxAttempts,
	}, email.WithLogger(logger))
	renderer := email.Renderer{DashboardURL: cfg.Email.DashboardURL}

	mgr := workflow.NewManager(cfg, st, logger,
		workflow.WithNotifier(notifier),
		workflow.WithMetrics(collector),
	)
	mgr.ConfigureStages(workflow.StageSet{
		Extract: pipeline.NewExtractor(extract.New(chatter, logger), logger),
		Ticket: pipeline.NewTicketer(pipeline.TicketerConfig{
			Store:          st,
			Summarizer:     summary.New(chatter, logger),
			Notifier:       notifier,
			Publisher:      publisher,
			Metrics:        collector,
			SendIncomplete: cfg.Email.SendIncomplete,
			DashboardURL:   cfg.Email.DashboardURL,
		}, logger),
		Notify: pipeline.NewNotifier(pipeline.NotifierConfig{
			Store:    st,
			Renderer: renderer,
			Sender:   sender,
			Alerts:   notifier,
			Metrics:  collector,
		}, logger),
	})

	return daemon.Dependencies{
		Store:         st,
		Workflow:      mgr,
		Sessions:      sessionStore,
		Sender:        sender,
		Renderer:      renderer,
		Notifier:      notifier,
		Publisher:     publisher,
		Metrics:       collector,
		IntakeChatter: chatter,
	}, nil
}

func newPublisher(cfg *config.Config, logger *slog.Logger) (events.Publisher, error) {
	url := strings.TrimSpace(cfg.Events.NATSURL)
	if url == "" {
		return events.Noop{}, nil
	}
	publisher, err := events.Connect(url, cfg.Events.SubjectPrefix)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	logger.Info("publishing ticket events",
		logging.String("nats_url", url),
		logging.String(logging.FieldEventType, "events_connected"),
	)
	return publisher, nil
}

func newSessionStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (sessions.Store, error) {
	ttl := time.Duration(cfg.Redis.SessionTTLSeconds) * time.Second
	url := strings.TrimSpace(cfg.Redis.URL)
	if url == "" {
		return sessions.NewMemoryStore(ttl), nil
	}
	st, err := sessions.NewRedisStore(ctx, sessions.RedisConfig{URL: url, Prefix: cfg.Redis.Prefix, TTL: ttl})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	logger.Info("intake sessions stored in redis", logging.String(logging.FieldEventType, "sessions_redis"))
	return st, nil
}

func closeDependencies(deps daemon.Dependencies) {
	if deps.Publisher != nil {
		deps.Publisher.Close()
	}
	if deps.Sessions != nil {
		_ = deps.Sessions.Close()
	}
	if deps.Store != nil {
		_ = deps.Store.Close()
	}
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	integrations := preflight.CheckIntegrations(cfg)
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("llm_model", cfg.LLM.Model),
		logging.String("intake_mode", cfg.LLM.IntakeMode),
		logging.String("api_bind", cfg.Paths.APIBind),
	}
	for _, status := range integrations {
		attrs = append(attrs, logging.Bool(strings.ReplaceAll(status.Setting, ".", "_")+"_present", status.Available))
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)

	for _, status := range deps.Missing(integrations) {
		logging.WarnWithContext(logger, "integration not configured", "dependency_missing",
			logging.String("integration", status.Name),
			logging.String(logging.FieldErrorHint, "set "+status.Setting),
			logging.String(logging.FieldImpact, status.Description),
		)
	}
	for _, result := range preflight.Failed(preflight.RunAll(ctx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "fix the check before calls arrive"),
		)
	}
}
