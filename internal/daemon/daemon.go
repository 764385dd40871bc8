package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"airdesk/internal/config"
	"airdesk/internal/email"
	"airdesk/internal/events"
	"airdesk/internal/intake"
	"airdesk/internal/logging"
	"airdesk/internal/metrics"
	"airdesk/internal/notifications"
	"airdesk/internal/sessions"
	"airdesk/internal/store"
	"airdesk/internal/workflow"
)

// MessageSender delivers a rendered e-mail.
type MessageSender interface {
	Send(ctx context.Context, msg email.Message) (email.Result, error)
}

// Dependencies are the collaborators the daemon serves requests with.
// Store, Workflow, and Sessions are required.
type Dependencies struct {
	Store     *store.Store
	Workflow  *workflow.Manager
	Sessions  sessions.Store
	Sender    MessageSender
	Renderer  email.Renderer
	Notifier  notifications.Service
	Publisher events.Publisher
	Metrics   *metrics.Collector
	// IntakeChatter drives live intake turns when llm.intake_mode is "llm".
	IntakeChatter intake.Chatter
}

// Daemon coordinates the HTTP API and workflow and enforces single-instance
// execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	deps     Dependencies
	api      *apiServer
	lockPath string
	lock     *flock.Flock

	listener net.Listener
	running  atomic.Bool
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Workflow     workflow.StatusSummary
	DatabasePath string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, deps Dependencies) (*Daemon, error) {
	if cfg == nil || deps.Store == nil || deps.Workflow == nil || deps.Sessions == nil {
		return nil, errors.New("daemon requires config, store, workflow manager, and session store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(cfg)
	}
	if deps.Publisher == nil {
		deps.Publisher = events.Noop{}
	}
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		deps:     deps,
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Handler exposes the HTTP API with its middleware chain.
func (d *Daemon) Handler() http.Handler {
	return d.api.handler
}

// Start acquires the daemon lock, binds the API listener, and launches the
// workflow manager.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another airdesk daemon instance is already running")
	}

	listener, err := net.Listen("tcp", d.cfg.Paths.APIBind)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("api listen: %w", err)
	}

	if err := d.deps.Workflow.Start(ctx); err != nil {
		_ = listener.Close()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}

	d.listener = listener
	d.running.Store(true)
	d.logger.Info("airdesk daemon started",
		logging.String("lock", d.lockPath),
		logging.String("address", listener.Addr().String()),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Addr returns the bound API address while running.
func (d *Daemon) Addr() string {
	if d.listener == nil {
		return ""
	}
	return d.listener.Addr().String()
}

// Run starts the daemon and serves the API until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	defer d.Stop()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return d.api.serve(d.listener)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		return d.api.shutdown()
	})
	return group.Wait()
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.deps.Workflow.Stop()
	if d.listener != nil {
		_ = d.listener.Close()
		d.listener = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("airdesk daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	d.deps.Publisher.Close()
	var errs []error
	if err := d.deps.Sessions.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close sessions: %w", err))
	}
	if err := d.deps.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		Workflow:     d.deps.Workflow.Status(ctx),
		DatabasePath: d.deps.Store.Path(),
		LockFilePath: d.lockPath,
	}
}
