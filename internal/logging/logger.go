package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"airdesk/internal/config"
)

// LogFileName is the daemon log written beneath paths.log_dir.
const LogFileName = "airdesk.log"

// Options describes logger construction parameters.
type Options struct {
	Level       string
	Format      string
	OutputPaths []string
	Development bool
	// MinLevel lowers the handler threshold below Level so component
	// overrides can opt into more verbose output.
	MinLevel string
	// Tee receives a copy of every record alongside the formatted output.
	Tee []slog.Handler
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := ParseLevel(opts.Level)
	handlerLevel := level
	if strings.TrimSpace(opts.MinLevel) != "" {
		if floor := ParseLevel(opts.MinLevel); floor < handlerLevel {
			handlerLevel = floor
		}
	}
	levelVar := new(slog.LevelVar)
	levelVar.Set(handlerLevel)

	writer, err := openWriters(opts.OutputPaths)
	if err != nil {
		return nil, err
	}

	addSource := opts.Development || level <= slog.LevelDebug

	var handler slog.Handler
	switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
	case "json":
		handler = newJSONHandler(writer, levelVar, addSource)
	case "console", "":
		handler = newPrettyHandler(writer, levelVar, addSource)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	if len(opts.Tee) > 0 {
		handler = TeeHandler(append([]slog.Handler{handler}, opts.Tee...)...)
	}

	logger := slog.New(handler)
	if handlerLevel < level {
		logger = WithLevelOverride(logger, level)
	}
	return logger, nil
}

// NewFromConfig creates the daemon logger: stdout plus the log file under
// paths.log_dir, honoring logging.component_levels.
func NewFromConfig(cfg *config.Config, tee ...slog.Handler) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info", Format: "console", Tee: tee})
	}

	outputs := []string{"stdout"}
	if dir := strings.TrimSpace(cfg.Paths.LogDir); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
		outputs = append(outputs, filepath.Join(dir, LogFileName))
	}

	return New(Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
		MinLevel:    mostVerbose(cfg.Logging.ComponentLevels),
		Tee:         tee,
	})
}

// ParseLevel maps a config level name onto slog levels. Unknown values are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func mostVerbose(levels map[string]string) string {
	if len(levels) == 0 {
		return ""
	}
	floor := slog.LevelError
	for _, value := range levels {
		if lvl := ParseLevel(value); lvl < floor {
			floor = lvl
		}
	}
	return strings.ToLower(floor.String())
}

func openWriters(paths []string) (io.Writer, error) {
	if len(paths) == 0 {
		return os.Stdout, nil
	}
	seen := make(map[string]struct{}, len(paths))
	writers := make([]io.Writer, 0, len(paths))
	for _, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}

		switch trimmed {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			if dir := filepath.Dir(trimmed); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, fmt.Errorf("create log directory %s: %w", dir, err)
				}
			}
			file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", trimmed, err)
			}
			writers = append(writers, file)
		}
	}

	switch len(writers) {
	case 0:
		return os.Stdout, nil
	case 1:
		return writers[0], nil
	default:
		return io.MultiWriter(writers...), nil
	}
}
