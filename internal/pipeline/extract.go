package pipeline

import (
	"context"
	"log/slog"

	"airdesk/internal/intake"
	"airdesk/internal/logging"
	"airdesk/internal/stage"
	"airdesk/internal/store"
)

// RecordExtractor fills an intake record from a transcript.
type RecordExtractor interface {
	Extract(ctx context.Context, transcript string, existing intake.Record) intake.Record
}

// Extractor is the extract stage.
type Extractor struct {
	extractor RecordExtractor
	logger    *slog.Logger
}

// NewExtractor builds the extract stage.
func NewExtractor(extractor RecordExtractor, logger *slog.Logger) *Extractor {
	return &Extractor{extractor: extractor, logger: logging.NewComponentLogger(logger, "extract-stage")}
}

// SetLogger swaps in the per-call logger.
func (e *Extractor) SetLogger(logger *slog.Logger) {
	e.logger = logging.NewComponentLogger(logger, "extract-stage")
}

func (e *Extractor) Prepare(_ context.Context, call *store.Call) error {
	return stage.ValidateCall("extract", call)
}

func (e *Extractor) Execute(ctx context.Context, call *store.Call) error {
	record := call.Record
	if e.extractor != nil {
		record = e.extractor.Extract(ctx, call.Transcript, call.Record)
	}
	record.FillAliases()
	call.Record = record
	e.logger.Info("intake record ready",
		logging.String(logging.FieldEventType, "record_extracted"),
		logging.Bool("has_name", record.Name() != ""),
		logging.Bool("has_phone", record.Phone() != ""),
		logging.Bool("has_issue", record.Issue() != ""),
	)
	return nil
}

func (e *Extractor) HealthCheck(context.Context) stage.Health {
	if e.extractor == nil {
		return stage.Degraded("extract", "no extractor configured; records pass through unchanged")
	}
	return stage.Healthy("extract")
}
