package importer

// service.go is the entrypoint the web layer calls: one Run per uploaded
// file. A run is the validation gate followed (only on a fully clean file)
// by the orchestrated creation chain for every row.

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paddleops/bulkimport/internal/catalog"
	"github.com/paddleops/bulkimport/internal/config"
	"github.com/paddleops/bulkimport/internal/csvio"
	"github.com/paddleops/bulkimport/internal/logging"
)

// ClientFactory builds a CreationAPI for one run's credentials and
// environment. The API key travels with each import request rather than
// living in server config, so every run gets its own client.
type ClientFactory func(apiKey string, sandbox bool) CreationAPI

// Service runs imports end to end.
type Service struct {
	rules     *catalog.Catalog
	newClient ClientFactory
	limiter   *RunLimiter
	cfg       *config.Config
	now       nowFunc
}

// NewService creates the import service.
func NewService(rules *catalog.Catalog, newClient ClientFactory, cfg *config.Config) *Service {
	return &Service{
		rules:     rules,
		newClient: newClient,
		limiter:   NewRunLimiter(cfg.Import.MaxConcurrentRuns, cfg.Import.MaxWaitTime),
		cfg:       cfg,
		now:       time.Now,
	}
}

// Run executes one import: parse, gate, orchestrate, aggregate. It blocks
// until the run reaches a terminal state and returns the full report.
//
// Returns ErrTooManyImports when the concurrent-run limit is reached, or an
// error for files that cannot be parsed at all. Validation failures are not
// an error: they come back inside the result with zero remote effects.
func (s *Service) Run(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	runID := uuid.New().String()
	logger := logging.WithFields(ctx, "run_id", runID, "file", req.FileName)
	started := s.now()

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.Import.RunTimeout)
	defer cancel()

	records, err := csvio.Read(bytes.NewReader(req.Data))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", req.FileName, err)
	}

	rows, err := ParseRows(records)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", req.FileName, err)
	}
	logger.Info("import started", "rows", len(rows), "sandbox", req.Sandbox)

	// Validation gate: any error anywhere blocks the whole file before a
	// single remote call is made.
	if verrs := ValidateAll(s.rules, s.now(), rows); len(verrs) > 0 {
		logger.Warn("import blocked by validation", "errors", len(verrs))
		return validationFailureResult(runID, len(rows), verrs, s.now().Sub(started)), nil
	}

	api := s.newClient(req.APIKey, req.Sandbox)
	orch := NewOrchestrator(api, s.cfg.Paddle.RequestTimeout, s.cfg.Import.RowParallelism, logger)
	outcomes := orch.Run(runCtx, rows)

	result := buildResult(runID, outcomes, s.now().Sub(started))
	logger.Info("import finished",
		"total", result.TotalRecords,
		"successful", result.Successful,
		"failed", result.Failed,
		"duration_ms", result.DurationMS,
	)
	return result, nil
}

// ActiveRuns reports how many imports are currently executing.
func (s *Service) ActiveRuns() int {
	return s.limiter.ActiveCount()
}

// WaitForRuns blocks until in-flight imports complete, for graceful shutdown.
func (s *Service) WaitForRuns(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
