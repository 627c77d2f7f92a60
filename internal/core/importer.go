package core

// importer.go drives one CSV import run.
//
// A run moves Idle -> Running -> Completed or Failed. Rows are processed one
// at a time in file order: pacing delay, validation, then enrichment and
// persistence through the ImportTarget. A failing row is recorded and the
// run moves on; only empty input or an unavailable store fail the run.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

// ErrEmptyImport is returned when the input has no well-formed data rows.
var ErrEmptyImport = errors.New("The CSV file is empty or has an invalid format.")

// ErrImportRunning is returned when Run is called on a busy Importer.
var ErrImportRunning = errors.New("import already running")

// ImportTarget receives the accepted rows of an import.
type ImportTarget interface {
	// Ready checks that the collection can be read before any row is processed.
	Ready(ctx context.Context) error

	// CreateShipment enriches and persists one validated row as a unit.
	CreateShipment(ctx context.Context, in ShipmentInput) (Shipment, error)
}

// Importer runs imports against a target. It is reusable: every Run resets
// the observable progress and statistics.
type Importer struct {
	target ImportTarget
	delay  time.Duration
	logger *slog.Logger

	mu       sync.RWMutex
	state    ImportState
	progress int
	stats    *ImportStatistics
}

// NewImporter creates an Importer that waits delay before each row.
func NewImporter(target ImportTarget, delay time.Duration) *Importer {
	return &Importer{
		target: target,
		delay:  delay,
		logger: slog.Default(),
		state:  StateIdle,
	}
}

// SetLogger replaces the logger used for run events.
func (imp *Importer) SetLogger(logger *slog.Logger) {
	if logger != nil {
		imp.logger = logger
	}
}

// State returns the current lifecycle state.
func (imp *Importer) State() ImportState {
	imp.mu.RLock()
	defer imp.mu.RUnlock()
	return imp.state
}

// Progress returns the last reported percentage.
func (imp *Importer) Progress() int {
	imp.mu.RLock()
	defer imp.mu.RUnlock()
	return imp.progress
}

// Statistics returns a copy of the current statistics, or nil before the
// first row is processed and after a failed run.
func (imp *Importer) Statistics() *ImportStatistics {
	imp.mu.RLock()
	defer imp.mu.RUnlock()
	if imp.stats == nil {
		return nil
	}
	cp := *imp.stats
	cp.Errors = append([]ImportRowError(nil), imp.stats.Errors...)
	return &cp
}

// Run imports every well-formed row of text. onProgress, when non-nil, is
// called after each row with round((i+1)/n*100).
func (imp *Importer) Run(ctx context.Context, text string, onProgress func(percent int)) (*ImportStatistics, error) {
	imp.mu.Lock()
	if imp.state == StateRunning {
		imp.mu.Unlock()
		return nil, ErrImportRunning
	}
	imp.state = StateRunning
	imp.progress = 0
	imp.stats = nil
	imp.mu.Unlock()

	rows := ParseRows(text)
	if len(rows) == 0 {
		imp.fail()
		return nil, ErrEmptyImport
	}

	if err := imp.target.Ready(ctx); err != nil {
		imp.fail()
		if !errors.Is(err, ErrStoreUnavailable) {
			err = fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		return nil, err
	}

	imp.logger.Info("import started", "rows", len(rows))

	stats := &ImportStatistics{Total: len(rows), Errors: []ImportRowError{}}
	imp.mu.Lock()
	imp.stats = stats
	imp.mu.Unlock()

	for i, row := range rows {
		msg := imp.processRow(ctx, row)

		pct := int(math.Round(float64(i+1) / float64(len(rows)) * 100))

		imp.mu.Lock()
		if msg == "" {
			stats.Successful++
		} else {
			stats.Failed++
			stats.Errors = append(stats.Errors, ImportRowError{Row: row.Line, Message: msg})
		}
		imp.progress = pct
		imp.mu.Unlock()

		if msg != "" {
			imp.logger.Debug("import row failed", "row", row.Line, "error", msg)
		}
		if onProgress != nil {
			onProgress(pct)
		}
	}

	imp.mu.Lock()
	imp.state = StateCompleted
	imp.mu.Unlock()

	result := imp.Statistics()
	imp.logger.Info("import completed",
		"total", result.Total,
		"successful", result.Successful,
		"failed", result.Failed,
	)
	return result, nil
}

// processRow returns the failure message for the row, or "" on success.
func (imp *Importer) processRow(ctx context.Context, row Row) string {
	if err := sleepCtx(ctx, imp.delay); err != nil {
		return err.Error()
	}

	res := ValidateRow(row)
	if !res.Valid {
		return res.Error
	}

	if _, err := imp.target.CreateShipment(ctx, res.Data); err != nil {
		return err.Error()
	}
	return ""
}

func (imp *Importer) fail() {
	imp.mu.Lock()
	imp.state = StateFailed
	imp.stats = nil
	imp.mu.Unlock()
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
