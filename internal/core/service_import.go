package core

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/freight/internal/logging"
	"github.com/google/uuid"
)

// ErrImportNotFound is returned for unknown or expired import ids.
var ErrImportNotFound = errors.New("import not found")

// importRetention is how long a finished import stays queryable.
const importRetention = 5 * time.Minute

type activeImport struct {
	ID       string
	FileName string
	Started  time.Time

	mu        sync.Mutex
	progress  ImportProgress
	result    *ImportResult
	listeners []chan ImportProgress

	done chan struct{}
}

// StartImport validates the upload, then runs the import in the background.
// It returns the import id immediately; use SubscribeProgress and
// GetImportResult to follow it.
//
// Returns ErrTooManyImports if no import slot frees up in time.
func (s *Service) StartImport(ctx context.Context, fileName string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrNoFile
	}
	if s.cfg.MaxFileSize > 0 && int64(len(data)) > s.cfg.MaxFileSize {
		return "", fmt.Errorf("%w: %d bytes exceeds limit of %d bytes", ErrFileTooLarge, len(data), s.cfg.MaxFileSize)
	}
	if !strings.EqualFold(filepath.Ext(fileName), ".csv") {
		return "", fmt.Errorf("%w: %q is not a .csv file", ErrInvalidFileType, fileName)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return "", err
	}

	id := uuid.NewString()
	imp := &activeImport{
		ID:       id,
		FileName: fileName,
		Started:  time.Now(),
		progress: ImportProgress{ImportID: id, FileName: fileName, State: StateRunning},
		done:     make(chan struct{}),
	}

	s.importsMu.Lock()
	s.imports[id] = imp
	s.importsMu.Unlock()

	logger := logging.WithFields(ctx, "import_id", id, "file", fileName)

	go func() {
		defer s.limiter.Release()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic in import", "panic", r)
				s.finishImport(imp, nil, fmt.Errorf("internal error: %v", r))
			}
		}()

		runCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ImportTimeout)
		defer cancel()

		importer := NewImporter(s, s.cfg.RowDelay)
		importer.SetLogger(logger)

		stats, err := importer.Run(runCtx, string(data), imp.setPercent)
		if err != nil {
			logger.Warn("import failed", "error", err)
		}
		s.finishImport(imp, stats, err)
	}()

	return id, nil
}

// finishImport records the result, wakes waiters and schedules cleanup.
func (s *Service) finishImport(imp *activeImport, stats *ImportStatistics, err error) {
	result := &ImportResult{
		ImportID: imp.ID,
		FileName: imp.FileName,
		State:    StateCompleted,
		Stats:    stats,
		Duration: time.Since(imp.Started),
	}

	imp.mu.Lock()
	if imp.result != nil {
		imp.mu.Unlock()
		return
	}
	if err != nil {
		result.State = StateFailed
		result.Stats = nil
		result.Error = err.Error()
		imp.progress.Error = err.Error()
	} else {
		imp.progress.Percent = 100
	}
	imp.progress.State = result.State
	imp.result = result
	imp.mu.Unlock()

	imp.notifyProgress()
	imp.closeListeners()
	close(imp.done)
	s.cleanup(imp.ID, importRetention)
}

// SubscribeProgress returns a channel of progress snapshots, starting with
// the current one. The channel is closed when the import ends.
func (s *Service) SubscribeProgress(importID string) (<-chan ImportProgress, error) {
	imp, err := s.lookupImport(importID)
	if err != nil {
		return nil, err
	}

	ch := make(chan ImportProgress, 10)

	imp.mu.Lock()
	defer imp.mu.Unlock()

	ch <- imp.progress
	if imp.result != nil {
		close(ch)
		return ch, nil
	}
	imp.listeners = append(imp.listeners, ch)
	return ch, nil
}

// GetImportProgress returns the current progress without blocking.
func (s *Service) GetImportProgress(importID string) (ImportProgress, error) {
	imp, err := s.lookupImport(importID)
	if err != nil {
		return ImportProgress{}, err
	}

	imp.mu.Lock()
	defer imp.mu.Unlock()
	return imp.progress, nil
}

// GetImportResult blocks until the import ends or ctx is done.
func (s *Service) GetImportResult(ctx context.Context, importID string) (*ImportResult, error) {
	imp, err := s.lookupImport(importID)
	if err != nil {
		return nil, err
	}

	select {
	case <-imp.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	imp.mu.Lock()
	defer imp.mu.Unlock()
	return imp.result, nil
}

// WaitForImports blocks until running imports finish or ctx is done.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// ImportStatus reports import slot usage.
func (s *Service) ImportStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

func (s *Service) lookupImport(importID string) (*activeImport, error) {
	s.importsMu.RLock()
	imp, ok := s.imports[importID]
	s.importsMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrImportNotFound, importID)
	}
	return imp, nil
}

func (imp *activeImport) setPercent(pct int) {
	imp.mu.Lock()
	imp.progress.Percent = pct
	imp.mu.Unlock()
	imp.notifyProgress()
}

// notifyProgress sends the current snapshot to every listener. Slow
// listeners miss updates rather than block the import.
func (imp *activeImport) notifyProgress() {
	imp.mu.Lock()
	defer imp.mu.Unlock()

	for _, ch := range imp.listeners {
		select {
		case ch <- imp.progress:
		default:
		}
	}
}

func (imp *activeImport) closeListeners() {
	imp.mu.Lock()
	defer imp.mu.Unlock()

	for _, ch := range imp.listeners {
		close(ch)
	}
	imp.listeners = nil
}

// cleanup forgets the import after a delay.
func (s *Service) cleanup(importID string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		s.importsMu.Lock()
		delete(s.imports, importID)
		s.importsMu.Unlock()
	})
}
