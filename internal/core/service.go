package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/freight/internal/config"
	"github.com/JonMunkholm/freight/internal/logging"
	"github.com/google/uuid"
)

// DefaultImportTimeout bounds one import run when ServiceConfig leaves it unset.
const DefaultImportTimeout = 30 * time.Minute

// ServiceConfig tunes the Service. Zero values fall back to defaults.
type ServiceConfig struct {
	RowDelay             time.Duration
	ImportTimeout        time.Duration
	MaxFileSize          int64 // 0 means unlimited
	MaxConcurrentImports int
	MaxImportWait        time.Duration
	ExportLocation       *time.Location
}

// ServiceConfigFrom maps the application configuration onto ServiceConfig.
func ServiceConfigFrom(cfg *config.Config) ServiceConfig {
	return ServiceConfig{
		RowDelay:             cfg.Import.RowDelay,
		ImportTimeout:        cfg.Import.Timeout,
		MaxFileSize:          cfg.Import.MaxFileSize,
		MaxConcurrentImports: cfg.Import.MaxConcurrent,
		MaxImportWait:        cfg.Import.MaxWaitTime,
		ExportLocation:       cfg.Export.Location(),
	}
}

// Service provides every shipment operation. All mutations run
// LoadAll -> mutate -> SaveAll -> NotifyChanged under one lock, so two
// read-mutate-write cycles never interleave within the process.
type Service struct {
	store     Store
	corrector CityCorrector
	cfg       ServiceConfig
	limiter   *ImportLimiter

	now   func() time.Time
	newID func() string

	mu sync.Mutex // serializes read-mutate-write cycles

	importsMu sync.RWMutex
	imports   map[string]*activeImport
}

// NewService creates a Service over store, enriching cities with corrector.
func NewService(store Store, corrector CityCorrector, cfg ServiceConfig) *Service {
	if cfg.ImportTimeout <= 0 {
		cfg.ImportTimeout = DefaultImportTimeout
	}
	if cfg.ExportLocation == nil {
		cfg.ExportLocation = time.Local
	}

	return &Service{
		store:     store,
		corrector: corrector,
		cfg:       cfg,
		limiter:   NewImportLimiter(cfg.MaxConcurrentImports, cfg.MaxImportWait),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     NewShipmentID,
		imports:   make(map[string]*activeImport),
	}
}

// NewShipmentID returns the upper-cased first 8 characters of a random UUID.
func NewShipmentID() string {
	return strings.ToUpper(uuid.NewString()[:8])
}

// Create validates, enriches and stores a new shipment. Nothing is stored
// when enrichment fails.
func (s *Service) Create(ctx context.Context, in ShipmentInput) (Shipment, error) {
	data, err := ValidateInput(in)
	if err != nil {
		return Shipment{}, err
	}
	return s.CreateShipment(ctx, data)
}

// CreateShipment enriches and stores already validated input. It is the
// ImportTarget hook used for every accepted import row.
func (s *Service) CreateShipment(ctx context.Context, data ShipmentInput) (Shipment, error) {
	corr, err := s.correct(ctx, data.City)
	if err != nil {
		return Shipment{}, err
	}

	shipment := Shipment{
		ID:            s.newID(),
		Name:          data.Name,
		Company:       data.Company,
		Street:        data.Street,
		PostalCode:    data.PostalCode,
		City:          data.City,
		CreatedAt:     s.now(),
		Destination:   FormatDestination(data.Street, data.PostalCode, data.City),
		CorrectedCity: corr.Corrected,
		Confidence:    corr.Confidence,
	}

	err = s.mutate(ctx, func(list []Shipment) ([]Shipment, error) {
		return append(list, shipment), nil
	})
	if err != nil {
		return Shipment{}, err
	}
	return shipment, nil
}

// Update replaces the editable fields of a shipment, re-deriving the
// destination and correction. The id and creation time are kept.
func (s *Service) Update(ctx context.Context, id string, in ShipmentInput) (Shipment, error) {
	data, err := ValidateInput(in)
	if err != nil {
		return Shipment{}, err
	}

	corr, err := s.correct(ctx, data.City)
	if err != nil {
		return Shipment{}, err
	}

	var updated Shipment
	err = s.mutate(ctx, func(list []Shipment) ([]Shipment, error) {
		if len(list) == 0 {
			return nil, ErrNoShipments
		}
		idx := indexOf(list, id)
		if idx < 0 {
			return nil, fmt.Errorf("update %s: %w", id, ErrShipmentNotFound)
		}

		existing := list[idx]
		updated = Shipment{
			ID:            existing.ID,
			Name:          data.Name,
			Company:       data.Company,
			Street:        data.Street,
			PostalCode:    data.PostalCode,
			City:          data.City,
			CreatedAt:     existing.CreatedAt,
			Destination:   FormatDestination(data.Street, data.PostalCode, data.City),
			CorrectedCity: corr.Corrected,
			Confidence:    corr.Confidence,
		}
		list[idx] = updated
		return list, nil
	})
	if err != nil {
		return Shipment{}, err
	}
	return updated, nil
}

// Delete removes the shipment with the given id.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, func(list []Shipment) ([]Shipment, error) {
		idx := indexOf(list, id)
		if idx < 0 {
			return nil, fmt.Errorf("delete %s: %w", id, ErrShipmentNotFound)
		}
		return append(list[:idx], list[idx+1:]...), nil
	})
}

// DeleteMany removes every shipment whose id is in ids and reports how many
// were removed. Unknown ids are ignored.
func (s *Service) DeleteMany(ctx context.Context, ids []string) (int, error) {
	selected := idSet(ids)
	if len(selected) == 0 {
		return 0, nil
	}

	removed := 0
	err := s.mutate(ctx, func(list []Shipment) ([]Shipment, error) {
		kept := list[:0]
		for _, sh := range list {
			if _, ok := selected[sh.ID]; ok {
				removed++
				continue
			}
			kept = append(kept, sh)
		}
		if removed == 0 {
			return nil, errNoChange
		}
		return kept, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// List returns every shipment ordered by spec.
func (s *Service) List(ctx context.Context, spec SortSpec) ([]Shipment, error) {
	list, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return SortShipments(list, spec), nil
}

// Get returns one shipment.
func (s *Service) Get(ctx context.Context, id string) (Shipment, error) {
	list, err := s.load(ctx)
	if err != nil {
		return Shipment{}, err
	}
	idx := indexOf(list, id)
	if idx < 0 {
		return Shipment{}, fmt.Errorf("get %s: %w", id, ErrShipmentNotFound)
	}
	return list[idx], nil
}

// Export renders the selected shipments (all when ids is empty) as CSV in
// stored order.
func (s *Service) Export(ctx context.Context, ids []string) (string, error) {
	list, err := s.load(ctx)
	if err != nil {
		return "", err
	}

	if selected := idSet(ids); len(selected) > 0 {
		filtered := make([]Shipment, 0, len(selected))
		for _, sh := range list {
			if _, ok := selected[sh.ID]; ok {
				filtered = append(filtered, sh)
			}
		}
		list = filtered
	}

	return ExportCSV(list, s.cfg.ExportLocation), nil
}

// ExportFileName names an export made now.
func (s *Service) ExportFileName() string {
	return ExportFileName(s.now().In(s.cfg.ExportLocation))
}

// CorrectCity asks the correction service about a single city name.
func (s *Service) CorrectCity(ctx context.Context, city string) (CityCorrection, error) {
	if strings.TrimSpace(city) == "" {
		return CityCorrection{}, ValidationErrors{{Field: "city", Message: "City is required"}}
	}
	return s.correct(ctx, city)
}

// SubscribeChanges returns a channel signalled after every collection change.
func (s *Service) SubscribeChanges() (<-chan struct{}, func()) {
	return s.store.Subscribe()
}

// Ready checks that the collection can be loaded.
func (s *Service) Ready(ctx context.Context) error {
	_, err := s.load(ctx)
	return err
}

// correct calls the corrector and checks the shape of its answer.
func (s *Service) correct(ctx context.Context, city string) (CityCorrection, error) {
	corr, err := s.corrector.CorrectCity(ctx, city)
	if err != nil {
		return CityCorrection{}, fmt.Errorf("%w: %w", ErrCorrectionFailed, err)
	}
	if strings.TrimSpace(corr.Corrected) == "" {
		return CityCorrection{}, fmt.Errorf("%w: empty corrected city", ErrCorrectionFailed)
	}
	if c := corr.Confidence; c != nil && (math.IsNaN(*c) || *c < 0 || *c > 1) {
		return CityCorrection{}, fmt.Errorf("%w: confidence %v out of range", ErrCorrectionFailed, *c)
	}
	return corr, nil
}

func (s *Service) load(ctx context.Context) ([]Shipment, error) {
	list, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return list, nil
}

// errNoChange tells mutate to skip the write.
var errNoChange = errors.New("no change")

// mutate runs one read-mutate-write cycle under the service lock.
func (s *Service) mutate(ctx context.Context, fn func([]Shipment) ([]Shipment, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return err
	}

	list, err = fn(list)
	if err == errNoChange {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.store.SaveAll(ctx, list); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	// Saved already; a failed notification is logged, not returned.
	if err := s.store.NotifyChanged(ctx); err != nil {
		logging.FromContext(ctx).Warn("change notification failed", "error", err)
	}
	return nil
}

func indexOf(list []Shipment, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func idSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}
