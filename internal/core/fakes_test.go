package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

var baseTime = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

// memStore is an in-package Store for service tests.
type memStore struct {
	mu       sync.Mutex
	list     []Shipment
	loadErr  error
	saveErr  error
	saves    int
	notifies int
	subs     []chan struct{}
}

func (m *memStore) LoadAll(ctx context.Context) ([]Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return append([]Shipment(nil), m.list...), nil
}

func (m *memStore) SaveAll(ctx context.Context, shipments []Shipment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.list = append([]Shipment(nil), shipments...)
	m.saves++
	return nil
}

func (m *memStore) NotifyChanged(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifies++
	for _, ch := range m.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

func (m *memStore) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch, func() {}
}

func (m *memStore) snapshot() []Shipment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Shipment(nil), m.list...)
}

// stubCorrector title-cases the city and reports a fixed confidence. Cities
// listed in fail make the call fail.
type stubCorrector struct {
	mu         sync.Mutex
	confidence *float64
	fail       map[string]bool
	calls      []string
}

func newStubCorrector() *stubCorrector {
	c := 0.9
	return &stubCorrector{confidence: &c, fail: map[string]bool{}}
}

func (s *stubCorrector) CorrectCity(ctx context.Context, city string) (CityCorrection, error) {
	s.mu.Lock()
	s.calls = append(s.calls, city)
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return CityCorrection{}, err
	}
	if s.fail[city] {
		return CityCorrection{}, errors.New("correction service returned 500")
	}
	lower := strings.ToLower(strings.TrimSpace(city))
	return CityCorrection{
		Original:   lower,
		Corrected:  strings.ToUpper(lower[:1]) + lower[1:],
		Confidence: s.confidence,
	}, nil
}

func (s *stubCorrector) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func newTestService(store *memStore, corr CityCorrector) *Service {
	svc := NewService(store, corr, ServiceConfig{ExportLocation: time.UTC})
	n := 0
	svc.newID = func() string {
		n++
		return "ID" + string(rune('A'+n-1)) + "00000"
	}
	svc.now = func() time.Time {
		return baseTime.Add(time.Duration(n) * time.Minute)
	}
	return svc
}
