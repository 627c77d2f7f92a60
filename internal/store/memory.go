package store

import (
	"context"
	"sync"

	"github.com/JonMunkholm/freight/internal/core"
)

// Memory keeps the serialized collection in process memory.
type Memory struct {
	*Broadcaster

	key  string
	mu   sync.RWMutex
	blob []byte
}

var _ core.Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory(key string) *Memory {
	return &Memory{Broadcaster: NewBroadcaster(), key: key}
}

// SetRaw replaces the stored blob without validation, the way another
// writer sharing the key would.
func (m *Memory) SetRaw(data []byte) {
	m.mu.Lock()
	m.blob = append([]byte(nil), data...)
	m.mu.Unlock()
}

func (m *Memory) LoadAll(ctx context.Context) ([]core.Shipment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return decode(m.key, m.blob), nil
}

func (m *Memory) SaveAll(ctx context.Context, shipments []core.Shipment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encode(shipments)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.blob = data
	m.mu.Unlock()
	return nil
}

func (m *Memory) NotifyChanged(ctx context.Context) error {
	m.Notify()
	return nil
}
