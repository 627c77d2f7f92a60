package core

import (
	"context"
	"errors"
)

// ChangeEvent is the name under which collection changes are announced,
// both on the Postgres notification channel and on the SSE stream.
const ChangeEvent = "shipments-updated"

var (
	// ErrShipmentNotFound is returned when no shipment has the requested id.
	ErrShipmentNotFound = errors.New("shipment not found")

	// ErrNoShipments is returned by Update when the collection is empty.
	ErrNoShipments = errors.New("No shipments found in storage")

	// ErrStoreUnavailable wraps failures to read or write the whole collection.
	ErrStoreUnavailable = errors.New("shipment storage unavailable")
)

// Gateway persists the full shipment collection as one serialized value.
type Gateway interface {
	// LoadAll returns the stored collection in stored order. It returns an
	// empty slice when nothing is stored or the stored value cannot be parsed.
	LoadAll(ctx context.Context) ([]Shipment, error)

	// SaveAll replaces the whole stored collection.
	SaveAll(ctx context.Context, shipments []Shipment) error

	// NotifyChanged announces that the collection was replaced.
	NotifyChanged(ctx context.Context) error
}

// ChangeFeed delivers collection change signals. Signals carry no payload;
// receivers reload the collection. The returned func unsubscribes and must
// be called exactly once.
type ChangeFeed interface {
	Subscribe() (<-chan struct{}, func())
}

// Store is a Gateway that also exposes its change notifications.
type Store interface {
	Gateway
	ChangeFeed
}

// CityCorrector resolves a possibly misspelled city name.
type CityCorrector interface {
	CorrectCity(ctx context.Context, city string) (CityCorrection, error)
}
