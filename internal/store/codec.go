package store

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/freight/internal/core"
)

// encode serializes the collection. A nil slice is stored as [].
func encode(shipments []core.Shipment) ([]byte, error) {
	if shipments == nil {
		shipments = []core.Shipment{}
	}
	data, err := json.Marshal(shipments)
	if err != nil {
		return nil, fmt.Errorf("encode shipments: %w", err)
	}
	return data, nil
}

// decode parses a stored blob. Missing or unparsable data yields an empty
// collection; the parse failure is logged and otherwise swallowed.
func decode(key string, data []byte) []core.Shipment {
	if len(data) == 0 {
		return []core.Shipment{}
	}

	var shipments []core.Shipment
	if err := json.Unmarshal(data, &shipments); err != nil {
		slog.Warn("stored shipments unreadable, treating as empty",
			"key", key,
			"error", err,
		)
		return []core.Shipment{}
	}
	if shipments == nil {
		return []core.Shipment{}
	}
	return shipments
}
