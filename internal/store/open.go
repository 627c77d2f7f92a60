package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/freight/internal/config"
	"github.com/JonMunkholm/freight/internal/core"
)

// Open builds the store selected by cfg.Driver. The returned func releases
// its resources.
func Open(ctx context.Context, cfg config.StoreConfig) (core.Store, func(), error) {
	switch strings.ToLower(cfg.Driver) {
	case config.DriverMemory:
		return NewMemory(cfg.Key), func() {}, nil

	case config.DriverSQLite:
		s, err := OpenSQLite(ctx, cfg.Path, cfg.Key)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil

	case config.DriverPostgres:
		p, err := OpenPostgres(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
