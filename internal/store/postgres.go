package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/JonMunkholm/freight/internal/config"
	"github.com/JonMunkholm/freight/internal/core"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS kv (
    key        TEXT PRIMARY KEY,
    value      JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// listenRetryMax caps the delay between LISTEN reconnect attempts.
const listenRetryMax = 30 * time.Second

// Postgres stores the collection in PostgreSQL. Change notifications go
// through NOTIFY so every process sharing the database sees them.
type Postgres struct {
	*Broadcaster

	pool      *pgxpool.Pool
	key       string
	listening atomic.Bool
}

var _ core.Store = (*Postgres)(nil)

// OpenPostgres connects a pool sized from cfg and prepares the kv table.
func OpenPostgres(ctx context.Context, cfg config.StoreConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	p := NewPostgres(pool, cfg.Key)
	if err := p.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// NewPostgres wraps an existing pool. Call Migrate before first use.
func NewPostgres(pool *pgxpool.Pool, key string) *Postgres {
	return &Postgres{Broadcaster: NewBroadcaster(), pool: pool, key: key}
}

// Migrate creates the kv table if it does not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("postgres migrate: create kv: %w", err)
	}
	return nil
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) LoadAll(ctx context.Context) ([]core.Shipment, error) {
	var value string
	err := p.pool.QueryRow(ctx, `SELECT value::text FROM kv WHERE key = $1`, p.key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return []core.Shipment{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres load: query kv: %w", err)
	}
	return decode(p.key, []byte(value)), nil
}

func (p *Postgres) SaveAll(ctx context.Context, shipments []core.Shipment) error {
	data, err := encode(shipments)
	if err != nil {
		return err
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO kv (key, value, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at`,
		p.key, string(data),
	)
	if err != nil {
		return fmt.Errorf("postgres save: upsert kv: %w", err)
	}
	return nil
}

// NotifyChanged publishes the key on the change channel. Without a running
// listener in this process, local subscribers are signalled directly.
func (p *Postgres) NotifyChanged(ctx context.Context) error {
	if !p.listening.Load() {
		p.Notify()
	}
	if _, err := p.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, core.ChangeEvent, p.key); err != nil {
		return fmt.Errorf("postgres notify: %w", err)
	}
	return nil
}

// Listen relays change notifications for this key to local subscribers
// until ctx is cancelled. Lost connections are re-established with backoff.
func (p *Postgres) Listen(ctx context.Context) error {
	delay := time.Second
	for {
		err := p.listenOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}

		slog.Warn("change listener disconnected, retrying",
			"error", err,
			"retry_in", delay,
		)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
		delay = min(delay*2, listenRetryMax)
	}
}

func (p *Postgres) listenOnce(ctx context.Context) error {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	// The connection holds a LISTEN; never return it to the pool.
	pgConn := conn.Hijack()
	defer pgConn.Close(context.Background())

	channel := pgx.Identifier{core.ChangeEvent}.Sanitize()
	if _, err := pgConn.Exec(ctx, "LISTEN "+channel); err != nil {
		return fmt.Errorf("listen %s: %w", channel, err)
	}

	p.listening.Store(true)
	defer p.listening.Store(false)
	slog.Info("listening for shipment changes", "channel", core.ChangeEvent)

	// Changes made while reconnecting were missed.
	p.Notify()

	for {
		n, err := pgConn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		if n.Payload != p.key {
			continue
		}
		p.Notify()
	}
}
