package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/JonMunkholm/freight/internal/config"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

// openTestPostgres connects to TEST_DATABASE_URL under a unique key.
func openTestPostgres(t *testing.T) *Postgres {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	key := "test-" + uuid.NewString()
	p, err := OpenPostgres(ctx, config.StoreConfig{URL: url, Key: key, MaxConns: 4, MinConns: 1})
	if err != nil {
		t.Fatalf("OpenPostgres() error = %v", err)
	}
	t.Cleanup(func() {
		p.pool.Exec(context.Background(), `DELETE FROM kv WHERE key = $1`, key)
		p.Close()
	})
	return p
}

func TestPostgres_SaveLoad(t *testing.T) {
	ctx := context.Background()
	p := openTestPostgres(t)

	empty, err := p.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("LoadAll() = %d shipments, want 0", len(empty))
	}

	want := sampleShipments()
	if err := p.SaveAll(ctx, want); err != nil {
		t.Fatalf("SaveAll() error = %v", err)
	}
	got, err := p.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadAll() mismatch (-want +got):\n%s", diff)
	}
}

func TestPostgres_ListenRelaysNotifications(t *testing.T) {
	p := openTestPostgres(t)

	ch, unsub := p.Subscribe()
	defer unsub()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Listen(ctx) }()

	// Wait for the listener to attach; it signals once on connect.
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not start")
	}

	if err := p.NotifyChanged(context.Background()); err != nil {
		t.Fatalf("NotifyChanged() error = %v", err)
	}

	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("notification not relayed")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Listen() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Listen did not return after cancel")
	}
}

func TestPostgres_NotifyWithoutListener(t *testing.T) {
	p := openTestPostgres(t)
	ch, unsub := p.Subscribe()
	defer unsub()

	if err := p.NotifyChanged(context.Background()); err != nil {
		t.Fatalf("NotifyChanged() error = %v", err)
	}

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("local subscriber not signalled")
	}
}
