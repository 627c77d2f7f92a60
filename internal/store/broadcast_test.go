package store

import (
	"testing"
	"time"
)

func TestBroadcaster_NotifyReachesAllSubscribers(t *testing.T) {
	b := NewBroadcaster()
	ch1, unsub1 := b.Subscribe()
	defer unsub1()
	ch2, unsub2 := b.Subscribe()
	defer unsub2()

	b.Notify()

	for i, ch := range []<-chan struct{}{ch1, ch2} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d did not receive signal", i)
		}
	}
}

func TestBroadcaster_Coalesces(t *testing.T) {
	b := NewBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	// Never blocks even though nobody reads.
	for i := 0; i < 10; i++ {
		b.Notify()
	}

	<-ch
	select {
	case <-ch:
		t.Fatal("expected bursts to coalesce into one pending signal")
	default:
	}
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	b := NewBroadcaster()
	ch, unsub := b.Subscribe()

	if got := b.Subscribers(); got != 1 {
		t.Fatalf("Subscribers() = %d, want 1", got)
	}

	unsub()
	unsub() // second call is a no-op

	if got := b.Subscribers(); got != 0 {
		t.Errorf("Subscribers() = %d, want 0", got)
	}
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}

	b.Notify() // must not panic on closed channels
}
