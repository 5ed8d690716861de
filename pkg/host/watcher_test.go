package host

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatcherPicksUpNewExtension(t *testing.T) {
	root := t.TempDir()
	svc := New(testConfig(t, root), nil, nil)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer svc.Stop()

	w, err := NewWatcher(svc, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.Start(context.Background())
	defer w.Stop()

	writeBrokenExtension(t, root, "dropped-in", "")

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if svc.Manifests().Len() == 1 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("watcher never rescanned: discovered = %d, want 1", svc.Manifests().Len())
}

func TestWatcherCoalescesEventBursts(t *testing.T) {
	root := t.TempDir()
	svc := New(testConfig(t, root), nil, nil)

	w, err := NewWatcher(svc, 300*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	var reloads atomic.Int32
	fired := make(chan struct{}, 16)
	w.reload = func(ctx context.Context) (int, error) {
		reloads.Add(1)
		fired <- struct{}{}
		return 0, nil
	}
	w.Start(context.Background())
	defer w.Stop()

	// Every write resets the debounce timer, including resets that race
	// with a timer that already fired. The whole burst must settle into
	// exactly one reload.
	for i := 0; i < 5; i++ {
		writeBrokenExtension(t, root, fmt.Sprintf("burst-%d", i), "")
		time.Sleep(100 * time.Millisecond)
	}

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never reloaded after the event burst")
	}

	// A stale timer tick surviving a reset would surface as an extra
	// reload here.
	time.Sleep(600 * time.Millisecond)
	if got := reloads.Load(); got != 1 {
		t.Fatalf("reloads = %d for one event burst, want 1", got)
	}
}
