package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherNotifiesOnWrite(t *testing.T) {
	dir := t.TempDir()
	planPath := filepath.Join(dir, "plan.yaml")
	if err := os.WriteFile(planPath, []byte("tasks: []\n"), 0644); err != nil {
		t.Fatalf("write plan: %v", err)
	}

	notified := make(chan string, 1)
	w, err := New(planPath, func(path string) {
		select {
		case notified <- path:
		default:
		}
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(planPath, []byte("tasks:\n  - id: T1\n"), 0644); err != nil {
		t.Fatalf("rewrite plan: %v", err)
	}

	select {
	case path := <-notified:
		if filepath.Base(path) != "plan.yaml" {
			t.Errorf("notified path = %q", path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no notification after write")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("run returned %v, want context.Canceled", err)
	}
}

func TestWatcherIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	planPath := filepath.Join(dir, "plan.yaml")
	if err := os.WriteFile(planPath, []byte("tasks: []\n"), 0644); err != nil {
		t.Fatalf("write plan: %v", err)
	}

	notified := make(chan string, 1)
	w, err := New(planPath, func(path string) {
		select {
		case notified <- path:
		default:
		}
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("write sibling: %v", err)
	}

	select {
	case path := <-notified:
		t.Errorf("unexpected notification for %q", path)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestNewRequiresHandler(t *testing.T) {
	if _, err := New("plan.yaml", nil); err == nil {
		t.Error("expected error without handler")
	}
}
