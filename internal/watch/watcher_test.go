package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"savekeep/internal/sk"
)

func TestWatcher_DebouncesBurst(t *testing.T) {
	root := t.TempDir()
	profile := filepath.Join(root, "Alpha__HonourMode")
	if err := os.MkdirAll(profile, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	var mu sync.Mutex
	var batches [][]string
	got := make(chan struct{}, 10)
	w, err := New(root, 100*time.Millisecond, func(paths []string) {
		mu.Lock()
		batches = append(batches, paths)
		mu.Unlock()
		got <- struct{}{}
	}, sk.NewNopLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	save := filepath.Join(profile, "Save.lsv")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(save, []byte{byte(i)}, 0644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}

	select {
	case <-got:
	case <-time.After(5 * time.Second):
		t.Fatal("no batch delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	first := batches[0]
	if len(first) != 1 || first[0] != save {
		t.Errorf("first batch = %v, want [%s]", first, save)
	}
}

func TestWatcher_IgnoresHiddenFiles(t *testing.T) {
	root := t.TempDir()

	got := make(chan []string, 10)
	w, err := New(root, 50*time.Millisecond, func(paths []string) { got <- paths }, sk.NewNopLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(root, ".tmp-123"), []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	visible := filepath.Join(root, "Save.lsv")
	if err := os.WriteFile(visible, []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	select {
	case paths := <-got:
		for _, p := range paths {
			if p != visible {
				t.Errorf("unexpected path in batch: %s", p)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no batch delivered")
	}
}

func TestWatcher_StartMissingRoot(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "missing"), time.Millisecond, nil, sk.NewNopLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Stop()

	if err := w.Start(context.Background()); err == nil {
		t.Error("Start() expected error for missing root")
	}
}

func TestDedupe(t *testing.T) {
	got := dedupe([]string{"a", "b", "a", "c", "b"})
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("dedupe() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("dedupe()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
