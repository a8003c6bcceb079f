package capability

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchFlagsObservesKeepFile(t *testing.T) {
	r := openRegistry(t)

	w, err := WatchFlags(r)
	if err != nil {
		t.Fatalf("start watcher: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(r.Dir(), "mytool.keep"), nil, 0644); err != nil {
		t.Fatalf("write keep flag: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		flagged := r.flagged["mytool"]
		r.mu.Unlock()
		if flagged {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("watcher never observed the keep flag")
}

func TestWatchFlagsIgnoresOtherFiles(t *testing.T) {
	r := openRegistry(t)

	w, err := WatchFlags(r)
	if err != nil {
		t.Fatalf("start watcher: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(r.Dir(), "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.flagged) != 0 {
		t.Errorf("expected no flags, got %v", r.flagged)
	}
}
