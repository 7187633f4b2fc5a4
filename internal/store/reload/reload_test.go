package reload

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ramonehamilton/asi-engine/internal/asi/deck"
	"github.com/ramonehamilton/asi-engine/internal/asi/format"
	"github.com/ramonehamilton/asi-engine/internal/store"
)

type fakeStore struct{ tag string }

func (f *fakeStore) Lookup(_ context.Context, _ format.Format, _ []deck.Bigram) (*store.QueryResult, error) {
	return &store.QueryResult{}, nil
}
func (f *fakeStore) Backend() string  { return f.tag }
func (f *fakeStore) Database() string { return f.tag }

func TestWatcherServesInitialStore(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "marker")
	if err := os.WriteFile(marker, []byte("v1"), 0o644); err != nil {
		t.Fatalf("failed to write marker: %v", err)
	}

	w, err := New(marker, func() (store.BigramStore, error) {
		return &fakeStore{tag: "v1"}, nil
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.Close()

	if w.Backend() != "v1" {
		t.Errorf("Backend() = %q, want v1", w.Backend())
	}
}

func TestWatcherReloadsOnMarkerWrite(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "marker")
	if err := os.WriteFile(marker, []byte("v1"), 0o644); err != nil {
		t.Fatalf("failed to write marker: %v", err)
	}

	generation := 0
	open := func() (store.BigramStore, error) {
		generation++
		return &fakeStore{tag: generationTag(generation)}, nil
	}

	w, err := New(marker, open)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.Close()

	if w.Backend() != "gen-1" {
		t.Fatalf("Backend() = %q, want gen-1", w.Backend())
	}

	if err := os.WriteFile(marker, []byte("v2"), 0o644); err != nil {
		t.Fatalf("failed to rewrite marker: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if w.Backend() == "gen-2" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("store was not reloaded after marker write, backend=%q", w.Backend())
}

func generationTag(n int) string {
	if n == 1 {
		return "gen-1"
	}
	return "gen-2"
}
