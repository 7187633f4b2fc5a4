package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ramonehamilton/asi-engine/internal/asi/deck"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "bigrams.db")
	config := DefaultConfig(dbPath)
	config.AutoMigrate = true
	config.ReadOnly = false // seeded directly below; a real store is rebuilt offline

	st, err := Open(config)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	seed := []struct {
		format, archetype, a, b string
		k1, k2                  int
	}{
		{"modern", "Mono Red", "Bolt", "Goblin", 4, 4},
		{"modern", "Mono Red", "Goblin", "Mountain", 4, 4},
		{"modern", "Izzet", "Bolt", "Island", 2, 3},
		{"standard", "Other Format Deck", "Bolt", "Goblin", 1, 1},
	}
	for _, s := range seed {
		_, err := st.Conn().Exec(
			`INSERT INTO archetype_bigrams (format, archetype, card_a, card_b, k1, k2) VALUES (?, ?, ?, ?, ?, ?)`,
			s.format, s.archetype, s.a, s.b, s.k1, s.k2,
		)
		if err != nil {
			t.Fatalf("seed insert failed: %v", err)
		}
	}

	return st
}

func TestOpenNilConfig(t *testing.T) {
	if _, err := Open(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "bigrams.db")
	config := DefaultConfig(dbPath)
	config.AutoMigrate = true

	st, err := Open(config)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer st.Close()

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("expected database file to exist: %v", err)
	}
}

func TestOpenEnforcesReadOnlyByDefault(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "bigrams.db")
	config := DefaultConfig(dbPath)
	config.AutoMigrate = true

	st, err := Open(config)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer st.Close()

	_, err = st.Conn().Exec(
		`INSERT INTO archetype_bigrams (format, archetype, card_a, card_b, k1, k2) VALUES (?, ?, ?, ?, ?, ?)`,
		"modern", "Mono Red", "Bolt", "Goblin", 4, 4,
	)
	if err == nil {
		t.Fatal("expected insert to fail against a read-only connection")
	}
}

func TestOpenPingsSuccessfully(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "bigrams.db")
	config := DefaultConfig(dbPath)
	config.AutoMigrate = true

	st, err := Open(config)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer st.Close()

	if err := st.Ping(); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
	if st.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", st.Path(), dbPath)
	}
}

func TestLookupRestrictsToFormatAndCandidates(t *testing.T) {
	st := newTestStore(t)

	candidates := []deck.Bigram{
		deck.NewBigram("Bolt", "Goblin"),
		deck.NewBigram("Goblin", "Mountain"),
	}
	result, err := st.Lookup(context.Background(), "modern", candidates)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d: %+v", len(result.Rows), result.Rows)
	}
	for _, r := range result.Rows {
		if r.Archetype != "Mono Red" {
			t.Errorf("unexpected archetype in result: %q", r.Archetype)
		}
	}
	if result.RowsScanned != len(candidates) {
		t.Errorf("RowsScanned = %d, want %d", result.RowsScanned, len(candidates))
	}
}

func TestLookupEmptyCandidatesReturnsEmpty(t *testing.T) {
	st := newTestStore(t)
	result, err := st.Lookup(context.Background(), "modern", nil)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if len(result.Rows) != 0 {
		t.Errorf("expected no rows, got %d", len(result.Rows))
	}
}

func TestLookupExcludesOtherCandidates(t *testing.T) {
	st := newTestStore(t)
	candidates := []deck.Bigram{deck.NewBigram("Bolt", "Island")}
	result, err := st.Lookup(context.Background(), "modern", candidates)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if len(result.Rows) != 1 || result.Rows[0].Archetype != "Izzet" {
		t.Fatalf("unexpected result: %+v", result.Rows)
	}
}

func TestLookupRepeatable(t *testing.T) {
	st := newTestStore(t)
	candidates := []deck.Bigram{deck.NewBigram("Bolt", "Goblin")}

	first, err := st.Lookup(context.Background(), "modern", candidates)
	if err != nil {
		t.Fatalf("first Lookup failed: %v", err)
	}
	second, err := st.Lookup(context.Background(), "modern", candidates)
	if err != nil {
		t.Fatalf("second Lookup failed: %v", err)
	}
	if len(first.Rows) != len(second.Rows) {
		t.Errorf("temp table staging leaked across calls: %d vs %d rows", len(first.Rows), len(second.Rows))
	}
}

func TestBackendAndDatabase(t *testing.T) {
	st := newTestStore(t)
	if st.Backend() != "sqlite" {
		t.Errorf("Backend() = %q, want sqlite", st.Backend())
	}
	if st.Database() == "" {
		t.Error("Database() should not be empty")
	}
}
