// Package store defines the bigram store interface: the single query the
// scoring engine needs, and the row/metadata shapes it returns. The
// physical backend (SQL, in-memory, ...) is abstracted behind BigramStore,
// a narrow interface over a concrete implementation.
package store

import (
	"context"
	"errors"

	"github.com/ramonehamilton/asi-engine/internal/asi/deck"
	"github.com/ramonehamilton/asi-engine/internal/asi/format"
)

// ErrUnavailable indicates the store could not be reached. The orchestrator
// maps this to a 500 "service unavailable" response; no retry is attempted
// within the request.
var ErrUnavailable = errors.New("bigram store unavailable")

// Row is a single bigram record: the archetype it belongs to, the bigram's
// two cards in canonical order, and their copy counts within the
// archetype's canonical decklist.
type Row struct {
	Archetype string
	CardA     string
	CardB     string
	K1        int
	K2        int
}

// Bigram returns the row's card pair as a deck.Bigram for cohort grouping.
func (r Row) Bigram() deck.Bigram {
	return deck.Bigram{CardA: r.CardA, CardB: r.CardB}
}

// QueryResult bundles the matched rows with the scan/timing metadata the
// orchestrator surfaces in the response's meta block.
type QueryResult struct {
	Rows       []Row
	RowsScanned int
	QueryMillis float64
}

// BigramStore is the single logical query the engine needs from the bigram
// store: given a format and a candidate bigram set, return every matching
// (archetype, bigram, k1, k2) record. Implementations must make the query
// cost proportional to len(candidates), not to the full archetype corpus.
type BigramStore interface {
	Lookup(ctx context.Context, f format.Format, candidates []deck.Bigram) (*QueryResult, error)

	// Backend names the concrete implementation ("sqlite", "memory", ...)
	// for the response meta block.
	Backend() string

	// Database names the active data source (file path, DSN label, ...)
	// for the response meta block.
	Database() string
}
