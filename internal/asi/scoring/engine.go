// Package scoring implements the two-pass global/local weight aggregation
// that turns bigram store rows into a ranked, normalized archetype
// similarity score.
//
// The engine is stateless per call: it mutates no shared state and performs
// no I/O, a pure function over already-fetched rows plus a thin struct for
// its one dependency, the hypergeometric kernel.
package scoring

import (
	"sort"

	"github.com/ramonehamilton/asi-engine/internal/asi/deck"
	"github.com/ramonehamilton/asi-engine/internal/asi/hyper"
	"github.com/ramonehamilton/asi-engine/internal/store"
)

// emitThreshold is the minimum raw score (exclusive) an archetype must
// clear to appear in the result.
const emitThreshold = 0.05

// candidateBand is the global-weight slack below the leader that admits an
// archetype into the candidate set.
const candidateBand = 2.0

// Result is one archetype's final similarity score.
type Result struct {
	Archetype string
	Score     float64
}

// Engine runs the two-pass scoring algorithm using a hypergeometric kernel
// to turn copy counts into joint bigram probabilities.
type Engine struct {
	kernel *hyper.Kernel
}

// New builds an Engine over the given kernel. Pass hyper.Default() to use
// the fixed N=60, k=7 serve-time parameters.
func New(kernel *hyper.Kernel) *Engine {
	return &Engine{kernel: kernel}
}

// tally accumulates global and local weight contributions for one
// archetype across both passes.
type tally struct {
	global float64
	local  float64
}

// bigramProb caches the joint probability and normalizer for a row's copy
// counts, since multiple rows can share identical (k1,k2) pairs.
type bigramProb struct {
	joint float64
	pMax  float64
}

// Score runs pass 1 (global weights), selects the candidate set, runs pass
// 2 (local weights restricted to/touching that set), and returns the
// normalized, filtered, sorted result set.
func (e *Engine) Score(rows []store.Row) []Result {
	if len(rows) == 0 {
		return nil
	}

	probCache := make(map[[2]int]bigramProb)
	probFor := func(k1, k2 int) bigramProb {
		key := [2]int{k1, k2}
		if p, ok := probCache[key]; ok {
			return p
		}
		p := bigramProb{
			joint: e.kernel.JointBigram(k1, k2),
			pMax:  e.kernel.PMax(k1, k2),
		}
		probCache[key] = p
		return p
	}

	// Cohort F(b): the set of archetypes (among matched rows) that carry a
	// record for bigram b.
	cohort := make(map[deck.Bigram]map[string]struct{})
	for _, r := range rows {
		b := r.Bigram()
		if cohort[b] == nil {
			cohort[b] = make(map[string]struct{})
		}
		cohort[b][r.Archetype] = struct{}{}
	}

	pMaxGlobal := 0.0
	for _, r := range rows {
		if p := probFor(r.K1, r.K2).pMax; p > pMaxGlobal {
			pMaxGlobal = p
		}
	}
	if pMaxGlobal <= 0 {
		return nil
	}

	// Pass 1 — global weights.
	tallies := make(map[string]*tally)
	tallyFor := func(a string) *tally {
		t, ok := tallies[a]
		if !ok {
			t = &tally{}
			tallies[a] = t
		}
		return t
	}

	for _, r := range rows {
		p := probFor(r.K1, r.K2).joint
		w1 := 1.0
		if len(cohort[r.Bigram()]) == 1 {
			w1 = 2.0
		}
		tallyFor(r.Archetype).global += w1 * p
	}

	// Candidate set selection: within candidateBand of the leader.
	maxGlobal := 0.0
	for _, t := range tallies {
		if t.global > maxGlobal {
			maxGlobal = t.global
		}
	}
	candidates := make(map[string]struct{})
	for a, t := range tallies {
		if t.global >= maxGlobal-candidateBand {
			candidates[a] = struct{}{}
		}
	}
	candidateCount := len(candidates)

	// Pass 2 — local weights, restricted to rows touching the candidate set.
	for _, r := range rows {
		b := r.Bigram()
		_, inC := candidates[r.Archetype]

		fc := 0
		for other := range cohort[b] {
			if _, ok := candidates[other]; ok {
				fc++
			}
		}
		if !inC && fc == 0 {
			continue // row neither belongs to C nor touches C
		}

		p := probFor(r.K1, r.K2).joint
		var w2 float64
		switch {
		case inC && fc == 1:
			w2 = 2
		case inC && fc > 1 && float64(fc) < float64(candidateCount)/3.0:
			w2 = 1
		case !inC:
			w2 = -1
		default:
			w2 = 0
		}
		tallyFor(r.Archetype).local += w2 * p
	}

	results := make([]Result, 0, len(tallies))
	for a, t := range tallies {
		raw := (t.global + t.local) / pMaxGlobal
		if raw < 0 {
			raw = 0
		}
		if raw > 1 {
			raw = 1
		}
		if raw > emitThreshold {
			results = append(results, Result{Archetype: a, Score: raw})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Archetype < results[j].Archetype
	})

	return results
}
