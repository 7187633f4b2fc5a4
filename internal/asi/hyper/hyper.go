// Package hyper implements the hypergeometric kernel (C1): the tail
// probability of drawing at least n successes in a k-card hand dealt
// without replacement from a population of N, and the joint bigram
// probability built from it by inclusion-exclusion.
package hyper

import "math/big"

const (
	// PopulationSize is the fixed deck size N used at serve time.
	PopulationSize = 60

	// HandSize is the fixed opening-hand draw size k.
	HandSize = 7

	// AtLeast is the fixed minimum-copies threshold n.
	AtLeast = 1
)

// Kernel precomputes the binomial coefficients needed to evaluate H(k,N,n,m)
// for the bounded integer domain the engine operates in (N<=60, m<=8). It is
// built once per process and is safe for concurrent read-only use after
// construction.
type Kernel struct {
	n int // population size, fixed at 60
	k int // hand size, fixed at 7

	// binom[i][j] = C(i, j) for 0 <= j <= i <= n. Precomputed once so
	// Tail reads binomial coefficients from the table instead of
	// recomputing them on every call.
	binom [][]*big.Int
}

// New builds a Kernel for a population of size n and hand size k.
func New(n, k int) *Kernel {
	ker := &Kernel{n: n, k: k}
	ker.binom = pascalTriangle(n)
	return ker
}

// Default returns the process-wide kernel for N=60, k=7, built once at
// startup and shared read-only across requests.
func Default() *Kernel {
	return New(PopulationSize, HandSize)
}

// pascalTriangle builds C(i,j) for 0<=j<=i<=n using integer arithmetic via
// Pascal's rule, avoiding factorials of the full population size.
func pascalTriangle(n int) [][]*big.Int {
	rows := make([][]*big.Int, n+1)
	for i := 0; i <= n; i++ {
		row := make([]*big.Int, i+1)
		row[0] = big.NewInt(1)
		row[i] = big.NewInt(1)
		for j := 1; j < i; j++ {
			row[j] = new(big.Int).Add(rows[i-1][j-1], rows[i-1][j])
		}
		rows[i] = row
	}
	return rows
}

// choose returns C(i, j), or 0 if j is out of [0, i] (including i < 0).
func (ker *Kernel) choose(i, j int) *big.Int {
	if i < 0 || j < 0 || j > i || i > ker.n {
		return big.NewInt(0)
	}
	return ker.binom[i][j]
}

// Tail computes H(k, N, n, m): the probability of drawing at least n and at
// most k successes when drawing k cards without replacement from a
// population of N containing m successes. N and k are the kernel's fixed
// parameters; n and m vary per call.
func (ker *Kernel) Tail(n, m int) float64 {
	if m <= 0 {
		return 0
	}
	if m > ker.n {
		m = ker.n
	}

	denom := ker.choose(ker.n, ker.k)
	if denom.Sign() == 0 {
		return 0
	}

	upper := m
	if ker.k < upper {
		upper = ker.k
	}

	numer := new(big.Int)
	for i := n; i <= upper; i++ {
		term := new(big.Int).Mul(ker.choose(m, i), ker.choose(ker.n-m, ker.k-i))
		numer.Add(numer, term)
	}

	ratio := new(big.Rat).SetFrac(numer, denom)
	f, _ := ratio.Float64()
	if f > 1 {
		f = 1
	}
	if f < 0 {
		f = 0
	}
	return f
}

// JointBigram computes P(b|A) = p1 + p2 - p_union for a bigram whose two
// cards appear with copy counts k1, k2 in the archetype's canonical list,
// using inclusion-exclusion over "draw at least one of card 1" and "draw at
// least one of card 2".
func (ker *Kernel) JointBigram(k1, k2 int) float64 {
	p1 := ker.Tail(AtLeast, k1)
	p2 := ker.Tail(AtLeast, k2)
	pUnion := ker.Tail(AtLeast, k1+k2)
	joint := p1 + p2 - pUnion
	if joint < 0 {
		joint = 0
	}
	if joint > 1 {
		joint = 1
	}
	return joint
}

// MaxCopies returns k_max = max(4, ceil((k1+k2)/2)), the normalizer's copy
// count: an integer that never shrinks as copy counts grow.
func MaxCopies(k1, k2 int) int {
	half := (k1 + k2 + 1) / 2 // ceil division for non-negative ints
	if half < 4 {
		return 4
	}
	return half
}

// PMax computes P_MAX(b) = 1 - (1 - p_max)^2 for the bigram's normalizer,
// where p_max = H(7, 60, 1, k_max).
func (ker *Kernel) PMax(k1, k2 int) float64 {
	kMax := MaxCopies(k1, k2)
	pMax := ker.Tail(AtLeast, kMax)
	rest := 1 - pMax
	return 1 - rest*rest
}
