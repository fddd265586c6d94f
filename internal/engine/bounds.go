package engine

import (
	"github.com/dyluth/warren/pkg/dcop"
	"github.com/dyluth/warren/pkg/wire"
)

// Bounds is the per-value bookkeeping of one variable: for every domain
// value d, the per-child lower/upper bounds with their saved contexts, the
// sums lbSum[d]/ubSum[d], the local cost delta(d), the pre-processing bound
// h(d), and the derived LB(d)/UB(d). It also caches the aggregates
// LB, UB, lbD, ubD.
//
// The accounting identities maintained after every mutation:
//
//	lbSum[d] = sum over children i of lb[d][i]
//	ubSum[d] = sum over children i of ub[d][i]
//	LB(d)    = max(h(d), delta(d) + lbSum[d])
//	UB(d)    = delta(d) + ubSum[d]
//	LB = min over d of LB(d), UB = min over d of UB(d)
//
// Per-value refreshes recompute sums from the child arrays in full;
// |children| is small and the full recomputation keeps the identities
// impossible to drift.
type Bounds struct {
	domain    []dcop.Value
	nChildren int

	lb  [][]dcop.Cost      // [valueIdx][childIdx]
	ub  [][]dcop.Cost      // [valueIdx][childIdx]
	ctx [][]wire.ContextMap // saved context per child report; nil = reset

	lbSum []dcop.Cost
	ubSum []dcop.Cost
	delta []dcop.Cost
	h     []dcop.Cost

	lbPerD []dcop.Cost
	ubPerD []dcop.Cost

	lbAgg dcop.Cost
	ubAgg dcop.Cost
	lbD   dcop.Value
	ubD   dcop.Value
}

// newBounds allocates the per-value state for a domain. Child arrays are
// sized later by setChildren once the DFS view is known.
func newBounds(domain []dcop.Value) *Bounds {
	n := len(domain)
	b := &Bounds{
		domain: domain,
		lb:     make([][]dcop.Cost, n),
		ub:     make([][]dcop.Cost, n),
		ctx:    make([][]wire.ContextMap, n),
		lbSum:  make([]dcop.Cost, n),
		ubSum:  make([]dcop.Cost, n),
		delta:  make([]dcop.Cost, n),
		h:      make([]dcop.Cost, n),
		lbPerD: make([]dcop.Cost, n),
		ubPerD: make([]dcop.Cost, n),
		lbAgg:  dcop.Inf,
		ubAgg:  dcop.Inf,
		lbD:    domain[0],
		ubD:    domain[0],
	}
	return b
}

// setChildren sizes the per-child arrays.
func (b *Bounds) setChildren(n int) {
	b.nChildren = n
	for i := range b.domain {
		b.lb[i] = make([]dcop.Cost, n)
		b.ub[i] = make([]dcop.Cost, n)
		b.ctx[i] = make([]wire.ContextMap, n)
	}
}

// setH installs the variable's own pre-processing bounds, one per domain
// position.
func (b *Bounds) setH(h []dcop.Cost) {
	copy(b.h, h)
	for i := range b.domain {
		b.refreshValue(i)
	}
}

// initChild initialises one (value, child) slot: lb = 0, ub = +inf, no
// saved context. Zero is sound for the lower bound; the pre-processing
// heuristic still bites through the max in LB(d).
func (b *Bounds) initChild(valueIdx, childIdx int) {
	b.lb[valueIdx][childIdx] = 0
	b.ub[valueIdx][childIdx] = dcop.Inf
	b.ctx[valueIdx][childIdx] = nil
	b.refreshValue(valueIdx)
}

// update tightens one (value, child) slot with a reported bound pair:
// the lower bound may only grow, the upper bound may only shrink. The
// reporting context is saved alongside.
func (b *Bounds) update(valueIdx, childIdx int, newLB, newUB dcop.Cost, reportCtx wire.ContextMap) {
	b.lb[valueIdx][childIdx] = b.lb[valueIdx][childIdx].Max(newLB)
	b.ub[valueIdx][childIdx] = b.ub[valueIdx][childIdx].Min(newUB)
	b.ctx[valueIdx][childIdx] = reportCtx
	b.refreshValue(valueIdx)
}

// reset returns one (value, child) slot to its initial state. Called when
// the saved context turned out to be incompatible with the current one.
func (b *Bounds) reset(valueIdx, childIdx int) {
	b.lb[valueIdx][childIdx] = 0
	b.ub[valueIdx][childIdx] = dcop.Inf
	b.ctx[valueIdx][childIdx] = nil
	b.refreshValue(valueIdx)
}

// setDelta installs the local cost of one value under the current context.
func (b *Bounds) setDelta(valueIdx int, cost dcop.Cost) {
	b.delta[valueIdx] = cost
	b.refreshValue(valueIdx)
}

// refreshValue rebuilds lbSum, ubSum, LB(d) and UB(d) for one value from
// the child arrays, then re-derives the aggregates so that LB, UB, lbD and
// ubD are never stale between mutations.
func (b *Bounds) refreshValue(valueIdx int) {
	lbSum, ubSum := dcop.Cost(0), dcop.Cost(0)
	for i := 0; i < b.nChildren; i++ {
		lbSum = lbSum.Add(b.lb[valueIdx][i])
		ubSum = ubSum.Add(b.ub[valueIdx][i])
	}
	b.lbSum[valueIdx] = lbSum
	b.ubSum[valueIdx] = ubSum
	b.lbPerD[valueIdx] = b.h[valueIdx].Max(b.delta[valueIdx].Add(lbSum))
	b.ubPerD[valueIdx] = b.delta[valueIdx].Add(ubSum)
	b.recomputeAggregates()
}

// recomputeAggregates refreshes LB, UB, lbD and ubD from the per-value
// bounds. Ties break by domain iteration order, so lbD and ubD always
// denote a concrete domain value even when every bound is infinite.
func (b *Bounds) recomputeAggregates() {
	b.lbAgg = b.lbPerD[0]
	b.ubAgg = b.ubPerD[0]
	b.lbD = b.domain[0]
	b.ubD = b.domain[0]
	for i := 1; i < len(b.domain); i++ {
		if b.lbPerD[i] < b.lbAgg {
			b.lbAgg = b.lbPerD[i]
			b.lbD = b.domain[i]
		}
		if b.ubPerD[i] < b.ubAgg {
			b.ubAgg = b.ubPerD[i]
			b.ubD = b.domain[i]
		}
	}
}

// Aggregate accessors.

func (b *Bounds) LB() dcop.Cost   { return b.lbAgg }
func (b *Bounds) UB() dcop.Cost   { return b.ubAgg }
func (b *Bounds) LBD() dcop.Value { return b.lbD }
func (b *Bounds) UBD() dcop.Value { return b.ubD }

// Per-value accessors.

func (b *Bounds) LBOf(valueIdx int) dcop.Cost  { return b.lbPerD[valueIdx] }
func (b *Bounds) UBOf(valueIdx int) dcop.Cost  { return b.ubPerD[valueIdx] }
func (b *Bounds) Delta(valueIdx int) dcop.Cost { return b.delta[valueIdx] }
func (b *Bounds) H(valueIdx int) dcop.Cost     { return b.h[valueIdx] }
func (b *Bounds) LBSum(valueIdx int) dcop.Cost { return b.lbSum[valueIdx] }
func (b *Bounds) UBSum(valueIdx int) dcop.Cost { return b.ubSum[valueIdx] }

// Per-child accessors.

func (b *Bounds) ChildLB(valueIdx, childIdx int) dcop.Cost { return b.lb[valueIdx][childIdx] }
func (b *Bounds) ChildUB(valueIdx, childIdx int) dcop.Cost { return b.ub[valueIdx][childIdx] }

// ChildCtx returns the saved context of one (value, child) slot; nil when
// the slot is in its reset state.
func (b *Bounds) ChildCtx(valueIdx, childIdx int) wire.ContextMap {
	return b.ctx[valueIdx][childIdx]
}
