// Package heuristic is the pre-processing stage: before the search starts
// it computes, for every variable, a sound per-value lower bound h(v, d) on
// the cost of the subtree rooted at v. A parent receives its children's
// tables and projects each to a scalar; the engine's per-child slots still
// start at a lower bound of zero.
//
// The bound is a bottom-up pass over the pseudo-tree:
//
//	h(v, d) = min cost of the join of v's spaces given v = d
//	        + sum over v's tree children c of min over d' of h(c, d')
//
// It never exceeds the true subtree optimum because every space owned by a
// descendant is counted in exactly one child term, at its minimum.
package heuristic

import (
	"fmt"

	"github.com/dyluth/warren/internal/pseudotree"
	"github.com/dyluth/warren/pkg/dcop"
)

// Bounds holds the pre-processing output: per-variable h tables indexed by
// domain position.
type Bounds struct {
	h map[string][]dcop.Cost
}

// Compute runs the bottom-up pass over all pseudo-tree views.
func Compute(p *dcop.Problem, views map[string]*pseudotree.View) (*Bounds, error) {
	b := &Bounds{h: make(map[string][]dcop.Cost, len(views))}
	for _, name := range p.VariableNames() {
		if _, err := b.compute(p, views, name); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (b *Bounds) compute(p *dcop.Problem, views map[string]*pseudotree.View, name string) ([]dcop.Cost, error) {
	if h, ok := b.h[name]; ok {
		return h, nil
	}
	view, ok := views[name]
	if !ok {
		return nil, fmt.Errorf("no pseudo-tree view for variable %q", name)
	}

	childFloor := dcop.Cost(0)
	for _, child := range view.Children {
		ch, err := b.compute(p, views, child)
		if err != nil {
			return nil, err
		}
		childFloor = childFloor.Add(scalar(ch))
	}

	// Joining the variable's spaces before projecting gives a tighter
	// bound than summing per-space minima: the minimising ancestor
	// assignments must agree across spaces.
	joined, err := dcop.JoinAll(view.Spaces)
	if err != nil {
		return nil, fmt.Errorf("pre-processing %s: %w", name, err)
	}

	domain := p.Domain(name)
	h := make([]dcop.Cost, len(domain))
	for i, d := range domain {
		local := dcop.Cost(0)
		if joined != nil {
			local = joined.MinCostGiven(name, d)
		}
		h[i] = local.Add(childFloor)
	}
	b.h[name] = h
	return h, nil
}

// Own returns h(v, d) for a variable, indexed by domain position.
func (b *Bounds) Own(name string) []dcop.Cost {
	return b.h[name]
}

// scalar projects a per-value bound table to the child term added into a
// parent's bound: the minimum over the child's values.
func scalar(h []dcop.Cost) dcop.Cost {
	min := dcop.Inf
	for _, c := range h {
		min = min.Min(c)
	}
	return min
}
