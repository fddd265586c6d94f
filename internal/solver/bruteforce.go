package solver

import (
	"github.com/dyluth/warren/pkg/dcop"
)

// BruteForce enumerates every full assignment and returns a cheapest one
// together with its cost. It is the reference the asynchronous search is
// validated against; exponential, so only for small instances, verification
// runs and tests.
//
// Ties resolve to the first assignment in lexicographic variable-name and
// domain order, which keeps verification deterministic.
func BruteForce(p *dcop.Problem) (dcop.Assignment, dcop.Cost, error) {
	if err := p.Validate(); err != nil {
		return nil, 0, err
	}

	names := p.VariableNames()
	domains := make([][]dcop.Value, len(names))
	for i, name := range names {
		domains[i] = p.Domain(name)
	}

	current := make(dcop.Assignment, len(names))
	var best dcop.Assignment
	bestCost := dcop.Inf
	var evalErr error

	var walk func(i int)
	walk = func(i int) {
		if evalErr != nil {
			return
		}
		if i == len(names) {
			cost, err := p.TotalCost(current)
			if err != nil {
				evalErr = err
				return
			}
			if cost < bestCost {
				bestCost = cost
				best = make(dcop.Assignment, len(current))
				for k, v := range current {
					best[k] = v
				}
			}
			return
		}
		for _, d := range domains[i] {
			current[names[i]] = d
			walk(i + 1)
		}
		delete(current, names[i])
	}
	walk(0)

	if evalErr != nil {
		return nil, 0, evalErr
	}
	return best, bestCost, nil
}
