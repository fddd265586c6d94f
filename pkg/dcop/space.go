package dcop

import (
	"fmt"
)

// Space is an extensional cost table over an ordered scope of variables.
// Costs are stored row-major with the last scope variable varying fastest.
//
// Spaces are immutable once built; the engine, the pre-processing heuristic
// and the reference solver all share them read-only.
type Space struct {
	Name    string    `json:"name,omitempty"`
	Scope   []string  `json:"scope"`
	Domains [][]Value `json:"domains"` // Domains[i] is the domain of Scope[i]
	Costs   []Cost    `json:"costs"`   // len == product of domain sizes
}

// NewSpace builds a space and checks the table shape.
func NewSpace(name string, scope []string, domains [][]Value, costs []Cost) (*Space, error) {
	if len(scope) == 0 {
		return nil, fmt.Errorf("space %q: empty scope", name)
	}
	if len(scope) != len(domains) {
		return nil, fmt.Errorf("space %q: %d scope variables but %d domains", name, len(scope), len(domains))
	}
	size := 1
	for i, dom := range domains {
		if len(dom) == 0 {
			return nil, fmt.Errorf("space %q: empty domain for %s", name, scope[i])
		}
		size *= len(dom)
	}
	if len(costs) != size {
		return nil, fmt.Errorf("space %q: expected %d cost entries, got %d", name, size, len(costs))
	}
	return &Space{Name: name, Scope: scope, Domains: domains, Costs: costs}, nil
}

// index converts one value per scope position into a row-major table index.
// Returns false if a value is not in the corresponding domain.
func (s *Space) index(vals []Value) (int, bool) {
	idx := 0
	for i, v := range vals {
		pos := -1
		for j, dv := range s.Domains[i] {
			if dv == v {
				pos = j
				break
			}
		}
		if pos < 0 {
			return 0, false
		}
		idx = idx*len(s.Domains[i]) + pos
	}
	return idx, true
}

// Eval returns the cost of an assignment covering the full scope.
// Returns an error if any scope variable is missing from the assignment.
func (s *Space) Eval(assignment map[string]Value) (Cost, error) {
	vals := make([]Value, len(s.Scope))
	for i, name := range s.Scope {
		v, ok := assignment[name]
		if !ok {
			return 0, fmt.Errorf("space %q: variable %s not assigned", s.Name, name)
		}
		vals[i] = v
	}
	idx, ok := s.index(vals)
	if !ok {
		return 0, fmt.Errorf("space %q: value out of domain", s.Name)
	}
	return s.Costs[idx], nil
}

// Covered reports whether every scope variable is present in the assignment.
func (s *Space) Covered(assignment map[string]Value) bool {
	for _, name := range s.Scope {
		if _, ok := assignment[name]; !ok {
			return false
		}
	}
	return true
}

// MinCost returns the minimum cost over the whole table.
func (s *Space) MinCost() Cost {
	min := Inf
	for _, c := range s.Costs {
		min = min.Min(c)
	}
	return min
}

// MinCostGiven returns the minimum cost over the table with one variable
// pinned to a value. If the variable is not in scope, this is MinCost.
// Used by the pre-processing heuristic, which needs a sound lower bound on
// the cost contribution of a space when only the owning variable is fixed.
func (s *Space) MinCostGiven(name string, v Value) Cost {
	pin := -1
	for i, sv := range s.Scope {
		if sv == name {
			pin = i
			break
		}
	}
	if pin < 0 {
		return s.MinCost()
	}
	min := Inf
	s.iterate(func(vals []Value, c Cost) {
		if vals[pin] == v {
			min = min.Min(c)
		}
	})
	return min
}

// iterate walks all rows of the table in row-major order.
func (s *Space) iterate(fn func(vals []Value, c Cost)) {
	vals := make([]Value, len(s.Scope))
	idxs := make([]int, len(s.Scope))
	for i := range vals {
		vals[i] = s.Domains[i][0]
	}
	row := 0
	for {
		fn(vals, s.Costs[row])
		row++
		// advance the odometer, last position fastest
		pos := len(idxs) - 1
		for pos >= 0 {
			idxs[pos]++
			if idxs[pos] < len(s.Domains[pos]) {
				vals[pos] = s.Domains[pos][idxs[pos]]
				break
			}
			idxs[pos] = 0
			vals[pos] = s.Domains[pos][0]
			pos--
		}
		if pos < 0 {
			return
		}
	}
}

// Join returns the pointwise sum of two spaces over the union of their
// scopes. The result's scope lists s's variables first, then the variables
// of o that s does not mention.
func (s *Space) Join(o *Space) (*Space, error) {
	scope := append([]string{}, s.Scope...)
	domains := make([][]Value, len(s.Domains))
	copy(domains, s.Domains)
	for i, name := range o.Scope {
		seen := false
		for _, have := range scope {
			if have == name {
				seen = true
				break
			}
		}
		if !seen {
			scope = append(scope, name)
			domains = append(domains, o.Domains[i])
		}
	}

	size := 1
	for _, dom := range domains {
		size *= len(dom)
	}
	costs := make([]Cost, 0, size)

	joined := &Space{Name: s.Name, Scope: scope, Domains: domains}
	assignment := make(map[string]Value, len(scope))
	var err error
	iterateScope(scope, domains, func(vals []Value) {
		for i, name := range scope {
			assignment[name] = vals[i]
		}
		a, e1 := s.Eval(assignment)
		b, e2 := o.Eval(assignment)
		if e1 != nil {
			err = e1
		}
		if e2 != nil {
			err = e2
		}
		costs = append(costs, a.Add(b))
	})
	if err != nil {
		return nil, fmt.Errorf("join %q with %q: %w", s.Name, o.Name, err)
	}
	joined.Costs = costs
	return joined, nil
}

// iterateScope walks the cartesian product of the given domains in
// row-major order, the last position fastest.
func iterateScope(scope []string, domains [][]Value, fn func(vals []Value)) {
	vals := make([]Value, len(scope))
	idxs := make([]int, len(scope))
	for i := range vals {
		vals[i] = domains[i][0]
	}
	for {
		fn(vals)
		pos := len(idxs) - 1
		for pos >= 0 {
			idxs[pos]++
			if idxs[pos] < len(domains[pos]) {
				vals[pos] = domains[pos][idxs[pos]]
				break
			}
			idxs[pos] = 0
			vals[pos] = domains[pos][0]
			pos--
		}
		if pos < 0 {
			return
		}
	}
}

// JoinAll folds a list of spaces into one. Returns nil for an empty list;
// a variable with no constraint responsibility has zero local cost.
func JoinAll(spaces []*Space) (*Space, error) {
	if len(spaces) == 0 {
		return nil, nil
	}
	joined := spaces[0]
	var err error
	for _, s := range spaces[1:] {
		joined, err = joined.Join(s)
		if err != nil {
			return nil, err
		}
	}
	return joined, nil
}
