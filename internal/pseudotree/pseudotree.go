// Package pseudotree builds the depth-first pseudo-tree the solver agents
// search on: a spanning forest of the constraint graph in which every
// non-tree edge connects an ancestor and a descendant.
//
// Construction is deterministic: roots are the highest-degree variables of
// their components and neighbours are visited most-constrained first, with
// names breaking every tie. Determinism keeps solver runs reproducible and
// the tests stable.
package pseudotree

import (
	"fmt"
	"sort"

	"github.com/dyluth/warren/pkg/dcop"
)

// View is one variable's slice of the pseudo-tree, in the exact shape the
// engine consumes: parent first in the separator, children before
// pseudo-children, and the constraint spaces this variable is responsible
// for (every space is owned by the lowest-priority variable in its scope).
type View struct {
	Var            string
	Parent         string // "" at a root
	PseudoParents  []string
	Children       []string
	PseudoChildren []string
	Spaces         []*dcop.Space
}

// Build constructs the pseudo-tree views for every variable of a problem.
func Build(p *dcop.Problem) (map[string]*View, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	names := p.VariableNames()

	// Constraint-graph adjacency: two variables are neighbours iff they
	// share a space.
	adjacency := make(map[string]map[string]bool, len(names))
	for _, name := range names {
		adjacency[name] = make(map[string]bool)
	}
	for _, s := range p.Spaces {
		for _, a := range s.Scope {
			for _, b := range s.Scope {
				if a != b {
					adjacency[a][b] = true
				}
			}
		}
	}

	// Neighbour visit order: highest degree first, then name.
	ordered := make(map[string][]string, len(names))
	for _, name := range names {
		nbrs := make([]string, 0, len(adjacency[name]))
		for n := range adjacency[name] {
			nbrs = append(nbrs, n)
		}
		sort.Slice(nbrs, func(i, j int) bool {
			di, dj := len(adjacency[nbrs[i]]), len(adjacency[nbrs[j]])
			if di != dj {
				return di > dj
			}
			return nbrs[i] < nbrs[j]
		})
		ordered[name] = nbrs
	}

	views := make(map[string]*View, len(names))
	for _, name := range names {
		views[name] = &View{Var: name}
	}

	priority := make(map[string]int, len(names)) // DFS preorder; lower = higher priority
	visited := make(map[string]bool, len(names))
	next := 0

	var visit func(v string)
	visit = func(v string) {
		visited[v] = true
		priority[v] = next
		next++
		for _, w := range ordered[v] {
			if !visited[w] {
				views[w].Parent = v
				views[v].Children = append(views[v].Children, w)
				visit(w)
			}
		}
	}

	// One root per component: highest degree, ties by name.
	rootOrder := append([]string{}, names...)
	sort.Slice(rootOrder, func(i, j int) bool {
		di, dj := len(adjacency[rootOrder[i]]), len(adjacency[rootOrder[j]])
		if di != dj {
			return di > dj
		}
		return rootOrder[i] < rootOrder[j]
	})
	for _, name := range rootOrder {
		if !visited[name] {
			visit(name)
		}
	}

	// Back edges: any neighbour that is a proper ancestor but not the
	// parent is a pseudo-parent, and symmetrically a pseudo-child.
	for _, name := range names {
		v := views[name]
		for _, nbr := range ordered[name] {
			if nbr == v.Parent {
				continue
			}
			if isAncestor(views, nbr, name) {
				v.PseudoParents = append(v.PseudoParents, nbr)
				views[nbr].PseudoChildren = append(views[nbr].PseudoChildren, name)
			}
		}
	}
	for _, name := range names {
		v := views[name]
		sort.Slice(v.PseudoParents, func(i, j int) bool {
			return priority[v.PseudoParents[i]] < priority[v.PseudoParents[j]]
		})
		sort.Slice(v.PseudoChildren, func(i, j int) bool {
			return priority[v.PseudoChildren[i]] < priority[v.PseudoChildren[j]]
		})
	}

	// Constraint responsibility: each space belongs to the lowest-priority
	// variable in its scope.
	for _, s := range p.Spaces {
		owner := s.Scope[0]
		for _, name := range s.Scope[1:] {
			if priority[name] > priority[owner] {
				owner = name
			}
		}
		views[owner].Spaces = append(views[owner].Spaces, s)
	}

	// Sanity: every space owner's other scope variables must be ancestors
	// of the owner, otherwise the graph walk above is broken.
	for _, name := range names {
		for _, s := range views[name].Spaces {
			for _, sv := range s.Scope {
				if sv != name && !isAncestor(views, sv, name) {
					return nil, fmt.Errorf("pseudo-tree construction bug: %s owns space %q but %s is not an ancestor", name, s.Name, sv)
				}
			}
		}
	}

	return views, nil
}

// isAncestor reports whether a is a proper ancestor of v in the tree.
func isAncestor(views map[string]*View, a, v string) bool {
	for cur := views[v].Parent; cur != ""; cur = views[cur].Parent {
		if cur == a {
			return true
		}
	}
	return false
}
