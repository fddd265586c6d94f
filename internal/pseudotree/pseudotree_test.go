package pseudotree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/warren/pkg/dcop"
)

var dom01 = []dcop.Value{0, 1}

func pair(t *testing.T, name, a, b string) *dcop.Space {
	t.Helper()
	s, err := dcop.NewSpace(name, []string{a, b}, [][]dcop.Value{dom01, dom01}, []dcop.Cost{0, 1, 1, 0})
	require.NoError(t, err)
	return s
}

func problemOf(vars []string, spaces ...*dcop.Space) *dcop.Problem {
	p := &dcop.Problem{}
	for _, v := range vars {
		p.Variables = append(p.Variables, dcop.VariableDef{Name: v, Domain: dom01})
	}
	p.Spaces = spaces
	return p
}

func TestChainBecomesTreeRootedAtHub(t *testing.T) {
	p := problemOf([]string{"a", "b", "c"}, pair(t, "cab", "a", "b"), pair(t, "cbc", "b", "c"))
	views, err := Build(p)
	require.NoError(t, err)

	// b has the highest degree, so it is the root; a and c are leaves.
	assert.Equal(t, "", views["b"].Parent)
	assert.Equal(t, []string{"a", "c"}, views["b"].Children)
	assert.Equal(t, "b", views["a"].Parent)
	assert.Equal(t, "b", views["c"].Parent)
	assert.Empty(t, views["a"].Children)
	assert.Empty(t, views["b"].PseudoChildren)

	// Each space belongs to its lowest-priority scope variable: the leaf.
	require.Len(t, views["a"].Spaces, 1)
	require.Len(t, views["c"].Spaces, 1)
	assert.Empty(t, views["b"].Spaces)
}

func TestTriangleProducesBackEdge(t *testing.T) {
	p := problemOf([]string{"x", "y", "z"},
		pair(t, "cxy", "x", "y"), pair(t, "cyz", "y", "z"), pair(t, "cxz", "x", "z"))
	views, err := Build(p)
	require.NoError(t, err)

	// Equal degrees: x roots by name, DFS runs x -> y -> z, and the x-z
	// edge becomes the back edge.
	assert.Equal(t, "", views["x"].Parent)
	assert.Equal(t, []string{"y"}, views["x"].Children)
	assert.Equal(t, []string{"z"}, views["y"].Children)
	assert.Equal(t, []string{"x"}, views["z"].PseudoParents)
	assert.Equal(t, []string{"z"}, views["x"].PseudoChildren)

	// z is the lowest-priority variable of both cyz and cxz.
	assert.Len(t, views["z"].Spaces, 2)
	assert.Len(t, views["y"].Spaces, 1)
	assert.Empty(t, views["x"].Spaces)
}

func TestForestGetsOneRootPerComponent(t *testing.T) {
	p := problemOf([]string{"a", "b", "c", "d"}, pair(t, "cab", "a", "b"), pair(t, "ccd", "c", "d"))
	views, err := Build(p)
	require.NoError(t, err)

	roots := 0
	for _, v := range views {
		if v.Parent == "" {
			roots++
		}
	}
	assert.Equal(t, 2, roots)
}

func TestIsolatedVariableIsSingletonRoot(t *testing.T) {
	p := problemOf([]string{"lonely"})
	views, err := Build(p)
	require.NoError(t, err)

	v := views["lonely"]
	assert.Equal(t, "", v.Parent)
	assert.Empty(t, v.Children)
	assert.Empty(t, v.PseudoParents)
	assert.Empty(t, v.Spaces)
}

func TestUnaryConstraintBelongsToItsVariable(t *testing.T) {
	u, err := dcop.NewSpace("ua", []string{"a"}, [][]dcop.Value{dom01}, []dcop.Cost{3, 0})
	require.NoError(t, err)
	p := problemOf([]string{"a", "b"}, pair(t, "cab", "a", "b"), u)

	views, err := Build(p)
	require.NoError(t, err)

	// a roots (name order on equal degree). The unary space stays with a;
	// the binary edge sinks to the lower-priority b.
	require.Len(t, views["a"].Spaces, 1)
	assert.Equal(t, "ua", views["a"].Spaces[0].Name)
	require.Len(t, views["b"].Spaces, 1)
	assert.Equal(t, "cab", views["b"].Spaces[0].Name)
}

func TestDeterministicConstruction(t *testing.T) {
	p := func() *dcop.Problem {
		return problemOf([]string{"x", "y", "z", "w"},
			pair(t, "cxy", "x", "y"), pair(t, "cyz", "y", "z"),
			pair(t, "czw", "z", "w"), pair(t, "cxw", "x", "w"))
	}
	v1, err := Build(p())
	require.NoError(t, err)
	v2, err := Build(p())
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
}

func TestBuildValidatesProblem(t *testing.T) {
	p := problemOf([]string{"a", "b"}, pair(t, "cab", "a", "b"))
	p.Maximize = true
	_, err := Build(p)
	assert.Error(t, err)
}
