package solver

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/warren/internal/transport"
	"github.com/dyluth/warren/pkg/dcop"
)

const solveTimeout = 15 * time.Second

// solve runs one problem to completion with a test deadline.
func solve(t *testing.T, p *dcop.Problem, opts Options) *Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), solveTimeout)
	defer cancel()
	result, err := Solve(ctx, p, opts)
	require.NoError(t, err)
	return result
}

func binaryConstraint(t *testing.T, name, a, b string, domA, domB []dcop.Value, cost func(dcop.Value, dcop.Value) dcop.Cost) *dcop.Space {
	t.Helper()
	costs := make([]dcop.Cost, 0, len(domA)*len(domB))
	for _, va := range domA {
		for _, vb := range domB {
			costs = append(costs, cost(va, vb))
		}
	}
	s, err := dcop.NewSpace(name, []string{a, b}, [][]dcop.Value{domA, domB}, costs)
	require.NoError(t, err)
	return s
}

func absDiff(a, b dcop.Value) dcop.Cost {
	if a > b {
		return dcop.Cost(a - b)
	}
	return dcop.Cost(b - a)
}

func equalityPenalty(penalty dcop.Cost) func(dcop.Value, dcop.Value) dcop.Cost {
	return func(a, b dcop.Value) dcop.Cost {
		if a == b {
			return penalty
		}
		return 0
	}
}

// twoVariableProblem is scenario S1: minimise |x - y| over {0,1}.
func twoVariableProblem(t *testing.T) *dcop.Problem {
	t.Helper()
	dom := []dcop.Value{0, 1}
	return &dcop.Problem{
		Name: "two-vars",
		Variables: []dcop.VariableDef{
			{Name: "x", Domain: dom},
			{Name: "y", Domain: dom},
		},
		Spaces: []*dcop.Space{
			binaryConstraint(t, "cxy", "x", "y", dom, dom, absDiff),
		},
	}
}

// chainProblem is scenario S2: x1 - x2 - x3, adjacent values must differ.
func chainProblem(t *testing.T) *dcop.Problem {
	t.Helper()
	dom := []dcop.Value{0, 1, 2}
	return &dcop.Problem{
		Name: "chain",
		Variables: []dcop.VariableDef{
			{Name: "x1", Domain: dom},
			{Name: "x2", Domain: dom},
			{Name: "x3", Domain: dom},
		},
		Spaces: []*dcop.Space{
			binaryConstraint(t, "c12", "x1", "x2", dom, dom, equalityPenalty(5)),
			binaryConstraint(t, "c23", "x2", "x3", dom, dom, equalityPenalty(5)),
		},
	}
}

// cycleProblem is scenario S3: a binary triangle that cannot be 2-coloured.
func cycleProblem(t *testing.T) *dcop.Problem {
	t.Helper()
	dom := []dcop.Value{0, 1}
	return &dcop.Problem{
		Name: "cycle",
		Variables: []dcop.VariableDef{
			{Name: "x", Domain: dom},
			{Name: "y", Domain: dom},
			{Name: "z", Domain: dom},
		},
		Spaces: []*dcop.Space{
			binaryConstraint(t, "cxy", "x", "y", dom, dom, equalityPenalty(1)),
			binaryConstraint(t, "cyz", "y", "z", dom, dom, equalityPenalty(1)),
			binaryConstraint(t, "cxz", "x", "z", dom, dom, equalityPenalty(1)),
		},
	}
}

// singletonProblem is scenario S4: one variable with unary costs.
func singletonProblem(t *testing.T) *dcop.Problem {
	t.Helper()
	dom := []dcop.Value{0, 1, 2}
	s, err := dcop.NewSpace("uz", []string{"z"}, [][]dcop.Value{dom}, []dcop.Cost{7, 3, 5})
	require.NoError(t, err)
	return &dcop.Problem{
		Name:      "singleton",
		Variables: []dcop.VariableDef{{Name: "z", Domain: dom}},
		Spaces:    []*dcop.Space{s},
	}
}

// randomTreeProblem is scenario S5 material: a random tree with integer
// costs in [0, 10].
func randomTreeProblem(t *testing.T, seed int64) *dcop.Problem {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	const n = 5
	dom := []dcop.Value{0, 1, 2}

	p := &dcop.Problem{Name: fmt.Sprintf("random-%d", seed)}
	for i := 0; i < n; i++ {
		p.Variables = append(p.Variables, dcop.VariableDef{
			Name:   fmt.Sprintf("v%d", i),
			Domain: dom,
		})
	}
	for i := 1; i < n; i++ {
		other := rng.Intn(i)
		costs := make([]dcop.Cost, len(dom)*len(dom))
		for j := range costs {
			costs[j] = dcop.Cost(rng.Intn(11))
		}
		s, err := dcop.NewSpace(
			fmt.Sprintf("c%d_%d", other, i),
			[]string{fmt.Sprintf("v%d", other), fmt.Sprintf("v%d", i)},
			[][]dcop.Value{dom, dom},
			costs,
		)
		require.NoError(t, err)
		p.Spaces = append(p.Spaces, s)
	}
	return p
}

func TestTwoVariables(t *testing.T) {
	result := solve(t, twoVariableProblem(t), Options{})
	assert.Equal(t, dcop.Cost(0), result.Cost)
	assert.Equal(t, result.Assignment["x"], result.Assignment["y"])
}

func TestChain(t *testing.T) {
	result := solve(t, chainProblem(t), Options{})
	assert.Equal(t, dcop.Cost(0), result.Cost)
	assert.NotEqual(t, result.Assignment["x1"], result.Assignment["x2"])
	assert.NotEqual(t, result.Assignment["x2"], result.Assignment["x3"])
}

func TestCycleWithUnsatisfiableColouring(t *testing.T) {
	result := solve(t, cycleProblem(t), Options{})
	assert.Equal(t, dcop.Cost(1), result.Cost)
}

func TestSingleton(t *testing.T) {
	result := solve(t, singletonProblem(t), Options{Trace: true})
	assert.Equal(t, dcop.Cost(3), result.Cost)
	assert.Equal(t, dcop.Value(1), result.Assignment["z"])
	require.Len(t, result.Traces["z"], 1)
}

func TestRandomTreesMatchBruteForce(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		seed := seed
		t.Run(fmt.Sprintf("seed-%d", seed), func(t *testing.T) {
			p := randomTreeProblem(t, seed)
			_, want, err := BruteForce(p)
			require.NoError(t, err)

			result := solve(t, p, Options{})
			assert.Equal(t, want, result.Cost, "asynchronous search must find the brute-force optimum")

			got, err := p.TotalCost(result.Assignment)
			require.NoError(t, err)
			assert.Equal(t, result.Cost, got, "reported cost must match the emitted assignment")
		})
	}
}

func TestDuplicateDeliveryMatchesSingleDelivery(t *testing.T) {
	cases := []struct {
		name    string
		problem func(*testing.T) *dcop.Problem
		exact   bool // final assignments compared, not just costs
	}{
		{"two-vars", twoVariableProblem, true},
		{"chain", chainProblem, true},
		{"cycle", cycleProblem, false},
		{"singleton", singletonProblem, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plain := solve(t, tc.problem(t), Options{})
			doubled := solve(t, tc.problem(t), Options{
				Transport: &transport.Duplicating{Inner: transport.NewChannel()},
			})
			assert.Equal(t, plain.Cost, doubled.Cost)
			if tc.exact {
				assert.Equal(t, plain.Assignment, doubled.Assignment)
			}
		})
	}
}

func TestMultipleVariablesPerAgent(t *testing.T) {
	p := chainProblem(t)
	// All three variables on one agent exercises intra-agent routing.
	for i := range p.Variables {
		p.Variables[i].Agent = "a1"
	}
	result := solve(t, p, Options{})
	assert.Equal(t, dcop.Cost(0), result.Cost)
}

func TestSolveOverRedisTransport(t *testing.T) {
	mr := miniredis.RunT(t)
	defer mr.Close()

	tr, err := transport.NewRedis(&redis.Options{Addr: mr.Addr()}, "test-run")
	require.NoError(t, err)
	defer tr.Close()

	result := solve(t, twoVariableProblem(t), Options{Transport: tr})
	assert.Equal(t, dcop.Cost(0), result.Cost)
}

func TestSolveRejectsInvalidProblems(t *testing.T) {
	t.Run("maximization", func(t *testing.T) {
		p := twoVariableProblem(t)
		p.Maximize = true
		_, err := Solve(context.Background(), p, Options{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "maximization")
	})

	t.Run("negative cost", func(t *testing.T) {
		p := twoVariableProblem(t)
		p.Spaces[0].Costs[0] = -1
		_, err := Solve(context.Background(), p, Options{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "negative cost")
	})
}

func TestSolveTimesOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // expired before the run starts
	_, err := Solve(ctx, twoVariableProblem(t), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestBruteForce(t *testing.T) {
	t.Run("singleton", func(t *testing.T) {
		a, cost, err := BruteForce(singletonProblem(t))
		require.NoError(t, err)
		assert.Equal(t, dcop.Cost(3), cost)
		assert.Equal(t, dcop.Value(1), a["z"])
	})

	t.Run("cycle optimum violates one edge", func(t *testing.T) {
		_, cost, err := BruteForce(cycleProblem(t))
		require.NoError(t, err)
		assert.Equal(t, dcop.Cost(1), cost)
	})

	t.Run("ties resolve deterministically", func(t *testing.T) {
		p := twoVariableProblem(t)
		a1, _, err := BruteForce(p)
		require.NoError(t, err)
		a2, _, err := BruteForce(p)
		require.NoError(t, err)
		assert.Equal(t, a1, a2)
	})
}
