package engine

import (
	"fmt"
	"time"

	"github.com/dyluth/warren/pkg/dcop"
	"github.com/dyluth/warren/pkg/wire"
)

// State is a variable's lifecycle position.
type State int

const (
	// Uninitialised: waiting for the DFS view or the pre-processing bounds.
	Uninitialised State = iota
	// Ready: both inputs arrived; the version's Init has not run yet.
	Ready
	// Running: searching; VALUE and COST messages flow.
	Running
	// Terminated: final assignment emitted; all inbound messages dropped.
	Terminated
)

func (s State) String() string {
	switch s {
	case Uninitialised:
		return "uninitialised"
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Terminated:
		return "terminated"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Emitter is the variable's borrowed handle to its agent: outbound messages,
// stats output and domain lookup all go through it. The dispatcher
// implements it; the engine never holds a back-reference to the agent.
type Emitter interface {
	SendValue(m wire.ValueMsg)
	SendCost(m wire.CostMsg)
	SendTerminate(m wire.TerminateMsg)
	EmitAssignment(variable string, value dcop.Value)
	EmitTrace(variable string, history []wire.TraceEntry)
	VariableDone(variable string)
	// DomainOf resolves any known variable's domain, used for the ancestor
	// placeholders installed at init time.
	DomainOf(name string) []dcop.Value
}

// Variable holds all state of one owned variable: its pseudo-tree
// neighbourhood, constraint responsibility, bounds table, context store and
// search position. The algorithm itself lives in a Version; Variable only
// provides the state and the small mutations the algorithm is built from.
type Variable struct {
	Name   string
	Domain []dcop.Value

	valueIdx map[dcop.Value]int

	// Pseudo-tree neighbourhood, fixed by the DFS view.
	dfsSet          bool
	Parent          string   // "" at a root
	Separator       []string // parent first (when present), then pseudo-parents
	LowerNeighbours []string // children first, then pseudo-children
	NChildren       int
	lowerIdx        map[string]int
	childSet        map[string]bool

	// Spaces are the constraint spaces this variable is responsible for;
	// empty means zero local cost. They are kept separate rather than
	// joined so that a space whose scope is not fully covered by the
	// context can contribute zero instead of poisoning the whole sum.
	Spaces []*dcop.Space

	// Pre-processing bounds.
	h      []dcop.Cost // own h(self, d); nil until delivered
	hChild map[string]dcop.Cost

	bounds *Bounds
	ctx    *ContextStore

	Current   dcop.Value
	Stamp     int64
	Threshold dcop.Cost

	terminate bool // TERMINATE received; termination happens in backtrack
	state     State

	lastValue     *wire.ValueMsg
	lastCost      *wire.CostMsg
	lastTerminate *wire.TerminateMsg

	traceEnabled bool
	trace        []wire.TraceEntry
	started      time.Time
}

// NewVariable creates a variable in the Uninitialised state.
func NewVariable(name string, domain []dcop.Value, traceEnabled bool) *Variable {
	valueIdx := make(map[dcop.Value]int, len(domain))
	for i, d := range domain {
		valueIdx[d] = i
	}
	return &Variable{
		Name:         name,
		Domain:       domain,
		valueIdx:     valueIdx,
		hChild:       make(map[string]dcop.Cost),
		bounds:       newBounds(domain),
		ctx:          NewContextStore(),
		Threshold:    dcop.Inf,
		state:        Uninitialised,
		traceEnabled: traceEnabled,
		started:      time.Now(),
	}
}

// State returns the variable's lifecycle position.
func (v *Variable) State() State { return v.state }

// Bounds exposes the bounds table read-only, for tests and debugging.
func (v *Variable) Bounds() *Bounds { return v.bounds }

// Context exposes the context store read-only, for tests and debugging.
func (v *Variable) Context() *ContextStore { return v.ctx }

// OnDFSView installs the pseudo-tree neighbourhood and the constraint
// spaces this variable is responsible for. Advances to Ready once the
// pre-processing bounds have also arrived.
func (v *Variable) OnDFSView(parent string, pseudoParents, children, pseudoChildren []string, spaces []*dcop.Space) error {
	if v.dfsSet {
		// Transports may duplicate; a second view carries nothing new.
		return nil
	}

	v.Parent = parent
	v.Separator = v.Separator[:0]
	if parent != "" {
		v.Separator = append(v.Separator, parent)
	}
	v.Separator = append(v.Separator, pseudoParents...)

	v.NChildren = len(children)
	v.LowerNeighbours = make([]string, 0, len(children)+len(pseudoChildren))
	v.LowerNeighbours = append(v.LowerNeighbours, children...)
	v.LowerNeighbours = append(v.LowerNeighbours, pseudoChildren...)
	v.lowerIdx = make(map[string]int, len(v.LowerNeighbours))
	v.childSet = make(map[string]bool, len(children))
	for i, name := range v.LowerNeighbours {
		v.lowerIdx[name] = i
	}
	for _, name := range children {
		v.childSet[name] = true
	}

	v.Spaces = spaces

	v.bounds.setChildren(v.NChildren)
	v.dfsSet = true
	v.checkReady()
	return nil
}

// OnHeuristic installs the variable's own pre-processing bounds, one per
// domain position. Advances to Ready once the DFS view has also arrived.
func (v *Variable) OnHeuristic(bounds []dcop.Cost) error {
	if len(bounds) != len(v.Domain) {
		return fmt.Errorf("variable %s: %d heuristic bounds for a domain of size %d", v.Name, len(bounds), len(v.Domain))
	}
	v.h = append([]dcop.Cost{}, bounds...)
	v.bounds.setH(v.h)
	v.checkReady()
	return nil
}

// OnChildHeuristic stores the scalar lower bound for one child, projected
// from the child's bound table.
func (v *Variable) OnChildHeuristic(child string, bounds []dcop.Cost) {
	scalar := dcop.Inf
	for _, c := range bounds {
		scalar = scalar.Min(c)
	}
	v.hChild[child] = scalar
	v.checkReady()
}

// ready mirrors the readiness rule: the DFS view, the own bounds and one
// scalar per child must all have arrived.
func (v *Variable) ready() bool {
	return v.dfsSet && v.h != nil && len(v.hChild) == v.NChildren
}

func (v *Variable) checkReady() {
	if v.state == Uninitialised && v.ready() {
		v.state = Ready
	}
}

// IsSingleton reports whether the variable has no neighbours at all; such
// variables decide locally and terminate immediately.
func (v *Variable) IsSingleton() bool {
	return v.dfsSet && len(v.Separator) == 0 && len(v.LowerNeighbours) == 0
}

// ValueIndex resolves a domain value to its position.
func (v *Variable) ValueIndex(d dcop.Value) (int, bool) {
	i, ok := v.valueIdx[d]
	return i, ok
}

// setDelta recomputes delta(d) for every domain value by evaluating each
// owned space with the self variable pinned to d and every ancestor pinned
// to the context store's belief. A space whose scope is not fully covered
// by the context contributes zero.
func (v *Variable) setDelta() {
	assignment := v.ctx.Values()
	for i, d := range v.Domain {
		assignment[v.Name] = d
		cost := dcop.Cost(0)
		for _, s := range v.Spaces {
			if !s.Covered(assignment) {
				continue
			}
			c, err := s.Eval(assignment)
			if err != nil {
				// Covered has checked presence; only an out-of-domain value
				// can fail here, which is a wiring bug upstream.
				panic(fmt.Sprintf("variable %s: delta evaluation: %v", v.Name, err))
			}
			cost = cost.Add(c)
		}
		v.bounds.setDelta(i, cost)
	}
	delete(assignment, v.Name)
}

// initSelf recomputes the aggregates from the per-value bounds, reselects
// the assignment that minimises LB(d), advances the stamp and resets the
// threshold. Called at init and whenever a context change invalidated the
// previous selection basis.
func (v *Variable) initSelf() {
	v.bounds.recomputeAggregates()
	v.Current = v.bounds.LBD()
	v.Stamp++
	v.Threshold = dcop.Inf
}

// resetStaleChildren resets every (value, child) slot whose saved context
// is incompatible with the current context store. Reports whether any slot
// was reset.
func (v *Variable) resetStaleChildren() bool {
	current := v.ctx.Snapshot()
	any := false
	for valueIdx := range v.Domain {
		for childIdx := 0; childIdx < v.NChildren; childIdx++ {
			saved := v.bounds.ChildCtx(valueIdx, childIdx)
			if saved == nil {
				continue
			}
			if !Compatible(saved, current) {
				v.bounds.reset(valueIdx, childIdx)
				any = true
			}
		}
	}
	return any
}

// allocationThreshold computes the threshold allocated to the child at the
// given index: min(threshold, UB) minus the local cost of the current value
// and the lower bounds of the other children, clamped at zero.
func (v *Variable) allocationThreshold(childIdx int) dcop.Cost {
	i := v.valueIdx[v.Current]
	sum := dcop.Cost(0)
	for j := 0; j < v.NChildren; j++ {
		if j != childIdx {
			sum = sum.Add(v.bounds.ChildLB(i, j))
		}
	}
	budget := v.Threshold.Min(v.bounds.UB())
	return budget.SubFloor(v.bounds.Delta(i)).SubFloor(sum)
}

// recordTrace appends the current assignment to the convergence history.
func (v *Variable) recordTrace() {
	if !v.traceEnabled {
		return
	}
	v.trace = append(v.trace, wire.TraceEntry{Elapsed: time.Since(v.started), Value: v.Current})
}
