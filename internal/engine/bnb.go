package engine

import (
	"github.com/dyluth/warren/pkg/dcop"
	"github.com/dyluth/warren/pkg/wire"
)

// Version is the capability object behind algorithm-variant selection: a
// dispatcher is constructed with one Version and feeds it every
// algorithm-level message. Variants share the Variable state but may differ
// in how they react to messages.
type Version interface {
	// Init runs once a variable is Ready: it establishes the initial
	// context, bounds and assignment, and emits the first messages.
	Init(v *Variable, out Emitter)
	// Notify handles one algorithm message for a variable.
	Notify(v *Variable, m wire.Msg, out Emitter)
	// Kinds lists the message kinds this version consumes.
	Kinds() []wire.Kind
}

// BnB is the branch-and-bound ADOPT version: asynchronous complete search
// with per-value bounds, downward threshold allocation and eager value
// switching (switch as soon as the current value's lower bound reaches the
// threshold or the upper bound).
type BnB struct{}

// Kinds implements Version.
func (BnB) Kinds() []wire.Kind {
	return []wire.Kind{wire.KindValue, wire.KindCost, wire.KindTerminate}
}

// Init implements Version.
func (BnB) Init(v *Variable, out Emitter) {
	if v.state != Ready {
		return
	}

	// A variable with no neighbours decides locally: pick the value with
	// the cheapest local cost, announce it, done.
	if v.IsSingleton() {
		v.setDelta()
		best := v.Domain[0]
		bestIdx := 0
		for i := 1; i < len(v.Domain); i++ {
			if v.bounds.Delta(i) < v.bounds.Delta(bestIdx) {
				best = v.Domain[i]
				bestIdx = i
			}
		}
		v.Current = best
		v.Stamp = 1
		v.recordTrace()
		v.state = Terminated
		out.EmitAssignment(v.Name, v.Current)
		if v.traceEnabled {
			out.EmitTrace(v.Name, v.trace)
		}
		out.VariableDone(v.Name)
		return
	}

	// Seed the context store with a placeholder for every ancestor so that
	// delta can be evaluated before any real VALUE arrives. The placeholder
	// stamp of 0 loses every priority merge against a real VALUE (stamps
	// start at 1), and against anything merged before init.
	for _, ancestor := range v.Separator {
		dom := out.DomainOf(ancestor)
		v.ctx.Merge(ancestor, dom[0], 0)
	}

	v.Stamp = 0
	for valueIdx := range v.Domain {
		for childIdx := 0; childIdx < v.NChildren; childIdx++ {
			v.bounds.initChild(valueIdx, childIdx)
		}
	}
	v.setDelta()
	v.initSelf()
	v.recordTrace()
	v.state = Running

	bnbBacktrack(v, out)
}

// Notify implements Version. Duplicate suppression happens here: a message
// structurally equal to the most recent one of the same kind is dropped,
// which is what stops self-induced message cascades under cooperative
// scheduling.
func (BnB) Notify(v *Variable, m wire.Msg, out Emitter) {
	if v.state == Terminated {
		return
	}

	switch msg := m.(type) {
	case wire.ValueMsg:
		if v.lastValue != nil && *v.lastValue == msg {
			return
		}
		v.lastValue = &msg
		bnbHandleValue(v, msg, out)

	case wire.CostMsg:
		if v.state != Running {
			// Bounds cannot be attributed before init has built the tables.
			return
		}
		if v.lastCost != nil && v.lastCost.Equal(msg) {
			return
		}
		v.lastCost = &msg
		bnbHandleCost(v, msg, out)

	case wire.TerminateMsg:
		if v.lastTerminate != nil && v.lastTerminate.Equal(msg) {
			return
		}
		v.lastTerminate = &msg
		bnbHandleTerminate(v, msg, out)
	}
}

// bnbHandleValue processes a VALUE message: merge the sender's assignment,
// invalidate what the context change made stale, store the threshold if the
// sender is the parent, then backtrack.
func bnbHandleValue(v *Variable, m wire.ValueMsg, out Emitter) {
	if v.state != Running {
		// Not initialised yet: remember the belief so bounds are computed
		// on the true context once init runs.
		v.ctx.Merge(m.Sender, m.Value, m.Stamp)
		return
	}

	changed := v.ctx.Merge(m.Sender, m.Value, m.Stamp)

	if v.NChildren == 0 {
		if changed {
			v.setDelta()
			v.initSelf()
		}
	} else {
		anyReset := v.resetStaleChildren()
		v.setDelta()
		if anyReset {
			v.initSelf()
		}
	}

	if m.Sender == v.Parent {
		v.Threshold = m.Threshold
	}

	bnbBacktrack(v, out)
}

// bnbHandleCost processes a COST message from a child: adopt newer
// non-child context entries, invalidate stale slots, then keep the reported
// bounds only if the child's context is compatible with the current one.
func bnbHandleCost(v *Variable, m wire.CostMsg, out Emitter) {
	reportCtx := m.Context.Clone()

	// The child's claim about this variable's own value determines which
	// per-value slot the bounds belong to; only ancestor entries remain in
	// the report context afterwards.
	var selfClaim *dcop.Value
	if entry, ok := reportCtx[v.Name]; ok {
		d := entry.Value
		selfClaim = &d
		delete(reportCtx, v.Name)
	}

	changed := v.ctx.MergeMany(reportCtx, v.childSet)
	anyReset := v.resetStaleChildren()
	if changed || anyReset {
		v.setDelta()
	}
	if anyReset {
		v.initSelf()
	}

	if Compatible(reportCtx, v.ctx.Snapshot()) {
		if childIdx, ok := v.lowerIdx[m.Sender]; ok && childIdx < v.NChildren {
			if selfClaim != nil {
				if valueIdx, ok := v.ValueIndex(*selfClaim); ok {
					v.bounds.update(valueIdx, childIdx, m.LB, m.UB, reportCtx)
				}
			} else {
				// The child's context was silent about this variable:
				// the bounds hold for every value.
				for valueIdx := range v.Domain {
					v.bounds.update(valueIdx, childIdx, m.LB, m.UB, reportCtx)
				}
			}
		}
	}

	bnbBacktrack(v, out)
}

// bnbHandleTerminate processes a TERMINATE from the parent: the received
// context becomes final, the variable finishes its local reselection under
// it and terminates in the backtrack.
func bnbHandleTerminate(v *Variable, m wire.TerminateMsg, out Emitter) {
	if v.state != Running {
		// The dispatcher re-enqueues TERMINATEs for uninitialised
		// variables; reaching here before Running is a routing bug.
		return
	}

	v.terminate = true

	final := m.Context.Clone()
	delete(final, v.Name)
	v.ctx.Replace(final)

	if v.NChildren == 0 {
		v.setDelta()
		v.initSelf()
	} else {
		anyReset := v.resetStaleChildren()
		v.setDelta()
		if anyReset {
			v.initSelf()
		}
	}

	bnbBacktrack(v, out)
}

// bnbBacktrack is the value-reselection and emission step shared by init
// and all three handlers.
func bnbBacktrack(v *Variable, out Emitter) {
	if v.state == Terminated {
		return
	}

	// Reselection: once the current value's lower bound has reached the
	// allocated threshold or the variable's upper bound, it cannot beat
	// the best known alternative; switch to the lower-bound minimiser.
	currentIdx := v.valueIdx[v.Current]
	if v.bounds.LBOf(currentIdx) >= v.Threshold || v.bounds.LBOf(currentIdx) >= v.bounds.UB() {
		if v.bounds.LBD() != v.Current {
			v.Current = v.bounds.LBD()
			v.Stamp++
			v.recordTrace()
		}
	}

	// Termination: ordered from above, or optimality proven at the root.
	if v.terminate || (v.Parent == "" && v.bounds.UB() <= v.bounds.LB()) {
		v.state = Terminated

		for childIdx := 0; childIdx < v.NChildren; childIdx++ {
			ctxPlus := v.ctx.Snapshot()
			ctxPlus[v.Name] = wire.CtxEntry{Value: v.Current, Stamp: v.Stamp}
			out.SendTerminate(wire.TerminateMsg{
				Sender:  v.Name,
				To:      v.LowerNeighbours[childIdx],
				Context: ctxPlus,
			})
		}

		out.EmitAssignment(v.Name, v.Current)
		if v.traceEnabled {
			out.EmitTrace(v.Name, v.trace)
		}
		out.VariableDone(v.Name)
		return
	}

	// VALUE to every lower neighbour. Children get a threshold allocation;
	// pseudo-children get +inf. Identical re-sends are deliberate: the
	// receiver's duplicate suppression is the backstop, not the sender.
	for k, lnb := range v.LowerNeighbours {
		threshold := dcop.Inf
		if k < v.NChildren {
			threshold = v.allocationThreshold(k)
		}
		out.SendValue(wire.ValueMsg{
			Sender:    v.Name,
			To:        lnb,
			Value:     v.Current,
			Threshold: threshold,
			Stamp:     v.Stamp,
		})
	}

	if v.Parent != "" {
		out.SendCost(wire.CostMsg{
			Sender:  v.Name,
			To:      v.Parent,
			Context: v.ctx.Snapshot(),
			LB:      v.bounds.LB(),
			UB:      v.bounds.UB(),
		})
	}
}
