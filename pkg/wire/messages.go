package wire

import (
	"time"

	"github.com/dyluth/warren/pkg/dcop"
)

// Kind identifies a message type on the wire.
type Kind string

// Message kinds.
const (
	KindValue         Kind = "VALUE"
	KindCost          Kind = "COST"
	KindTerminate     Kind = "TERMINATE"
	KindDFSView       Kind = "DFS_VIEW"
	KindHeuristic     Kind = "HEURISTIC"
	KindStart         Kind = "START"
	KindAssignment    Kind = "ASSIGNMENT"
	KindTrace         Kind = "TRACE"
	KindAgentFinished Kind = "AGENT_FINISHED"
)

// CtxEntry is one ancestor belief: the value a sender last announced and the
// stamp it carried. Stamps break ties between racing VALUE messages; the
// higher stamp wins during a priority merge.
type CtxEntry struct {
	Value dcop.Value `json:"value"`
	Stamp int64      `json:"stamp"`
}

// ContextMap records, per ancestor variable name, the believed assignment.
type ContextMap map[string]CtxEntry

// Clone returns an independent copy of the context map.
func (c ContextMap) Clone() ContextMap {
	out := make(ContextMap, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Equal reports structural equality of two context maps.
func (c ContextMap) Equal(o ContextMap) bool {
	if len(c) != len(o) {
		return false
	}
	for k, v := range c {
		if ov, ok := o[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Msg is implemented by every message payload.
type Msg interface {
	Kind() Kind
	// Receiver names the destination variable, or "" for agent-level
	// messages (START, AGENT_FINISHED) and stats output.
	Receiver() string
}

// ValueMsg announces a variable's current assignment to a lower neighbour.
// Threshold is meaningful only on parent-to-child links; pseudo-children
// receive +infinity.
type ValueMsg struct {
	Sender    string     `json:"sender"`
	To        string     `json:"to"`
	Value     dcop.Value `json:"value"`
	Threshold dcop.Cost  `json:"threshold"`
	Stamp     int64      `json:"stamp"`
}

func (m ValueMsg) Kind() Kind       { return KindValue }
func (m ValueMsg) Receiver() string { return m.To }

// CostMsg reports subtree bounds from a child to its parent, together with
// the context under which the bounds were computed.
type CostMsg struct {
	Sender  string     `json:"sender"`
	To      string     `json:"to"`
	Context ContextMap `json:"context"`
	LB      dcop.Cost  `json:"lb"`
	UB      dcop.Cost  `json:"ub"`
}

func (m CostMsg) Kind() Kind       { return KindCost }
func (m CostMsg) Receiver() string { return m.To }

// Equal reports structural equality, used for duplicate suppression.
func (m CostMsg) Equal(o CostMsg) bool {
	return m.Sender == o.Sender && m.To == o.To && m.LB == o.LB && m.UB == o.UB &&
		m.Context.Equal(o.Context)
}

// TerminateMsg tells a child to terminate under the sender's final context.
type TerminateMsg struct {
	Sender  string     `json:"sender"`
	To      string     `json:"to"`
	Context ContextMap `json:"context"`
}

func (m TerminateMsg) Kind() Kind       { return KindTerminate }
func (m TerminateMsg) Receiver() string { return m.To }

// Equal reports structural equality, used for duplicate suppression.
func (m TerminateMsg) Equal(o TerminateMsg) bool {
	return m.Sender == o.Sender && m.To == o.To && m.Context.Equal(o.Context)
}

// DFSViewMsg delivers a variable's pseudo-tree neighbourhood and the
// constraint spaces it is responsible for.
type DFSViewMsg struct {
	Var            string        `json:"var"`
	Parent         string        `json:"parent,omitempty"` // "" at a root
	PseudoParents  []string      `json:"pseudo_parents,omitempty"`
	Children       []string      `json:"children,omitempty"`
	PseudoChildren []string      `json:"pseudo_children,omitempty"`
	Spaces         []*dcop.Space `json:"spaces,omitempty"`
}

func (m DFSViewMsg) Kind() Kind       { return KindDFSView }
func (m DFSViewMsg) Receiver() string { return m.Var }

// HeuristicMsg carries pre-processing lower bounds. With To == "" the
// bounds are Sender's own h(self, d) table, indexed by domain position.
// With To set, they are the bounds of child Sender, delivered to its parent
// To, which projects them to the scalar h_child(c).
type HeuristicMsg struct {
	Sender string      `json:"sender"`
	To     string      `json:"to,omitempty"`
	Bounds []dcop.Cost `json:"bounds"`
}

func (m HeuristicMsg) Kind() Kind { return KindHeuristic }

func (m HeuristicMsg) Receiver() string {
	if m.To != "" {
		return m.To
	}
	return m.Sender
}

// StartMsg triggers an agent's run.
type StartMsg struct{}

func (m StartMsg) Kind() Kind       { return KindStart }
func (m StartMsg) Receiver() string { return "" }

// AssignmentMsg is the final assignment of one variable, emitted exactly
// once at termination.
type AssignmentMsg struct {
	Var   string     `json:"var"`
	Value dcop.Value `json:"value"`
}

func (m AssignmentMsg) Kind() Kind       { return KindAssignment }
func (m AssignmentMsg) Receiver() string { return "" }

// TraceEntry is one step of a variable's assignment history.
type TraceEntry struct {
	Elapsed time.Duration `json:"elapsed"`
	Value   dcop.Value    `json:"value"`
}

// TraceMsg is a variable's convergence history, emitted at most once.
type TraceMsg struct {
	Var     string       `json:"var"`
	History []TraceEntry `json:"history"`
}

func (m TraceMsg) Kind() Kind       { return KindTrace }
func (m TraceMsg) Receiver() string { return "" }

// AgentFinishedMsg signals that every variable owned by an agent has
// terminated.
type AgentFinishedMsg struct {
	Agent string `json:"agent"`
}

func (m AgentFinishedMsg) Kind() Kind       { return KindAgentFinished }
func (m AgentFinishedMsg) Receiver() string { return "" }
