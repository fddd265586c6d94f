// Package stats gathers the solver's output stream: one final assignment
// per variable, optional convergence traces and agent-finished signals.
// When the last assignment arrives it evaluates the global utility on the
// aggregate and signals completion.
package stats

import (
	"fmt"
	"sync"

	"github.com/dyluth/warren/pkg/dcop"
	"github.com/dyluth/warren/pkg/wire"
)

// Collector is the solver-side stats gatherer. Notify is safe to call from
// every agent goroutine concurrently.
type Collector struct {
	mu             sync.Mutex
	problem        *dcop.Problem
	assignment     dcop.Assignment
	traces         map[string][]wire.TraceEntry
	finishedAgents map[string]bool
	total          dcop.Cost
	totalErr       error
	complete       bool
	done           chan struct{}
}

// New creates a collector for one problem.
func New(p *dcop.Problem) *Collector {
	return &Collector{
		problem:        p,
		assignment:     make(dcop.Assignment, len(p.Variables)),
		traces:         make(map[string][]wire.TraceEntry),
		finishedAgents: make(map[string]bool),
		done:           make(chan struct{}),
	}
}

// Notify implements agent.StatsSink.
func (c *Collector) Notify(m wire.Msg) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch msg := m.(type) {
	case wire.AssignmentMsg:
		c.assignment[msg.Var] = msg.Value
		if !c.complete && len(c.assignment) == len(c.problem.Variables) {
			c.complete = true
			c.total, c.totalErr = c.problem.TotalCost(c.assignment)
			close(c.done)
		}
	case wire.TraceMsg:
		c.traces[msg.Var] = msg.History
	case wire.AgentFinishedMsg:
		c.finishedAgents[msg.Agent] = true
	}
}

// Done is closed once every variable has reported its final assignment.
func (c *Collector) Done() <-chan struct{} {
	return c.done
}

// Result returns the aggregated assignment and its total cost. Valid only
// after Done has been signalled.
func (c *Collector) Result() (dcop.Assignment, dcop.Cost, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.complete {
		return nil, 0, fmt.Errorf("solver has not completed: %d of %d assignments received", len(c.assignment), len(c.problem.Variables))
	}
	if c.totalErr != nil {
		return nil, 0, fmt.Errorf("failed to evaluate total cost: %w", c.totalErr)
	}
	out := make(dcop.Assignment, len(c.assignment))
	for k, v := range c.assignment {
		out[k] = v
	}
	return out, c.total, nil
}

// Traces returns the collected convergence histories.
func (c *Collector) Traces() map[string][]wire.TraceEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string][]wire.TraceEntry, len(c.traces))
	for k, v := range c.traces {
		out[k] = v
	}
	return out
}

// FinishedAgents returns the agents that have signalled completion.
func (c *Collector) FinishedAgents() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.finishedAgents))
	for name := range c.finishedAgents {
		out = append(out, name)
	}
	return out
}
