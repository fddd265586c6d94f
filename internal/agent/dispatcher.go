// Package agent runs one solver agent: a dispatcher that drains the
// agent's inbox on a single goroutine and routes every message to the
// variable engine it addresses.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/dyluth/warren/internal/engine"
	"github.com/dyluth/warren/internal/transport"
	"github.com/dyluth/warren/pkg/dcop"
	"github.com/dyluth/warren/pkg/wire"
)

// ErrUnknownVariable indicates a message addressed to a variable this agent
// does not own: a wiring bug upstream, fatal to the agent.
var ErrUnknownVariable = errors.New("message for unknown variable")

// StatsSink consumes the solver-level output stream: assignments,
// convergence traces and agent-finished signals.
type StatsSink interface {
	Notify(m wire.Msg)
}

// Config describes one agent.
type Config struct {
	// Name is the agent's identity on the transport.
	Name string
	// OwnedVariables lists the variables this agent runs engines for.
	OwnedVariables []string
	// Owners maps every known variable to its owning agent. Populated once
	// at startup and read-only thereafter.
	Owners map[string]string
	// Domains maps every known variable to its domain.
	Domains map[string][]dcop.Value
	// Trace enables convergence-history recording.
	Trace bool
	// Version selects the algorithm variant; nil means engine.BnB.
	Version engine.Version
}

// Dispatcher routes an agent's inbound messages to its variable engines and
// sends their outbound messages through the transport. It implements
// engine.Emitter; the variables hold no reference back to it.
type Dispatcher struct {
	name    string
	owners  map[string]string
	domains map[string][]dcop.Value
	vars    map[string]*engine.Variable
	version engine.Version
	kinds   map[wire.Kind]bool
	tr      transport.Transport
	inbox   <-chan wire.Msg
	stats   StatsSink

	doneVars map[string]bool
	finished bool
	sendErr  error
}

// New builds a dispatcher and registers the agent's inbox on the transport.
func New(cfg Config, tr transport.Transport, stats StatsSink) (*Dispatcher, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("agent name cannot be empty")
	}
	if len(cfg.OwnedVariables) == 0 {
		return nil, fmt.Errorf("agent %q owns no variables", cfg.Name)
	}
	version := cfg.Version
	if version == nil {
		version = engine.BnB{}
	}
	kinds := make(map[wire.Kind]bool)
	for _, k := range version.Kinds() {
		kinds[k] = true
	}

	vars := make(map[string]*engine.Variable, len(cfg.OwnedVariables))
	for _, name := range cfg.OwnedVariables {
		domain, ok := cfg.Domains[name]
		if !ok {
			return nil, fmt.Errorf("agent %q: no domain for variable %q", cfg.Name, name)
		}
		vars[name] = engine.NewVariable(name, domain, cfg.Trace)
	}

	inbox, err := tr.Register(cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("agent %q: %w", cfg.Name, err)
	}

	return &Dispatcher{
		name:     cfg.Name,
		owners:   cfg.Owners,
		domains:  cfg.Domains,
		vars:     vars,
		version:  version,
		kinds:    kinds,
		tr:       tr,
		inbox:    inbox,
		stats:    stats,
		doneVars: make(map[string]bool),
	}, nil
}

// Run drains the inbox until every owned variable has terminated or the
// context is cancelled. Fatal errors (unknown variables, transport
// failures) abort the agent after logging; the harness owns restarts.
func (d *Dispatcher) Run(ctx context.Context) error {
	log.Printf("[INFO] agent %s starting with %d variable(s)", d.name, len(d.vars))
	for {
		// Cancellation wins over pending work: a killed run must not keep
		// draining its backlog.
		select {
		case <-ctx.Done():
			log.Printf("[INFO] agent %s shutting down: %v", d.name, ctx.Err())
			return ctx.Err()
		default:
		}

		select {
		case <-ctx.Done():
			log.Printf("[INFO] agent %s shutting down: %v", d.name, ctx.Err())
			return ctx.Err()
		case m := <-d.inbox:
			if err := d.handle(m); err != nil {
				log.Printf("[WARN] agent %s aborting: %v", d.name, err)
				return err
			}
			if d.finished {
				log.Printf("[INFO] agent %s finished: all variables terminated", d.name)
				return nil
			}
		}
	}
}

// handle routes one inbound message.
func (d *Dispatcher) handle(m wire.Msg) error {
	switch msg := m.(type) {
	case wire.StartMsg:
		log.Printf("[DEBUG] agent %s received START", d.name)
		return nil

	case wire.AgentFinishedMsg:
		// Agent-finished is an outbound signal; an inbound copy carries no
		// work for the dispatcher.
		return nil

	case wire.DFSViewMsg:
		v, err := d.variable(msg.Var)
		if err != nil {
			return err
		}
		if err := v.OnDFSView(msg.Parent, msg.PseudoParents, msg.Children, msg.PseudoChildren, msg.Spaces); err != nil {
			return err
		}
		d.maybeInit(v)
		return d.sendErr

	case wire.HeuristicMsg:
		v, err := d.variable(msg.Receiver())
		if err != nil {
			return err
		}
		if msg.To == "" {
			if err := v.OnHeuristic(msg.Bounds); err != nil {
				return err
			}
		} else {
			v.OnChildHeuristic(msg.Sender, msg.Bounds)
		}
		d.maybeInit(v)
		return d.sendErr

	case wire.TerminateMsg:
		if !d.kinds[msg.Kind()] {
			return nil
		}
		v, err := d.variable(msg.To)
		if err != nil {
			return err
		}
		if v.State() == engine.Uninitialised || v.State() == engine.Ready {
			// Retried in arrival order once init has run.
			log.Printf("[DEBUG] agent %s re-enqueueing TERMINATE for uninitialised variable %s", d.name, msg.To)
			return d.tr.Send(d.name, msg)
		}
		d.version.Notify(v, msg, d)
		return d.sendErr

	case wire.ValueMsg:
		if !d.kinds[msg.Kind()] {
			return nil
		}
		v, err := d.variable(msg.To)
		if err != nil {
			return err
		}
		d.version.Notify(v, msg, d)
		return d.sendErr

	case wire.CostMsg:
		if !d.kinds[msg.Kind()] {
			return nil
		}
		v, err := d.variable(msg.To)
		if err != nil {
			return err
		}
		d.version.Notify(v, msg, d)
		return d.sendErr

	default:
		return fmt.Errorf("agent %s: unhandled message kind %s", d.name, m.Kind())
	}
}

func (d *Dispatcher) variable(name string) (*engine.Variable, error) {
	v, ok := d.vars[name]
	if !ok {
		return nil, fmt.Errorf("agent %s: %w: %q", d.name, ErrUnknownVariable, name)
	}
	return v, nil
}

// maybeInit runs the version's Init once a variable reaches Ready.
func (d *Dispatcher) maybeInit(v *engine.Variable) {
	if v.State() == engine.Ready {
		d.version.Init(v, d)
	}
}

// send routes an outbound message to the agent owning the recipient
// variable. Failures are latched and surfaced to the run loop; the Emitter
// interface keeps the engine free of error plumbing.
func (d *Dispatcher) send(variable string, m wire.Msg) {
	if d.sendErr != nil {
		return
	}
	owner, ok := d.owners[variable]
	if !ok {
		d.sendErr = fmt.Errorf("agent %s: %w: %q", d.name, ErrUnknownVariable, variable)
		return
	}
	if err := d.tr.Send(owner, m); err != nil {
		d.sendErr = fmt.Errorf("agent %s: transport failure: %w", d.name, err)
	}
}

// SendValue implements engine.Emitter.
func (d *Dispatcher) SendValue(m wire.ValueMsg) { d.send(m.To, m) }

// SendCost implements engine.Emitter.
func (d *Dispatcher) SendCost(m wire.CostMsg) { d.send(m.To, m) }

// SendTerminate implements engine.Emitter.
func (d *Dispatcher) SendTerminate(m wire.TerminateMsg) { d.send(m.To, m) }

// EmitAssignment implements engine.Emitter.
func (d *Dispatcher) EmitAssignment(variable string, value dcop.Value) {
	d.stats.Notify(wire.AssignmentMsg{Var: variable, Value: value})
}

// EmitTrace implements engine.Emitter.
func (d *Dispatcher) EmitTrace(variable string, history []wire.TraceEntry) {
	d.stats.Notify(wire.TraceMsg{Var: variable, History: history})
}

// VariableDone implements engine.Emitter. When the last owned variable
// terminates, the agent-finished signal goes out and the run loop exits.
func (d *Dispatcher) VariableDone(variable string) {
	d.doneVars[variable] = true
	if len(d.doneVars) == len(d.vars) && !d.finished {
		d.finished = true
		d.stats.Notify(wire.AgentFinishedMsg{Agent: d.name})
	}
}

// DomainOf implements engine.Emitter.
func (d *Dispatcher) DomainOf(name string) []dcop.Value {
	return d.domains[name]
}
