// Package solver wires a full warren run: pseudo-tree construction,
// pre-processing, one dispatcher per agent, message injection and stats
// gathering. It also ships the brute-force reference enumerator the tests
// and the CLI's --verify flag compare optimality against.
package solver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dyluth/warren/internal/agent"
	"github.com/dyluth/warren/internal/engine"
	"github.com/dyluth/warren/internal/heuristic"
	"github.com/dyluth/warren/internal/pseudotree"
	"github.com/dyluth/warren/internal/stats"
	"github.com/dyluth/warren/internal/transport"
	"github.com/dyluth/warren/pkg/dcop"
	"github.com/dyluth/warren/pkg/wire"
)

// Options tunes one solver run.
type Options struct {
	// Transport carries inter-agent messages; nil means the in-process
	// channel transport.
	Transport transport.Transport
	// Trace enables per-variable convergence histories.
	Trace bool
	// Version selects the algorithm variant; nil means engine.BnB.
	Version engine.Version
}

// Result is a completed run.
type Result struct {
	RunID      string
	Assignment dcop.Assignment
	Cost       dcop.Cost
	Traces     map[string][]wire.TraceEntry
	Elapsed    time.Duration
}

// Solve runs BnB-ADOPT on a problem until every variable has terminated or
// the context expires. On timeout the agents are killed where they stand;
// there is no orderly unwind and no partial result.
func Solve(ctx context.Context, p *dcop.Problem, opts Options) (*Result, error) {
	started := time.Now()

	if err := p.Validate(); err != nil {
		return nil, err
	}

	views, err := pseudotree.Build(p)
	if err != nil {
		return nil, fmt.Errorf("pseudo-tree construction failed: %w", err)
	}
	bounds, err := heuristic.Compute(p, views)
	if err != nil {
		return nil, fmt.Errorf("pre-processing failed: %w", err)
	}

	runID := uuid.NewString()
	tr := opts.Transport
	if tr == nil {
		tr = transport.NewChannel()
	}

	owners := p.Owners()
	domains := p.Domains()

	// Group variables by owning agent; sorted for deterministic startup.
	owned := make(map[string][]string)
	for _, name := range p.VariableNames() {
		a := owners[name]
		owned[a] = append(owned[a], name)
	}
	agentNames := make([]string, 0, len(owned))
	for a := range owned {
		agentNames = append(agentNames, a)
	}
	sort.Strings(agentNames)

	collector := stats.New(p)

	dispatchers := make([]*agent.Dispatcher, 0, len(agentNames))
	for _, name := range agentNames {
		d, err := agent.New(agent.Config{
			Name:           name,
			OwnedVariables: owned[name],
			Owners:         owners,
			Domains:        domains,
			Trace:          opts.Trace,
			Version:        opts.Version,
		}, tr, collector)
		if err != nil {
			return nil, err
		}
		dispatchers = append(dispatchers, d)
	}

	// Inject the collaborator messages before any agent runs: each inbox
	// receives its DFS views and bounds ahead of anything the search emits,
	// because injection happens from this one goroutine in FIFO order.
	for _, name := range p.VariableNames() {
		view := views[name]
		if err := tr.Send(owners[name], wire.DFSViewMsg{
			Var:            name,
			Parent:         view.Parent,
			PseudoParents:  view.PseudoParents,
			Children:       view.Children,
			PseudoChildren: view.PseudoChildren,
			Spaces:         view.Spaces,
		}); err != nil {
			return nil, fmt.Errorf("failed to inject DFS view for %s: %w", name, err)
		}
		if err := tr.Send(owners[name], wire.HeuristicMsg{
			Sender: name,
			Bounds: bounds.Own(name),
		}); err != nil {
			return nil, fmt.Errorf("failed to inject bounds for %s: %w", name, err)
		}
		if view.Parent != "" {
			if err := tr.Send(owners[view.Parent], wire.HeuristicMsg{
				Sender: name,
				To:     view.Parent,
				Bounds: bounds.Own(name),
			}); err != nil {
				return nil, fmt.Errorf("failed to inject child bounds of %s: %w", name, err)
			}
		}
	}
	for _, name := range agentNames {
		if err := tr.Send(name, wire.StartMsg{}); err != nil {
			return nil, fmt.Errorf("failed to start agent %s: %w", name, err)
		}
	}

	log.Printf("[INFO] run %s: problem %q, %d variable(s) across %d agent(s)", runID, p.Name, len(p.Variables), len(agentNames))

	agentCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, len(dispatchers))
	for _, d := range dispatchers {
		wg.Add(1)
		go func(d *agent.Dispatcher) {
			defer wg.Done()
			if err := d.Run(agentCtx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- err
			}
		}(d)
	}

	select {
	case <-collector.Done():
	case err := <-errCh:
		cancel()
		wg.Wait()
		return nil, fmt.Errorf("agent failed: %w", err)
	case <-ctx.Done():
		cancel()
		wg.Wait()
		return nil, fmt.Errorf("run %s timed out before completion: %w", runID, ctx.Err())
	}

	cancel()
	wg.Wait()

	assignment, cost, err := collector.Result()
	if err != nil {
		return nil, err
	}

	log.Printf("[INFO] run %s: optimal cost %s in %s", runID, cost, time.Since(started).Round(time.Millisecond))

	return &Result{
		RunID:      runID,
		Assignment: assignment,
		Cost:       cost,
		Traces:     collector.Traces(),
		Elapsed:    time.Since(started),
	}, nil
}
