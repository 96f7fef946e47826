package workflow

import (
	"context"
	"errors"
	"fmt"
)

// End is the distinguished terminal node. Routing to it ends the run and
// returns the accumulated state immediately.
const End = "__end__"

// DefaultMaxSteps is the hard global step ceiling. It is a safety valve
// against router bugs, not a normal exit path; the rewrite loop is bounded
// separately by State.RewriteCount.
const DefaultMaxSteps = 50

// ErrStepLimit reports a runaway workflow. It must be distinguishable from
// a normal no-answer outcome because it signals a routing defect.
var ErrStepLimit = errors.New("workflow exceeded step limit")

// Stage is one node of the workflow. A stage may call external services,
// but all of its effects must be observable through the state it returns.
type Stage interface {
	Execute(ctx context.Context, state *State) (*State, error)
}

// StageFunc adapts a plain function to the Stage interface.
type StageFunc func(ctx context.Context, state *State) (*State, error)

func (f StageFunc) Execute(ctx context.Context, state *State) (*State, error) {
	return f(ctx, state)
}

// RouterFunc inspects the current state (no I/O) and returns a route label.
type RouterFunc func(state *State) string

type conditionalEdge struct {
	router RouterFunc
	routes map[string]string
}

// Graph is the workflow engine: named stages, fixed and conditional edges,
// a single entry point, and a bounded Run. The routing tables are built
// up front and never mutated by stages.
type Graph struct {
	stages      map[string]Stage
	edges       map[string]string
	conditional map[string]conditionalEdge
	entry       string
}

func NewGraph() *Graph {
	return &Graph{
		stages:      make(map[string]Stage),
		edges:       make(map[string]string),
		conditional: make(map[string]conditionalEdge),
	}
}

// Register adds a named stage node.
func (g *Graph) Register(name string, stage Stage) {
	g.stages[name] = stage
}

// SetEntry sets the node the run starts from.
func (g *Graph) SetEntry(name string) {
	g.entry = name
}

// AddEdge wires an unconditional successor.
func (g *Graph) AddEdge(from, to string) {
	g.edges[from] = to
}

// AddConditionalEdge wires a router: after `from` runs, the router picks a
// label and the engine advances to routes[label].
func (g *Graph) AddConditionalEdge(from string, router RouterFunc, routes map[string]string) {
	g.conditional[from] = conditionalEdge{router: router, routes: routes}
}

// Run executes stages from the entry point until End is reached or the
// step ceiling trips. maxSteps <= 0 selects DefaultMaxSteps.
func (g *Graph) Run(ctx context.Context, state *State, maxSteps int) (*State, error) {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	if g.entry == "" {
		return state, errors.New("workflow has no entry point")
	}

	current := g.entry
	for step := 0; ; step++ {
		if current == End {
			return state, nil
		}
		if step >= maxSteps {
			return state, fmt.Errorf("%w after %d steps at node %q", ErrStepLimit, step, current)
		}

		stage, ok := g.stages[current]
		if !ok {
			return state, fmt.Errorf("workflow references unknown node %q", current)
		}

		next, err := stage.Execute(ctx, state)
		if err != nil {
			return state, fmt.Errorf("stage %s: %w", current, err)
		}
		state = next

		current, err = g.route(current, state)
		if err != nil {
			return state, err
		}
	}
}

func (g *Graph) route(from string, state *State) (string, error) {
	if edge, ok := g.conditional[from]; ok {
		label := edge.router(state)
		to, ok := edge.routes[label]
		if !ok {
			return "", fmt.Errorf("node %q routed to unknown label %q", from, label)
		}
		return to, nil
	}
	if to, ok := g.edges[from]; ok {
		return to, nil
	}
	return "", fmt.Errorf("node %q has no outgoing edge", from)
}
