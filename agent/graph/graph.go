// Package graph runs workflows expressed as named nodes connected by fixed
// edges and by directives returned from the nodes themselves.
package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// EndNode can be used as the target of a fixed edge to stop the run.
const EndNode = "__end__"

const defaultMaxSteps = 32

var (
	ErrUnknownDirective       = errors.New("directive names an unregistered node")
	ErrUnknownNode            = errors.New("unknown node")
	ErrDuplicateNode          = errors.New("duplicate node")
	ErrNoEntry                = errors.New("entry node is not set")
	ErrDeadEnd                = errors.New("node has no outgoing edge")
	ErrDirectiveAfterTerminal = errors.New("directive issued after terminal action")
	ErrMaxSteps               = errors.New("max steps exceeded")
)

// State is implemented by workflow states. Terminal reports whether a terminal
// action has been recorded.
type State interface {
	Terminal() bool
}

type Node[S any] func(ctx context.Context, st S) (Result[S], error)

type Graph[S State] struct {
	nodes map[string]Node[S]
	edges map[string]string
	order []string
	entry string
}

func New[S State]() *Graph[S] {
	return &Graph[S]{
		nodes: map[string]Node[S]{},
		edges: map[string]string{},
	}
}

func (g *Graph[S]) AddNode(name string, node Node[S]) error {
	name = strings.TrimSpace(name)
	if name == "" || name == EndNode {
		return fmt.Errorf("%w: invalid node name %q", ErrUnknownNode, name)
	}
	if node == nil {
		return fmt.Errorf("node %s is nil", name)
	}
	if _, exists := g.nodes[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, name)
	}
	g.nodes[name] = node
	g.order = append(g.order, name)
	return nil
}

// AddEdge registers the fixed successor of from. Both ends must already exist;
// to may be EndNode.
func (g *Graph[S]) AddEdge(from, to string) error {
	if _, ok := g.nodes[from]; !ok {
		return fmt.Errorf("%w: edge source %s", ErrUnknownNode, from)
	}
	if _, ok := g.nodes[to]; !ok && to != EndNode {
		return fmt.Errorf("%w: edge target %s", ErrUnknownNode, to)
	}
	if existing, ok := g.edges[from]; ok {
		return fmt.Errorf("node %s already has fixed edge to %s", from, existing)
	}
	g.edges[from] = to
	return nil
}

func (g *Graph[S]) SetEntry(name string) error {
	if _, ok := g.nodes[name]; !ok {
		return fmt.Errorf("%w: entry %s", ErrUnknownNode, name)
	}
	g.entry = name
	return nil
}

type CompileOption func(*compileOptions)

type compileOptions struct {
	name     string
	maxSteps int
}

func WithGraphName(name string) CompileOption {
	return func(o *compileOptions) {
		o.name = name
	}
}

func WithMaxSteps(n int) CompileOption {
	return func(o *compileOptions) {
		if n > 0 {
			o.maxSteps = n
		}
	}
}

// Compile freezes the graph. Later changes to g do not affect the Runnable.
func (g *Graph[S]) Compile(opts ...CompileOption) (*Runnable[S], error) {
	conf := compileOptions{name: "graph", maxSteps: defaultMaxSteps}
	for _, opt := range opts {
		if opt != nil {
			opt(&conf)
		}
	}
	if g.entry == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoEntry, conf.name)
	}

	nodes := make(map[string]Node[S], len(g.nodes))
	for name, node := range g.nodes {
		nodes[name] = node
	}
	edges := make(map[string]string, len(g.edges))
	for from, to := range g.edges {
		edges[from] = to
	}

	return &Runnable[S]{
		name:     conf.name,
		nodes:    nodes,
		edges:    edges,
		order:    append([]string(nil), g.order...),
		entry:    g.entry,
		maxSteps: conf.maxSteps,
	}, nil
}
