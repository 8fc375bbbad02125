package graph

import (
	"context"
	"fmt"
)

// Step describes one completed node visit.
type Step struct {
	Graph string
	Node  string
	Index int
	Next  string
	State any
}

type Observer interface {
	OnStep(ctx context.Context, step Step) error
}

type ObserverFunc func(ctx context.Context, step Step) error

func (f ObserverFunc) OnStep(ctx context.Context, step Step) error {
	return f(ctx, step)
}

type InvokeOption func(*invokeOptions)

type invokeOptions struct {
	observers []Observer
}

// WithObserver is notified after every node. An observer error stops the run.
func WithObserver(obs Observer) InvokeOption {
	return func(o *invokeOptions) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

type Runnable[S State] struct {
	name     string
	nodes    map[string]Node[S]
	edges    map[string]string
	order    []string
	entry    string
	maxSteps int
}

func (r *Runnable[S]) Name() string {
	return r.name
}

// Nodes lists node names in registration order.
func (r *Runnable[S]) Nodes() []string {
	return append([]string(nil), r.order...)
}

// Invoke drives st from the entry node until a node ends the run. The returned
// state reflects every update applied so far, also when an error is returned.
func (r *Runnable[S]) Invoke(ctx context.Context, st S, opts ...InvokeOption) (S, error) {
	var conf invokeOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&conf)
		}
	}

	current := r.entry
	for step := 1; ; step++ {
		if step > r.maxSteps {
			return st, fmt.Errorf("%w: %s stopped after %d steps", ErrMaxSteps, r.name, r.maxSteps)
		}
		if err := ctx.Err(); err != nil {
			return st, err
		}

		node := r.nodes[current]
		res, err := node(ctx, st)
		if err != nil {
			return st, fmt.Errorf("%s: node %s: %w", r.name, current, err)
		}
		if res.Update != nil {
			res.Update(&st)
		}

		next, err := r.resolve(current, res.Next, st)
		if err != nil {
			return st, err
		}

		for _, obs := range conf.observers {
			if err := obs.OnStep(ctx, Step{
				Graph: r.name,
				Node:  current,
				Index: step,
				Next:  next,
				State: st,
			}); err != nil {
				return st, fmt.Errorf("%s: observer after %s: %w", r.name, current, err)
			}
		}

		if next == EndNode {
			return st, nil
		}
		current = next
	}
}

func (r *Runnable[S]) resolve(current string, d Directive, st S) (string, error) {
	if d.IsEnd() {
		return EndNode, nil
	}

	if target, ok := d.Target(); ok {
		if st.Terminal() {
			return "", fmt.Errorf("%w: %s -> %s", ErrDirectiveAfterTerminal, current, target)
		}
		if _, exists := r.nodes[target]; !exists {
			return "", fmt.Errorf("%w: %s -> %s", ErrUnknownDirective, current, target)
		}
		return target, nil
	}

	if st.Terminal() {
		return EndNode, nil
	}
	next, ok := r.edges[current]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrDeadEnd, current)
	}
	return next, nil
}
