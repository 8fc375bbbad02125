package resolution

import (
	"context"
	"errors"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/ai-suite-runtime/agent/contract"
	graphx "github.com/tanpawarit/ai-suite-runtime/agent/graph"
	nodex "github.com/tanpawarit/ai-suite-runtime/agent/nodes/resolution"
)

// Agent follows up on escalated tickets.
type Agent struct {
	tools  contractx.ResolutionTools
	runner *graphx.Runnable[nodex.State]
}

type Input struct {
	RunID       string
	TenantID    string
	TicketID    string
	SenderEmail string
}

func New(tools contractx.ResolutionTools) (*Agent, error) {
	if tools == nil {
		return nil, errors.New("resolution tools are required")
	}

	a := &Agent{tools: tools}
	runner, err := a.compileResolutionGraph()
	if err != nil {
		return nil, err
	}
	a.runner = runner
	return a, nil
}

func (a *Agent) Run(ctx context.Context, in Input, opts ...graphx.InvokeOption) (nodex.State, error) {
	return a.runner.Invoke(ctx, nodex.State{
		RunID:       in.RunID,
		TenantID:    strings.TrimSpace(in.TenantID),
		TicketID:    strings.TrimSpace(in.TicketID),
		SenderEmail: strings.TrimSpace(in.SenderEmail),
	}, opts...)
}

func (a *Agent) compileResolutionGraph() (*graphx.Runnable[nodex.State], error) {
	graph := graphx.New[nodex.State]()

	if err := graph.AddNode(nodex.NodeLoadTicket, func(ctx context.Context, in nodex.State) (graphx.Result[nodex.State], error) {
		return nodex.LoadTicket(ctx, in, a.tools)
	}); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodex.NodeLoadTicket, err)
	}
	if err := graph.AddNode(nodex.NodeResolveTicket, func(ctx context.Context, in nodex.State) (graphx.Result[nodex.State], error) {
		return nodex.ResolveTicket(ctx, in, a.tools)
	}); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodex.NodeResolveTicket, err)
	}

	if err := graph.AddEdge(nodex.NodeLoadTicket, nodex.NodeResolveTicket); err != nil {
		return nil, fmt.Errorf("add edge %s->%s: %w", nodex.NodeLoadTicket, nodex.NodeResolveTicket, err)
	}
	if err := graph.AddEdge(nodex.NodeResolveTicket, graphx.EndNode); err != nil {
		return nil, fmt.Errorf("add edge %s->end: %w", nodex.NodeResolveTicket, err)
	}
	if err := graph.SetEntry(nodex.NodeLoadTicket); err != nil {
		return nil, err
	}

	runner, err := graph.Compile(graphx.WithGraphName("resolution.resolve_ticket"))
	if err != nil {
		return nil, fmt.Errorf("compile resolution graph: %w", err)
	}
	return runner, nil
}
