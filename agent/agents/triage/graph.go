package triage

import (
	"context"
	"fmt"

	graphx "github.com/tanpawarit/ai-suite-runtime/agent/graph"
	nodex "github.com/tanpawarit/ai-suite-runtime/agent/nodes/triage"
)

func (a *Agent) compileTriageGraph(maxSteps int) (*graphx.Runnable[nodex.State], error) {
	graph := graphx.New[nodex.State]()

	nodes := []struct {
		name string
		fn   graphx.Node[nodex.State]
	}{
		{nodex.NodeClassify, func(ctx context.Context, in nodex.State) (graphx.Result[nodex.State], error) {
			return nodex.Classify(ctx, in, a.model, a.prompts)
		}},
		{nodex.NodeRoute, nodex.Route},
		{nodex.NodeEscalate, func(ctx context.Context, in nodex.State) (graphx.Result[nodex.State], error) {
			return nodex.Escalate(ctx, in, a.tools)
		}},
		{nodex.NodeProcessOrder, func(ctx context.Context, in nodex.State) (graphx.Result[nodex.State], error) {
			return nodex.ProcessOrder(ctx, in, a.tools)
		}},
		{nodex.NodeKnowledge, func(ctx context.Context, in nodex.State) (graphx.Result[nodex.State], error) {
			return nodex.LookupKnowledge(ctx, in, a.tools, a.topK)
		}},
		{nodex.NodeDraftResponse, func(ctx context.Context, in nodex.State) (graphx.Result[nodex.State], error) {
			return nodex.DraftResponse(ctx, in, a.model, a.prompts)
		}},
		{nodex.NodeArchive, nodex.Archive},
	}
	for _, n := range nodes {
		if err := graph.AddNode(n.name, n.fn); err != nil {
			return nil, fmt.Errorf("add node %s: %w", n.name, err)
		}
	}

	edges := [][2]string{
		{nodex.NodeClassify, nodex.NodeRoute},
		{nodex.NodeProcessOrder, nodex.NodeDraftResponse},
		{nodex.NodeKnowledge, nodex.NodeDraftResponse},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}
	if err := graph.SetEntry(nodex.NodeClassify); err != nil {
		return nil, err
	}

	runner, err := graph.Compile(graphx.WithGraphName("triage.handle_email"), graphx.WithMaxSteps(maxSteps))
	if err != nil {
		return nil, fmt.Errorf("compile triage graph: %w", err)
	}
	return runner, nil
}
