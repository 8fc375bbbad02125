package triagenode

import (
	"context"
	"strings"

	contractx "github.com/tanpawarit/ai-suite-runtime/agent/contract"
	graphx "github.com/tanpawarit/ai-suite-runtime/agent/graph"
)

const defaultTopK = 4

func LookupKnowledge(
	ctx context.Context,
	in State,
	kb contractx.KnowledgeRetriever,
	topK int,
) (graphx.Result[State], error) {
	if topK <= 0 {
		topK = defaultTopK
	}

	chunks := kb.LookupKnowledge(ctx, in.TenantID, knowledgeQuery(in), topK)
	return graphx.Continue(func(s *State) {
		s.Knowledge = chunks
	}), nil
}

func knowledgeQuery(in State) string {
	parts := make([]string, 0, 3)
	if c := in.Classification; c != nil {
		if c.Topic != "" {
			parts = append(parts, c.Topic)
		}
		if c.Summary != "" {
			parts = append(parts, c.Summary)
		}
	}
	parts = append(parts, in.Content)
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
