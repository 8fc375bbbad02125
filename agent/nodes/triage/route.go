package triagenode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/ai-suite-runtime/agent/contract"
	graphx "github.com/tanpawarit/ai-suite-runtime/agent/graph"
)

// Route applies the decision table in order; the first match wins. The
// escalation flag is checked before the category.
func Route(ctx context.Context, in State) (graphx.Result[State], error) {
	c := in.Classification
	if c == nil {
		return graphx.Result[State]{}, fmt.Errorf("%w: route needs a classification", contractx.ErrMissingClassification)
	}
	return graphx.Route[State](nextNode(*c), nil), nil
}

func nextNode(c contractx.Classification) string {
	switch {
	case c.Escalation:
		return NodeEscalate
	case c.Category == contractx.CategoryOrderUpdate || c.Category == contractx.CategoryAccountDetails:
		return NodeProcessOrder
	case c.Category == contractx.CategoryCancelOrder || c.Category == contractx.CategoryComplaint:
		return NodeEscalate
	case c.Category == contractx.CategorySpam:
		return NodeArchive
	default:
		return NodeKnowledge
	}
}
