package triagenode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/ai-suite-runtime/agent/contract"
	graphx "github.com/tanpawarit/ai-suite-runtime/agent/graph"
)

// ProcessOrder emits one order event; drafting follows on the fixed edge.
func ProcessOrder(ctx context.Context, in State, events contractx.OrderEventEmitter) (graphx.Result[State], error) {
	c := in.Classification
	if c == nil {
		return graphx.Result[State]{}, fmt.Errorf("%w: process_order needs a classification", contractx.ErrMissingClassification)
	}

	ev := contractx.OrderEvent{
		TenantID: in.TenantID,
		OriginID: in.EmailID,
		Summary:  c.Summary,
		Details: map[string]any{
			"category":     string(c.Category),
			"topic":        c.Topic,
			"sender_email": in.SenderEmail,
		},
	}
	if err := events.EmitOrderEvent(ctx, ev); err != nil {
		return graphx.Result[State]{}, err
	}

	return graphx.Continue(func(s *State) {
		s.OrderEvent = &ev
	}), nil
}
