package triagenode

import (
	"context"

	contractx "github.com/tanpawarit/ai-suite-runtime/agent/contract"
	graphx "github.com/tanpawarit/ai-suite-runtime/agent/graph"
)

func Archive(ctx context.Context, in State) (graphx.Result[State], error) {
	return graphx.Finish(func(s *State) {
		s.Action = contractx.ActionArchive
	}), nil
}
