package triagenode

import (
	"context"

	contractx "github.com/tanpawarit/ai-suite-runtime/agent/contract"
	graphx "github.com/tanpawarit/ai-suite-runtime/agent/graph"
	promptx "github.com/tanpawarit/ai-suite-runtime/agent/prompt"
)

func DraftResponse(
	ctx context.Context,
	in State,
	model contractx.LanguageModel,
	prompts promptx.PromptSet,
) (graphx.Result[State], error) {
	var classification contractx.Classification
	if in.Classification != nil {
		classification = *in.Classification
	}
	var signature string
	if in.Profile != nil {
		signature = in.Profile.Signature
	}

	draft, err := model.Draft(ctx, contractx.DraftRequest{
		SystemPrompt:   prompts.BuildSystemPrompt(in.Profile),
		SenderEmail:    in.SenderEmail,
		Content:        in.Content,
		Classification: classification,
		Knowledge:      in.Knowledge,
		Signature:      signature,
	})
	if err != nil {
		return graphx.Result[State]{}, err
	}

	return graphx.Finish(func(s *State) {
		s.DraftResponse = draft
		s.Action = contractx.ActionRespond
	}), nil
}
