package triagenode

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/ai-suite-runtime/agent/contract"
	graphx "github.com/tanpawarit/ai-suite-runtime/agent/graph"
	promptx "github.com/tanpawarit/ai-suite-runtime/agent/prompt"
)

// Classify always replaces any previous classification.
func Classify(
	ctx context.Context,
	in State,
	model contractx.LanguageModel,
	prompts promptx.PromptSet,
) (graphx.Result[State], error) {
	if strings.TrimSpace(in.Content) == "" {
		return graphx.Result[State]{}, fmt.Errorf("%w: email content is empty", contractx.ErrValidation)
	}

	classification, err := model.Classify(ctx, contractx.ClassifyRequest{
		SystemPrompt: prompts.BuildSystemPrompt(in.Profile),
		SenderEmail:  in.SenderEmail,
		Content:      in.Content,
	})
	if err != nil {
		return graphx.Result[State]{}, err
	}
	classification = contractx.NormalizeClassification(classification)

	return graphx.Continue(func(s *State) {
		s.Classification = &classification
	}), nil
}
