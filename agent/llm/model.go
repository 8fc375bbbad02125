package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/ai-suite-runtime/agent/contract"
	promptx "github.com/tanpawarit/ai-suite-runtime/agent/prompt"
	openrouterx "github.com/tanpawarit/ai-suite-runtime/pkg/openrouter"
)

var _ contractx.LanguageModel = (*Model)(nil)

type classificationLLMOutput struct {
	Intent                      string `json:"intent"`
	Urgency                     string `json:"urgency"`
	Topic                       string `json:"topic"`
	Summary                     string `json:"summary"`
	IsHumanInterventionRequired bool   `json:"is_human_intervention_required"`
}

// Model implements the language model capability on an eino chat model.
type Model struct {
	classify compose.Runnable[map[string]any, classificationLLMOutput]
	draft    compose.Runnable[map[string]any, *schema.Message]
}

func NewModel(ctx context.Context, chatModel einomodel.BaseChatModel, prompts promptx.PromptSet) (*Model, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}
	if err := prompts.Validate(); err != nil {
		return nil, err
	}

	classify, err := compileClassifyGraph(ctx, chatModel, prompts.Classify)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	draft, err := compileDraftGraph(ctx, chatModel, prompts.Draft)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}

	return &Model{classify: classify, draft: draft}, nil
}

// NewFromConfig builds an OpenAI-compatible chat model for agentID.
func NewFromConfig(ctx context.Context, cfg Config, agentID contractx.AgentID, prompts promptx.PromptSet) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	orCfg := cfg.OpenRouterFor(agentID)
	chatModel, err := openrouterx.NewChatModel(ctx, orCfg)
	if err != nil {
		return nil, err
	}
	return NewModel(ctx, chatModel, prompts)
}

func (m *Model) Classify(ctx context.Context, req contractx.ClassifyRequest) (contractx.Classification, error) {
	if strings.TrimSpace(req.Content) == "" {
		return contractx.Classification{}, fmt.Errorf("%w: email content is required", contractx.ErrValidation)
	}

	out, err := m.classify.Invoke(ctx, map[string]any{
		"system_prompt": req.SystemPrompt,
		"sender_email":  req.SenderEmail,
		"email_content": req.Content,
	})
	if err != nil {
		if errors.Is(err, contractx.ErrSchemaViolation) {
			return contractx.Classification{}, fmt.Errorf("%w: classify: %v", contractx.ErrSchemaViolation, err)
		}
		return contractx.Classification{}, fmt.Errorf("%w: classify invoke: %v", contractx.ErrModelInvoke, err)
	}

	return contractx.NormalizeClassification(contractx.Classification{
		Category:   contractx.Category(out.Intent),
		Urgency:    contractx.Urgency(out.Urgency),
		Topic:      out.Topic,
		Summary:    out.Summary,
		Escalation: out.IsHumanInterventionRequired,
	}), nil
}

func (m *Model) Draft(ctx context.Context, req contractx.DraftRequest) (string, error) {
	msg, err := m.draft.Invoke(ctx, map[string]any{
		"system_prompt": req.SystemPrompt,
		"sender_email":  req.SenderEmail,
		"intent":        string(req.Classification.Category),
		"topic":         req.Classification.Topic,
		"summary":       req.Classification.Summary,
		"kb_snippets":   formatSnippets(req.Knowledge),
		"email_content": req.Content,
		"signature":     req.Signature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: draft invoke: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", fmt.Errorf("%w: empty draft", contractx.ErrSchemaViolation)
	}
	return strings.TrimSpace(msg.Content), nil
}

func formatSnippets(chunks []contractx.KBChunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if text := strings.TrimSpace(c.Content); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "(none)"
	}
	return strings.Join(parts, "\n\n")
}
