package triage

import (
	"context"
	"errors"
	"strings"

	contractx "github.com/tanpawarit/ai-suite-runtime/agent/contract"
	graphx "github.com/tanpawarit/ai-suite-runtime/agent/graph"
	nodex "github.com/tanpawarit/ai-suite-runtime/agent/nodes/triage"
	promptx "github.com/tanpawarit/ai-suite-runtime/agent/prompt"
)

type Config struct {
	TopK     int
	MaxSteps int
}

// Agent triages one inbound email per Run.
type Agent struct {
	tools   contractx.TriageTools
	model   contractx.LanguageModel
	prompts promptx.PromptSet
	topK    int

	runner *graphx.Runnable[nodex.State]
}

type Input struct {
	RunID       string
	TenantID    string
	EmailID     string
	SenderEmail string
	Content     string

	// Profile skips the profile lookup when set.
	Profile *contractx.TenantProfile
}

func New(
	tools contractx.TriageTools,
	model contractx.LanguageModel,
	prompts promptx.PromptSet,
	cfg Config,
) (*Agent, error) {
	if tools == nil {
		return nil, errors.New("triage tools are required")
	}
	if model == nil {
		return nil, errors.New("language model is required")
	}
	if err := prompts.Validate(); err != nil {
		return nil, err
	}

	a := &Agent{
		tools:   tools,
		model:   model,
		prompts: prompts,
		topK:    cfg.TopK,
	}

	runner, err := a.compileTriageGraph(cfg.MaxSteps)
	if err != nil {
		return nil, err
	}
	a.runner = runner

	return a, nil
}

func (a *Agent) Run(ctx context.Context, in Input, opts ...graphx.InvokeOption) (nodex.State, error) {
	st := nodex.State{
		RunID:       in.RunID,
		TenantID:    strings.TrimSpace(in.TenantID),
		EmailID:     in.EmailID,
		SenderEmail: strings.TrimSpace(in.SenderEmail),
		Content:     in.Content,
		Profile:     in.Profile,
	}
	if st.Profile == nil && st.TenantID != "" {
		st.Profile = a.tools.LoadProfile(ctx, st.TenantID)
	}

	return a.runner.Invoke(ctx, st, opts...)
}
