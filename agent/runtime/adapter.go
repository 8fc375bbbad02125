package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	triageagent "github.com/tanpawarit/ai-suite-runtime/agent/agents/triage"
	resolutionagent "github.com/tanpawarit/ai-suite-runtime/agent/agents/resolution"
	contractx "github.com/tanpawarit/ai-suite-runtime/agent/contract"
	graphx "github.com/tanpawarit/ai-suite-runtime/agent/graph"
	resolutionnode "github.com/tanpawarit/ai-suite-runtime/agent/nodes/resolution"
	triagenode "github.com/tanpawarit/ai-suite-runtime/agent/nodes/triage"
)

const (
	SubjectTriageReply     = "Re: Your inquiry"
	SubjectResolutionReply = "Update on your support request"
)

// Payload is a trigger payload. After ValidatePayload every value is a string.
type Payload map[string]any

func (p Payload) String(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// FinalState is what every workflow hands back to its adapter.
type FinalState interface {
	graphx.State
	TerminalAction() contractx.Action
}

// Invocation runs one bound workflow.
type Invocation func(ctx context.Context, opts ...graphx.InvokeOption) (FinalState, error)

// PostRunOutcome names what HandlePostRun did.
type PostRunOutcome string

const (
	OutcomeNone     PostRunOutcome = "none"
	OutcomeSent     PostRunOutcome = "sent"
	OutcomeArchived PostRunOutcome = "archived"
)

// Adapter glues one agent to the generic Runner.
type Adapter interface {
	ID() contractx.AgentID
	// ValidatePayload fails with contract.ErrInvalidPayload on missing fields.
	ValidatePayload(raw map[string]any) (Payload, error)
	// IdempotencyKey identifies the trigger for post-run deduplication.
	IdempotencyKey(tenantID string, in Payload) string
	BuildRunArgs(tenantID, runID string, in Payload) (Invocation, error)
	// HandlePostRun dispatches on the terminal action only.
	HandlePostRun(ctx context.Context, tenantID string, in Payload, final FinalState, exec contractx.ActionExecutor) (PostRunOutcome, error)
}

var (
	_ Adapter = (*TriageAdapter)(nil)
	_ Adapter = (*ResolutionAdapter)(nil)
)

type TriageAdapter struct {
	agent *triageagent.Agent
	newID func() string
}

func NewTriageAdapter(agent *triageagent.Agent) *TriageAdapter {
	return &TriageAdapter{agent: agent, newID: uuid.NewString}
}

func (a *TriageAdapter) ID() contractx.AgentID {
	return contractx.AgentTriage
}

func (a *TriageAdapter) ValidatePayload(raw map[string]any) (Payload, error) {
	in := Payload(raw)
	sender := in.String("sender_email")
	content := in.String("email_content")
	if sender == "" {
		return nil, fmt.Errorf("%w: triage payload requires sender_email", contractx.ErrInvalidPayload)
	}
	if content == "" {
		return nil, fmt.Errorf("%w: triage payload requires email_content", contractx.ErrInvalidPayload)
	}
	emailID := in.String("email_id")
	if emailID == "" {
		emailID = a.newID()
	}
	return Payload{
		"email_id":      emailID,
		"sender_email":  sender,
		"email_content": content,
	}, nil
}

func (a *TriageAdapter) IdempotencyKey(tenantID string, in Payload) string {
	return string(contractx.AgentTriage) + "/" + tenantID + "/" + in.String("email_id")
}

func (a *TriageAdapter) BuildRunArgs(tenantID, runID string, in Payload) (Invocation, error) {
	input := triageagent.Input{
		RunID:       runID,
		TenantID:    tenantID,
		EmailID:     in.String("email_id"),
		SenderEmail: in.String("sender_email"),
		Content:     in.String("email_content"),
	}
	return func(ctx context.Context, opts ...graphx.InvokeOption) (FinalState, error) {
		return a.agent.Run(ctx, input, opts...)
	}, nil
}

func (a *TriageAdapter) HandlePostRun(ctx context.Context, tenantID string, in Payload, final FinalState, exec contractx.ActionExecutor) (PostRunOutcome, error) {
	st, ok := final.(triagenode.State)
	if !ok {
		return OutcomeNone, fmt.Errorf("triage adapter: unexpected final state %T", final)
	}

	switch st.Action {
	case contractx.ActionRespond:
		if strings.TrimSpace(st.DraftResponse) == "" {
			return OutcomeNone, nil
		}
		err := exec.SendEmail(ctx, contractx.OutboundEmail{
			TenantID:  tenantID,
			To:        in.String("sender_email"),
			Subject:   SubjectTriageReply,
			Body:      st.DraftResponse,
			InReplyTo: in.String("email_id"),
		})
		if err != nil {
			return OutcomeNone, err
		}
		return OutcomeSent, nil
	case contractx.ActionArchive:
		if err := exec.ArchiveEmail(ctx, tenantID, in.String("email_id")); err != nil {
			return OutcomeNone, err
		}
		return OutcomeArchived, nil
	default:
		return OutcomeNone, nil
	}
}

type ResolutionAdapter struct {
	agent *resolutionagent.Agent
}

func NewResolutionAdapter(agent *resolutionagent.Agent) *ResolutionAdapter {
	return &ResolutionAdapter{agent: agent}
}

func (a *ResolutionAdapter) ID() contractx.AgentID {
	return contractx.AgentResolution
}

func (a *ResolutionAdapter) ValidatePayload(raw map[string]any) (Payload, error) {
	in := Payload(raw)
	ticketID := in.String("ticket_id")
	if ticketID == "" {
		return nil, fmt.Errorf("%w: resolution payload requires ticket_id", contractx.ErrInvalidPayload)
	}
	out := Payload{"ticket_id": ticketID}
	if sender := in.String("sender_email"); sender != "" {
		out["sender_email"] = sender
	}
	return out, nil
}

func (a *ResolutionAdapter) IdempotencyKey(tenantID string, in Payload) string {
	return string(contractx.AgentResolution) + "/" + tenantID + "/" + in.String("ticket_id")
}

func (a *ResolutionAdapter) BuildRunArgs(tenantID, runID string, in Payload) (Invocation, error) {
	input := resolutionagent.Input{
		RunID:       runID,
		TenantID:    tenantID,
		TicketID:    in.String("ticket_id"),
		SenderEmail: in.String("sender_email"),
	}
	return func(ctx context.Context, opts ...graphx.InvokeOption) (FinalState, error) {
		return a.agent.Run(ctx, input, opts...)
	}, nil
}

func (a *ResolutionAdapter) HandlePostRun(ctx context.Context, tenantID string, in Payload, final FinalState, exec contractx.ActionExecutor) (PostRunOutcome, error) {
	st, ok := final.(resolutionnode.State)
	if !ok {
		return OutcomeNone, fmt.Errorf("resolution adapter: unexpected final state %T", final)
	}

	sender := in.String("sender_email")
	if st.Action != contractx.ActionRespond || sender == "" || strings.TrimSpace(st.OutboundMessage) == "" {
		return OutcomeNone, nil
	}
	err := exec.SendEmail(ctx, contractx.OutboundEmail{
		TenantID:  tenantID,
		To:        sender,
		Subject:   SubjectResolutionReply,
		Body:      st.OutboundMessage,
		InReplyTo: in.String("ticket_id"),
	})
	if err != nil {
		return OutcomeNone, err
	}
	return OutcomeSent, nil
}
