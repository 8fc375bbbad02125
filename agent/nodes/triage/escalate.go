package triagenode

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/ai-suite-runtime/agent/contract"
	graphx "github.com/tanpawarit/ai-suite-runtime/agent/graph"
)

const ticketSummaryFallbackLen = 200

// Escalate creates a ticket and queues its handoff to the escalation agent.
// Stores that implement EscalationWriter do both in one transaction.
func Escalate(ctx context.Context, in State, tools contractx.TriageTools) (graphx.Result[State], error) {
	c := in.Classification
	if c == nil {
		return graphx.Result[State]{}, fmt.Errorf("%w: escalate needs a classification", contractx.ErrMissingClassification)
	}

	req := contractx.NewTicket{
		TenantID:   in.TenantID,
		Type:       TicketTypeFor(c.Category),
		OriginID:   in.EmailID,
		Requester:  in.SenderEmail,
		Summary:    ticketSummary(*c, in.Content),
		RawContent: in.Content,
	}

	var (
		ticket  contractx.Ticket
		handoff contractx.Handoff
		err     error
	)
	build := func(t contractx.Ticket) contractx.Handoff {
		handoff = escalationHandoff(in, *c, t)
		return handoff
	}

	if writer, ok := tools.(contractx.EscalationWriter); ok {
		ticket, err = writer.CreateTicketWithHandoff(ctx, req, build)
		if err != nil {
			return graphx.Result[State]{}, err
		}
	} else {
		ticket, err = tools.CreateTicket(ctx, req)
		if err != nil {
			return graphx.Result[State]{}, err
		}
		if err := tools.QueueHandoff(ctx, build(ticket)); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("ticket_id", ticket.ID).Msg("ticket created but handoff was not queued")
			return graphx.Result[State]{}, err
		}
	}

	zerolog.Ctx(ctx).Info().
		Str("ticket_id", ticket.ID).
		Str("ticket_type", string(ticket.Type)).
		Msg("escalated to escalation agent")

	return graphx.Finish(func(s *State) {
		s.Ticket = &ticket
		s.Handoff = &handoff
		s.Action = contractx.ActionHandoff
	}), nil
}

// TicketTypeFor maps a category onto the ticket type of the escalation path.
func TicketTypeFor(category contractx.Category) contractx.TicketType {
	if category == contractx.CategoryCancelOrder {
		return contractx.TicketCancelOrder
	}
	return contractx.TicketComplaint
}

func ticketSummary(c contractx.Classification, content string) string {
	if s := strings.TrimSpace(c.Summary); s != "" {
		return s
	}
	runes := []rune(strings.TrimSpace(content))
	if len(runes) > ticketSummaryFallbackLen {
		runes = runes[:ticketSummaryFallbackLen]
	}
	return string(runes)
}

func escalationHandoff(in State, c contractx.Classification, t contractx.Ticket) contractx.Handoff {
	return contractx.Handoff{
		TenantID:  in.TenantID,
		RunID:     in.RunID,
		FromAgent: contractx.AgentTriage,
		ToAgent:   contractx.AgentEscalation,
		Kind:      contractx.HandoffKindHandoff,
		Message:   fmt.Sprintf("Ticket %s created for %s", t.ID, t.Type),
		Payload: map[string]any{
			"ticket_id":    t.ID,
			"ticket_type":  string(t.Type),
			"email_id":     in.EmailID,
			"sender_email": in.SenderEmail,
			"topic":        c.Topic,
			"urgency":      string(c.Urgency),
		},
	}
}
