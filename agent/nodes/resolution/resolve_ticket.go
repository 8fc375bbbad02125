package resolutionnode

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/ai-suite-runtime/agent/contract"
	graphx "github.com/tanpawarit/ai-suite-runtime/agent/graph"
)

const notFoundMessage = "We could not locate your support ticket yet. Our team is looking into it and will follow up shortly."

// ResolveTicket closes the loaded ticket and reports back to the triage agent.
// An already closed ticket is neither updated nor reported again.
func ResolveTicket(ctx context.Context, in State, tools contractx.ResolutionTools) (graphx.Result[State], error) {
	hasSender := strings.TrimSpace(in.SenderEmail) != ""

	if in.Ticket == nil {
		action := contractx.ActionNoTicket
		if hasSender {
			action = contractx.ActionRespond
		}
		return graphx.Finish(func(s *State) {
			s.OutboundMessage = notFoundMessage
			s.Action = action
		}), nil
	}

	var handoffRef *contractx.Handoff
	ticket := *in.Ticket
	if ticket.Status == contractx.TicketClosed {
		zerolog.Ctx(ctx).Info().Str("ticket_id", ticket.ID).Msg("ticket already closed, no handoff queued")
	} else {
		if err := tools.UpdateTicketStatus(ctx, ticket.ID, in.TenantID, contractx.TicketClosed); err != nil {
			return graphx.Result[State]{}, err
		}
		ticket.Status = contractx.TicketClosed

		handoff := contractx.Handoff{
			TenantID:  in.TenantID,
			RunID:     in.RunID,
			FromAgent: contractx.AgentEscalation,
			ToAgent:   contractx.AgentTriage,
			Kind:      contractx.HandoffKindMessage,
			Message:   fmt.Sprintf("Resolved ticket %s", ticket.ID),
			Payload: map[string]any{
				"ticket_id": ticket.ID,
				"status":    string(contractx.TicketClosed),
			},
		}
		if err := tools.QueueHandoff(ctx, handoff); err != nil {
			return graphx.Result[State]{}, err
		}
		handoffRef = &handoff
		zerolog.Ctx(ctx).Info().Str("ticket_id", ticket.ID).Msg("ticket resolved")
	}

	action := contractx.ActionResolved
	if hasSender {
		action = contractx.ActionRespond
	}
	message := ResolutionMessage(ticket)
	return graphx.Finish(func(s *State) {
		s.Ticket = &ticket
		s.Handoff = handoffRef
		s.OutboundMessage = message
		s.Action = action
	}), nil
}

func ResolutionMessage(t contractx.Ticket) string {
	if t.Type == contractx.TicketCancelOrder {
		return fmt.Sprintf("Your cancellation request (ticket %s) has been processed and the ticket is now closed. Reply to this email if anything still looks wrong.", t.ID)
	}
	return fmt.Sprintf("Thank you for your patience. Your complaint (ticket %s) has been reviewed and resolved. Reply to this email if you need anything else.", t.ID)
}
