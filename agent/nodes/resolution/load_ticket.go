package resolutionnode

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/ai-suite-runtime/agent/contract"
	graphx "github.com/tanpawarit/ai-suite-runtime/agent/graph"
)

// LoadTicket leaves Ticket nil when the ticket does not exist.
func LoadTicket(ctx context.Context, in State, tickets contractx.TicketReader) (graphx.Result[State], error) {
	if strings.TrimSpace(in.TicketID) == "" {
		return graphx.Result[State]{}, fmt.Errorf("%w: ticket id is empty", contractx.ErrValidation)
	}

	ticket, err := tickets.GetTicket(ctx, in.TicketID, in.TenantID)
	if err != nil {
		return graphx.Result[State]{}, err
	}
	if ticket == nil {
		zerolog.Ctx(ctx).Warn().Str("ticket_id", in.TicketID).Msg("ticket not found")
	}

	return graphx.Continue(func(s *State) {
		s.Ticket = ticket
	}), nil
}
