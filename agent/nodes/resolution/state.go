package resolutionnode

import contractx "github.com/tanpawarit/ai-suite-runtime/agent/contract"

const (
	NodeLoadTicket    = "load_ticket"
	NodeResolveTicket = "resolve_ticket"
)

// State is threaded through one resolution run.
type State struct {
	RunID       string `json:"run_id"`
	TenantID    string `json:"tenant_id"`
	TicketID    string `json:"ticket_id"`
	SenderEmail string `json:"sender_email,omitempty"`

	Ticket          *contractx.Ticket  `json:"ticket,omitempty"`
	Handoff         *contractx.Handoff `json:"handoff,omitempty"`
	OutboundMessage string             `json:"outbound_message,omitempty"`
	Action          contractx.Action   `json:"action,omitempty"`
}

func (s State) Terminal() bool {
	return s.Action != ""
}

func (s State) TerminalAction() contractx.Action {
	return s.Action
}
