package triagenode

import contractx "github.com/tanpawarit/ai-suite-runtime/agent/contract"

const (
	NodeClassify      = "classify"
	NodeRoute         = "route"
	NodeEscalate      = "escalate"
	NodeProcessOrder  = "process_order"
	NodeKnowledge     = "kb_lookup"
	NodeDraftResponse = "draft_response"
	NodeArchive       = "archive"
)

// State is threaded through one triage run.
type State struct {
	RunID       string `json:"run_id"`
	TenantID    string `json:"tenant_id"`
	EmailID     string `json:"email_id"`
	SenderEmail string `json:"sender_email"`
	Content     string `json:"email_content"`

	Profile        *contractx.TenantProfile  `json:"tenant_profile,omitempty"`
	Classification *contractx.Classification `json:"classification,omitempty"`
	Knowledge      []contractx.KBChunk       `json:"kb_snippets,omitempty"`
	Ticket         *contractx.Ticket         `json:"ticket,omitempty"`
	Handoff        *contractx.Handoff        `json:"handoff,omitempty"`
	OrderEvent     *contractx.OrderEvent     `json:"order_event,omitempty"`
	DraftResponse  string                    `json:"draft_response,omitempty"`
	Action         contractx.Action          `json:"action,omitempty"`
}

func (s State) Terminal() bool {
	return s.Action != ""
}

func (s State) TerminalAction() contractx.Action {
	return s.Action
}
