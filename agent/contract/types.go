package contract

import (
	"strings"
	"time"
)

type AgentID string

const (
	AgentTriage       AgentID = "triage"
	AgentEscalation   AgentID = "escalation"
	AgentResolution   AgentID = "resolution"
	AgentOrderManager AgentID = "order_manager"
)

type Category string

const (
	CategoryInquiry        Category = "inquiry"
	CategoryComplaint      Category = "complaint"
	CategoryFeedback       Category = "feedback"
	CategoryAccountDetails Category = "order_or_account_details"
	CategoryOrderUpdate    Category = "update_order"
	CategoryCancelOrder    Category = "cancel_order"
	CategoryOther          Category = "other"
	CategorySpam           Category = "spam"
)

var categories = map[Category]bool{
	CategoryInquiry:        true,
	CategoryComplaint:      true,
	CategoryFeedback:       true,
	CategoryAccountDetails: true,
	CategoryOrderUpdate:    true,
	CategoryCancelOrder:    true,
	CategoryOther:          true,
	CategorySpam:           true,
}

// ParseCategory coerces unknown values to CategoryOther.
func ParseCategory(raw string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	if categories[c] {
		return c
	}
	return CategoryOther
}

type Urgency string

const (
	UrgencyLow                       Urgency = "low"
	UrgencyMedium                    Urgency = "medium"
	UrgencyHumanInterventionRequired Urgency = "human_intervention_required"
)

// ParseUrgency coerces unknown values to UrgencyLow.
func ParseUrgency(raw string) Urgency {
	switch u := Urgency(strings.ToLower(strings.TrimSpace(raw))); u {
	case UrgencyLow, UrgencyMedium, UrgencyHumanInterventionRequired:
		return u
	default:
		return UrgencyLow
	}
}

type Classification struct {
	Category   Category `json:"category"`
	Urgency    Urgency  `json:"urgency"`
	Topic      string   `json:"topic"`
	Summary    string   `json:"summary"`
	Escalation bool     `json:"escalation"`
}

// NormalizeClassification keeps category and urgency inside their enumerations.
// Urgency human_intervention_required always raises the escalation flag.
func NormalizeClassification(c Classification) Classification {
	c.Category = ParseCategory(string(c.Category))
	c.Urgency = ParseUrgency(string(c.Urgency))
	c.Topic = strings.TrimSpace(c.Topic)
	c.Summary = strings.TrimSpace(c.Summary)
	if c.Urgency == UrgencyHumanInterventionRequired {
		c.Escalation = true
	}
	return c
}

// Action is the terminal intent produced by a run.
type Action string

const (
	ActionRespond  Action = "respond"
	ActionHandoff  Action = "handoff"
	ActionArchive  Action = "archive"
	ActionResolved Action = "resolved"
	ActionNoTicket Action = "no_ticket"
)

type TicketType string

const (
	TicketCancelOrder TicketType = "cancel_order"
	TicketComplaint   TicketType = "complaint"
)

type TicketStatus string

const (
	TicketOpen   TicketStatus = "open"
	TicketClosed TicketStatus = "closed"
)

// ParseTicketStatus maps stored statuses onto open/closed.
func ParseTicketStatus(raw string) TicketStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "closed", "resolved":
		return TicketClosed
	default:
		return TicketOpen
	}
}

type Ticket struct {
	ID         string       `json:"id"`
	TenantID   string       `json:"tenant_id"`
	Type       TicketType   `json:"type"`
	Status     TicketStatus `json:"status"`
	OriginID   string       `json:"origin_id"`
	Requester  string       `json:"requester"`
	Summary    string       `json:"summary"`
	RawContent string       `json:"raw_content"`
	CreatedAt  time.Time    `json:"created_at"`
}

type NewTicket struct {
	TenantID   string
	Type       TicketType
	OriginID   string
	Requester  string
	Summary    string
	RawContent string
}

type HandoffStatus string

const (
	HandoffQueued    HandoffStatus = "queued"
	HandoffDelivered HandoffStatus = "delivered"
	HandoffFailed    HandoffStatus = "failed"
)

type HandoffKind string

const (
	HandoffKindHandoff HandoffKind = "handoff"
	HandoffKindMessage HandoffKind = "message"
)

type Handoff struct {
	TenantID  string         `json:"tenant_id"`
	RunID     string         `json:"run_id,omitempty"`
	FromAgent AgentID        `json:"from_agent"`
	ToAgent   AgentID        `json:"to_agent"`
	Kind      HandoffKind    `json:"kind"`
	Message   string         `json:"message,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// QueuedHandoff is a persisted outbox row.
type QueuedHandoff struct {
	ID        int64         `json:"id"`
	Handoff   Handoff       `json:"handoff"`
	Status    HandoffStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

const OrderEventUpdate = "update_order"

type OrderEvent struct {
	TenantID string         `json:"tenant_id"`
	OriginID string         `json:"origin_id"`
	Summary  string         `json:"summary"`
	Details  map[string]any `json:"details,omitempty"`
}

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

type Run struct {
	ID        string         `json:"id"`
	TenantID  string         `json:"tenant_id"`
	AgentID   AgentID        `json:"agent_id"`
	Status    RunStatus      `json:"status"`
	Input     map[string]any `json:"input,omitempty"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

const TerminalNode = "__end__"

type Checkpoint struct {
	RunID    string    `json:"run_id"`
	Sequence int       `json:"sequence"`
	NodeName string    `json:"node_name"`
	State    []byte    `json:"state"`
	SavedAt  time.Time `json:"saved_at"`
}

type TenantProfile struct {
	TenantID     string         `json:"tenant_id" yaml:"tenant_id"`
	DisplayName  string         `json:"display_name,omitempty" yaml:"agent_display_name"`
	Tone         string         `json:"tone,omitempty" yaml:"tone"`
	Keywords     []string       `json:"keywords,omitempty" yaml:"keywords"`
	Signature    string         `json:"signature,omitempty" yaml:"email_signature"`
	BrandKit     map[string]any `json:"brand_kit,omitempty" yaml:"brand_kit"`
	BrandKitText string         `json:"brand_kit_text,omitempty" yaml:"-"`
	Source       string         `json:"source,omitempty" yaml:"-"`
}

type KBChunk struct {
	DocID      string         `json:"doc_id"`
	ChunkIndex int            `json:"chunk_index"`
	SourceURI  string         `json:"source_uri,omitempty"`
	SourceType string         `json:"source_type,omitempty"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type ClassifyRequest struct {
	SystemPrompt string
	SenderEmail  string
	Content      string
}

type DraftRequest struct {
	SystemPrompt   string
	SenderEmail    string
	Content        string
	Classification Classification
	Knowledge      []KBChunk
	Signature      string
}

type OutboundEmail struct {
	TenantID  string `json:"tenant_id"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	InReplyTo string `json:"in_reply_to,omitempty"`
}
