package contract

import "context"

// ProfileLoader returns nil when the profile is missing or cannot be read.
type ProfileLoader interface {
	LoadProfile(ctx context.Context, tenantID string) *TenantProfile
}

// KnowledgeRetriever returns an empty slice on any failure.
type KnowledgeRetriever interface {
	LookupKnowledge(ctx context.Context, tenantID, query string, topK int) []KBChunk
}

type TicketCreator interface {
	CreateTicket(ctx context.Context, req NewTicket) (Ticket, error)
}

type TicketReader interface {
	// GetTicket returns nil, nil when no ticket matches.
	GetTicket(ctx context.Context, ticketID, tenantID string) (*Ticket, error)
}

type TicketUpdater interface {
	UpdateTicketStatus(ctx context.Context, ticketID, tenantID string, status TicketStatus) error
}

type HandoffQueue interface {
	QueueHandoff(ctx context.Context, h Handoff) error
}

type OrderEventEmitter interface {
	EmitOrderEvent(ctx context.Context, ev OrderEvent) error
}

// EscalationWriter is implemented by stores that can create a ticket and its
// handoff in one transaction.
type EscalationWriter interface {
	CreateTicketWithHandoff(ctx context.Context, req NewTicket, handoff func(Ticket) Handoff) (Ticket, error)
}

// TriageTools is the capability contract of the triage workflow.
type TriageTools interface {
	ProfileLoader
	KnowledgeRetriever
	TicketCreator
	HandoffQueue
	OrderEventEmitter
}

// ResolutionTools is the capability contract of the resolution workflow.
type ResolutionTools interface {
	TicketReader
	TicketUpdater
	HandoffQueue
}

// Capabilities is the long-lived bundle handed to every adapter.
type Capabilities interface {
	TriageTools
	ResolutionTools
}

type RunTracker interface {
	CreateRun(ctx context.Context, run Run) error
	MarkCompleted(ctx context.Context, runID string) error
	MarkFailed(ctx context.Context, runID string, cause error) error
	SaveCheckpoint(ctx context.Context, cp Checkpoint) error
}

type LanguageModel interface {
	Classify(ctx context.Context, req ClassifyRequest) (Classification, error)
	Draft(ctx context.Context, req DraftRequest) (string, error)
}

type ActionExecutor interface {
	SendEmail(ctx context.Context, email OutboundEmail) error
	ArchiveEmail(ctx context.Context, tenantID, emailID string) error
}

type OutboxReader interface {
	PendingHandoffs(ctx context.Context, tenantID string, limit int) ([]QueuedHandoff, error)
}
