package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	contractx "github.com/tanpawarit/ai-suite-runtime/agent/contract"
)

const orderEventPending = "pending"

func (s *Store) CreateTicket(ctx context.Context, req contractx.NewTicket) (contractx.Ticket, error) {
	row := s.newTicketRow(req)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&row).Exec(ctx)
		return err
	})
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("tenant_id", req.TenantID).Msg("failed to insert ticket")
		return contractx.Ticket{}, persistenceErr("create ticket", err)
	}
	return ticketFromRow(row), nil
}

// CreateTicketWithHandoff inserts the ticket and the handoff built from it in
// one transaction.
func (s *Store) CreateTicketWithHandoff(ctx context.Context, req contractx.NewTicket, handoff func(contractx.Ticket) contractx.Handoff) (contractx.Ticket, error) {
	row := s.newTicketRow(req)
	ticket := ticketFromRow(row)

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
			return fmt.Errorf("insert ticket: %w", err)
		}
		h := s.newHandoffRow(handoff(ticket))
		if _, err := tx.NewInsert().Model(&h).Exec(ctx); err != nil {
			return fmt.Errorf("insert handoff: %w", err)
		}
		return nil
	})
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("tenant_id", req.TenantID).Msg("failed to create ticket with handoff")
		return contractx.Ticket{}, persistenceErr("create ticket with handoff", err)
	}
	return ticket, nil
}

func (s *Store) GetTicket(ctx context.Context, ticketID, tenantID string) (*contractx.Ticket, error) {
	var row ticketModel
	err := s.db.NewSelect().
		Model(&row).
		Where("id = ?", ticketID).
		Where("tenant_id = ?", tenantID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, persistenceErr("get ticket", err)
	}
	t := ticketFromRow(row)
	return &t, nil
}

// UpdateTicketStatus moves a ticket to status. A closed ticket can only be
// closed again.
func (s *Store) UpdateTicketStatus(ctx context.Context, ticketID, tenantID string, status contractx.TicketStatus) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var current ticketModel
		q := tx.NewSelect().
			Model(&current).
			Column("id", "status").
			Where("id = ?", ticketID).
			Where("tenant_id = ?", tenantID)
		if s.db.Dialect().Name() == dialect.PG {
			q = q.For("UPDATE")
		}
		if err := q.Scan(ctx); err != nil {
			if isNoRows(err) {
				return fmt.Errorf("%w: %s", contractx.ErrTicketNotFound, ticketID)
			}
			return persistenceErr("load ticket status", err)
		}

		if contractx.ParseTicketStatus(current.Status) == contractx.TicketClosed && status != contractx.TicketClosed {
			return fmt.Errorf("%w: ticket %s is closed and cannot be reopened", contractx.ErrValidation, ticketID)
		}

		_, err := tx.NewUpdate().
			Model((*ticketModel)(nil)).
			Set("status = ?", string(status)).
			Set("updated_at = ?", s.now()).
			Where("id = ?", ticketID).
			Where("tenant_id = ?", tenantID).
			Exec(ctx)
		if err != nil {
			return persistenceErr("update ticket status", err)
		}
		return nil
	})
}

func (s *Store) QueueHandoff(ctx context.Context, h contractx.Handoff) error {
	row := s.newHandoffRow(h)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&row).Exec(ctx)
		return err
	})
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("tenant_id", h.TenantID).Msg("failed to queue handoff")
		return persistenceErr("queue handoff", err)
	}
	return nil
}

func (s *Store) EmitOrderEvent(ctx context.Context, ev contractx.OrderEvent) error {
	details := ev.Details
	if details == nil {
		details = map[string]any{}
	}
	row := orderEventModel{
		TenantID:  ev.TenantID,
		EventType: contractx.OrderEventUpdate,
		Payload: map[string]any{
			"email_id": ev.OriginID,
			"summary":  ev.Summary,
			"details":  details,
		},
		Status:    orderEventPending,
		CreatedAt: s.now(),
	}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&row).Exec(ctx)
		return err
	})
	if err != nil {
		return persistenceErr("emit order event", err)
	}
	return nil
}

// PendingHandoffs lists queued messages oldest first. An empty tenantID
// matches every tenant.
func (s *Store) PendingHandoffs(ctx context.Context, tenantID string, limit int) ([]contractx.QueuedHandoff, error) {
	var rows []handoffModel
	q := s.db.NewSelect().
		Model(&rows).
		Where("status = ?", string(contractx.HandoffQueued)).
		OrderExpr("id ASC")
	if tenantID != "" {
		q = q.Where("tenant_id = ?", tenantID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, persistenceErr("list pending handoffs", err)
	}

	out := make([]contractx.QueuedHandoff, 0, len(rows))
	for _, r := range rows {
		out = append(out, contractx.QueuedHandoff{
			ID: r.ID,
			Handoff: contractx.Handoff{
				TenantID:  r.TenantID,
				RunID:     r.RunID,
				FromAgent: contractx.AgentID(r.FromAgentID),
				ToAgent:   contractx.AgentID(r.ToAgentID),
				Kind:      contractx.HandoffKind(r.Kind),
				Message:   r.Message,
				Payload:   r.Payload,
			},
			Status:    contractx.HandoffStatus(r.Status),
			CreatedAt: r.CreatedAt,
		})
	}
	return out, nil
}

func (s *Store) newTicketRow(req contractx.NewTicket) ticketModel {
	now := s.now()
	return ticketModel{
		ID:          s.newID(),
		TenantID:    req.TenantID,
		EmailID:     req.OriginID,
		TicketType:  string(req.Type),
		Status:      string(contractx.TicketOpen),
		SenderEmail: req.Requester,
		Summary:     req.Summary,
		RawEmail:    req.RawContent,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (s *Store) newHandoffRow(h contractx.Handoff) handoffModel {
	kind := h.Kind
	if kind == "" {
		kind = contractx.HandoffKindHandoff
	}
	payload := h.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	return handoffModel{
		TenantID:    h.TenantID,
		RunID:       h.RunID,
		FromAgentID: string(h.FromAgent),
		ToAgentID:   string(h.ToAgent),
		Kind:        string(kind),
		Message:     h.Message,
		Payload:     payload,
		Status:      string(contractx.HandoffQueued),
		CreatedAt:   s.now(),
	}
}

func ticketFromRow(r ticketModel) contractx.Ticket {
	return contractx.Ticket{
		ID:         r.ID,
		TenantID:   r.TenantID,
		Type:       contractx.TicketType(r.TicketType),
		Status:     contractx.ParseTicketStatus(r.Status),
		OriginID:   r.EmailID,
		Requester:  r.SenderEmail,
		Summary:    r.Summary,
		RawContent: r.RawEmail,
		CreatedAt:  r.CreatedAt,
	}
}

func persistenceErr(op string, err error) error {
	if errors.Is(err, contractx.ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", contractx.ErrPersistence, op, err)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
