// Package memstore keeps every capability and the run tracker in process
// memory. It backs tests and the CLI's memory mode.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	contractx "github.com/tanpawarit/ai-suite-runtime/agent/contract"
)

// Operation names accepted by FailOn.
const (
	OpCreateTicket       = "create_ticket"
	OpQueueHandoff       = "queue_handoff"
	OpEmitOrderEvent     = "emit_order_event"
	OpUpdateTicketStatus = "update_ticket_status"
	OpCreateRun          = "create_run"
	OpSaveCheckpoint     = "save_checkpoint"
)

var (
	_ contractx.Capabilities     = (*Store)(nil)
	_ contractx.EscalationWriter = (*Store)(nil)
	_ contractx.RunTracker       = (*Store)(nil)
	_ contractx.OutboxReader     = (*Store)(nil)
)

type Store struct {
	mu sync.RWMutex

	profiles    map[string]contractx.TenantProfile
	chunks      map[string][]contractx.KBChunk
	tickets     map[string]contractx.Ticket
	ticketOrder []string
	handoffs    []contractx.QueuedHandoff
	events      []contractx.OrderEvent
	runs        map[string]contractx.Run
	checkpoints map[string]contractx.Checkpoint
	failures    map[string]error
	nextID      int64

	now   func() time.Time
	newID func() string
}

func New() *Store {
	return &Store{
		profiles:    map[string]contractx.TenantProfile{},
		chunks:      map[string][]contractx.KBChunk{},
		tickets:     map[string]contractx.Ticket{},
		runs:        map[string]contractx.Run{},
		checkpoints: map[string]contractx.Checkpoint{},
		failures:    map[string]error{},
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
}

// FailOn makes op return err (wrapped as a persistence error) until cleared
// with a nil err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *Store) PutProfile(p contractx.TenantProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.TenantID] = p
}

func (s *Store) AddChunks(tenantID string, chunks ...contractx.KBChunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks[tenantID] = append(s.chunks[tenantID], chunks...)
}

// PutTicket stores t as is, for seeding resolution runs.
func (s *Store) PutTicket(t contractx.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putTicketLocked(t)
}

func (s *Store) LoadProfile(_ context.Context, tenantID string) *contractx.TenantProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[tenantID]
	if !ok {
		return nil
	}
	p.Keywords = append([]string(nil), p.Keywords...)
	p.BrandKit = maps.Clone(p.BrandKit)
	return &p
}

// LookupKnowledge ranks chunks by how many query words they contain.
func (s *Store) LookupKnowledge(_ context.Context, tenantID, query string, topK int) []contractx.KBChunk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.chunks[tenantID]
	if len(all) == 0 || topK <= 0 {
		return []contractx.KBChunk{}
	}

	words := strings.Fields(strings.ToLower(query))
	type scored struct {
		idx   int
		score int
	}
	ranked := make([]scored, 0, len(all))
	for i, c := range all {
		content := strings.ToLower(c.Content)
		score := 0
		for _, w := range words {
			if len(w) > 2 && strings.Contains(content, w) {
				score++
			}
		}
		ranked = append(ranked, scored{idx: i, score: score})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if topK > len(ranked) {
		topK = len(ranked)
	}
	out := make([]contractx.KBChunk, 0, topK)
	for _, r := range ranked[:topK] {
		out = append(out, all[r.idx])
	}
	return out
}

func (s *Store) CreateTicket(_ context.Context, req contractx.NewTicket) (contractx.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked(OpCreateTicket); err != nil {
		return contractx.Ticket{}, err
	}
	t := s.newTicketLocked(req)
	s.putTicketLocked(t)
	return t, nil
}

func (s *Store) CreateTicketWithHandoff(ctx context.Context, req contractx.NewTicket, handoff func(contractx.Ticket) contractx.Handoff) (contractx.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked(OpCreateTicket); err != nil {
		return contractx.Ticket{}, err
	}
	if err := s.failLocked(OpQueueHandoff); err != nil {
		return contractx.Ticket{}, err
	}
	t := s.newTicketLocked(req)
	s.putTicketLocked(t)
	s.appendHandoffLocked(handoff(t))
	return t, nil
}

func (s *Store) GetTicket(_ context.Context, ticketID, tenantID string) (*contractx.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickets[ticketKey(tenantID, ticketID)]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *Store) UpdateTicketStatus(_ context.Context, ticketID, tenantID string, status contractx.TicketStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked(OpUpdateTicketStatus); err != nil {
		return err
	}
	key := ticketKey(tenantID, ticketID)
	t, ok := s.tickets[key]
	if !ok {
		return fmt.Errorf("%w: %s", contractx.ErrTicketNotFound, ticketID)
	}
	if t.Status == contractx.TicketClosed && status != contractx.TicketClosed {
		return fmt.Errorf("%w: ticket %s is closed and cannot be reopened", contractx.ErrValidation, ticketID)
	}
	t.Status = status
	s.tickets[key] = t
	return nil
}

func (s *Store) QueueHandoff(_ context.Context, h contractx.Handoff) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked(OpQueueHandoff); err != nil {
		return err
	}
	s.appendHandoffLocked(h)
	return nil
}

func (s *Store) EmitOrderEvent(_ context.Context, ev contractx.OrderEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked(OpEmitOrderEvent); err != nil {
		return err
	}
	ev.Details = maps.Clone(ev.Details)
	s.events = append(s.events, ev)
	return nil
}

func (s *Store) PendingHandoffs(_ context.Context, tenantID string, limit int) ([]contractx.QueuedHandoff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []contractx.QueuedHandoff{}
	for _, h := range s.handoffs {
		if h.Status != contractx.HandoffQueued || (tenantID != "" && h.Handoff.TenantID != tenantID) {
			continue
		}
		out = append(out, h)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) CreateRun(_ context.Context, run contractx.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked(OpCreateRun); err != nil {
		return err
	}
	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("%w: run %s already exists", contractx.ErrPersistence, run.ID)
	}
	now := s.now()
	run.Status = contractx.RunRunning
	run.Input = maps.Clone(run.Input)
	run.CreatedAt, run.UpdatedAt = now, now
	s.runs[run.ID] = run
	return nil
}

func (s *Store) MarkCompleted(_ context.Context, runID string) error {
	return s.finishRun(runID, contractx.RunCompleted, "")
}

func (s *Store) MarkFailed(_ context.Context, runID string, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return s.finishRun(runID, contractx.RunFailed, msg)
}

func (s *Store) finishRun(runID string, status contractx.RunStatus, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok || run.Status != contractx.RunRunning {
		return fmt.Errorf("%w: %s", contractx.ErrRunNotRunning, runID)
	}
	run.Status = status
	run.Error = msg
	run.UpdatedAt = s.now()
	s.runs[runID] = run
	return nil
}

func (s *Store) SaveCheckpoint(_ context.Context, cp contractx.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked(OpSaveCheckpoint); err != nil {
		return err
	}
	if existing, ok := s.checkpoints[cp.RunID]; ok && cp.Sequence < existing.Sequence {
		return fmt.Errorf("%w: run %s has %d, got %d", contractx.ErrCheckpointRegression, cp.RunID, existing.Sequence, cp.Sequence)
	}
	cp.State = append([]byte(nil), cp.State...)
	if cp.SavedAt.IsZero() {
		cp.SavedAt = s.now()
	}
	s.checkpoints[cp.RunID] = cp
	return nil
}

func (s *Store) Run(runID string) (contractx.Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[runID]
	return r, ok
}

func (s *Store) Runs() []contractx.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]contractx.Run, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) Checkpoint(runID string) (contractx.Checkpoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp, ok := s.checkpoints[runID]
	return cp, ok
}

func (s *Store) Tickets() []contractx.Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]contractx.Ticket, 0, len(s.ticketOrder))
	for _, key := range s.ticketOrder {
		out = append(out, s.tickets[key])
	}
	return out
}

func (s *Store) Handoffs() []contractx.QueuedHandoff {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]contractx.QueuedHandoff(nil), s.handoffs...)
}

func (s *Store) OrderEvents() []contractx.OrderEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]contractx.OrderEvent(nil), s.events...)
}

func (s *Store) failLocked(op string) error {
	if err, ok := s.failures[op]; ok {
		return fmt.Errorf("%w: %s: %v", contractx.ErrPersistence, op, err)
	}
	return nil
}

func (s *Store) newTicketLocked(req contractx.NewTicket) contractx.Ticket {
	return contractx.Ticket{
		ID:         s.newID(),
		TenantID:   req.TenantID,
		Type:       req.Type,
		Status:     contractx.TicketOpen,
		OriginID:   req.OriginID,
		Requester:  req.Requester,
		Summary:    req.Summary,
		RawContent: req.RawContent,
		CreatedAt:  s.now(),
	}
}

func (s *Store) putTicketLocked(t contractx.Ticket) {
	key := ticketKey(t.TenantID, t.ID)
	if _, exists := s.tickets[key]; !exists {
		s.ticketOrder = append(s.ticketOrder, key)
	}
	s.tickets[key] = t
}

func (s *Store) appendHandoffLocked(h contractx.Handoff) {
	s.nextID++
	h.Payload = maps.Clone(h.Payload)
	s.handoffs = append(s.handoffs, contractx.QueuedHandoff{
		ID:        s.nextID,
		Handoff:   h,
		Status:    contractx.HandoffQueued,
		CreatedAt: s.now(),
	})
}

func ticketKey(tenantID, ticketID string) string {
	return tenantID + "/" + ticketID
}

// ErrInjected is a convenience error for FailOn in tests.
var ErrInjected = errors.New("injected failure")
