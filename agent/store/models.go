package store

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

type tenantModel struct {
	bun.BaseModel `bun:"table:tenants"`

	ID        string    `bun:"id,pk"`
	Name      string    `bun:"name,notnull"`
	Enabled   bool      `bun:"enabled,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

type kbChunkModel struct {
	bun.BaseModel `bun:"table:tenant_kb_chunks"`

	ID         int64          `bun:"id,pk,autoincrement"`
	TenantID   string         `bun:"tenant_id,notnull,unique:kb_chunk_key"`
	DocID      string         `bun:"doc_id,notnull,unique:kb_chunk_key"`
	ChunkIndex int            `bun:"chunk_index,notnull,unique:kb_chunk_key"`
	SourceURI  string         `bun:"source_uri"`
	SourceType string         `bun:"source_type"`
	Content    string         `bun:"content,notnull"`
	Metadata   map[string]any `bun:"metadata,type:jsonb"`
	UpdatedAt  time.Time      `bun:"updated_at,notnull"`
}

type ticketModel struct {
	bun.BaseModel `bun:"table:tickets"`

	ID          string    `bun:"id,pk"`
	TenantID    string    `bun:"tenant_id,notnull"`
	EmailID     string    `bun:"email_id"`
	TicketType  string    `bun:"ticket_type,notnull"`
	Status      string    `bun:"status,notnull"`
	SenderEmail string    `bun:"sender_email"`
	Summary     string    `bun:"summary"`
	RawEmail    string    `bun:"raw_email"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
	UpdatedAt   time.Time `bun:"updated_at,notnull"`
}

type handoffModel struct {
	bun.BaseModel `bun:"table:agent_intercom_queue"`

	ID          int64          `bun:"id,pk,autoincrement"`
	TenantID    string         `bun:"tenant_id,notnull"`
	RunID       string         `bun:"run_id,nullzero"`
	FromAgentID string         `bun:"from_agent_id,notnull"`
	ToAgentID   string         `bun:"to_agent_id,notnull"`
	Kind        string         `bun:"kind,notnull"`
	Message     string         `bun:"message"`
	Payload     map[string]any `bun:"payload,type:jsonb"`
	Status      string         `bun:"status,notnull"`
	CreatedAt   time.Time      `bun:"created_at,notnull"`
}

type orderEventModel struct {
	bun.BaseModel `bun:"table:event_outbox"`

	ID        int64          `bun:"id,pk,autoincrement"`
	TenantID  string         `bun:"tenant_id,notnull"`
	EventType string         `bun:"event_type,notnull"`
	Payload   map[string]any `bun:"payload,type:jsonb"`
	Status    string         `bun:"status,notnull"`
	CreatedAt time.Time      `bun:"created_at,notnull"`
}

type runModel struct {
	bun.BaseModel `bun:"table:runs"`

	ID           string         `bun:"id,pk"`
	TenantID     string         `bun:"tenant_id,notnull"`
	AgentID      string         `bun:"agent_id,notnull"`
	Status       string         `bun:"status,notnull"`
	InputPayload map[string]any `bun:"input_payload,type:jsonb"`
	Error        string         `bun:"error"`
	CreatedAt    time.Time      `bun:"created_at,notnull"`
	UpdatedAt    time.Time      `bun:"updated_at,notnull"`
}

type checkpointModel struct {
	bun.BaseModel `bun:"table:agent_state"`

	RunID        string    `bun:"run_id,pk"`
	CheckpointID int       `bun:"checkpoint_id,notnull"`
	NodeName     string    `bun:"node_name,notnull"`
	StateData    string    `bun:"state_data,type:jsonb"`
	SavedAt      time.Time `bun:"saved_at,notnull"`
}

var models = []any{
	(*tenantModel)(nil),
	(*kbChunkModel)(nil),
	(*ticketModel)(nil),
	(*handoffModel)(nil),
	(*orderEventModel)(nil),
	(*runModel)(nil),
	(*checkpointModel)(nil),
}

// CreateSchema creates every table and index that does not exist yet.
func (s *Store) CreateSchema(ctx context.Context) error {
	for _, m := range models {
		if _, err := s.db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", m, err)
		}
	}

	indexes := []struct {
		model   any
		name    string
		columns []string
	}{
		{(*handoffModel)(nil), "agent_intercom_queue_tenant_status_idx", []string{"tenant_id", "status"}},
		{(*ticketModel)(nil), "tickets_tenant_idx", []string{"tenant_id"}},
		{(*kbChunkModel)(nil), "tenant_kb_chunks_tenant_updated_idx", []string{"tenant_id", "updated_at"}},
	}
	for _, idx := range indexes {
		if _, err := s.db.NewCreateIndex().Model(idx.model).Index(idx.name).IfNotExists().Column(idx.columns...).Exec(ctx); err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}

// EnableVectorSearch adds the pgvector embedding column. Postgres only.
func (s *Store) EnableVectorSearch(ctx context.Context, dims int) error {
	if dims <= 0 {
		return fmt.Errorf("vector dimensions must be positive, got %d", dims)
	}
	if s.db.Dialect().Name() != dialect.PG {
		return fmt.Errorf("vector search requires postgres, have %s", s.db.Dialect().Name())
	}
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}
	query := fmt.Sprintf("ALTER TABLE tenant_kb_chunks ADD COLUMN IF NOT EXISTS embedding vector(%d)", dims)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("add embedding column: %w", err)
	}
	s.vector = true
	return nil
}
