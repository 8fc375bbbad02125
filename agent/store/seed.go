package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/ai-suite-runtime/agent/contract"
)

const upsertTenantSQL = `
INSERT INTO tenants (id, name, enabled, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET name = excluded.name, enabled = excluded.enabled`

const upsertChunkSQL = `
INSERT INTO tenant_kb_chunks (tenant_id, doc_id, chunk_index, source_uri, source_type, content, metadata, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (tenant_id, doc_id, chunk_index) DO UPDATE SET
	source_uri = excluded.source_uri,
	source_type = excluded.source_type,
	content = excluded.content,
	metadata = excluded.metadata,
	updated_at = excluded.updated_at`

func (s *Store) UpsertTenant(ctx context.Context, tenantID, name string) error {
	if strings.TrimSpace(tenantID) == "" {
		return fmt.Errorf("%w: tenant id is empty", contractx.ErrValidation)
	}
	if _, err := s.db.ExecContext(ctx, upsertTenantSQL, tenantID, name, true, s.now()); err != nil {
		return persistenceErr("upsert tenant", err)
	}
	return nil
}

// UpsertChunk writes one knowledge chunk keyed by tenant, doc id and chunk index.
func (s *Store) UpsertChunk(ctx context.Context, tenantID string, c contractx.KBChunk) error {
	meta := c.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("%w: marshal chunk metadata: %v", contractx.ErrValidation, err)
	}

	_, err = s.db.ExecContext(ctx, upsertChunkSQL,
		tenantID, c.DocID, c.ChunkIndex, c.SourceURI, c.SourceType, c.Content, string(metaJSON), s.now())
	if err != nil {
		return persistenceErr("upsert kb chunk", err)
	}

	if s.vector && s.embedder != nil {
		if err := s.embedChunk(ctx, tenantID, c); err != nil {
			return err
		}
	}
	return nil
}

// UpsertProfile stores the profile as the tenant's brand kit chunk.
func (s *Store) UpsertProfile(ctx context.Context, p contractx.TenantProfile) error {
	meta := map[string]any{"kind": sourceTypeBrandKit}
	if p.DisplayName != "" {
		meta["agent_display_name"] = p.DisplayName
	}
	if p.Tone != "" {
		meta["tone"] = p.Tone
	}
	if len(p.Keywords) > 0 {
		keywords := make([]any, 0, len(p.Keywords))
		for _, k := range p.Keywords {
			keywords = append(keywords, k)
		}
		meta["keywords"] = keywords
	}
	if p.Signature != "" {
		meta["email_signature"] = p.Signature
	}
	if len(p.BrandKit) > 0 {
		meta["brand_kit"] = p.BrandKit
	}

	return s.UpsertChunk(ctx, p.TenantID, contractx.KBChunk{
		DocID:      "brand_kit",
		SourceURI:  p.Source,
		SourceType: sourceTypeBrandKit,
		Content:    p.BrandKitText,
		Metadata:   meta,
	})
}

func (s *Store) embedChunk(ctx context.Context, tenantID string, c contractx.KBChunk) error {
	vec, err := s.embedder.Embed(ctx, c.Content)
	if err != nil {
		return err
	}
	_, err = s.db.NewUpdate().
		Model((*kbChunkModel)(nil)).
		Set("embedding = CAST(? AS vector)", vectorLiteral(vec)).
		Where("tenant_id = ?", tenantID).
		Where("doc_id = ?", c.DocID).
		Where("chunk_index = ?", c.ChunkIndex).
		Exec(ctx)
	if err != nil {
		return persistenceErr("store chunk embedding", err)
	}
	return nil
}

// SplitChunks cuts text into paragraph-aligned chunks of at most maxRunes.
func SplitChunks(text string, maxRunes int) []string {
	if maxRunes <= 0 {
		maxRunes = 1200
	}
	var (
		chunks  []string
		current strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if current.Len() > 0 && len([]rune(current.String()))+len([]rune(para))+2 > maxRunes {
			flush()
		}
		for len([]rune(para)) > maxRunes {
			r := []rune(para)
			flush()
			chunks = append(chunks, string(r[:maxRunes]))
			para = strings.TrimSpace(string(r[maxRunes:]))
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()
	return chunks
}
