// Package store implements the capability contracts and the run tracker on a
// relational database through bun. Postgres is the production target; SQLite
// serves local development and tests.
package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	contractx "github.com/tanpawarit/ai-suite-runtime/agent/contract"
)

const sourceTypeBrandKit = "brand_kit"

var (
	_ contractx.Capabilities     = (*Store)(nil)
	_ contractx.EscalationWriter = (*Store)(nil)
	_ contractx.RunTracker       = (*Store)(nil)
	_ contractx.OutboxReader     = (*Store)(nil)
)

// Embedder turns a knowledge query into a vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Option func(*Store)

func WithEmbedder(e Embedder) Option {
	return func(s *Store) {
		s.embedder = e
	}
}

// WithVectorColumn tells the store the embedding column already exists.
func WithVectorColumn(enabled bool) Option {
	return func(s *Store) {
		s.vector = enabled
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

type Store struct {
	db       *bun.DB
	embedder Embedder
	vector   bool
	now      func() time.Time
	newID    func() string
}

func New(db *bun.DB, opts ...Option) *Store {
	s := &Store{
		db:    db,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Store) DB() *bun.DB {
	return s.db
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// LoadProfile reads the newest brand kit chunk of the tenant. Any failure is
// logged and reported as a missing profile.
func (s *Store) LoadProfile(ctx context.Context, tenantID string) *contractx.TenantProfile {
	if strings.TrimSpace(tenantID) == "" {
		return nil
	}

	var row kbChunkModel
	err := s.db.NewSelect().
		Model(&row).
		Where("tenant_id = ?", tenantID).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("source_type = ?", sourceTypeBrandKit).
				WhereOr("metadata->>'kind' = ?", sourceTypeBrandKit)
		}).
		OrderExpr("updated_at DESC, id DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if !isNoRows(err) {
			zerolog.Ctx(ctx).Warn().Err(err).Str("tenant_id", tenantID).Msg("tenant profile lookup failed")
		}
		return nil
	}
	return profileFromChunk(tenantID, row)
}

// LookupKnowledge returns the nearest chunks when an embedder and the vector
// column are available, and the most recent chunks otherwise.
func (s *Store) LookupKnowledge(ctx context.Context, tenantID, query string, topK int) []contractx.KBChunk {
	if strings.TrimSpace(tenantID) == "" || topK <= 0 {
		return []contractx.KBChunk{}
	}
	logger := zerolog.Ctx(ctx)

	if s.vector && s.embedder != nil && strings.TrimSpace(query) != "" {
		rows, err := s.nearestChunks(ctx, tenantID, query, topK)
		if err == nil {
			return chunksFromRows(rows)
		}
		logger.Warn().Err(err).Str("tenant_id", tenantID).Msg("vector kb lookup failed, using recent chunks")
	}

	var rows []kbChunkModel
	err := s.db.NewSelect().
		Model(&rows).
		Where("tenant_id = ?", tenantID).
		OrderExpr("updated_at DESC, id DESC").
		Limit(topK).
		Scan(ctx)
	if err != nil {
		logger.Warn().Err(err).Str("tenant_id", tenantID).Msg("kb lookup failed")
		return []contractx.KBChunk{}
	}
	return chunksFromRows(rows)
}

func (s *Store) nearestChunks(ctx context.Context, tenantID, query string, topK int) ([]kbChunkModel, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	var rows []kbChunkModel
	err = s.db.NewSelect().
		Model(&rows).
		Where("tenant_id = ?", tenantID).
		Where("embedding IS NOT NULL").
		OrderExpr("embedding <-> CAST(? AS vector)", vectorLiteral(vec)).
		Limit(topK).
		Scan(ctx)
	return rows, err
}

func chunksFromRows(rows []kbChunkModel) []contractx.KBChunk {
	out := make([]contractx.KBChunk, 0, len(rows))
	for _, r := range rows {
		sourceURI := r.SourceURI
		if sourceURI == "" {
			sourceURI = stringField(r.Metadata, "source_uri")
		}
		sourceType := r.SourceType
		if sourceType == "" {
			sourceType = stringField(r.Metadata, "source_type")
		}
		out = append(out, contractx.KBChunk{
			DocID:      r.DocID,
			ChunkIndex: r.ChunkIndex,
			SourceURI:  sourceURI,
			SourceType: sourceType,
			Content:    r.Content,
			Metadata:   r.Metadata,
		})
	}
	return out
}

func profileFromChunk(tenantID string, row kbChunkModel) *contractx.TenantProfile {
	meta := row.Metadata
	profile := &contractx.TenantProfile{
		TenantID:     tenantID,
		DisplayName:  stringField(meta, "agent_display_name"),
		Tone:         stringField(meta, "tone"),
		Keywords:     normalizeKeywords(meta["keywords"]),
		Signature:    stringField(meta, "email_signature"),
		BrandKit:     normalizeBrandKit(meta["brand_kit"]),
		BrandKitText: strings.TrimSpace(row.Content),
		Source:       row.SourceURI,
	}
	if profile.Source == "" {
		profile.Source = stringField(meta, "source_uri")
	}
	return profile
}

func stringField(meta map[string]any, key string) string {
	v, ok := meta[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

// normalizeBrandKit keeps non-empty keys with non-empty string values.
func normalizeBrandKit(v any) map[string]any {
	raw, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]any, len(raw))
	for k, val := range raw {
		if k == "" || val == nil {
			continue
		}
		str := strings.TrimSpace(fmt.Sprint(val))
		if str == "" {
			continue
		}
		out[k] = str
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// normalizeKeywords accepts a JSON list or a comma separated string.
func normalizeKeywords(v any) []string {
	var parts []string
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if item != nil {
				parts = append(parts, fmt.Sprint(item))
			}
		}
	case string:
		parts = strings.Split(t, ",")
	default:
		return nil
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func vectorLiteral(vec []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
