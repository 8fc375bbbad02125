package runtime

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/ai-suite-runtime/agent/contract"
	"github.com/tanpawarit/ai-suite-runtime/pkg/qstash"
)

var (
	_ contractx.ActionExecutor = (*LogActionExecutor)(nil)
	_ contractx.ActionExecutor = (*QStashActionExecutor)(nil)
)

// LogActionExecutor logs external actions instead of performing them. It keeps
// a copy of every action for inspection.
type LogActionExecutor struct {
	mu       sync.Mutex
	emails   []contractx.OutboundEmail
	archived []string
}

func (e *LogActionExecutor) SendEmail(ctx context.Context, email contractx.OutboundEmail) error {
	e.mu.Lock()
	e.emails = append(e.emails, email)
	e.mu.Unlock()

	zerolog.Ctx(ctx).Info().
		Str("to", email.To).
		Str("subject", email.Subject).
		Str("in_reply_to", email.InReplyTo).
		Str("body", email.Body).
		Msg("email sent")
	return nil
}

func (e *LogActionExecutor) ArchiveEmail(ctx context.Context, tenantID, emailID string) error {
	e.mu.Lock()
	e.archived = append(e.archived, emailID)
	e.mu.Unlock()

	zerolog.Ctx(ctx).Info().Str("tenant_id", tenantID).Str("email_id", emailID).Msg("email archived")
	return nil
}

func (e *LogActionExecutor) Emails() []contractx.OutboundEmail {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]contractx.OutboundEmail(nil), e.emails...)
}

func (e *LogActionExecutor) Archived() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.archived...)
}

// Publisher is the part of the QStash client the executor needs.
type Publisher interface {
	Publish(ctx context.Context, req qstash.PublishRequest) (string, error)
}

// QStashActionExecutor hands external actions to worker endpoints through
// QStash. Each job carries a deduplication id derived from its content.
type QStashActionExecutor struct {
	publisher          Publisher
	emailDestination   string
	archiveDestination string
}

type archiveJob struct {
	TenantID string `json:"tenant_id"`
	EmailID  string `json:"email_id"`
}

func NewQStashActionExecutor(publisher Publisher, emailDestination, archiveDestination string) (*QStashActionExecutor, error) {
	if publisher == nil {
		return nil, fmt.Errorf("qstash publisher is required")
	}
	if strings.TrimSpace(emailDestination) == "" {
		return nil, fmt.Errorf("email destination is required")
	}
	return &QStashActionExecutor{
		publisher:          publisher,
		emailDestination:   strings.TrimSpace(emailDestination),
		archiveDestination: strings.TrimSpace(archiveDestination),
	}, nil
}

func (e *QStashActionExecutor) SendEmail(ctx context.Context, email contractx.OutboundEmail) error {
	body, err := json.Marshal(email)
	if err != nil {
		return fmt.Errorf("marshal email job: %w", err)
	}
	id, err := e.publisher.Publish(ctx, qstash.PublishRequest{
		Destination:     e.emailDestination,
		Body:            body,
		DeduplicationID: dedupID("email", email.TenantID, email.InReplyTo, body),
	})
	if err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Str("message_id", id).Str("to", email.To).Msg("email job published")
	return nil
}

// ArchiveEmail publishes an archive job, or only logs when no archive
// destination is configured.
func (e *QStashActionExecutor) ArchiveEmail(ctx context.Context, tenantID, emailID string) error {
	if e.archiveDestination == "" {
		zerolog.Ctx(ctx).Info().Str("email_id", emailID).Msg("no archive destination, email left in place")
		return nil
	}
	body, err := json.Marshal(archiveJob{TenantID: tenantID, EmailID: emailID})
	if err != nil {
		return fmt.Errorf("marshal archive job: %w", err)
	}
	id, err := e.publisher.Publish(ctx, qstash.PublishRequest{
		Destination:     e.archiveDestination,
		Body:            body,
		DeduplicationID: dedupID("archive", tenantID, emailID, body),
	})
	if err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Str("message_id", id).Str("email_id", emailID).Msg("archive job published")
	return nil
}

// dedupID is stable for the same action on the same source message.
func dedupID(kind, tenantID, ref string, body []byte) string {
	sum := sha256.New()
	sum.Write([]byte(kind + "\x00" + tenantID + "\x00" + ref + "\x00"))
	if ref == "" {
		sum.Write(body)
	}
	return kind + "-" + hex.EncodeToString(sum.Sum(nil))[:32]
}
