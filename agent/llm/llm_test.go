package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/ai-suite-runtime/agent/contract"
	promptx "github.com/tanpawarit/ai-suite-runtime/agent/prompt"
)

type fakeChatModel struct {
	responses []*schema.Message
	err       error
	idx       int
	inputs    [][]*schema.Message
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	if f.idx >= len(f.responses) {
		return nil, errors.New("no fake response left")
	}
	msg := f.responses[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func newTestModel(t *testing.T, fake *fakeChatModel) *Model {
	t.Helper()
	m, err := NewModel(context.Background(), fake, promptx.LoadPromptSet())
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}
	return m
}

func TestModelClassifyParsesFencedJSON(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{responses: []*schema.Message{
		schema.AssistantMessage("Sure:\n```json\n{\"intent\":\"cancel_order\",\"urgency\":\"medium\",\"topic\":\"order\",\"summary\":\"wants to cancel\"}\n```", nil),
	}}
	m := newTestModel(t, fake)

	got, err := m.Classify(context.Background(), contractx.ClassifyRequest{
		SystemPrompt: "SYSTEM {not a var}",
		SenderEmail:  "a@example.com",
		Content:      "please cancel order #123",
	})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if got.Category != contractx.CategoryCancelOrder || got.Urgency != contractx.UrgencyMedium {
		t.Fatalf("Classify() = %+v", got)
	}
	if len(fake.inputs) != 1 || len(fake.inputs[0]) != 2 {
		t.Fatalf("unexpected model input: %#v", fake.inputs)
	}
	if fake.inputs[0][0].Content != "SYSTEM {not a var}" {
		t.Fatalf("system message = %q", fake.inputs[0][0].Content)
	}
	if !strings.Contains(fake.inputs[0][1].Content, "please cancel order #123") {
		t.Fatalf("user message misses email content: %q", fake.inputs[0][1].Content)
	}
}

func TestModelClassifyCoercesUnknownValues(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{responses: []*schema.Message{
		schema.AssistantMessage(`{"intent":"rant","urgency":"human_intervention_required","topic":"x","summary":"y"}`, nil),
	}}
	got, err := newTestModel(t, fake).Classify(context.Background(), contractx.ClassifyRequest{Content: "hello"})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if got.Category != contractx.CategoryOther {
		t.Fatalf("Category = %q, want other", got.Category)
	}
	if !got.Escalation {
		t.Fatal("Escalation = false, want true for human_intervention_required")
	}
}

func TestModelClassifyErrors(t *testing.T) {
	t.Parallel()

	failing := &fakeChatModel{err: errors.New("upstream 500")}
	_, err := newTestModel(t, failing).Classify(context.Background(), contractx.ClassifyRequest{Content: "hi"})
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("Classify() error = %v, want ErrModelInvoke", err)
	}

	prose := &fakeChatModel{responses: []*schema.Message{schema.AssistantMessage("I think it is spam", nil)}}
	if _, err := newTestModel(t, prose).Classify(context.Background(), contractx.ClassifyRequest{Content: "hi"}); err == nil {
		t.Fatal("expected error for reply without JSON")
	}

	if _, err := newTestModel(t, &fakeChatModel{}).Classify(context.Background(), contractx.ClassifyRequest{}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("Classify(empty) error = %v, want ErrValidation", err)
	}
}

func TestModelDraftIncludesKnowledge(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{responses: []*schema.Message{schema.AssistantMessage("  Hello there  ", nil)}}
	got, err := newTestModel(t, fake).Draft(context.Background(), contractx.DraftRequest{
		SystemPrompt: "SYS",
		Content:      "When do you ship?",
		Knowledge: []contractx.KBChunk{
			{Content: "We ship within 2 days."},
			{Content: "Returns are free for 30 days."},
		},
	})
	if err != nil {
		t.Fatalf("Draft() error = %v", err)
	}
	if got != "Hello there" {
		t.Fatalf("Draft() = %q", got)
	}
	user := fake.inputs[0][1].Content
	for _, want := range []string{"We ship within 2 days.", "Returns are free for 30 days.", "When do you ship?"} {
		if !strings.Contains(user, want) {
			t.Fatalf("draft prompt misses %q:\n%s", want, user)
		}
	}
}

func TestModelDraftEmptyReply(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{responses: []*schema.Message{schema.AssistantMessage("   ", nil)}}
	_, err := newTestModel(t, fake).Draft(context.Background(), contractx.DraftRequest{Content: "x"})
	if !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("Draft() error = %v, want ErrSchemaViolation", err)
	}
}

func TestExtractJSONObject(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"Here you go: {\"a\":1} thanks", `{"a":1}`},
	}
	for _, tc := range cases {
		got, err := ExtractJSONObject(tc.in)
		if err != nil {
			t.Fatalf("ExtractJSONObject(%q) error = %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ExtractJSONObject(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	if _, err := ExtractJSONObject("no json here"); !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("ExtractJSONObject() error = %v, want ErrSchemaViolation", err)
	}
}

func TestHeuristicClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		content    string
		category   contractx.Category
		escalation bool
	}{
		{"please cancel order #123", contractx.CategoryCancelOrder, false},
		{"Click here to unsubscribe and get free money", contractx.CategorySpam, false},
		{"I am not happy with the sofa", contractx.CategoryComplaint, false},
		{"Can I change the shipping address on my order?", contractx.CategoryOrderUpdate, false},
		{"Where is my tracking number?", contractx.CategoryAccountDetails, false},
		{"What are your opening hours?", contractx.CategoryInquiry, false},
		{"I have an issue with the color", contractx.CategoryInquiry, false},
		{"My lawyer will contact you", contractx.CategoryInquiry, true},
	}
	for _, tc := range cases {
		got, err := Heuristic{}.Classify(context.Background(), contractx.ClassifyRequest{Content: tc.content})
		if err != nil {
			t.Fatalf("Classify(%q) error = %v", tc.content, err)
		}
		if got.Category != tc.category {
			t.Fatalf("Classify(%q).Category = %q, want %q", tc.content, got.Category, tc.category)
		}
		if got.Escalation != tc.escalation {
			t.Fatalf("Classify(%q).Escalation = %v, want %v", tc.content, got.Escalation, tc.escalation)
		}
	}
}

func TestHeuristicSummaryTruncates(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", 200)
	got, err := Heuristic{}.Classify(context.Background(), contractx.ClassifyRequest{Content: long})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if got.Summary != strings.Repeat("a", 160)+"…" {
		t.Fatalf("Summary = %q", got.Summary)
	}
}

func TestHeuristicDraftQuotesKnowledge(t *testing.T) {
	t.Parallel()

	got, err := Heuristic{Signature: "MH Concierge"}.Draft(context.Background(), contractx.DraftRequest{
		Classification: contractx.Classification{Topic: "delivery"},
		Knowledge: []contractx.KBChunk{
			{Content: "Delivery takes 3 days."},
			{Content: "Assembly is included."},
		},
	})
	if err != nil {
		t.Fatalf("Draft() error = %v", err)
	}
	for _, want := range []string{"about delivery", "Delivery takes 3 days.", "Assembly is included.", "MH Concierge"} {
		if !strings.Contains(got, want) {
			t.Fatalf("Draft() misses %q:\n%s", want, got)
		}
	}
}

func TestConfigOpenRouterForOverrides(t *testing.T) {
	t.Parallel()

	cfg := Config{
		APIKey:                "k",
		Model:                 "base",
		Temperature:           0.3,
		TriageModel:           "triage-model",
		TriageTemperature:     0.1,
		ResolutionTemperature: -1,
	}
	if got := cfg.OpenRouterFor(contractx.AgentTriage); got.Model != "triage-model" || got.Temperature != 0.1 {
		t.Fatalf("OpenRouterFor(triage) = %+v", got)
	}
	if got := cfg.OpenRouterFor(contractx.AgentResolution); got.Model != "base" || got.Temperature != 0.3 {
		t.Fatalf("OpenRouterFor(resolution) = %+v", got)
	}
	if _, ok := cfg.EmbeddingClientConfig(); ok {
		t.Fatal("EmbeddingClientConfig() ok = true without embedding model")
	}
}
