package triagenode

import (
	"context"
	"errors"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/ai-suite-runtime/agent/contract"
	graphx "github.com/tanpawarit/ai-suite-runtime/agent/graph"
	promptx "github.com/tanpawarit/ai-suite-runtime/agent/prompt"
)

type stubModel struct {
	classification contractx.Classification
	classifyReqs   []contractx.ClassifyRequest
}

func (m *stubModel) Classify(ctx context.Context, req contractx.ClassifyRequest) (contractx.Classification, error) {
	m.classifyReqs = append(m.classifyReqs, req)
	return m.classification, nil
}

func (m *stubModel) Draft(ctx context.Context, req contractx.DraftRequest) (string, error) {
	return "draft", nil
}

type stubRetriever struct {
	queries []string
	topKs   []int
}

func (r *stubRetriever) LookupKnowledge(ctx context.Context, tenantID, query string, topK int) []contractx.KBChunk {
	r.queries = append(r.queries, query)
	r.topKs = append(r.topKs, topK)
	return []contractx.KBChunk{{Content: "chunk"}}
}

func apply(st State, res graphx.Result[State]) State {
	if res.Update != nil {
		res.Update(&st)
	}
	return st
}

func TestRouteDecisionTable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		category   contractx.Category
		escalation bool
		want       string
	}{
		{contractx.CategorySpam, true, NodeEscalate},
		{contractx.CategoryOrderUpdate, true, NodeEscalate},
		{contractx.CategoryInquiry, true, NodeEscalate},
		{contractx.CategoryOrderUpdate, false, NodeProcessOrder},
		{contractx.CategoryAccountDetails, false, NodeProcessOrder},
		{contractx.CategoryCancelOrder, false, NodeEscalate},
		{contractx.CategoryComplaint, false, NodeEscalate},
		{contractx.CategorySpam, false, NodeArchive},
		{contractx.CategoryInquiry, false, NodeKnowledge},
		{contractx.CategoryFeedback, false, NodeKnowledge},
		{contractx.CategoryOther, false, NodeKnowledge},
	}
	for _, tc := range cases {
		res, err := Route(context.Background(), State{Classification: &contractx.Classification{
			Category:   tc.category,
			Escalation: tc.escalation,
		}})
		if err != nil {
			t.Fatalf("Route(%s, %v) error = %v", tc.category, tc.escalation, err)
		}
		got, ok := res.Next.Target()
		if !ok || got != tc.want {
			t.Fatalf("Route(%s, %v) = %s, want goto(%s)", tc.category, tc.escalation, res.Next, tc.want)
		}
		if res.Update != nil {
			t.Fatalf("Route(%s) returned a state update", tc.category)
		}
	}
}

func TestNodesRequireClassification(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if _, err := Route(ctx, State{}); !errors.Is(err, contractx.ErrMissingClassification) {
		t.Fatalf("Route() error = %v, want ErrMissingClassification", err)
	}
	if _, err := Escalate(ctx, State{}, nil); !errors.Is(err, contractx.ErrMissingClassification) {
		t.Fatalf("Escalate() error = %v, want ErrMissingClassification", err)
	}
	if _, err := ProcessOrder(ctx, State{}, nil); !errors.Is(err, contractx.ErrMissingClassification) {
		t.Fatalf("ProcessOrder() error = %v, want ErrMissingClassification", err)
	}
}

func TestClassifyOverwritesPreviousClassification(t *testing.T) {
	t.Parallel()

	model := &stubModel{classification: contractx.Classification{Category: "spam", Urgency: "weird"}}
	st := State{
		Content:        "free gift",
		Classification: &contractx.Classification{Category: contractx.CategoryInquiry},
		Profile:        &contractx.TenantProfile{DisplayName: "MH Concierge"},
	}

	res, err := Classify(context.Background(), st, model, promptx.LoadPromptSet())
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if res.Next.IsEnd() {
		t.Fatal("Classify() ended the run")
	}
	out := apply(st, res)
	if out.Classification.Category != contractx.CategorySpam {
		t.Fatalf("Category = %q, want spam", out.Classification.Category)
	}
	if out.Classification.Urgency != contractx.UrgencyLow {
		t.Fatalf("Urgency = %q, want low after coercion", out.Classification.Urgency)
	}
	if !strings.Contains(model.classifyReqs[0].SystemPrompt, "MH Concierge") {
		t.Fatalf("system prompt misses tenant layer: %q", model.classifyReqs[0].SystemPrompt)
	}
}

func TestClassifyRejectsEmptyContent(t *testing.T) {
	t.Parallel()

	_, err := Classify(context.Background(), State{Content: "  "}, &stubModel{}, promptx.LoadPromptSet())
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("Classify() error = %v, want ErrValidation", err)
	}
}

func TestLookupKnowledgeBuildsQuery(t *testing.T) {
	t.Parallel()

	kb := &stubRetriever{}
	st := State{
		TenantID:       "t1",
		Content:        "Do you deliver to Bangkok?",
		Classification: &contractx.Classification{Topic: "delivery", Summary: "asks about delivery area"},
	}
	res, err := LookupKnowledge(context.Background(), st, kb, 0)
	if err != nil {
		t.Fatalf("LookupKnowledge() error = %v", err)
	}
	out := apply(st, res)
	if len(out.Knowledge) != 1 {
		t.Fatalf("Knowledge = %#v, want 1 chunk", out.Knowledge)
	}
	if kb.topKs[0] != defaultTopK {
		t.Fatalf("topK = %d, want %d", kb.topKs[0], defaultTopK)
	}
	want := "delivery\nasks about delivery area\nDo you deliver to Bangkok?"
	if kb.queries[0] != want {
		t.Fatalf("query = %q, want %q", kb.queries[0], want)
	}
}

func TestTicketTypeFor(t *testing.T) {
	t.Parallel()

	if got := TicketTypeFor(contractx.CategoryCancelOrder); got != contractx.TicketCancelOrder {
		t.Fatalf("TicketTypeFor(cancel_order) = %q", got)
	}
	for _, c := range []contractx.Category{contractx.CategoryComplaint, contractx.CategorySpam, contractx.CategoryInquiry} {
		if got := TicketTypeFor(c); got != contractx.TicketComplaint {
			t.Fatalf("TicketTypeFor(%s) = %q, want complaint", c, got)
		}
	}
}

func TestTerminalNodesFinish(t *testing.T) {
	t.Parallel()

	res, err := Archive(context.Background(), State{})
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	if !res.Next.IsEnd() || apply(State{}, res).Action != contractx.ActionArchive {
		t.Fatalf("Archive() = %+v", res)
	}

	res, err = DraftResponse(context.Background(), State{Content: "hi"}, &stubModel{}, promptx.LoadPromptSet())
	if err != nil {
		t.Fatalf("DraftResponse() error = %v", err)
	}
	out := apply(State{}, res)
	if !res.Next.IsEnd() || out.Action != contractx.ActionRespond || out.DraftResponse != "draft" {
		t.Fatalf("DraftResponse() state = %+v", out)
	}
}
