package llm

import (
	"context"
	"strings"
	"unicode/utf8"

	contractx "github.com/tanpawarit/ai-suite-runtime/agent/contract"
)

var _ contractx.LanguageModel = Heuristic{}

var (
	spamSignals      = []string{"unsubscribe", "win money", "free money", "crypto", "airdrop", "free gift", "click here"}
	cancelSignals    = []string{"cancel", "cancellation", "stop my order"}
	complaintSignals = []string{"complaint", "not happy", "angry", "terrible", "refund", "chargeback"}
	orderSignals     = []string{"order", "tracking", "shipment", "shipping", "invoice", "account"}
	updateSignals    = []string{"change", "update", "edit", "modify"}
	humanSignals     = []string{"lawyer", "sue", "threat", "harass", "fraud", "police"}
)

const summaryLimit = 160

// Heuristic is a keyword classifier with a template drafter. It needs no model
// and is used when no LLM is configured.
type Heuristic struct {
	Signature string
}

func (Heuristic) Classify(ctx context.Context, req contractx.ClassifyRequest) (contractx.Classification, error) {
	text := strings.ToLower(req.SenderEmail + "\n" + req.Content)

	orderRelated := containsAny(text, orderSignals)
	var category contractx.Category
	switch {
	case containsAny(text, spamSignals):
		category = contractx.CategorySpam
	case containsAny(text, cancelSignals):
		category = contractx.CategoryCancelOrder
	case containsAny(text, complaintSignals):
		category = contractx.CategoryComplaint
	case orderRelated && containsAny(text, updateSignals):
		category = contractx.CategoryOrderUpdate
	case orderRelated:
		category = contractx.CategoryAccountDetails
	default:
		category = contractx.CategoryInquiry
	}

	human := containsAny(text, humanSignals)
	urgency := contractx.UrgencyLow
	switch {
	case human:
		urgency = contractx.UrgencyHumanInterventionRequired
	case category == contractx.CategoryComplaint || category == contractx.CategoryCancelOrder:
		urgency = contractx.UrgencyMedium
	}

	topic := "general"
	switch category {
	case contractx.CategoryAccountDetails, contractx.CategoryOrderUpdate, contractx.CategoryCancelOrder:
		topic = "order/account"
	case contractx.CategoryComplaint:
		topic = "complaint"
	}

	return contractx.NormalizeClassification(contractx.Classification{
		Category:   category,
		Urgency:    urgency,
		Topic:      topic,
		Summary:    summarize(req.Content),
		Escalation: human,
	}), nil
}

func (h Heuristic) Draft(ctx context.Context, req contractx.DraftRequest) (string, error) {
	topic := strings.TrimSpace(req.Classification.Topic)
	if topic == "" {
		topic = "your message"
	}

	lines := []string{
		"Thanks for reaching out.",
		"",
		"I received your email about " + topic + ".",
	}

	snippets := make([]string, 0, len(req.Knowledge))
	for _, c := range req.Knowledge {
		if text := strings.TrimSpace(c.Content); text != "" {
			snippets = append(snippets, "- "+strings.ReplaceAll(text, "\n", " "))
		}
	}
	if len(snippets) > 0 {
		lines = append(lines, "Here is what may help:")
		lines = append(lines, snippets...)
	} else {
		lines = append(lines, "To help you quickly, could you share any relevant details (order number, account email, dates) if applicable?")
	}

	signature := strings.TrimSpace(req.Signature)
	if signature == "" {
		signature = strings.TrimSpace(h.Signature)
	}
	if signature == "" {
		signature = "The support team"
	}
	lines = append(lines, "", "Best,", signature)

	return strings.Join(lines, "\n"), nil
}

func summarize(content string) string {
	flat := strings.TrimSpace(strings.ReplaceAll(content, "\n", " "))
	if flat == "" {
		return "No content."
	}
	if utf8.RuneCountInString(flat) <= summaryLimit {
		return flat
	}
	runes := []rune(flat)
	return strings.TrimSpace(string(runes[:summaryLimit])) + "…"
}

// containsAny matches needles that start on a word boundary, so "sue" does not
// fire on "issue".
func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if containsWordPrefix(text, n) {
			return true
		}
	}
	return false
}

func containsWordPrefix(text, needle string) bool {
	for offset := 0; offset < len(text); {
		i := strings.Index(text[offset:], needle)
		if i < 0 {
			return false
		}
		pos := offset + i
		if pos == 0 || !isWordByte(text[pos-1]) {
			return true
		}
		offset = pos + 1
	}
	return false
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '_'
}
