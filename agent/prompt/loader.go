package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/ai-suite-runtime/agent/contract"
)

var (
	//go:embed template/core_policy.txt
	corePolicyRaw string

	//go:embed template/persona.txt
	personaRaw string

	//go:embed template/classify.txt
	classifyRaw string

	//go:embed template/draft.txt
	draftRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	CorePolicy string
	Persona    string
	Classify   string
	Draft      string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		CorePolicy: strings.TrimSpace(corePolicyRaw),
		Persona:    strings.TrimSpace(personaRaw),
		Classify:   strings.TrimSpace(classifyRaw),
		Draft:      strings.TrimSpace(draftRaw),
	}
}

func (p PromptSet) Validate() error {
	missing := []string{}
	if p.CorePolicy == "" {
		missing = append(missing, "core_policy")
	}
	if p.Classify == "" {
		missing = append(missing, "classify")
	}
	if p.Draft == "" {
		missing = append(missing, "draft")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", contractx.ErrPromptMissing, strings.Join(missing, ", "))
	}
	return nil
}
