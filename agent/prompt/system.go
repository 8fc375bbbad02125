package prompt

import (
	"fmt"
	"sort"
	"strings"

	contractx "github.com/tanpawarit/ai-suite-runtime/agent/contract"
)

// BuildSystemPrompt layers the core policy, the persona and the tenant profile.
// Empty layers are skipped.
func (p PromptSet) BuildSystemPrompt(profile *contractx.TenantProfile) string {
	layers := make([]string, 0, 3)
	if p.CorePolicy != "" {
		layers = append(layers, p.CorePolicy)
	}
	if p.Persona != "" {
		layers = append(layers, p.Persona)
	}
	if tenant := tenantLayer(profile); tenant != "" {
		layers = append(layers, tenant)
	}
	return strings.Join(layers, "\n\n")
}

func tenantLayer(profile *contractx.TenantProfile) string {
	if profile == nil {
		return ""
	}

	var b strings.Builder
	line := func(label, value string) {
		if value = strings.TrimSpace(value); value != "" {
			fmt.Fprintf(&b, "- %s: %s\n", label, value)
		}
	}

	line("Display name", profile.DisplayName)
	line("Tone", profile.Tone)
	if len(profile.Keywords) > 0 {
		line("Keywords", strings.Join(profile.Keywords, ", "))
	}
	line("Signature", profile.Signature)

	brand := strings.TrimSpace(profile.BrandKitText)
	if brand == "" {
		brand = formatBrandKit(profile.BrandKit)
	}
	if brand != "" {
		fmt.Fprintf(&b, "- Brand kit:\n%s\n", indent(brand))
	}

	if b.Len() == 0 {
		return ""
	}
	return "Tenant profile:\n" + strings.TrimRight(b.String(), "\n")
}

func formatBrandKit(kit map[string]any) string {
	if len(kit) == 0 {
		return ""
	}
	keys := make([]string, 0, len(kit))
	for k := range kit {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %v", k, kit[k]))
	}
	return strings.Join(lines, "\n")
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}
