package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/ai-suite-runtime/agent/contract"
)

// ExtractJSONObject finds the JSON object in a model reply. Markdown code
// fences and prose around the object are tolerated.
func ExtractJSONObject(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if isJSONObject(trimmed) {
		return trimmed, nil
	}

	if strings.Contains(trimmed, "```") {
		stripped := strings.ReplaceAll(trimmed, "```json", "```")
		for _, part := range strings.Split(stripped, "```") {
			part = strings.TrimSpace(part)
			if isJSONObject(part) {
				return part, nil
			}
		}
	}

	start, end := strings.Index(trimmed, "{"), strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		if candidate := trimmed[start : end+1]; isJSONObject(candidate) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: no JSON object in model output", contractx.ErrSchemaViolation)
}

func isJSONObject(s string) bool {
	return strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") && json.Valid([]byte(s))
}
