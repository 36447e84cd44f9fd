package agent

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ExtractStructured parses the JSON object spanning the first '{' to the
// last '}' in text, repairing common model mistakes such as single quotes
// and trailing commas.
func ExtractStructured(text string) (map[string]any, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	raw := text[start : end+1]

	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err == nil {
		return out, true
	}

	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return nil, false
	}
	if err := json.Unmarshal([]byte(repaired), &out); err != nil {
		return nil, false
	}
	return out, true
}

// rawReflection is the degraded Reflect result.
func rawReflection(text string) map[string]any {
	return map[string]any{RawReflectionKey: text}
}
