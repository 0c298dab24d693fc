package llm

import (
	"encoding/json"
	"strings"

	"github.com/imyousuf/codescribe/pkg/llm"
)

// RepairToolCalls normalizes malformed tool-call arguments before they
// reach tool dispatch. Models occasionally encode an array argument as
// a JSON string containing the array ("\"[\\\"a\\\"]\"" instead of
// ["a"]); each such field is unwrapped in place and the repair logged.
func RepairToolCalls(calls []llm.ToolCall, logf func(format string, args ...any)) []llm.ToolCall {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	for i, call := range calls {
		repaired, changed := repairArguments(call.Arguments)
		if changed {
			logf("repaired stringified arguments in tool call %s (%s)", call.ID, call.Name)
			calls[i].Arguments = repaired
		}
	}
	return calls
}

func repairArguments(raw json.RawMessage) (json.RawMessage, bool) {
	if len(raw) == 0 {
		return raw, false
	}

	// The whole argument object may itself arrive double-encoded.
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, `"`) {
		var inner string
		if err := json.Unmarshal(raw, &inner); err == nil && looksLikeJSON(inner) {
			if fixed, changed := repairArguments(json.RawMessage(inner)); changed {
				return fixed, true
			}
			return json.RawMessage(inner), true
		}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return raw, false
	}

	changed := false
	for key, value := range fields {
		str := strings.TrimSpace(string(value))
		if !strings.HasPrefix(str, `"`) {
			continue
		}
		var inner string
		if err := json.Unmarshal(value, &inner); err != nil {
			continue
		}
		inner = strings.TrimSpace(inner)
		if !strings.HasPrefix(inner, "[") && !strings.HasPrefix(inner, "{") {
			continue
		}
		if !json.Valid([]byte(inner)) {
			continue
		}
		fields[key] = json.RawMessage(inner)
		changed = true
	}
	if !changed {
		return raw, false
	}

	out, err := json.Marshal(fields)
	if err != nil {
		return raw, false
	}
	return out, true
}

func looksLikeJSON(s string) bool {
	s = strings.TrimSpace(s)
	return (strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")) && json.Valid([]byte(s))
}
