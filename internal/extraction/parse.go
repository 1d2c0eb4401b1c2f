package extraction

import (
	"encoding/json"
	"strings"
)

// ParseFields parses the raw model output into Fields. The output is trimmed
// and stripped of markdown code fences before parsing; anything outside the
// outermost JSON object is ignored. Null field values survive as nil.
func ParseFields(text string) (*Fields, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return nil, &Error{Message: MsgUnparseable}
	}
	text = text[start : end+1]

	var fields Fields
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return nil, &Error{Message: MsgUnparseable, Err: err}
	}
	return &fields, nil
}
