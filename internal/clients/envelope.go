package clients

import (
	"bytes"
	"encoding/json"
)

// envelope is the backend's response wrapper.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
}

// page is a paginated list inside an envelope's data.
type page struct {
	Data        json.RawMessage `json:"data"`
	CurrentPage int             `json:"current_page"`
	LastPage    int             `json:"last_page"`
	Total       int             `json:"total"`
}

// firstFieldError returns the first field and its first message from an
// errors object shaped like {"field": ["msg", ...]}. Document order is kept,
// which a map decode would lose.
func firstFieldError(raw json.RawMessage) (string, string) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return "", ""
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return "", ""
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return "", ""
		}
		field, _ := tok.(string)

		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return "", ""
		}
		if msg := firstMessage(v); msg != "" {
			return field, msg
		}
	}
	return "", ""
}

func firstMessage(v json.RawMessage) string {
	var list []string
	if err := json.Unmarshal(v, &list); err == nil {
		for _, m := range list {
			if m != "" {
				return m
			}
		}
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return ""
}
