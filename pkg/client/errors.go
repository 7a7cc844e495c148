package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-formwizard/pkg/wizard"
)

var messageKeys = []string{"message", "detail", "title", "error"}

// decodeFailure turns an error response into a *wizard.SubmissionError.
// Accepted bodies:
//
//	{"errors": {"path": ["msg", ...]}, "message": "..."}
//	{"errors": {"path": "msg"}}
//	{"path": "msg"}                       (400/422 only)
func decodeFailure(status int, body []byte) error {
	serr := &wizard.SubmissionError{Status: status}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		if text := strings.TrimSpace(string(body)); text != "" && len(text) < 200 && !strings.HasPrefix(text, "<") {
			serr.Message = text
		}
		serr.Err = fmt.Errorf("%w %d", ErrUnexpectedStatus, status)
		return serr
	}

	for _, key := range messageKeys {
		if text, ok := payload[key].(string); ok && strings.TrimSpace(text) != "" {
			serr.Message = strings.TrimSpace(text)
			delete(payload, key)
			break
		}
	}

	if nested, ok := payload["errors"].(map[string]any); ok {
		serr.Fields = flattenFieldErrors(nested)
	} else if status == http.StatusBadRequest || status == http.StatusUnprocessableEntity {
		serr.Fields = flattenFieldErrors(payload)
	}
	if len(serr.Fields) == 0 {
		serr.Fields = nil
	}
	if serr.Fields == nil && serr.Message == "" {
		serr.Err = fmt.Errorf("%w %d", ErrUnexpectedStatus, status)
	}
	return serr
}

func flattenFieldErrors(values map[string]any) wizard.FieldErrors {
	out := make(wizard.FieldErrors, len(values))
	for path, raw := range values {
		var messages []string
		switch v := raw.(type) {
		case string:
			messages = append(messages, v)
		case []any:
			for _, item := range v {
				if text, ok := item.(string); ok {
					messages = append(messages, text)
				}
			}
		}
		var kept []string
		for _, msg := range messages {
			if trimmed := strings.TrimSpace(msg); trimmed != "" {
				kept = append(kept, trimmed)
			}
		}
		if len(kept) > 0 {
			out[path] = strings.Join(kept, "; ")
		}
	}
	return out
}
