package agent

import (
	"encoding/json"
	"fmt"
)

// decodeEnvelope normalizes the response shapes the external CRUD APIs
// produce. A payload may arrive as a Lambda proxy envelope
// `{"body": "..."}` with a JSON-encoded string body, as `{"body": {...}}`,
// or as the inner document directly. The returned value is the innermost
// JSON document.
func decodeEnvelope(raw []byte) (json.RawMessage, error) {
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(raw, &outer); err != nil {
		// Not an object: a direct list is a valid shape.
		var list []json.RawMessage
		if listErr := json.Unmarshal(raw, &list); listErr == nil {
			return json.RawMessage(raw), nil
		}
		return nil, fmt.Errorf("decoding response envelope: %w", err)
	}

	body, ok := outer["body"]
	if !ok {
		return json.RawMessage(raw), nil
	}

	// Stringified body: decode once more.
	var bodyStr string
	if err := json.Unmarshal(body, &bodyStr); err == nil {
		if !json.Valid([]byte(bodyStr)) {
			return nil, fmt.Errorf("decoding stringified body: not valid JSON")
		}
		return json.RawMessage(bodyStr), nil
	}

	return body, nil
}

// envelopeMessage extracts the "message" field from a decoded document,
// or "" when absent.
func envelopeMessage(doc json.RawMessage) string {
	var probe struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(doc, &probe); err != nil {
		return ""
	}
	return probe.Message
}
