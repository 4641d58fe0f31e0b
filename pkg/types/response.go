package types

import (
	"bytes"
	"encoding/json"
)

// Envelope status flags.
const (
	StatusError   = 0
	StatusSuccess = 1
)

// SuccessEnvelope renders as {"status":1,"msg"?,...payload}. An object payload
// is flattened into the envelope; any other payload is nested under "payload".
type SuccessEnvelope struct {
	Msg     string
	Payload any
}

func (e SuccessEnvelope) MarshalJSON() ([]byte, error) {
	out := map[string]json.RawMessage{}
	if e.Payload != nil {
		raw, err := json.Marshal(e.Payload)
		if err != nil {
			return nil, err
		}
		trimmed := bytes.TrimSpace(raw)
		switch {
		case bytes.Equal(trimmed, []byte("null")):
		case len(trimmed) > 0 && trimmed[0] == '{':
			if err := json.Unmarshal(trimmed, &out); err != nil {
				return nil, err
			}
		default:
			out["payload"] = trimmed
		}
	}
	out["status"] = json.RawMessage("1")
	if e.Msg != "" {
		msg, err := json.Marshal(e.Msg)
		if err != nil {
			return nil, err
		}
		out["msg"] = msg
	}
	return json.Marshal(out)
}

// ErrorEnvelope is the failure body. Msg is human readable; Code is for
// programmatic clients.
type ErrorEnvelope struct {
	Status  int    `json:"status"`
	Msg     string `json:"msg"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}
