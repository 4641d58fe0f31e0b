package types

import (
	"encoding/json"
	"testing"
)

func TestSuccessEnvelopeFlattensObjects(t *testing.T) {
	raw, err := json.Marshal(SuccessEnvelope{Msg: "ok", Payload: struct {
		Total int `json:"totalDocs"`
	}{Total: 3}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["status"] != float64(1) || got["msg"] != "ok" || got["totalDocs"] != float64(3) {
		t.Fatalf("unexpected envelope %s", raw)
	}
}

func TestSuccessEnvelopeNestsNonObjects(t *testing.T) {
	raw, err := json.Marshal(SuccessEnvelope{Payload: []int{1, 2}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"payload":[1,2],"status":1}` {
		t.Fatalf("unexpected envelope %s", raw)
	}

	raw, err = json.Marshal(SuccessEnvelope{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"status":1}` {
		t.Fatalf("unexpected envelope %s", raw)
	}
}

func TestSuccessEnvelopeStatusWins(t *testing.T) {
	raw, err := json.Marshal(SuccessEnvelope{Payload: map[string]any{"status": "shadowed"}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"status":1}` {
		t.Fatalf("unexpected envelope %s", raw)
	}
}
