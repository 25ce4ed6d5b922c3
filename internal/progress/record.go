package progress

import (
	"encoding/json"
	"fmt"
	"sort"
)

// record is the persisted layout:
//
//	{"currentIndex": 2, "currentStepId": "c", "done": ["a","b"], "stepValidation": [["a",true],["b",true]]}
type record struct {
	CurrentIndex   int              `json:"currentIndex"`
	CurrentStepID  string           `json:"currentStepId,omitempty"`
	Done           []string         `json:"done"`
	StepValidation []validationPair `json:"stepValidation"`
}

// validationPair encodes as a two-element JSON array.
type validationPair struct {
	ID    string
	Valid bool
}

func (p validationPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.ID, p.Valid})
}

func (p *validationPair) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("validation pair: want 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.ID); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &p.Valid)
}

func encodeRecord(r record) (string, error) {
	if r.Done == nil {
		r.Done = []string{}
	}
	if r.StepValidation == nil {
		r.StepValidation = []validationPair{}
	}
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeRecord never fails: each field that is missing or malformed
// falls back to its zero value on its own.
func decodeRecord(raw string) record {
	var r record
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return record{}
	}
	if v, ok := fields["currentIndex"]; ok {
		if err := json.Unmarshal(v, &r.CurrentIndex); err != nil {
			r.CurrentIndex = 0
		}
	}
	if v, ok := fields["currentStepId"]; ok {
		if err := json.Unmarshal(v, &r.CurrentStepID); err != nil {
			r.CurrentStepID = ""
		}
	}
	if v, ok := fields["done"]; ok {
		if err := json.Unmarshal(v, &r.Done); err != nil {
			r.Done = nil
		}
	}
	if v, ok := fields["stepValidation"]; ok {
		if err := json.Unmarshal(v, &r.StepValidation); err != nil {
			r.StepValidation = nil
		}
	}
	return r
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
