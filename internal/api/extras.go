package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Extras holds JSON members a type does not model. They are written back
// unchanged so full-document replaces never strip backend data.
type Extras map[string]json.RawMessage

func splitExtras(data []byte, known ...string) (Extras, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for _, key := range known {
		delete(raw, key)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return Extras(raw), nil
}

// mergeExtras marshals the modelled value and adds every extra member that
// the modelled value did not already emit.
func mergeExtras(modelled any, extras Extras, set map[string]any) ([]byte, error) {
	data, err := json.Marshal(modelled)
	if err != nil {
		return nil, err
	}
	if len(extras) == 0 && len(set) == 0 {
		return data, nil
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	for key, value := range set {
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		out[key] = encoded
	}
	for key, value := range extras {
		if _, ok := out[key]; !ok {
			out[key] = value
		}
	}
	return json.Marshal(out)
}

// FlexString accepts a JSON string or number and renders it as text. Durations
// arrive as "8s" from some endpoints and as bare numbers from others.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	if _, err := strconv.ParseFloat(trimmed, 64); err != nil {
		return fmt.Errorf("expected string or number, got %s", trimmed)
	}
	*f = FlexString(trimmed)
	return nil
}

func (f FlexString) String() string { return string(f) }
