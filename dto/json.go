package dto

import "encoding/json"

// marshalMerged encodes base and extra as JSON objects and joins their keys.
func marshalMerged(base, extra interface{}) ([]byte, error) {
	baseJSON, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}
	extraJSON, err := json.Marshal(extra)
	if err != nil {
		return nil, err
	}

	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(baseJSON, &merged); err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(extraJSON, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}
