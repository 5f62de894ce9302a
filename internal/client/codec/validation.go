package codec

import (
	"encoding/json"
	"errors"
	"fmt"
)

// DecodeValidationErrors parses a 400 body of the form
// {"field": ["msg", ...]} or {"field": "msg"}. Bodies that carry no field
// at all are reported as *DecodingError.
func DecodeValidationErrors(data []byte) (map[string][]string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, decodingError("validation errors", err)
	}
	if len(raw) == 0 {
		return nil, decodingError("validation errors", errors.New("no fields"))
	}

	fields := make(map[string][]string, len(raw))
	for name, v := range raw {
		var many []string
		if err := json.Unmarshal(v, &many); err == nil {
			fields[name] = many
			continue
		}
		var one string
		if err := json.Unmarshal(v, &one); err == nil {
			fields[name] = []string{one}
			continue
		}
		return nil, decodingError("validation errors", fmt.Errorf("field %q is neither a string nor a list of strings", name))
	}
	return fields, nil
}

func EncodeValidationErrors(fields map[string][]string) ([]byte, error) {
	return json.Marshal(fields)
}
