package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Canonicalize fills defaults into raw and checks required arguments. Values
// are copied verbatim; type checking is left to Decode. Keys the schema does
// not declare are dropped.
func Canonicalize(s *Schema, raw map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(s.arguments))
	for _, arg := range s.arguments {
		if v, ok := raw[arg.name]; ok {
			out[arg.name] = v
			continue
		}
		if arg.def != nil {
			out[arg.name] = arg.def
			continue
		}
		if arg.required {
			return nil, &MissingArgumentError{Name: arg.name}
		}
	}
	return out, nil
}

// Decode canonicalizes the JSON argument object raw and strictly decodes the
// result into out. An empty or null raw is treated as an empty object.
func Decode(s *Schema, raw json.RawMessage, out any) error {
	bag, err := ParseObject(raw)
	if err != nil {
		return &DecodeError{Tool: s.name, Err: err}
	}
	canonical, err := Canonicalize(s, bag)
	if err != nil {
		return err
	}
	data, err := json.Marshal(canonical)
	if err != nil {
		return &DecodeError{Tool: s.name, Err: err}
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return &DecodeError{Tool: s.name, Err: err}
	}
	return nil
}

var errNotObject = errors.New("arguments must be a JSON object")

// ParseObject decodes raw as a JSON object, keeping numbers as json.Number so
// integers survive the canonical round trip unchanged.
func ParseObject(raw json.RawMessage) (map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return map[string]any{}, nil
	}
	if raw[0] != '{' {
		return nil, errNotObject
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var bag map[string]any
	if err := dec.Decode(&bag); err != nil {
		return nil, fmt.Errorf("parse arguments: %w", err)
	}
	if bag == nil {
		bag = map[string]any{}
	}
	return bag, nil
}
