// Copyright 2020-2021 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package serialize

import (
	"encoding/json"
	"fmt"

	"mpdelta/pkg/timeline/parameter"
)

// ValueDoc is the extension-point discriminator for a parameter.RawValue:
// a tag naming the concrete kind plus its tagged payload, so a closed sum
// that may grow new leaves still round-trips against a fixed decoder.
type ValueDoc struct {
	T string          `json:"t"`
	V json.RawMessage `json:"v"`
}

// ErrUnsupportedRawValue is returned for RawValue kinds that have no stable
// persisted representation: ImageHandle and AudioBuffer are runtime-only
// render outputs, never meaningful as a saved fixed parameter.
type ErrUnsupportedRawValue struct{ Type parameter.Type }

func (e *ErrUnsupportedRawValue) Error() string {
	return fmt.Sprintf("serialize: %s values cannot be persisted", e.Type)
}

// EncodeRawValue exposes encodeRawValue for callers outside this package
// that need the same wire encoding for a fixed parameter value — the web
// API's edit-command decoder, in particular.
func EncodeRawValue(v parameter.RawValue) (ValueDoc, error) { return encodeRawValue(v) }

// DecodeRawValue exposes decodeRawValue for callers outside this package.
func DecodeRawValue(doc ValueDoc) (parameter.RawValue, error) { return decodeRawValue(doc) }

func encodeRawValue(v parameter.RawValue) (ValueDoc, error) {
	switch val := v.(type) {
	case parameter.BinaryValue:
		raw, err := json.Marshal([]byte(val))
		return ValueDoc{T: "binary", V: raw}, err
	case parameter.StringValue:
		raw, err := json.Marshal(string(val))
		return ValueDoc{T: "string", V: raw}, err
	case parameter.IntegerValue:
		raw, err := json.Marshal(int64(val))
		return ValueDoc{T: "integer", V: raw}, err
	case parameter.RealValue:
		raw, err := json.Marshal(float64(val))
		return ValueDoc{T: "real", V: raw}, err
	case parameter.BooleanValue:
		raw, err := json.Marshal(bool(val))
		return ValueDoc{T: "boolean", V: raw}, err
	case parameter.ComponentClassValue:
		raw, err := json.Marshal(classDoc(val.Class))
		return ValueDoc{T: "componentClass", V: raw}, err
	case parameter.DictionaryValue:
		out := make(map[string]ValueDoc, len(val))
		for k, entry := range val {
			encoded, err := encodeRawValue(entry)
			if err != nil {
				return ValueDoc{}, err
			}
			out[k] = encoded
		}
		raw, err := json.Marshal(out)
		return ValueDoc{T: "dictionary", V: raw}, err
	case parameter.ArrayValue:
		out := make([]ValueDoc, len(val))
		for i, entry := range val {
			encoded, err := encodeRawValue(entry)
			if err != nil {
				return ValueDoc{}, err
			}
			out[i] = encoded
		}
		raw, err := json.Marshal(out)
		return ValueDoc{T: "array", V: raw}, err
	default:
		return ValueDoc{}, &ErrUnsupportedRawValue{Type: v.Type()}
	}
}

func decodeRawValue(doc ValueDoc) (parameter.RawValue, error) {
	switch doc.T {
	case "binary":
		var b []byte
		if err := json.Unmarshal(doc.V, &b); err != nil {
			return nil, err
		}
		return parameter.BinaryValue(b), nil
	case "string":
		var s string
		if err := json.Unmarshal(doc.V, &s); err != nil {
			return nil, err
		}
		return parameter.StringValue(s), nil
	case "integer":
		var n int64
		if err := json.Unmarshal(doc.V, &n); err != nil {
			return nil, err
		}
		return parameter.IntegerValue(n), nil
	case "real":
		var f float64
		if err := json.Unmarshal(doc.V, &f); err != nil {
			return nil, err
		}
		return parameter.RealValue(f), nil
	case "boolean":
		var b bool
		if err := json.Unmarshal(doc.V, &b); err != nil {
			return nil, err
		}
		return parameter.BooleanValue(b), nil
	case "componentClass":
		var c ClassIdentifierDoc
		if err := json.Unmarshal(doc.V, &c); err != nil {
			return nil, err
		}
		return parameter.ComponentClassValue{Class: c.class()}, nil
	case "dictionary":
		var raw map[string]ValueDoc
		if err := json.Unmarshal(doc.V, &raw); err != nil {
			return nil, err
		}
		out := make(parameter.DictionaryValue, len(raw))
		for k, entry := range raw {
			decoded, err := decodeRawValue(entry)
			if err != nil {
				return nil, err
			}
			out[k] = decoded
		}
		return out, nil
	case "array":
		var raw []ValueDoc
		if err := json.Unmarshal(doc.V, &raw); err != nil {
			return nil, err
		}
		out := make(parameter.ArrayValue, len(raw))
		for i, entry := range raw {
			decoded, err := decodeRawValue(entry)
			if err != nil {
				return nil, err
			}
			out[i] = decoded
		}
		return out, nil
	default:
		return nil, fmt.Errorf("serialize: unknown raw value tag %q", doc.T)
	}
}
