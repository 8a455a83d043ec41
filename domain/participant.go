// Package domain contains core concepts of the chat relay.
// This file defines Participant identities and how raw client values normalize to them.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"bytes"
	"encoding/json"
)

// wrappedField is the inner identifier field some clients wrap identities in.
const wrappedField = "_j"

type ParticipantID string

func (p ParticipantID) String() string { return string(p) }

type IdentityShape int

// The zero value is ShapeUnknown so an identity that was never decoded
// never passes for a bare one.
const (
	ShapeUnknown IdentityShape = iota
	ShapeBare
	ShapeWrapped
)

func (s IdentityShape) String() string {
	switch s {
	case ShapeBare:
		return "bare"
	case ShapeWrapped:
		return "wrapped"
	default:
		return "unknown"
	}
}

// RawIdentity is an identity value exactly as a client sent it.
// It is either a bare value, an object wrapping the identifier under "_j",
// or something else entirely, kept as its compact JSON text.
type RawIdentity struct {
	Shape IdentityShape
	Value string // bare value or wrapped inner identifier
	Text  string // compact JSON as received
}

func Bare(id string) RawIdentity {
	text, _ := json.Marshal(id)
	return RawIdentity{Shape: ShapeBare, Value: id, Text: string(text)}
}

func Wrapped(id string) RawIdentity {
	text, _ := json.Marshal(map[string]string{wrappedField: id})
	return RawIdentity{Shape: ShapeWrapped, Value: id, Text: string(text)}
}

func (r *RawIdentity) UnmarshalJSON(data []byte) error {
	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return err
	}
	*r = ParseIdentity(compact.Bytes())
	return nil
}

func (r RawIdentity) MarshalJSON() ([]byte, error) {
	if r.Text == "" {
		return []byte("null"), nil
	}
	return []byte(r.Text), nil
}

// ParseIdentity classifies a compact JSON value. It never fails: values of an
// unexpected shape end up as ShapeUnknown and pass through untouched.
func ParseIdentity(data []byte) RawIdentity {
	if len(data) == 0 {
		return RawIdentity{Shape: ShapeUnknown}
	}
	text := string(data)
	// json.Unmarshal accepts null into a string as a no-op
	if text == "null" {
		return RawIdentity{Shape: ShapeUnknown, Text: text}
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return RawIdentity{Shape: ShapeBare, Value: s, Text: text}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err == nil {
		if id, ok := wrappedID(obj[wrappedField]); ok {
			return RawIdentity{Shape: ShapeWrapped, Value: id, Text: text}
		}
		return RawIdentity{Shape: ShapeUnknown, Text: text}
	}

	switch data[0] {
	case '[', 'n':
		return RawIdentity{Shape: ShapeUnknown, Text: text}
	}
	// Numbers and booleans are identifiers in their literal form.
	return RawIdentity{Shape: ShapeBare, Value: text, Text: text}
}

// wrappedID unwraps a truthy scalar inner value: a non-empty string,
// a non-zero number or true. Anything else leaves the object unwrapped.
func wrappedID(inner json.RawMessage) (string, bool) {
	var id string
	if err := json.Unmarshal(inner, &id); err == nil && string(inner) != "null" {
		return id, id != ""
	}
	var n json.Number
	if err := json.Unmarshal(inner, &n); err == nil {
		f, err := n.Float64()
		return n.String(), err == nil && f != 0
	}
	var b bool
	if err := json.Unmarshal(inner, &b); err == nil && b {
		return "true", true
	}
	return "", false
}

// Normalize extracts the canonical participant identifier.
func (r RawIdentity) Normalize() ParticipantID {
	switch r.Shape {
	case ShapeBare, ShapeWrapped:
		return ParticipantID(r.Value)
	default:
		return ParticipantID(r.Text)
	}
}

// Raw returns the value as received, without unwrapping.
func (r RawIdentity) Raw() ParticipantID {
	if r.Shape == ShapeBare {
		return ParticipantID(r.Value)
	}
	return ParticipantID(r.Text)
}

func (r RawIdentity) Ambiguous() bool {
	return r.Shape == ShapeUnknown
}
