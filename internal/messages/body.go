package messages

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Type is the category of a message
type Type string

const (
	TypeCommand    Type = "command"
	TypeAPIRequest Type = "api_request"
	TypeHeartbeat  Type = "heartbeat"
)

var (
	ErrUnimplemented   = errors.New("unimplemented")
	ErrMissingArgument = errors.New("missing required argument")
	ErrInvalidPair     = errors.New("pair must be a two-element string array")
)

// Pair is a (name, value) entry of the options or extras sequence.
// It travels as a two-element JSON array: ["name","value"].
type Pair struct {
	Name  string
	Value string
}

func (p Pair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{p.Name, p.Value})
}

func (p *Pair) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPair, err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("%w: got %d elements", ErrInvalidPair, len(raw))
	}
	p.Name, p.Value = raw[0], raw[1]
	return nil
}

// Body is the unit of serialization.
// Field order here is the field order on the wire.
type Body struct {
	Type       Type     `json:"type"`
	Command    string   `json:"command"`
	Subcommand []string `json:"subcommand"`
	Options    []Pair   `json:"options"`
	Extras     []Pair   `json:"extras"`
}

func newBody(t Type) Body {
	return Body{
		Type:       t,
		Subcommand: []string{},
		Options:    []Pair{},
		Extras:     []Pair{},
	}
}

// Encode renders the body as compact JSON. Empty sequences encode as [] rather than null.
func (b Body) Encode() ([]byte, error) {
	out := b.clone()
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message body: %w", err)
	}
	return data, nil
}

func (b Body) clone() Body {
	out := Body{
		Type:       b.Type,
		Command:    b.Command,
		Subcommand: make([]string, len(b.Subcommand)),
		Options:    make([]Pair, len(b.Options)),
		Extras:     make([]Pair, len(b.Extras)),
	}
	copy(out.Subcommand, b.Subcommand)
	copy(out.Options, b.Options)
	copy(out.Extras, b.Extras)
	return out
}

// Decode parses a serialized body. Missing sequences decode as empty ones,
// so Decode followed by Encode reproduces the input of a Serialize call byte for byte.
func Decode(data []byte) (Body, error) {
	var b Body
	if err := json.Unmarshal(data, &b); err != nil {
		return Body{}, fmt.Errorf("failed to decode message body: %w", err)
	}
	return b.clone(), nil
}
