package message

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Inbound is a message received from the device.
type Inbound interface {
	MessageType() string
}

// Outbound is a command sent to the device.
type Outbound interface {
	MessageType() string
}

// DecodeError reports a single frame that could not be decoded.
// It never invalidates the stream the frame came from.
type DecodeError struct {
	Type string // Discriminator, empty if it could not be read
	Raw  []byte
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("decode frame: %v", e.Err)
	}
	return fmt.Sprintf("decode %q frame: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ErrMissingType is returned for objects without a string "type" field.
var ErrMissingType = errors.New("missing type discriminator")

// envelope is used for fast type extraction.
type envelope struct {
	Type *string `json:"type"`
}

// decoders maps a discriminator to a constructor of its concrete type.
var decoders = map[string]func() Inbound{
	TypePong:                 func() Inbound { return &Pong{} },
	TypeBattery:              func() Inbound { return &Battery{} },
	TypeNoDevice:             func() Inbound { return &NoDevice{} },
	TypeCamera:               func() Inbound { return &Camera{} },
	TypeSettings:             func() Inbound { return &Settings{} },
	TypeIntervalometerStatus: func() Inbound { return &IntervalometerStatus{} },
	TypeMotion:               func() Inbound { return &Motion{} },
	TypeTimelapseClips:       func() Inbound { return &TimelapseClips{} },
	TypeTimelapseClipInfo:    func() Inbound { return &TimelapseClipInfo{} },
}

// Known reports whether msgType has a concrete inbound decoder.
func Known(msgType string) bool {
	_, ok := decoders[msgType]
	return ok
}

// Types returns every inbound type with a decoder, sorted.
func Types() []string {
	types := make([]string, 0, len(decoders))
	for t := range decoders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Decode parses one inbound frame.
func Decode(data []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &DecodeError{Raw: data, Err: err}
	}
	if env.Type == nil {
		return nil, &DecodeError{Raw: data, Err: ErrMissingType}
	}

	newMsg, ok := decoders[*env.Type]
	if !ok {
		return &Unknown{Type: *env.Type, Raw: string(data)}, nil
	}

	msg := newMsg()
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, &DecodeError{Type: *env.Type, Raw: data, Err: err}
	}
	return msg, nil
}

// Encode renders an outbound command as a single JSON object with the
// type discriminator merged into its fields. Keys are emitted in sorted
// order so identical commands always produce identical frames.
func Encode(m Outbound) ([]byte, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", m.MessageType(), err)
	}

	fields := map[string]json.RawMessage{}
	if string(body) != "null" {
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, fmt.Errorf("%s is not a JSON object: %w", m.MessageType(), err)
		}
	}

	typ, err := json.Marshal(m.MessageType())
	if err != nil {
		return nil, err
	}
	fields["type"] = typ

	return json.Marshal(fields)
}
