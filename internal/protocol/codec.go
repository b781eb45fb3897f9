package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/mcoot/battlerelay/internal/model"
)

// Subprotocol names negotiated on the websocket handshake
const (
	SubprotocolJSON    = "json"
	SubprotocolMsgpack = "msgpack"
)

// Codec turns envelopes into frames and back
type Codec interface {
	// Name is the subprotocol the codec answers to
	Name() string
	// Binary reports whether frames are binary rather than text
	Binary() bool
	Encode(msg Message) ([]byte, error)
	Decode(frame []byte) (Envelope, error)
	Unmarshal(data []byte, v any) error
}

// Subprotocols lists the supported subprotocols in preference order
func Subprotocols() []string {
	return []string{SubprotocolJSON, SubprotocolMsgpack}
}

// ForSubprotocol returns the codec for a negotiated subprotocol.
// Anything unrecognised, including no subprotocol at all, gets JSON.
func ForSubprotocol(name string) Codec {
	if name == SubprotocolMsgpack {
		return MsgpackCodec{}
	}
	return JSONCodec{}
}

// JSONCodec encodes envelopes as JSON text frames
type JSONCodec struct{}

type jsonEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outboundEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

func (JSONCodec) Name() string { return SubprotocolJSON }
func (JSONCodec) Binary() bool { return false }

func (JSONCodec) Encode(msg Message) ([]byte, error) {
	if msg.Event == "" {
		return nil, fmt.Errorf("encode: empty event name")
	}
	return json.Marshal(outboundEnvelope(msg))
}

func (JSONCodec) Decode(frame []byte) (Envelope, error) {
	if len(frame) == 0 {
		return Envelope{}, fmt.Errorf("decode: empty frame: %w", model.ErrMalformedPayload)
	}
	var e jsonEnvelope
	if err := json.Unmarshal(frame, &e); err != nil {
		return Envelope{}, fmt.Errorf("decode: %w: %v", model.ErrMalformedPayload, err)
	}
	if e.Event == "" {
		return Envelope{}, fmt.Errorf("decode: missing event name: %w", model.ErrMalformedPayload)
	}
	data := []byte(e.Data)
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		data = nil
	}
	return Envelope{Event: e.Event, Data: data}, nil
}

func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// MsgpackCodec encodes envelopes as msgpack binary frames. Struct fields
// use their json tags so both codecs share one set of payload types.
type MsgpackCodec struct{}

type msgpackEnvelope struct {
	Event string             `json:"event"`
	Data  msgpack.RawMessage `json:"data,omitempty"`
}

func (MsgpackCodec) Name() string { return SubprotocolMsgpack }
func (MsgpackCodec) Binary() bool { return true }

func (MsgpackCodec) Encode(msg Message) ([]byte, error) {
	if msg.Event == "" {
		return nil, fmt.Errorf("encode: empty event name")
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(outboundEnvelope(msg)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c MsgpackCodec) Decode(frame []byte) (Envelope, error) {
	if len(frame) == 0 {
		return Envelope{}, fmt.Errorf("decode: empty frame: %w", model.ErrMalformedPayload)
	}
	var e msgpackEnvelope
	if err := c.Unmarshal(frame, &e); err != nil {
		return Envelope{}, fmt.Errorf("decode: %w: %v", model.ErrMalformedPayload, err)
	}
	if e.Event == "" {
		return Envelope{}, fmt.Errorf("decode: missing event name: %w", model.ErrMalformedPayload)
	}
	data := []byte(e.Data)
	// a msgpack nil is the single byte 0xc0
	if len(data) == 1 && data[0] == 0xc0 {
		data = nil
	}
	return Envelope{Event: e.Event, Data: data}, nil
}

func (MsgpackCodec) Unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}
