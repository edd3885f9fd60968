package protocol

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec turns an outbound message into one transport frame.
type Codec interface {
	Name() string
	Encode(msgType string, payload any) ([]byte, error)
}

type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Encode(msgType string, payload any) ([]byte, error) {
	return Encode(msgType, payload)
}

// MsgpackCodec is used on the snapshot data channel. Field names follow the
// json tags so both transports carry the same keys.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return "msgpack" }

func (MsgpackCodec) Encode(msgType string, payload any) ([]byte, error) {
	if msgType == "" {
		return nil, errors.New("encode: empty message type")
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	err := enc.Encode(struct {
		Type string `json:"type"`
		Data any    `json:"data"`
	}{msgType, payload})
	if err != nil {
		return nil, errors.Wrap(err, "encode msgpack")
	}
	return buf.Bytes(), nil
}

// DecodeMsgpack is the inverse of MsgpackCodec.Encode for a known payload type.
func DecodeMsgpack[T any](b []byte) (string, T, error) {
	var env struct {
		Type string `json:"type"`
		Data T      `json:"data"`
	}
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(&env); err != nil {
		return "", env.Data, errors.Wrap(err, "decode msgpack")
	}
	return env.Type, env.Data, nil
}

func Encode(msgType string, payload any) ([]byte, error) {
	if msgType == "" {
		return nil, errors.New("encode: empty message type")
	}
	env := Envelope{Type: msgType}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrapf(err, "encode %s payload", msgType)
		}
		env.Data = b
	}
	return json.Marshal(env)
}

func DecodeEnvelope(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, errors.New("decode: empty frame")
	}
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, errors.Wrap(err, "decode envelope")
	}
	if env.Type == "" {
		return Envelope{}, errors.New("decode: missing type")
	}
	return env, nil
}

// DecodePayload unmarshals env.Data into T. A missing payload yields T's zero
// value, since several inbound messages carry none.
func DecodePayload[T any](env Envelope) (T, error) {
	var out T
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return out, errors.Wrapf(err, "decode %s payload", env.Type)
	}
	return out, nil
}
