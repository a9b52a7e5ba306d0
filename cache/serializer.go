package cache

import (
	"strings"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"
	"github.com/vmihailenco/msgpack/v5"
)

// Serializer turns values into text payloads and back. Decode must fail on
// malformed input rather than produce a zero value.
type Serializer interface {
	Encode(v any) (string, error)
	Decode(data string, target any) error
}

type jsonSerializer struct {
	api jsoniter.API
}

// NewJSONSerializer returns a Serializer producing JSON compatible with encoding/json.
func NewJSONSerializer() Serializer {
	return jsonSerializer{api: jsoniter.ConfigCompatibleWithStandardLibrary}
}

func (s jsonSerializer) Encode(v any) (string, error) {
	return s.api.MarshalToString(v)
}

func (s jsonSerializer) Decode(data string, target any) error {
	return s.api.UnmarshalFromString(data, target)
}

type msgpackSerializer struct{}

// NewMsgpackSerializer returns a Serializer producing msgpack. The payload is
// binary, so stores must preserve arbitrary bytes in string values.
func NewMsgpackSerializer() Serializer {
	return msgpackSerializer{}
}

func (msgpackSerializer) Encode(v any) (string, error) {
	buf, err := msgpack.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

func (msgpackSerializer) Decode(data string, target any) error {
	return msgpack.Unmarshal([]byte(data), target)
}

// SerializerByName resolves "json" or "msgpack". An empty name means json.
func SerializerByName(name string) (Serializer, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return NewJSONSerializer(), nil
	case "msgpack":
		return NewMsgpackSerializer(), nil
	}
	return nil, errors.Newf("cache: unknown serializer %q", name)
}
