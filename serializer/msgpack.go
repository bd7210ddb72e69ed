package serializer

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/dclobato/resilient-cache/cacheerrors"
)

// MsgpackSerializer encodes values with github.com/vmihailenco/msgpack/v5,
// the idiomatic Go analogue of the original's pickle-based serializer: it
// round-trips full object graphs (structs, slices, maps, nested pointers)
// without requiring exported-field JSON compatibility, at the cost of not
// being human-readable on the wire. Registered under both "msgpack" and
// "pickle" so configuration carried over from the original naming resolves
// to the same implementation.
type MsgpackSerializer struct{}

// GetType implements Serializer. Note the registry, not this method, is
// what determines whether a given instance answers to "msgpack" or
// "pickle"; GetType reports the canonical name.
func (s *MsgpackSerializer) GetType() string { return "msgpack" }

// Serialize implements Serializer.
func (s *MsgpackSerializer) Serialize(value interface{}) ([]byte, error) {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return nil, cacheerrors.NewSerializationError("", "msgpack", "failed to marshal value", err)
	}
	return data, nil
}

// Deserialize implements Serializer.
func (s *MsgpackSerializer) Deserialize(data []byte, dest interface{}) error {
	if err := msgpack.Unmarshal(data, dest); err != nil {
		return cacheerrors.NewSerializationError("", "msgpack", "failed to unmarshal value", err)
	}
	return nil
}
