// Package serializer defines the pluggable encode/decode boundary between
// cached values and the bytes stored in L2, plus a process-wide registry of
// named implementations. Two are registered by default: "json" and
// "msgpack" (also aliased as "pickle" for callers porting configuration
// written against the original pickle-based naming).
package serializer

import (
	"sync"

	"github.com/dclobato/resilient-cache/cacheerrors"
)

// Serializer converts arbitrary values to and from the byte representation
// stored in L2. Implementations must be safe for concurrent use.
type Serializer interface {
	// GetType returns the registered name of this serializer.
	GetType() string
	// Serialize encodes value into bytes suitable for storage.
	Serialize(value interface{}) ([]byte, error)
	// Deserialize decodes data into dest, a pointer to the destination type.
	Deserialize(data []byte, dest interface{}) error
}

// registry is a thread-safe, append-mostly map of name -> Serializer,
// generalized from the common registry pattern used for other factory
// kinds in this codebase: register-then-lookup, never unregister.
type registry struct {
	mu          sync.RWMutex
	serializers map[string]Serializer
}

func newRegistry() *registry {
	return &registry{serializers: make(map[string]Serializer)}
}

func (r *registry) register(name string, s Serializer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.serializers[name] = s
}

func (r *registry) get(name string) (Serializer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.serializers[name]
	if !ok {
		return nil, cacheerrors.NewConfigurationError("serializer", "unknown serializer "+quote(name)+"; available: "+r.listLocked())
	}
	return s, nil
}

func (r *registry) list() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.serializers))
	for name := range r.serializers {
		out = append(out, name)
	}
	return out
}

// listLocked must be called while holding at least a read lock.
func (r *registry) listLocked() string {
	names := make([]string, 0, len(r.serializers))
	for name := range r.serializers {
		names = append(names, name)
	}
	return join(names)
}

func quote(s string) string { return "\"" + s + "\"" }

func join(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}

var global = newRegistry()

func init() {
	Register("json", &JSONSerializer{})
	ms := &MsgpackSerializer{}
	Register("msgpack", ms)
	Register("pickle", ms)
}

// Register adds a serializer under the given name to the process-wide
// registry, replacing any existing registration of the same name.
func Register(name string, s Serializer) {
	global.register(name, s)
}

// Get looks up a registered serializer by name, returning a
// *cacheerrors.CacheError of kind configuration if it is not registered.
func Get(name string) (Serializer, error) {
	return global.get(name)
}

// List returns the names of all registered serializers.
func List() []string {
	return global.list()
}
