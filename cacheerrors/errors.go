// Package cacheerrors defines the error taxonomy shared across every tier of
// the cache: a single CacheError root with two runtime kinds
// (ConnectionError, SerializationError) plus a construction-time
// ConfigurationError and a ConnectionError subtype raised by the circuit
// breaker's short-circuit.
package cacheerrors

import (
	"fmt"
	"strings"
)

// Kind identifies which branch of the taxonomy an error belongs to.
type Kind string

const (
	// KindConnection marks L2 connectivity, timeout, auth, or protocol
	// failures, and breaker short-circuits.
	KindConnection Kind = "connection"
	// KindSerialization marks serializer input/output failures.
	KindSerialization Kind = "serialization"
	// KindConfiguration marks construction-time configuration errors.
	KindConfiguration Kind = "configuration"
)

// CacheError is the root of the taxonomy. Errors that originate from the
// library itself are *CacheError values, except a breaker short-circuit,
// which is a *BreakerOpenError, and the aggregated validation error, which
// wraps *CacheError values.
type CacheError struct {
	Kind    Kind
	Message string
	Cause   error
	Context map[string]interface{}
}

func (e *CacheError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, " (cause: %v)", e.Cause)
	}
	if len(e.Context) > 0 {
		b.WriteString(" [")
		first := true
		for k, v := range e.Context {
			if !first {
				b.WriteString(", ")
			}
			first = false
			fmt.Fprintf(&b, "%s=%v", k, v)
		}
		b.WriteString("]")
	}
	return b.String()
}

// Unwrap exposes the underlying cause to errors.Is/errors.As.
func (e *CacheError) Unwrap() error {
	return e.Cause
}

// WithContext attaches a diagnostic key-value pair and returns the receiver
// for chaining.
func (e *CacheError) WithContext(key string, value interface{}) *CacheError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewConnectionError builds a connection-kind CacheError.
func NewConnectionError(backend, msg string, cause error) *CacheError {
	return &CacheError{
		Kind:    KindConnection,
		Message: msg,
		Cause:   cause,
		Context: map[string]interface{}{"backend": backend},
	}
}

// NewSerializationError builds a serialization-kind CacheError.
func NewSerializationError(key, serializer, msg string, cause error) *CacheError {
	return &CacheError{
		Kind:    KindSerialization,
		Message: msg,
		Cause:   cause,
		Context: map[string]interface{}{"key": key, "serializer": serializer},
	}
}

// NewConfigurationError builds a configuration-kind CacheError, raised only
// at construction time, never at runtime.
func NewConfigurationError(field, msg string) *CacheError {
	return &CacheError{
		Kind:    KindConfiguration,
		Message: msg,
		Context: map[string]interface{}{"field": field},
	}
}

// IsKind reports whether err is a *CacheError of the given kind.
func IsKind(err error, kind Kind) bool {
	ce, ok := err.(*CacheError)
	return ok && ce.Kind == kind
}

// IsConnection reports whether err is a connection-kind CacheError,
// including a breaker short-circuit (*BreakerOpenError).
func IsConnection(err error) bool {
	if _, ok := err.(*BreakerOpenError); ok {
		return true
	}
	return IsKind(err, KindConnection)
}

// IsSerialization reports whether err is a serialization-kind CacheError.
func IsSerialization(err error) bool {
	return IsKind(err, KindSerialization)
}

// BreakerOpenError is raised when the circuit breaker short-circuits a call
// without invoking the wrapped operation. It is a distinguished
// ConnectionError subtype so coordinator logging can tell a short-circuit
// from a real L2 failure without parsing strings.
type BreakerOpenError struct {
	Name             string
	ConsecutiveFails int
}

func (e *BreakerOpenError) Error() string {
	return fmt.Sprintf("connection: circuit breaker %q is open (%d consecutive failures)", e.Name, e.ConsecutiveFails)
}

// AsCacheError converts the short-circuit into the equivalent
// connection-kind *CacheError for callers that only check the root
// taxonomy. errors.As does not call it; callers convert explicitly.
func (e *BreakerOpenError) AsCacheError() *CacheError {
	return &CacheError{
		Kind:    KindConnection,
		Message: e.Error(),
		Context: map[string]interface{}{"breaker": e.Name, "consecutive_failures": e.ConsecutiveFails},
	}
}
