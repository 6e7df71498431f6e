package codec

import "fmt"

// UnsupportedTypeError reports a value the codec refuses to serialize.
// It indicates a programming mistake at the call site and is never retried.
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("codec: unsupported value type %s", e.Type)
}

// SerializationError reports a stored payload that could not be decoded with
// its recorded method: corrupt bytes, a truncated frame, or a method tag this
// build does not know. Callers treat it as a cache miss.
type SerializationError struct {
	Method string
	Err    error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("codec: decode with method %q failed: %v", e.Method, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }
