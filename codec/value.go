package codec

// Kind discriminates the variants a cache payload may carry.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindStructured
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindStructured:
		return "structured"
	default:
		return "invalid"
	}
}

// Value is the tagged union accepted by the codec: a scalar (text, integer,
// float, boolean) or a structured container (slices, maps, structs that the
// configured structured encoding can represent). The codec matches on the
// tag, never on reflection over arbitrary caller types, so anything outside
// these variants is rejected up front instead of being guessed at.
type Value struct {
	kind Kind
	str  string
	i64  int64
	f64  float64
	b    bool
	obj  any
}

// String wraps a text scalar.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Int wraps an integer scalar.
func Int(i int64) Value { return Value{kind: KindInt, i64: i} }

// Float wraps a float scalar.
func Float(f float64) Value { return Value{kind: KindFloat, f64: f} }

// Bool wraps a boolean scalar.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Structured wraps a container value. The concrete type must be encodable by
// the structured encoding in use (for the default JSON encoding: slices, maps
// with string keys, exported structs, and JSON scalars). Structured values
// round-trip through the encoding's generic data model, e.g. JSON decodes
// back as map[string]any / []any / float64.
func Structured(v any) Value { return Value{kind: KindStructured, obj: v} }

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsZero reports whether v is the zero Value (no variant set).
func (v Value) IsZero() bool { return v.kind == KindInvalid }

// Text returns the string scalar, ok=false for other variants.
func (v Value) Text() (string, bool) { return v.str, v.kind == KindString }

// Int64 returns the integer scalar, ok=false for other variants.
func (v Value) Int64() (int64, bool) { return v.i64, v.kind == KindInt }

// Float64 returns the float scalar, ok=false for other variants.
func (v Value) Float64() (float64, bool) { return v.f64, v.kind == KindFloat }

// Bool returns the boolean scalar, ok=false for other variants.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// Object returns the structured payload, ok=false for other variants.
func (v Value) Object() (any, bool) { return v.obj, v.kind == KindStructured }

// Interface returns the wrapped value regardless of variant; nil for the
// zero Value.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return v.i64
	case KindFloat:
		return v.f64
	case KindBool:
		return v.b
	case KindStructured:
		return v.obj
	default:
		return nil
	}
}
