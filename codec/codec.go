// Package codec converts cache values to and from their stored byte form.
//
// Every encoding is tagged with a method identifier that is persisted in the
// entry's metadata and handed back verbatim at decode time:
//
//	simple     - scalar text encoding ("s:", "i:", "f:", "b:" prefixed)
//	structured - JSON (the default container encoding)
//	msgpack    - vmihailenco/msgpack container encoding (opt-in)
//	cbor       - fxamacker/cbor container encoding (opt-in)
//
// Decode is the exact inverse of Encode for every accepted value. Arbitrary
// caller types outside the Value union are rejected with
// *UnsupportedTypeError rather than silently serialized.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Method identifiers recorded in entry metadata.
const (
	MethodSimple     = "simple"
	MethodStructured = "structured"
	MethodMsgpack    = "msgpack"
	MethodCBOR       = "cbor"
)

// Config tunes a Codec. The zero value is ready to use.
type Config struct {
	// StructuredMethod selects the encoding for container values:
	// MethodStructured (JSON, default), MethodMsgpack, or MethodCBOR.
	// Scalars always use MethodSimple regardless of this setting.
	StructuredMethod string

	// MaxDecode rejects stored payloads larger than this many bytes before
	// decoding. <= 0 disables the limit. Guards against oversized entries
	// written by a misbehaving neighbor on a shared store.
	MaxDecode int
}

// Codec performs tagged encode/decode. Safe for concurrent use.
type Codec struct {
	structured string
	maxDecode  int

	cborEnc cbor.EncMode
	cborDec cbor.DecMode
}

// New validates cfg and builds a Codec. Unknown StructuredMethod values are
// rejected here so a misconfiguration fails at construction, not per call.
func New(cfg Config) (*Codec, error) {
	m := cfg.StructuredMethod
	if m == "" {
		m = MethodStructured
	}
	switch m {
	case MethodStructured, MethodMsgpack, MethodCBOR:
	default:
		return nil, fmt.Errorf("codec: unknown structured method %q", m)
	}

	// CBOR modes are always prepared: entries written by a CBOR-configured
	// peer must stay readable regardless of this codec's own setting.
	eo := cbor.PreferredUnsortedEncOptions()
	eo.Time = cbor.TimeRFC3339Nano
	enc, err := eo.EncMode()
	if err != nil {
		return nil, err
	}
	dec, err := (cbor.DecOptions{}).DecMode()
	if err != nil {
		return nil, err
	}

	return &Codec{
		structured: m,
		maxDecode:  cfg.MaxDecode,
		cborEnc:    enc,
		cborDec:    dec,
	}, nil
}

// StructuredMethod returns the method tag used for container values.
func (c *Codec) StructuredMethod() string { return c.structured }

// Encode serializes v and returns the payload together with the method tag
// to record in metadata. Zero Values and container values the structured
// encoding cannot represent yield *UnsupportedTypeError.
func (c *Codec) Encode(v Value) ([]byte, string, error) {
	switch v.Kind() {
	case KindString:
		return []byte("s:" + v.str), MethodSimple, nil
	case KindInt:
		return []byte("i:" + strconv.FormatInt(v.i64, 10)), MethodSimple, nil
	case KindFloat:
		return []byte("f:" + strconv.FormatFloat(v.f64, 'g', -1, 64)), MethodSimple, nil
	case KindBool:
		return []byte("b:" + strconv.FormatBool(v.b)), MethodSimple, nil
	case KindStructured:
		b, err := c.encodeStructured(v.obj)
		if err != nil {
			return nil, "", &UnsupportedTypeError{Type: fmt.Sprintf("%T", v.obj)}
		}
		return b, c.structured, nil
	default:
		return nil, "", &UnsupportedTypeError{Type: "codec.Value (zero)"}
	}
}

func (c *Codec) encodeStructured(obj any) ([]byte, error) {
	switch c.structured {
	case MethodMsgpack:
		return msgpack.Marshal(obj)
	case MethodCBOR:
		return c.cborEnc.Marshal(obj)
	default:
		return json.Marshal(obj)
	}
}

// Decode reverses Encode using the method recorded in metadata. An empty
// method falls back to the codec's structured default, covering entries whose
// metadata sibling expired or was never written. Corrupt payloads and unknown
// methods yield *SerializationError.
func (c *Codec) Decode(payload []byte, method string) (Value, error) {
	if c.maxDecode > 0 && len(payload) > c.maxDecode {
		return Value{}, &SerializationError{
			Method: method,
			Err:    fmt.Errorf("payload too large: %d > %d", len(payload), c.maxDecode),
		}
	}
	if method == "" {
		method = c.structured
	}

	switch method {
	case MethodSimple:
		return decodeSimple(payload)
	case MethodStructured:
		var obj any
		if err := json.Unmarshal(payload, &obj); err != nil {
			return Value{}, &SerializationError{Method: method, Err: err}
		}
		return Structured(obj), nil
	case MethodMsgpack:
		var obj any
		if err := msgpack.Unmarshal(payload, &obj); err != nil {
			return Value{}, &SerializationError{Method: method, Err: err}
		}
		return Structured(obj), nil
	case MethodCBOR:
		var obj any
		if err := c.cborDec.Unmarshal(payload, &obj); err != nil {
			return Value{}, &SerializationError{Method: method, Err: err}
		}
		return Structured(obj), nil
	default:
		return Value{}, &SerializationError{
			Method: method,
			Err:    errors.New("unknown method tag"),
		}
	}
}

func decodeSimple(payload []byte) (Value, error) {
	s := string(payload)
	tag, rest, ok := strings.Cut(s, ":")
	if !ok || len(tag) != 1 {
		return Value{}, &SerializationError{Method: MethodSimple, Err: errors.New("missing type prefix")}
	}
	switch tag {
	case "s":
		return String(rest), nil
	case "i":
		i, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			return Value{}, &SerializationError{Method: MethodSimple, Err: err}
		}
		return Int(i), nil
	case "f":
		f, err := strconv.ParseFloat(rest, 64)
		if err != nil {
			return Value{}, &SerializationError{Method: MethodSimple, Err: err}
		}
		return Float(f), nil
	case "b":
		b, err := strconv.ParseBool(rest)
		if err != nil {
			return Value{}, &SerializationError{Method: MethodSimple, Err: err}
		}
		return Bool(b), nil
	default:
		return Value{}, &SerializationError{
			Method: MethodSimple,
			Err:    fmt.Errorf("unknown scalar prefix %q", tag),
		}
	}
}
