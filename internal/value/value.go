// Package value defines the closed set of values that can be stored under a key.
package value

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/vmihailenco/msgpack/v5"
)

type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindBytes
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindBytes:
		return "bytes"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Value is an immutable tagged union. The zero Value is null.
type Value struct {
	kind   Kind
	str    string
	num    float64
	b      bool
	raw    []byte
	list   []Value
	fields map[string]Value
}

var (
	_ msgpack.CustomEncoder = Value{}
	_ msgpack.CustomDecoder = (*Value)(nil)
	_ json.Marshaler        = Value{}
	_ json.Unmarshaler      = (*Value)(nil)
)

func Null() Value               { return Value{} }
func String(s string) Value     { return Value{kind: KindString, str: s} }
func Number(n float64) Value    { return Value{kind: KindNumber, num: n} }
func Bool(b bool) Value         { return Value{kind: KindBool, b: b} }
func Bytes(p []byte) Value      { return Value{kind: KindBytes, raw: append([]byte(nil), p...)} }
func List(items ...Value) Value { return Value{kind: KindList, list: append([]Value{}, items...)} }

// Map copies fields into a new map value.
func Map(fields map[string]Value) Value {
	m := make(map[string]Value, len(fields))
	for k, v := range fields {
		m[k] = v
	}
	return Value{kind: KindMap, fields: m}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }
func (v Value) AsBool() (bool, bool)      { return v.b, v.kind == KindBool }

func (v Value) AsBytes() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return append([]byte(nil), v.raw...), true
}

func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return append([]Value{}, v.list...), true
}

func (v Value) AsMap() (map[string]Value, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	m := make(map[string]Value, len(v.fields))
	for k, f := range v.fields {
		m[k] = f
	}
	return m, true
}

// Field returns a direct child of a map value.
func (v Value) Field(name string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	f, ok := v.fields[name]
	return f, ok
}

// Len is the number of list items or map fields, zero for scalars.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.fields)
	}
	return 0
}

// Equal reports deep equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindBytes:
		return string(v.raw) == string(o.raw)
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.fields) != len(o.fields) {
			return false
		}
		for k, f := range v.fields {
			g, ok := o.fields[k]
			if !ok || !f.Equal(g) {
				return false
			}
		}
		return true
	}
	return false
}

// From converts a plain Go value into a Value. Integers and floats become
// numbers, []any and map[string]any are converted recursively.
func From(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case *Value:
		if t == nil {
			return Null(), nil
		}
		return *t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case []byte:
		return Bytes(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int8:
		return Number(float64(t)), nil
	case int16:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case uint:
		return Number(float64(t)), nil
	case uint8:
		return Number(float64(t)), nil
	case uint16:
		return Number(float64(t)), nil
	case uint32:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return Value{}, errors.Wrapf(err, "value: invalid number %q", t)
		}
		return Number(n), nil
	case []Value:
		return List(t...), nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			iv, err := From(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = iv
		}
		return Value{kind: KindList, list: items}, nil
	case []string:
		items := make([]Value, len(t))
		for i, s := range t {
			items[i] = String(s)
		}
		return Value{kind: KindList, list: items}, nil
	case map[string]Value:
		return Map(t), nil
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, item := range t {
			iv, err := From(item)
			if err != nil {
				return Value{}, err
			}
			fields[k] = iv
		}
		return Value{kind: KindMap, fields: fields}, nil
	case map[any]any:
		fields := make(map[string]Value, len(t))
		for k, item := range t {
			ks, ok := k.(string)
			if !ok {
				return Value{}, errors.Newf("value: map key %v is %T, want string", k, k)
			}
			iv, err := From(item)
			if err != nil {
				return Value{}, err
			}
			fields[ks] = iv
		}
		return Value{kind: KindMap, fields: fields}, nil
	}
	return Value{}, errors.Newf("value: unsupported type %T", x)
}

// MustFrom is From for literals known to be convertible.
func MustFrom(x any) Value {
	v, err := From(x)
	if err != nil {
		panic(err)
	}
	return v
}

// Interface returns the plain Go representation: nil, string, float64, bool,
// []byte, []any or map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindBytes:
		return append([]byte(nil), v.raw...)
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.fields))
		for k, f := range v.fields {
			out[k] = f.Interface()
		}
		return out
	}
	return nil
}

func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindBytes:
		return fmt.Sprintf("bytes(%d)", len(v.raw))
	}
	b, err := json.Marshal(v)
	if err != nil {
		return v.kind.String()
	}
	return string(b)
}

// BytesField is the single key of the JSON object that carries a bytes
// value: {"$bytes": "<base64>"}.
const BytesField = "$bytes"

func (v Value) MarshalJSON() ([]byte, error) {
	x, err := v.jsonTree()
	if err != nil {
		return nil, err
	}
	return json.Marshal(x)
}

// jsonTree is Interface with bytes wrapped in a BytesField object so the
// kind survives a JSON round trip.
func (v Value) jsonTree() (any, error) {
	switch v.kind {
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return nil, errors.Newf("value: %v is not representable in JSON", v.num)
		}
		return v.num, nil
	case KindBytes:
		return map[string]string{BytesField: base64.StdEncoding.EncodeToString(v.raw)}, nil
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			x, err := item.jsonTree()
			if err != nil {
				return nil, err
			}
			out[i] = x
		}
		return out, nil
	case KindMap:
		out := make(map[string]any, len(v.fields))
		for k, f := range v.fields {
			x, err := f.jsonTree()
			if err != nil {
				return nil, err
			}
			out[k] = x
		}
		return out, nil
	}
	return v.Interface(), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return err
	}
	out, err := fromJSON(x)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

func fromJSON(x any) (Value, error) {
	switch t := x.(type) {
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			iv, err := fromJSON(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = iv
		}
		return Value{kind: KindList, list: items}, nil
	case map[string]any:
		if enc, ok := t[BytesField].(string); ok && len(t) == 1 {
			raw, err := base64.StdEncoding.DecodeString(enc)
			if err != nil {
				return Value{}, errors.Wrapf(err, "value: invalid %s payload", BytesField)
			}
			return Bytes(raw), nil
		}
		fields := make(map[string]Value, len(t))
		for k, item := range t {
			iv, err := fromJSON(item)
			if err != nil {
				return Value{}, err
			}
			fields[k] = iv
		}
		return Value{kind: KindMap, fields: fields}, nil
	}
	return From(x)
}

// ParseJSON decodes JSON text into a Value.
func ParseJSON(s string) (Value, error) {
	var v Value
	if err := v.UnmarshalJSON([]byte(s)); err != nil {
		return Value{}, err
	}
	return v, nil
}

func (v Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch v.kind {
	case KindNull:
		return enc.EncodeNil()
	case KindString:
		return enc.EncodeString(v.str)
	case KindNumber:
		return enc.EncodeFloat64(v.num)
	case KindBool:
		return enc.EncodeBool(v.b)
	case KindBytes:
		return enc.EncodeBytes(v.raw)
	case KindList:
		if err := enc.EncodeArrayLen(len(v.list)); err != nil {
			return err
		}
		for _, item := range v.list {
			if err := item.EncodeMsgpack(enc); err != nil {
				return err
			}
		}
		return nil
	case KindMap:
		if err := enc.EncodeMapLen(len(v.fields)); err != nil {
			return err
		}
		keys := make([]string, 0, len(v.fields))
		for k := range v.fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := enc.EncodeString(k); err != nil {
				return err
			}
			if err := v.fields[k].EncodeMsgpack(enc); err != nil {
				return err
			}
		}
		return nil
	}
	return errors.Newf("value: cannot encode %s", v.kind)
}

func (v *Value) DecodeMsgpack(dec *msgpack.Decoder) error {
	x, err := dec.DecodeInterface()
	if err != nil {
		return err
	}
	out, err := From(x)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

// Encode serializes v for storage.
func Encode(v Value) ([]byte, error) {
	return msgpack.Marshal(v)
}

// Decode is the inverse of Encode.
func Decode(data []byte) (Value, error) {
	var v Value
	if err := msgpack.Unmarshal(data, &v); err != nil {
		return Value{}, err
	}
	return v, nil
}
