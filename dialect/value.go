package dialect

import (
	"bytes"
	"fmt"
	"strconv"
)

// Kind identifies the active variant of a Value.
type Kind uint8

// The five database-portable scalar kinds.
const (
	KindNull Kind = iota
	KindInteger
	KindReal
	KindText
	KindBlob
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindText:
		return "text"
	case KindBlob:
		return "blob"
	default:
		return "unknown"
	}
}

// Value is a closed tagged union representing a database-portable scalar.
// Exactly one variant is active. Values are immutable once constructed and
// are the only data that crosses the boundary to a driver as a parameter.
type Value struct {
	kind Kind
	i    int64
	r    float64
	s    string
	b    []byte
}

// Null returns the null Value. The zero Value is also null.
func Null() Value { return Value{kind: KindNull} }

// Integer returns an integer Value.
func Integer(v int64) Value { return Value{kind: KindInteger, i: v} }

// Real returns a floating-point Value.
func Real(v float64) Value { return Value{kind: KindReal, r: v} }

// Text returns a text Value.
func Text(v string) Value { return Value{kind: KindText, s: v} }

// Blob returns a blob Value. The byte slice is not copied.
func Blob(v []byte) Value { return Value{kind: KindBlob, b: v} }

// Bool returns an integer Value encoding the boolean as 0 or 1.
func Bool(v bool) Value {
	if v {
		return Integer(1)
	}
	return Integer(0)
}

// NullableText returns Null for a nil pointer and Text otherwise.
func NullableText(v *string) Value {
	if v == nil {
		return Null()
	}
	return Text(*v)
}

// NullableInteger returns Null for a nil pointer and Integer otherwise.
func NullableInteger(v *int64) Value {
	if v == nil {
		return Null()
	}
	return Integer(*v)
}

// NullableReal returns Null for a nil pointer and Real otherwise.
func NullableReal(v *float64) Value {
	if v == nil {
		return Null()
	}
	return Real(*v)
}

// NullableBool returns Null for a nil pointer and Bool otherwise.
func NullableBool(v *bool) Value {
	if v == nil {
		return Null()
	}
	return Bool(*v)
}

// Kind returns the active variant of the value.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the null variant is active.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Int64 returns the integer payload. It fails unless the integer variant
// is active.
func (v Value) Int64() (int64, error) {
	if v.kind != KindInteger {
		return 0, fmt.Errorf("dialect: value is %s, not integer", v.kind)
	}
	return v.i, nil
}

// Float64 returns the floating-point payload. Integer values convert
// losslessly; any other variant fails.
func (v Value) Float64() (float64, error) {
	switch v.kind {
	case KindReal:
		return v.r, nil
	case KindInteger:
		return float64(v.i), nil
	default:
		return 0, fmt.Errorf("dialect: value is %s, not real", v.kind)
	}
}

// Text returns the text payload. It fails unless the text variant is active.
func (v Value) Text() (string, error) {
	if v.kind != KindText {
		return "", fmt.Errorf("dialect: value is %s, not text", v.kind)
	}
	return v.s, nil
}

// Bytes returns the blob payload. It fails unless the blob variant is active.
func (v Value) Bytes() ([]byte, error) {
	if v.kind != KindBlob {
		return nil, fmt.Errorf("dialect: value is %s, not blob", v.kind)
	}
	return v.b, nil
}

// Bool interprets an integer value as a boolean (0 is false, anything else
// is true).
func (v Value) Bool() (bool, error) {
	i, err := v.Int64()
	if err != nil {
		return false, err
	}
	return i != 0, nil
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindInteger:
		return v.i == o.i
	case KindReal:
		return v.r == o.r
	case KindText:
		return v.s == o.s
	default:
		return bytes.Equal(v.b, o.b)
	}
}

// String returns a debug representation of the value. It is not SQL.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindReal:
		return strconv.FormatFloat(v.r, 'g', -1, 64)
	case KindText:
		return strconv.Quote(v.s)
	default:
		return fmt.Sprintf("x'%x'", v.b)
	}
}
