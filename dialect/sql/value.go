package sql

import (
	"bytes"
	"database/sql/driver"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/vellum"
)

// Kind is the kind of a bind Value.
type Kind uint8

// Value kinds.
const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindDecimal
	KindText
	KindDateTime
	KindBytes
	KindGUID
	KindParam
)

var kindNames = [...]string{
	KindNull:     "null",
	KindBool:     "bool",
	KindInt:      "int",
	KindDecimal:  "decimal",
	KindText:     "text",
	KindDateTime: "datetime",
	KindBytes:    "bytes",
	KindGUID:     "guid",
	KindParam:    "param",
}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a bind value. The set of kinds is closed: every value the
// compiler renders or binds is one of the Kind constants. The zero Value
// is NULL.
type Value struct {
	kind  Kind
	i     int64
	s     string
	t     time.Time
	b     []byte
	d     *big.Rat
	scale int
	u     uuid.UUID
}

// Null is the NULL value.
var Null = Value{}

// BoolValue returns a boolean value.
func BoolValue(v bool) Value {
	if v {
		return Value{kind: KindBool, i: 1}
	}
	return Value{kind: KindBool}
}

// IntValue returns an integer value. All integer widths are widened to int64.
func IntValue(v int64) Value { return Value{kind: KindInt, i: v} }

// TextValue returns a text value.
func TextValue(s string) Value { return Value{kind: KindText, s: s} }

// TimeValue returns a date/time value.
func TimeValue(t time.Time) Value { return Value{kind: KindDateTime, t: t} }

// BytesValue returns a binary value. A nil slice is NULL.
func BytesValue(b []byte) Value {
	if b == nil {
		return Null
	}
	return Value{kind: KindBytes, b: b}
}

// GUIDValue returns a GUID value.
func GUIDValue(u uuid.UUID) Value { return Value{kind: KindGUID, u: u} }

// ParamValue returns a reference to a named runtime parameter.
func ParamValue(name string) Value { return Value{kind: KindParam, s: name} }

// RatValue returns an exact decimal value rendered with the given scale.
func RatValue(r *big.Rat, scale int) Value {
	if r == nil {
		return Null
	}
	if scale < 0 {
		scale = 0
	}
	return Value{kind: KindDecimal, d: new(big.Rat).Set(r), scale: scale}
}

// DecimalValue parses an exact decimal literal such as "-12.50" or "1.5e3".
func DecimalValue(s string) (Value, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsRune(s, '/') {
		return Null, vellum.NewInvalidArgumentError("decimal", "malformed decimal %q", s)
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return Null, vellum.NewInvalidArgumentError("decimal", "malformed decimal %q", s)
	}
	mant, exp := s, 0
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		e, err := strconv.Atoi(s[i+1:])
		if err != nil {
			return Null, vellum.NewInvalidArgumentError("decimal", "malformed exponent in %q", s)
		}
		mant, exp = s[:i], e
	}
	scale := 0
	if i := strings.IndexByte(mant, '.'); i >= 0 {
		scale = len(mant) - i - 1
	}
	return RatValue(r, scale-exp), nil
}

// MustDecimal is like DecimalValue but panics on error.
func MustDecimal(s string) Value {
	v, err := DecimalValue(s)
	if err != nil {
		panic(err)
	}
	return v
}

// ValueOf converts a Go value to a bind Value.
func ValueOf(v any) (Value, error) {
	switch v := v.(type) {
	case nil:
		return Null, nil
	case Value:
		return v, nil
	case bool:
		return BoolValue(v), nil
	case int:
		return IntValue(int64(v)), nil
	case int8:
		return IntValue(int64(v)), nil
	case int16:
		return IntValue(int64(v)), nil
	case int32:
		return IntValue(int64(v)), nil
	case int64:
		return IntValue(v), nil
	case uint8:
		return IntValue(int64(v)), nil
	case uint16:
		return IntValue(int64(v)), nil
	case uint32:
		return IntValue(int64(v)), nil
	case uint:
		if uint64(v) > math.MaxInt64 {
			return Null, vellum.NewInvalidArgumentError("value", "%d overflows int64", v)
		}
		return IntValue(int64(v)), nil
	case uint64:
		if v > math.MaxInt64 {
			return Null, vellum.NewInvalidArgumentError("value", "%d overflows int64", v)
		}
		return IntValue(int64(v)), nil
	case float32:
		return floatValue(float64(v), 32)
	case float64:
		return floatValue(v, 64)
	case *big.Rat:
		if v == nil {
			return Null, nil
		}
		return RatValue(v, ratScale(v)), nil
	case string:
		return TextValue(v), nil
	case []byte:
		return BytesValue(v), nil
	case time.Time:
		return TimeValue(v), nil
	case *time.Time:
		if v == nil {
			return Null, nil
		}
		return TimeValue(*v), nil
	case uuid.UUID:
		return GUIDValue(v), nil
	case *string:
		if v == nil {
			return Null, nil
		}
		return TextValue(*v), nil
	case *int64:
		if v == nil {
			return Null, nil
		}
		return IntValue(*v), nil
	case driver.Valuer:
		dv, err := v.Value()
		if err != nil {
			return Null, fmt.Errorf("dialect/sql: value: %w", err)
		}
		if _, again := dv.(driver.Valuer); again {
			return Null, vellum.NewInvalidArgumentError("value", "recursive driver.Valuer %T", v)
		}
		return ValueOf(dv)
	}
	return Null, vellum.NewInvalidArgumentError("value", "unsupported Go type %T", v)
}

// MustValue is like ValueOf but panics on error. It is meant for literals in
// predicate construction.
func MustValue(v any) Value {
	val, err := ValueOf(v)
	if err != nil {
		panic(err)
	}
	return val
}

func floatValue(f float64, bits int) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null, vellum.NewInvalidArgumentError("value", "%v has no decimal representation", f)
	}
	return DecimalValue(strconv.FormatFloat(f, 'f', -1, bits))
}

// ratScale returns the smallest number of fractional digits that represents
// r exactly, capped for non-terminating fractions.
func ratScale(r *big.Rat) int {
	const maxScale = 28
	if r.IsInt() {
		return 0
	}
	ten := big.NewInt(10)
	den := new(big.Int).Set(r.Denom())
	for scale := 1; scale <= maxScale; scale++ {
		num := new(big.Int).Mul(r.Num(), new(big.Int).Exp(ten, big.NewInt(int64(scale)), nil))
		if new(big.Int).Mod(num, den).Sign() == 0 {
			return scale
		}
	}
	return maxScale
}

// Kind returns the value kind.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is NULL.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Bool returns the boolean payload.
func (v Value) Bool() (bool, bool) { return v.i != 0, v.kind == KindBool }

// Int returns the integer payload.
func (v Value) Int() (int64, bool) { return v.i, v.kind == KindInt }

// Text returns the text payload.
func (v Value) Text() (string, bool) { return v.s, v.kind == KindText }

// Time returns the date/time payload.
func (v Value) Time() (time.Time, bool) { return v.t, v.kind == KindDateTime }

// Bytes returns the binary payload.
func (v Value) Bytes() ([]byte, bool) { return v.b, v.kind == KindBytes }

// GUID returns the GUID payload.
func (v Value) GUID() (uuid.UUID, bool) { return v.u, v.kind == KindGUID }

// Decimal returns a copy of the decimal payload and its scale.
func (v Value) Decimal() (*big.Rat, int, bool) {
	if v.kind != KindDecimal {
		return nil, 0, false
	}
	return new(big.Rat).Set(v.d), v.scale, true
}

// ParamName returns the referenced parameter name.
func (v Value) ParamName() (string, bool) { return v.s, v.kind == KindParam }

// Any returns the value in a form accepted by database/sql drivers.
// Decimals and GUIDs are passed as their canonical text.
func (v Value) Any() any {
	switch v.kind {
	case KindBool:
		return v.i != 0
	case KindInt:
		return v.i
	case KindDecimal:
		return v.d.FloatString(v.scale)
	case KindText:
		return v.s
	case KindDateTime:
		return v.t
	case KindBytes:
		return v.b
	case KindGUID:
		return v.u.String()
	}
	return nil
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool, KindInt:
		return v.i == o.i
	case KindDecimal:
		return v.d.Cmp(o.d) == 0
	case KindText:
		return v.s == o.s
	case KindParam:
		return Fold(v.s) == Fold(o.s)
	case KindDateTime:
		return v.t.Equal(o.t)
	case KindBytes:
		return bytes.Equal(v.b, o.b)
	case KindGUID:
		return v.u == o.u
	}
	return false
}

// String implements fmt.Stringer.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindBool:
		return strconv.FormatBool(v.i != 0)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindDecimal:
		return v.d.FloatString(v.scale)
	case KindText:
		return strconv.Quote(v.s)
	case KindDateTime:
		return v.t.Format(time.RFC3339Nano)
	case KindBytes:
		return fmt.Sprintf("0x%X", v.b)
	case KindGUID:
		return v.u.String()
	case KindParam:
		return "@" + v.s
	}
	return v.kind.String()
}
