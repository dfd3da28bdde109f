package sql

import (
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/syssam/vellum"
)

// DbType is the dialect-independent (generic) type of a column or parameter.
type DbType uint8

// Generic types.
const (
	TypeUnknown DbType = iota
	TypeBool
	TypeInt16
	TypeInt32
	TypeInt64
	TypeDecimal
	TypeDouble
	TypeString
	TypeFixedString
	TypeDate
	TypeDateTime
	TypeBinary
	TypeGUID
)

var typeNames = [...]string{
	TypeUnknown:     "unknown",
	TypeBool:        "bool",
	TypeInt16:       "int16",
	TypeInt32:       "int32",
	TypeInt64:       "int64",
	TypeDecimal:     "decimal",
	TypeDouble:      "double",
	TypeString:      "string",
	TypeFixedString: "fixed_string",
	TypeDate:        "date",
	TypeDateTime:    "datetime",
	TypeBinary:      "binary",
	TypeGUID:        "guid",
}

// String returns the type name.
func (t DbType) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "type(" + strconv.Itoa(int(t)) + ")"
}

// IsInteger reports whether t belongs to the integer family.
func (t DbType) IsInteger() bool {
	return t == TypeInt16 || t == TypeInt32 || t == TypeInt64
}

// IsText reports whether t is a character type.
func (t DbType) IsText() bool {
	return t == TypeString || t == TypeFixedString
}

// IsNumeric reports whether t is an integer or a decimal/floating type.
func (t DbType) IsNumeric() bool {
	return t.IsInteger() || t == TypeDecimal || t == TypeDouble
}

// MarshalText implements encoding.TextMarshaler.
func (t DbType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

var hostTypes = map[DbType]reflect.Type{
	TypeBool:        reflect.TypeOf(false),
	TypeInt16:       reflect.TypeOf(int16(0)),
	TypeInt32:       reflect.TypeOf(int32(0)),
	TypeInt64:       reflect.TypeOf(int64(0)),
	TypeDecimal:     reflect.TypeOf((*big.Rat)(nil)),
	TypeDouble:      reflect.TypeOf(float64(0)),
	TypeString:      reflect.TypeOf(""),
	TypeFixedString: reflect.TypeOf(""),
	TypeDate:        reflect.TypeOf(time.Time{}),
	TypeDateTime:    reflect.TypeOf(time.Time{}),
	TypeBinary:      reflect.TypeOf([]byte(nil)),
	TypeGUID:        reflect.TypeOf(uuid.UUID{}),
}

// HostType returns the Go type used to hold values of the generic type t.
// Unknown types map to the empty interface.
func HostType(t DbType) reflect.Type {
	if ht, ok := hostTypes[t]; ok {
		return ht
	}
	return reflect.TypeOf((*any)(nil)).Elem()
}

// TypeOf infers the generic type of a bind value.
func TypeOf(v Value) DbType {
	switch v.kind {
	case KindBool:
		return TypeBool
	case KindInt:
		return TypeInt64
	case KindDecimal:
		return TypeDecimal
	case KindText:
		return TypeString
	case KindDateTime:
		return TypeDateTime
	case KindBytes:
		return TypeBinary
	case KindGUID:
		return TypeGUID
	}
	return TypeUnknown
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// ConvertValue converts a raw value scanned from a database/sql driver into a
// bind Value of the generic type t. Drivers that return textual encodings
// (for example []byte from MySQL) are decoded according to t.
func ConvertValue(src any, t DbType) (Value, error) {
	if src == nil {
		return Null, nil
	}
	var text string
	switch v := src.(type) {
	case []byte:
		if t == TypeBinary {
			return BytesValue(append([]byte(nil), v...)), nil
		}
		if t == TypeGUID && len(v) == 16 {
			u, err := uuid.FromBytes(v)
			if err != nil {
				return Null, err
			}
			return GUIDValue(u), nil
		}
		text = string(v)
	case string:
		text = v
	case int64:
		if t == TypeBool {
			return BoolValue(v != 0), nil
		}
		return IntValue(v), nil
	default:
		return ValueOf(src)
	}
	switch {
	case t.IsInteger():
		n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return Null, vellum.NewInvalidArgumentError("value", "%q is not an integer", text)
		}
		return IntValue(n), nil
	case t == TypeDecimal || t == TypeDouble:
		return DecimalValue(text)
	case t == TypeBool:
		b, err := strconv.ParseBool(strings.TrimSpace(text))
		if err != nil {
			return Null, vellum.NewInvalidArgumentError("value", "%q is not a boolean", text)
		}
		return BoolValue(b), nil
	case t == TypeGUID:
		u, err := uuid.Parse(text)
		if err != nil {
			return Null, vellum.NewInvalidArgumentError("value", "%q is not a guid", text)
		}
		return GUIDValue(u), nil
	case t == TypeDate || t == TypeDateTime:
		for _, layout := range timeLayouts {
			if tm, err := time.Parse(layout, text); err == nil {
				return TimeValue(tm), nil
			}
		}
		return Null, vellum.NewInvalidArgumentError("value", "%q is not a date/time", text)
	case t == TypeBinary:
		return BytesValue([]byte(text)), nil
	}
	return TextValue(text), nil
}

// Fold returns the case-insensitive key of an identifier. Keys produced by
// Fold are used for every catalog, alias and parameter lookup, while the
// original spelling is kept for rendering.
func Fold(name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] >= utf8.RuneSelf {
			return cases.Fold().String(name)
		}
	}
	return strings.ToLower(name)
}

// EqualFold reports whether two identifiers are equal under Fold.
func EqualFold(a, b string) bool {
	return Fold(a) == Fold(b)
}
