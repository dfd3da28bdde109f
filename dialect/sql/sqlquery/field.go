package sqlquery

import (
	"strings"
	"time"
)

// Field is a typed column name that builds predicates comparing the column
// with bind parameters. Parameter names are derived from the column and
// parameter types come from the catalog.
//
//	var (
//	    LastName = sqlquery.Field[string]("LastName")
//	    Age      = sqlquery.Field[int]("Age")
//	)
//	b.SetWhereCondition(sqlquery.And(LastName.EQ("Smith"), Age.GTE(18)))
//
// A dotted name ("T2.LastName") refers to the column of another join node.
type Field[T any] string

// Common field types.
type (
	StringField = Field[string]
	IntField    = Field[int]
	Int64Field  = Field[int64]
	BoolField   = Field[bool]
	TimeField   = Field[time.Time]
)

// Name returns the column name without the alias.
func (f Field[T]) Name() string { return f.Ref().Column }

// Ref returns the column reference of the field.
func (f Field[T]) Ref() *ColumnRef { return Col(string(f)) }

// Of returns the field qualified with the given join alias.
func (f Field[T]) Of(alias string) Field[T] {
	name := string(f)
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		name = name[i+1:]
	}
	return Field[T](alias + "." + name)
}

func (f Field[T]) cmp(op Op, v T) Node {
	ref := f.Ref()
	return compare(op, ref, Bind("", ref, v))
}

// EQ returns a predicate that checks if the field equals the given value.
func (f Field[T]) EQ(v T) Node { return f.cmp(OpEQ, v) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f Field[T]) NEQ(v T) Node { return f.cmp(OpNEQ, v) }

// GT returns a predicate that checks if the field is greater than the given value.
func (f Field[T]) GT(v T) Node { return f.cmp(OpGT, v) }

// GTE returns a predicate that checks if the field is greater than or equal to the given value.
func (f Field[T]) GTE(v T) Node { return f.cmp(OpGTE, v) }

// LT returns a predicate that checks if the field is less than the given value.
func (f Field[T]) LT(v T) Node { return f.cmp(OpLT, v) }

// LTE returns a predicate that checks if the field is less than or equal to the given value.
func (f Field[T]) LTE(v T) Node { return f.cmp(OpLTE, v) }

// In returns a predicate that checks if the field value is in the given list.
func (f Field[T]) In(vs ...T) Node {
	if len(vs) == 0 {
		return invalid(string(f), "IN requires at least one value")
	}
	return In(f.Ref(), anys(vs)...)
}

// NotIn returns a predicate that checks if the field value is not in the given list.
func (f Field[T]) NotIn(vs ...T) Node {
	if len(vs) == 0 {
		return invalid(string(f), "NOT IN requires at least one value")
	}
	return NotIn(f.Ref(), anys(vs)...)
}

// Between returns a predicate that checks if the field is within [low, high].
func (f Field[T]) Between(low, high T) Node {
	return Between(f.Ref(), low, high)
}

// IsNull returns a predicate that checks if the field is NULL.
func (f Field[T]) IsNull() Node { return IsNull(f.Ref()) }

// NotNull returns a predicate that checks if the field is not NULL.
func (f Field[T]) NotNull() Node { return NotNull(f.Ref()) }

func anys[T any](vs []T) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}
