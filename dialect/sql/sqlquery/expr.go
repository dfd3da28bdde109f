package sqlquery

import (
	"strconv"
	"strings"

	"github.com/syssam/vellum"
	"github.com/syssam/vellum/dialect/sql"
)

// Node is a predicate or value expression. The set of node types is closed;
// the compiler rejects anything else with an UnsupportedExpression error.
type Node interface {
	node()
}

// Op is a comparison operator.
type Op uint8

// Comparison operators.
const (
	OpEQ Op = iota
	OpNEQ
	OpLT
	OpLTE
	OpGT
	OpGTE
	OpLike
)

var ops = [...]string{
	OpEQ:   "=",
	OpNEQ:  "<>",
	OpLT:   "<",
	OpLTE:  "<=",
	OpGT:   ">",
	OpGTE:  ">=",
	OpLike: "LIKE",
}

// String returns the SQL spelling of the operator.
func (o Op) String() string {
	if int(o) < len(ops) {
		return ops[o]
	}
	return "op(" + strconv.Itoa(int(o)) + ")"
}

type (
	// AndExpr is the conjunction of two nodes.
	AndExpr struct{ Left, Right Node }

	// OrExpr is the disjunction of two nodes.
	OrExpr struct{ Left, Right Node }

	// NotExpr negates a node.
	NotExpr struct{ Expr Node }

	// Comparison compares two nodes.
	Comparison struct {
		Op          Op
		Left, Right Node
	}

	// ColumnRef references a column. Table holds the alias of a join node;
	// when empty the column belongs to the node being compiled (the join
	// node for ON predicates and projections, the main node elsewhere).
	ColumnRef struct {
		Table  string
		Column string
	}

	// ParamRef references a bind parameter.
	//
	// When Param is set it is registered as is. Otherwise a parameter named
	// Name holding Value is created; when Column is set its type is taken
	// from the catalog column, and an empty Name is derived from the column.
	ParamRef struct {
		Name   string
		Column *ColumnRef
		Value  sql.Value
		Param  *sql.Parameter
	}

	// ConstRef is a constant rendered as a dialect literal. A Param kind
	// value renders the bind token of an already registered parameter.
	ConstRef struct {
		Value sql.Value
	}

	// FunctionCall calls a SQL function.
	FunctionCall struct {
		Name string
		Args []Node
	}

	// InClause tests a column against a list of values. Every value becomes
	// a generated parameter.
	InClause struct {
		Column *ColumnRef
		Values []sql.Value
		Not    bool
	}

	// BetweenClause tests a column against an inclusive range.
	BetweenClause struct {
		Column    *ColumnRef
		Low, High sql.Value
		Not       bool
	}

	// badNode carries a construction error to compile time.
	badNode struct{ err error }
)

func (*AndExpr) node()       {}
func (*OrExpr) node()        {}
func (*NotExpr) node()       {}
func (*Comparison) node()    {}
func (*ColumnRef) node()     {}
func (*ParamRef) node()      {}
func (*ConstRef) node()      {}
func (*FunctionCall) node()  {}
func (*InClause) node()      {}
func (*BetweenClause) node() {}
func (*badNode) node()       {}

// C returns a reference to a column of the join node with the given alias.
func C(alias, column string) *ColumnRef {
	return &ColumnRef{Table: alias, Column: column}
}

// Col returns a column reference resolved against the node being compiled.
// A dotted name ("T2.Name") is split into alias and column.
func Col(column string) *ColumnRef {
	if i := strings.LastIndexByte(column, '.'); i > 0 {
		return &ColumnRef{Table: column[:i], Column: column[i+1:]}
	}
	return &ColumnRef{Column: column}
}

// V returns a constant. Unsupported Go values fail when the node is
// compiled.
func V(v any) Node {
	val, err := sql.ValueOf(v)
	if err != nil {
		return &badNode{err: err}
	}
	return &ConstRef{Value: val}
}

// Null returns the NULL constant.
func Null() *ConstRef {
	return &ConstRef{Value: sql.Null}
}

// Ref renders the bind token of a parameter registered with
// Builder.AddParameter.
func Ref(name string) *ConstRef {
	return &ConstRef{Value: sql.ParamValue(name)}
}

// P returns a named parameter typed from its value.
func P(name string, v any) Node {
	val, err := sql.ValueOf(v)
	if err != nil {
		return &badNode{err: err}
	}
	return &ParamRef{Name: name, Value: val}
}

// Bind returns a parameter typed from the catalog column it is compared
// with. An empty name is derived from the column.
func Bind(name string, column *ColumnRef, v any) Node {
	val, err := sql.ValueOf(v)
	if err != nil {
		return &badNode{err: err}
	}
	return &ParamRef{Name: name, Column: column, Value: val}
}

// Param returns a reference to an explicit parameter.
func Param(p *sql.Parameter) *ParamRef {
	return &ParamRef{Name: p.Name, Param: p}
}

// Func returns a function call.
func Func(name string, args ...Node) *FunctionCall {
	return &FunctionCall{Name: name, Args: args}
}

func compare(op Op, l, r Node) *Comparison {
	return &Comparison{Op: op, Left: l, Right: r}
}

// EQ returns l = r. A NULL on the right renders as "is NULL".
func EQ(l, r Node) *Comparison { return compare(OpEQ, l, r) }

// NEQ returns l <> r. A NULL on the right renders as "is not NULL".
func NEQ(l, r Node) *Comparison { return compare(OpNEQ, l, r) }

// LT returns l < r.
func LT(l, r Node) *Comparison { return compare(OpLT, l, r) }

// LTE returns l <= r.
func LTE(l, r Node) *Comparison { return compare(OpLTE, l, r) }

// GT returns l > r.
func GT(l, r Node) *Comparison { return compare(OpGT, l, r) }

// GTE returns l >= r.
func GTE(l, r Node) *Comparison { return compare(OpGTE, l, r) }

// Like returns l LIKE r.
func Like(l, r Node) *Comparison { return compare(OpLike, l, r) }

// IsNull returns "n is NULL".
func IsNull(n Node) *Comparison { return EQ(n, Null()) }

// NotNull returns "n is not NULL".
func NotNull(n Node) *Comparison { return NEQ(n, Null()) }

// And folds nodes left to right into a conjunction. Nil nodes are skipped.
func And(nodes ...Node) Node {
	return fold(nodes, func(l, r Node) Node { return &AndExpr{Left: l, Right: r} })
}

// Or folds nodes left to right into a disjunction. Nil nodes are skipped.
func Or(nodes ...Node) Node {
	return fold(nodes, func(l, r Node) Node { return &OrExpr{Left: l, Right: r} })
}

func fold(nodes []Node, join func(l, r Node) Node) Node {
	var acc Node
	for _, n := range nodes {
		switch {
		case n == nil:
		case acc == nil:
			acc = n
		default:
			acc = join(acc, n)
		}
	}
	return acc
}

// Not negates n.
func Not(n Node) *NotExpr {
	return &NotExpr{Expr: n}
}

func values(vs []any) ([]sql.Value, error) {
	out := make([]sql.Value, len(vs))
	for i, v := range vs {
		val, err := sql.ValueOf(v)
		if err != nil {
			return nil, err
		}
		out[i] = val
	}
	return out, nil
}

// In returns "column IN (...)".
func In(column *ColumnRef, vs ...any) Node {
	vals, err := values(vs)
	if err != nil {
		return &badNode{err: err}
	}
	return &InClause{Column: column, Values: vals}
}

// NotIn returns "column NOT IN (...)".
func NotIn(column *ColumnRef, vs ...any) Node {
	vals, err := values(vs)
	if err != nil {
		return &badNode{err: err}
	}
	return &InClause{Column: column, Values: vals, Not: true}
}

// Between returns "column BETWEEN low AND high".
func Between(column *ColumnRef, low, high any) Node {
	vals, err := values([]any{low, high})
	if err != nil {
		return &badNode{err: err}
	}
	return &BetweenClause{Column: column, Low: vals[0], High: vals[1]}
}

// HasPrefix returns "column LIKE :p" with p = prefix + "%". Wildcards in
// prefix keep their LIKE meaning.
func HasPrefix(column *ColumnRef, prefix string) Node {
	return Like(column, &ParamRef{Column: column, Value: sql.TextValue(prefix + "%")})
}

// HasSuffix returns "column LIKE :p" with p = "%" + suffix.
func HasSuffix(column *ColumnRef, suffix string) Node {
	return Like(column, &ParamRef{Column: column, Value: sql.TextValue("%" + suffix)})
}

// Contains returns "column LIKE :p" with p = "%" + sub + "%".
func Contains(column *ColumnRef, sub string) Node {
	return Like(column, &ParamRef{Column: column, Value: sql.TextValue("%" + sub + "%")})
}

// invalid returns a node failing compilation with an InvalidArgument error.
func invalid(name, format string, args ...any) Node {
	return &badNode{err: vellum.NewInvalidArgumentError(name, format, args...)}
}
