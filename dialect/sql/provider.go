package sql

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/vellum"
	"github.com/syssam/vellum/dialect"
)

// Limit is the row limit of a SELECT statement: either a literal row count
// or the name of a runtime parameter holding it.
type Limit struct {
	Rows  int
	Param string
}

// LimitRows returns a literal row limit.
func LimitRows(n int) Limit { return Limit{Rows: n} }

// LimitParam returns a row limit bound to the named parameter.
func LimitParam(name string) Limit { return Limit{Param: name} }

// IsParam reports whether the limit references a parameter.
func (l Limit) IsParam() bool { return l.Param != "" }

// CatalogQuery is a catalog probe ready to be executed: Text already uses
// the driver's native placeholders and Args are positional.
type CatalogQuery struct {
	Text string
	Args []any
}

// Provider isolates everything that differs between SQL dialects. The
// catalog queries must return rows in the following column order:
//
//	columns:      name, ordinal, native type, nullable, identity, has default,
//	              max length, precision, scale
//	primary key:  column, key ordinal
//	indexes:      index, unique, clustered, primary key, column, key ordinal
//	              (0 for include columns), descending, expression
//	foreign keys: constraint, column, referenced schema, referenced table,
//	              referenced column, ordinal
//	table exists: any single row when the table exists
type Provider interface {
	// Name returns the dialect name, one of the dialect package constants.
	Name() string
	// DefaultSchema is used when a lookup does not name a schema.
	DefaultSchema() string
	// MaxIdentifierLength bounds generated parameter and alias names.
	MaxIdentifierLength() int

	// BuildParameterName returns the name a driver-level parameter object uses.
	BuildParameterName(name string) string
	// BuildBindVariableName returns the token referencing name in statement text.
	BuildBindVariableName(name string) string
	// BindPrefix is the prefix of every bind variable token.
	BindPrefix() string
	// BindArgs rewrites statement text to the driver's placeholder style and
	// returns the arguments in binding order.
	BindArgs(text string, params *ParameterSet) (string, []any, error)

	// FormatSelectWithMaxRows wraps a SELECT statement with a row limit.
	FormatSelectWithMaxRows(query string, limit Limit) (string, error)
	// Literal renders a constant value.
	Literal(v Value) (string, error)

	// GenericType maps a native column type to its generic type.
	GenericType(native string, precision, scale int) DbType
	// NativeType maps a generic type to a native column type.
	NativeType(t DbType, size, precision, scale int) string
	// CloneParameter returns an independent copy of p.
	CloneParameter(p *Parameter) *Parameter
	// ParametersEqual reports whether two parameters can share one binding.
	ParametersEqual(a, b *Parameter) bool

	// Terminator separates statements of a compound command.
	Terminator() string
	// CompoundBlock returns the wrapper of a compound command; both are
	// empty when the dialect accepts plain statement lists.
	CompoundBlock() (begin, end string)

	ColumnsQuery(schema, table string) CatalogQuery
	PrimaryKeyQuery(schema, table string) CatalogQuery
	IndexesQuery(schema, table string) CatalogQuery
	ForeignKeysQuery(schema, table string) CatalogQuery
	TableExistsQuery(schema, table string) CatalogQuery
}

// ProviderOption configures a Provider.
type ProviderOption func(*provider)

// WithDefaultSchema overrides the schema used when a lookup names none.
func WithDefaultSchema(schema string) ProviderOption {
	return func(p *provider) {
		p.defaultSchema = schema
	}
}

// WithMaxIdentifierLength overrides the identifier length limit.
func WithMaxIdentifierLength(n int) ProviderOption {
	return func(p *provider) {
		if n > 0 {
			p.maxIdent = n
		}
	}
}

// ProviderFor returns the provider of the named dialect.
func ProviderFor(name string, opts ...ProviderOption) (Provider, error) {
	d, err := dialect.Normalize(name)
	if err != nil {
		return nil, vellum.NewInvalidArgumentError("dialect", "%v", err)
	}
	switch d {
	case dialect.Postgres:
		return NewPostgres(opts...), nil
	case dialect.MySQL:
		return NewMySQL(opts...), nil
	case dialect.SQLite:
		return NewSQLite(opts...), nil
	case dialect.SQLServer:
		return NewSQLServer(opts...), nil
	default:
		return NewOracle(opts...), nil
	}
}

// bindStyle is how a driver expects arguments.
type bindStyle uint8

const (
	bindDollar   bindStyle = iota // $1, $2 numbered by first appearance
	bindQuestion                  // ? per occurrence
	bindNamed                     // tokens kept, sql.Named arguments
)

// provider holds the behavior shared by all dialects.
type provider struct {
	name          string
	defaultSchema string
	maxIdent      int
	prefix        string
	paramPrefix   string
	bind          bindStyle
	trueLit       string
	falseLit      string
	timePrefix    string
	quote         func(string) string
	hexBytes      func([]byte) string
	limit         func(query string, n string) (string, error)
}

func newProvider(base provider, opts []ProviderOption) provider {
	for _, opt := range opts {
		opt(&base)
	}
	return base
}

func (p *provider) Name() string             { return p.name }
func (p *provider) DefaultSchema() string    { return p.defaultSchema }
func (p *provider) MaxIdentifierLength() int { return p.maxIdent }
func (p *provider) BindPrefix() string       { return p.prefix }
func (p *provider) Terminator() string       { return ";" }

func (p *provider) CompoundBlock() (string, string) { return "", "" }

func (p *provider) BuildParameterName(name string) string {
	return p.paramPrefix + name
}

func (p *provider) BuildBindVariableName(name string) string {
	return p.prefix + name
}

func (p *provider) FormatSelectWithMaxRows(query string, limit Limit) (string, error) {
	if limit.IsParam() {
		return p.limit(query, p.BuildBindVariableName(limit.Param))
	}
	if limit.Rows < 0 {
		return "", vellum.NewInvalidArgumentError("limit", "row limit must not be negative, got %d", limit.Rows)
	}
	return p.limit(query, strconv.Itoa(limit.Rows))
}

func (p *provider) Literal(v Value) (string, error) {
	switch v.Kind() {
	case KindNull:
		return "NULL", nil
	case KindBool:
		if b, _ := v.Bool(); b {
			return p.trueLit, nil
		}
		return p.falseLit, nil
	case KindInt, KindDecimal:
		return v.String(), nil
	case KindText:
		s, _ := v.Text()
		return p.quote(s), nil
	case KindDateTime:
		t, _ := v.Time()
		return p.timePrefix + p.quote(t.Format("2006-01-02 15:04:05.999999")), nil
	case KindBytes:
		b, _ := v.Bytes()
		return p.hexBytes(b), nil
	case KindGUID:
		u, _ := v.GUID()
		return p.quote(u.String()), nil
	case KindParam:
		name, _ := v.ParamName()
		return p.BuildBindVariableName(name), nil
	}
	return "", vellum.NewInvalidArgumentError("value", "unknown value kind %s", v.Kind())
}

func (p *provider) CloneParameter(param *Parameter) *Parameter {
	return param.Clone()
}

// ParametersEqual compares direction, type and value. Integer types of any
// width are considered the same type.
func (p *provider) ParametersEqual(a, b *Parameter) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Direction != b.Direction {
		return false
	}
	if a.Type != b.Type && !(a.Type.IsInteger() && b.Type.IsInteger()) {
		return false
	}
	return a.Value.Equal(b.Value)
}

func (p *provider) BindArgs(text string, params *ParameterSet) (string, []any, error) {
	tokens := ScanTokens(text, p.prefix)
	if len(tokens) == 0 {
		return text, nil, nil
	}
	var (
		b     strings.Builder
		last  int
		args  []any
		order = make(map[string]int)
	)
	for _, tok := range tokens {
		param, ok := params.Get(tok.Name)
		if !ok {
			return "", nil, vellum.NewNotFoundError("parameter", tok.Name)
		}
		if param.Value.Kind() == KindParam {
			return "", nil, vellum.NewInvalidArgumentError(param.Name, "parameter value references another parameter")
		}
		b.WriteString(text[last:tok.Start])
		last = tok.End
		key := Fold(tok.Name)
		switch p.bind {
		case bindDollar:
			n, seen := order[key]
			if !seen {
				args = append(args, param.Value.Any())
				n = len(args)
				order[key] = n
			}
			b.WriteString("$" + strconv.Itoa(n))
		case bindQuestion:
			args = append(args, param.Value.Any())
			b.WriteByte('?')
		default:
			if _, seen := order[key]; !seen {
				order[key] = len(args)
				args = append(args, sql.Named(param.Name, param.Value.Any()))
			}
			b.WriteString(text[tok.Start:tok.End])
		}
	}
	b.WriteString(text[last:])
	return b.String(), args, nil
}

// quoteString doubles single quotes.
func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// quoteEscaped doubles single quotes and escapes backslashes, for dialects
// that treat the backslash as an escape character in string literals.
func quoteEscaped(s string) string {
	if !strings.ContainsAny(s, `'\`) {
		return "'" + s + "'"
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func hexX(b []byte) string  { return "X'" + strings.ToUpper(hex.EncodeToString(b)) + "'" }
func hex0x(b []byte) string { return "0x" + strings.ToUpper(hex.EncodeToString(b)) }

func limitSuffix(keyword string) func(string, string) (string, error) {
	return func(query, n string) (string, error) {
		return fmt.Sprintf("%s %s %s", strings.TrimRight(query, " \n\t;"), keyword, n), nil
	}
}

// nativeBase strips length/precision arguments and modifiers from a native
// type name: "varchar(50)" → "varchar", "int unsigned" → "int".
func nativeBase(native string) string {
	s := strings.ToLower(strings.TrimSpace(native))
	if i := strings.IndexByte(s, '('); i >= 0 {
		rest := ""
		if j := strings.IndexByte(s[i:], ')'); j >= 0 {
			rest = s[i+j+1:]
		}
		s = strings.TrimSpace(s[:i]) + rest
	}
	for _, mod := range []string{" unsigned", " zerofill", " identity"} {
		s = strings.ReplaceAll(s, mod, "")
	}
	return strings.TrimSpace(s)
}

// integerByPrecision maps an exact numeric with no fractional digits to the
// narrowest integer type holding its precision.
func integerByPrecision(precision, scale int) DbType {
	switch {
	case scale != 0 || precision <= 0:
		return TypeDecimal
	case precision <= 4:
		return TypeInt16
	case precision <= 9:
		return TypeInt32
	case precision <= 18:
		return TypeInt64
	}
	return TypeDecimal
}

func sizeSuffix(native string, size int) string {
	if size <= 0 {
		return native
	}
	return native + "(" + strconv.Itoa(size) + ")"
}

func decimalSuffix(native string, precision, scale int) string {
	if precision <= 0 {
		return native
	}
	return fmt.Sprintf("%s(%d,%d)", native, precision, scale)
}
