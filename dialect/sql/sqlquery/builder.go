package sqlquery

import (
	"context"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/syssam/vellum"
	"github.com/syssam/vellum/dialect/sql"
	"github.com/syssam/vellum/dialect/sql/sqlcatalog"
)

// Kind is the kind of statement a Builder produces.
type Kind uint8

// Statement kinds.
const (
	SelectKind Kind = iota
	InsertKind
	UpdateKind
	DeleteKind
)

func (k Kind) String() string {
	switch k {
	case SelectKind:
		return "SELECT"
	case InsertKind:
		return "INSERT"
	case UpdateKind:
		return "UPDATE"
	case DeleteKind:
		return "DELETE"
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// JoinType is the join operator between a join node and the nodes before it.
type JoinType uint8

// Join types.
const (
	InnerJoin JoinType = iota
	LeftJoin
	RightJoin
	FullJoin
	CrossJoin
)

func (j JoinType) String() string {
	switch j {
	case InnerJoin:
		return "INNER JOIN"
	case LeftJoin:
		return "LEFT JOIN"
	case RightJoin:
		return "RIGHT JOIN"
	case FullJoin:
		return "FULL JOIN"
	case CrossJoin:
		return "CROSS JOIN"
	}
	return "JoinType(" + strconv.Itoa(int(j)) + ")"
}

// Catalog resolves table metadata. *sqlcatalog.Manager implements it.
type Catalog interface {
	GetTable(ctx context.Context, schema, name string) (*sqlcatalog.TableMetadata, error)
}

// Source is the data source of a join node: a catalog table, a table whose
// metadata is already known, or an inline view.
type Source struct {
	schema string
	name   string
	meta   *sqlcatalog.TableMetadata
	view   *Builder
	alias  string
}

// Table returns a source reading the named table. Its metadata is resolved
// through the builder's catalog when the statement is built.
func Table(schema, name string) *Source {
	return &Source{schema: schema, name: name}
}

// Metadata returns a source reading the table described by t.
func Metadata(t *sqlcatalog.TableMetadata) *Source {
	if t == nil {
		return &Source{}
	}
	return &Source{schema: t.Schema, name: t.Name, meta: t}
}

// View returns a source reading the result of a nested SELECT builder.
func View(b *Builder) *Source {
	return &Source{view: b}
}

// As returns a copy of the source with an explicit alias.
func (s *Source) As(alias string) *Source {
	c := *s
	c.alias = alias
	return &c
}

func (s *Source) check() error {
	switch {
	case s == nil:
		return vellum.NewInvalidArgumentError("source", "join source must not be nil")
	case s.view != nil:
		if s.view.kind != SelectKind {
			return vellum.NewInvalidArgumentError("source", "inline view must be a SELECT, got %s", s.view.kind)
		}
	case strings.TrimSpace(s.name) == "":
		return vellum.NewInvalidArgumentError("source", "table name must not be empty")
	}
	return nil
}

func (s *Source) qualifiedName() string {
	if s.meta != nil {
		return s.meta.QualifiedName()
	}
	if s.schema == "" {
		return s.name
	}
	return s.schema + "." + s.name
}

// When is one branch of a CASE column.
type When struct {
	Cond Node
	Then Node
}

// Scope selects the statements an assigned column takes part in.
type Scope uint8

// Column scopes.
const (
	InsertUpdate Scope = iota
	InsertOnly
	UpdateOnly
)

func (s Scope) includes(k Kind) bool {
	switch s {
	case InsertOnly:
		return k == InsertKind
	case UpdateOnly:
		return k == UpdateKind
	}
	return true
}

type bindingKind uint8

const (
	bindGenerated bindingKind = iota
	bindLiteral
	bindRaw
	bindParam
)

// Binding is the value source of an assigned column.
type Binding struct {
	kind  bindingKind
	value sql.Value
	text  string
	err   error
}

// Generated binds the column to a generated parameter typed from the
// catalog column and named after it.
func Generated(v any) Binding {
	val, err := sql.ValueOf(v)
	return Binding{kind: bindGenerated, value: val, err: err}
}

// Literal renders v as a dialect literal.
func Literal(v any) Binding {
	val, err := sql.ValueOf(v)
	return Binding{kind: bindLiteral, value: val, err: err}
}

// Raw inserts text verbatim, e.g. "CURRENT_TIMESTAMP".
func Raw(text string) Binding {
	return Binding{kind: bindRaw, text: text}
}

// Parameter binds the column to a parameter added with AddParameter.
func Parameter(name string) Binding {
	return Binding{kind: bindParam, text: name}
}

type (
	join struct {
		src     *Source
		alias   string
		typ     JoinType
		on      Node
		columns []Node
	}
	projection struct {
		node  Node
		alias string
	}
	caseColumn struct {
		whens []When
		els   Node
		alias string
	}
	orderTerm struct {
		node Node
		desc bool
	}
	assignment struct {
		column  string
		binding Binding
		scope   Scope
	}
)

// Builder builds one SELECT, INSERT, UPDATE or DELETE statement over a
// graph of join nodes. The first node added is the main node and is
// aliased T1; later nodes get T2, T3 and so on, inline views V2, V3.
//
// A Builder is not safe for concurrent use. Statements are produced by
// BuildStatement, which never modifies the builder.
type Builder struct {
	kind     Kind
	provider sql.Provider
	catalog  Catalog
	joins    []*join
	aliases  map[string]struct{}
	where    Node
	selects  []projection
	cases    []caseColumn
	order    map[int]orderTerm
	orderSeq int
	group    map[int]Node
	groupSeq int
	columns  []assignment
	params   *sql.ParameterSet
	limit    *sql.Limit
	distinct bool
}

func newBuilder(kind Kind, p sql.Provider, c Catalog) *Builder {
	return &Builder{
		kind:     kind,
		provider: p,
		catalog:  c,
		aliases:  make(map[string]struct{}),
		order:    make(map[int]orderTerm),
		group:    make(map[int]Node),
		params:   sql.NewParameterSet(),
	}
}

// Select returns a SELECT builder. The catalog may be nil, in which case
// columns are not checked and parameters are typed from their values.
func Select(p sql.Provider, c Catalog) *Builder { return newBuilder(SelectKind, p, c) }

// Insert returns an INSERT builder.
func Insert(p sql.Provider, c Catalog) *Builder { return newBuilder(InsertKind, p, c) }

// Update returns an UPDATE builder.
func Update(p sql.Provider, c Catalog) *Builder { return newBuilder(UpdateKind, p, c) }

// Delete returns a DELETE builder.
func Delete(p sql.Provider, c Catalog) *Builder { return newBuilder(DeleteKind, p, c) }

// Kind returns the statement kind.
func (b *Builder) Kind() Kind { return b.kind }

// Provider returns the dialect provider of the builder.
func (b *Builder) Provider() sql.Provider { return b.provider }

// Catalog returns the catalog of the builder, possibly nil.
func (b *Builder) Catalog() Catalog { return b.catalog }

// AddJoin adds a join node and returns its alias. The first node is the
// main node; its join type and on predicate are ignored and must be zero.
// Columns are projected in the order given, resolved against the new node.
func (b *Builder) AddJoin(src *Source, typ JoinType, on Node, columns ...Node) (string, error) {
	if err := src.check(); err != nil {
		return "", err
	}
	if src.view == b {
		return "", vellum.NewInvalidArgumentError("source", "builder cannot join itself")
	}
	if len(b.joins) > 0 {
		if b.kind != SelectKind {
			return "", vellum.NewInvalidArgumentError("join", "%s statements support a single table", b.kind)
		}
		if typ > CrossJoin {
			return "", vellum.NewInvalidArgumentError("join", "unknown join type %s", typ)
		}
		if typ != CrossJoin && on == nil {
			return "", vellum.NewInvalidArgumentError("join", "%s requires an ON predicate", typ)
		}
	} else {
		if on != nil {
			return "", vellum.NewInvalidArgumentError("join", "the main node takes no ON predicate")
		}
		if src.view != nil && b.kind != SelectKind {
			return "", vellum.NewInvalidArgumentError("source", "%s target must be a table", b.kind)
		}
	}
	if len(columns) > 0 && b.kind != SelectKind {
		return "", vellum.NewInvalidArgumentError("columns", "%s statements do not project columns", b.kind)
	}
	alias := strings.TrimSpace(src.alias)
	if alias != "" {
		if _, ok := b.aliases[sql.Fold(alias)]; ok {
			return "", &vellum.AmbiguousAliasError{Alias: alias}
		}
	} else {
		alias = b.nextAlias(src.view != nil)
	}
	b.aliases[sql.Fold(alias)] = struct{}{}
	b.joins = append(b.joins, &join{
		src:     src,
		alias:   alias,
		typ:     typ,
		on:      on,
		columns: slices.Clone(columns),
	})
	return alias, nil
}

// nextAlias numbers nodes by position. A number taken by an explicit alias
// is skipped.
func (b *Builder) nextAlias(view bool) string {
	prefix := "T"
	if view {
		prefix = "V"
	}
	for n := len(b.joins) + 1; ; n++ {
		alias := prefix + strconv.Itoa(n)
		if _, ok := b.aliases[sql.Fold(alias)]; !ok {
			return alias
		}
	}
}

// From sets the main node. It fails if the builder already has one.
func (b *Builder) From(src *Source, columns ...Node) (string, error) {
	if len(b.joins) > 0 {
		return "", vellum.NewInvalidArgumentError("from", "main node is already set to %s", b.joins[0].alias)
	}
	return b.AddJoin(src, InnerJoin, nil, columns...)
}

// MainAlias returns the alias of the main node, or "" if none was added.
func (b *Builder) MainAlias() string {
	if len(b.joins) == 0 {
		return ""
	}
	return b.joins[0].alias
}

// Aliases returns the aliases of all join nodes in join order.
func (b *Builder) Aliases() []string {
	out := make([]string, len(b.joins))
	for i, j := range b.joins {
		out[i] = j.alias
	}
	return out
}

// MainTable returns the metadata of the main node.
func (b *Builder) MainTable(ctx context.Context) (*sqlcatalog.TableMetadata, error) {
	if len(b.joins) == 0 {
		return nil, vellum.NewInvalidArgumentError("from", "builder has no main node")
	}
	src := b.joins[0].src
	switch {
	case src.meta != nil:
		return src.meta, nil
	case src.view != nil:
		return nil, vellum.NewInvalidArgumentError("from", "main node %s is an inline view", b.joins[0].alias)
	case b.catalog == nil:
		return nil, vellum.NewInvalidArgumentError("catalog", "builder has no catalog to resolve %s", src.qualifiedName())
	}
	return b.catalog.GetTable(ctx, src.schema, src.name)
}

// SetWhereCondition replaces the WHERE predicate. A nil node clears it.
func (b *Builder) SetWhereCondition(n Node) *Builder {
	b.where = n
	return b
}

// Where returns the WHERE predicate.
func (b *Builder) Where() Node { return b.where }

// AddOrderByColumnAsc appends an ascending ORDER BY term.
func (b *Builder) AddOrderByColumnAsc(n Node) *Builder {
	b.order[b.orderSeq] = orderTerm{node: n}
	b.orderSeq++
	return b
}

// AddOrderByColumnDesc appends a descending ORDER BY term.
func (b *Builder) AddOrderByColumnDesc(n Node) *Builder {
	b.order[b.orderSeq] = orderTerm{node: n, desc: true}
	b.orderSeq++
	return b
}

// ClearOrderBy removes all ORDER BY terms.
func (b *Builder) ClearOrderBy() *Builder {
	clear(b.order)
	b.orderSeq = 0
	return b
}

// AddGroupByColumn appends a GROUP BY term.
func (b *Builder) AddGroupByColumn(n Node) *Builder {
	b.group[b.groupSeq] = n
	b.groupSeq++
	return b
}

// AddSelectColumn projects an expression, resolved against the main node.
func (b *Builder) AddSelectColumn(n Node, alias string) *Builder {
	b.selects = append(b.selects, projection{node: n, alias: alias})
	return b
}

// AddCaseColumn projects CASE WHEN ... THEN ... ELSE els END AS alias.
// A nil els omits the ELSE branch.
func (b *Builder) AddCaseColumn(els Node, alias string, whens ...When) *Builder {
	b.cases = append(b.cases, caseColumn{whens: slices.Clone(whens), els: els, alias: alias})
	return b
}

// Projects reports whether the SELECT list yields a result column named
// column from the main node. An empty list projects "*".
func (b *Builder) Projects(column string) bool {
	empty := len(b.selects) == 0 && len(b.cases) == 0
	for i, j := range b.joins {
		if len(j.columns) > 0 {
			empty = false
		}
		if i > 0 {
			continue
		}
		for _, n := range j.columns {
			if ref, ok := n.(*ColumnRef); ok && (ref.Column == "*" || sql.EqualFold(ref.Column, column)) {
				return true
			}
		}
	}
	if empty {
		return true
	}
	main := b.MainAlias()
	for _, p := range b.selects {
		if p.alias != "" {
			if sql.EqualFold(p.alias, column) {
				return true
			}
			continue
		}
		ref, ok := p.node.(*ColumnRef)
		if ok && (ref.Table == "" || sql.EqualFold(ref.Table, main)) &&
			(ref.Column == "*" || sql.EqualFold(ref.Column, column)) {
			return true
		}
	}
	for _, cc := range b.cases {
		if sql.EqualFold(cc.alias, column) {
			return true
		}
	}
	return false
}

// AddColumn assigns a value to a column of the main node for INSERT and
// UPDATE statements.
func (b *Builder) AddColumn(column string, v Binding, scope Scope) error {
	if b.kind != InsertKind && b.kind != UpdateKind {
		return vellum.NewInvalidArgumentError(column, "%s statements do not assign columns", b.kind)
	}
	if strings.TrimSpace(column) == "" {
		return vellum.NewInvalidArgumentError("column", "column name must not be empty")
	}
	if v.err != nil {
		return v.err
	}
	for _, a := range b.columns {
		if sql.EqualFold(a.column, column) && a.scope == scope {
			return vellum.NewInvalidArgumentError(column, "column is already assigned")
		}
	}
	b.columns = append(b.columns, assignment{column: column, binding: v, scope: scope})
	return nil
}

// AddParameter registers an explicit parameter. A parameter with a Binding
// and no type is typed from the catalog column when the statement is built.
func (b *Builder) AddParameter(p *sql.Parameter) error {
	if p == nil {
		return vellum.NewInvalidArgumentError("parameter", "parameter must not be nil")
	}
	if !validName(p.Name) {
		return vellum.NewInvalidArgumentError(p.Name, "invalid parameter name")
	}
	return b.params.Add(b.provider.CloneParameter(p))
}

// Parameters returns a copy of the explicit parameters.
func (b *Builder) Parameters() *sql.ParameterSet { return b.params.Clone() }

// SetMaxRows limits the number of rows a SELECT returns. A negative n
// removes the limit.
func (b *Builder) SetMaxRows(n int) *Builder {
	if n < 0 {
		b.limit = nil
		return b
	}
	l := sql.LimitRows(n)
	b.limit = &l
	return b
}

// SetMaxRowsParam limits the number of rows a SELECT returns to the value
// of a parameter added with AddParameter.
func (b *Builder) SetMaxRowsParam(name string) *Builder {
	l := sql.LimitParam(name)
	b.limit = &l
	return b
}

// SetDistinct toggles SELECT DISTINCT.
func (b *Builder) SetDistinct(distinct bool) *Builder {
	b.distinct = distinct
	return b
}

// Clone returns a copy of the builder. Nodes are shared; they are never
// modified after construction.
func (b *Builder) Clone() *Builder {
	c := *b
	c.joins = make([]*join, len(b.joins))
	for i, j := range b.joins {
		cj := *j
		cj.columns = slices.Clone(j.columns)
		c.joins[i] = &cj
	}
	c.aliases = maps.Clone(b.aliases)
	c.selects = slices.Clone(b.selects)
	c.cases = slices.Clone(b.cases)
	c.order = maps.Clone(b.order)
	c.group = maps.Clone(b.group)
	c.columns = slices.Clone(b.columns)
	c.params = b.params.Clone()
	if b.limit != nil {
		l := *b.limit
		c.limit = &l
	}
	return &c
}

func (b *Builder) orderTerms() []orderTerm {
	terms := make([]orderTerm, 0, len(b.order))
	for _, k := range slices.Sorted(maps.Keys(b.order)) {
		terms = append(terms, b.order[k])
	}
	return terms
}

func (b *Builder) groupTerms() []Node {
	terms := make([]Node, 0, len(b.group))
	for _, k := range slices.Sorted(maps.Keys(b.group)) {
		terms = append(terms, b.group[k])
	}
	return terms
}

// validName reports whether name can be written as a bind token.
func validName(name string) bool {
	return name != "" && sql.SanitizeName(name) == name
}
