package sqlquery

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/vellum"
	"github.com/syssam/vellum/dialect/sql"
	"github.com/syssam/vellum/dialect/sql/sqlcatalog"
)

// maxNameAttempts bounds the search for a free generated parameter name.
const maxNameAttempts = 10000

// compiler renders nodes and statements. It owns a working copy of the
// parameters so a failed build leaves the builder untouched.
type compiler struct {
	ctx      context.Context
	provider sql.Provider
	catalog  Catalog
	params   *sql.ParameterSet
}

// scope is the resolved join graph of one builder.
type scope struct {
	b       *Builder
	nodes   []*resolved
	current *resolved
}

type resolved struct {
	*join
	table     string
	qualifier string
	meta      *sqlcatalog.TableMetadata
	view      string // rendered inline view, set before projections
}

func (s *scope) lookup(alias string) (*resolved, bool) {
	for _, n := range s.nodes {
		if sql.EqualFold(n.alias, alias) {
			return n, true
		}
	}
	return nil, false
}

func (c *compiler) resolveParams() error {
	for _, p := range c.params.All() {
		if p.Resolved() {
			continue
		}
		if c.catalog == nil {
			return vellum.NewInvalidArgumentError(p.Name, "parameter bound to %s needs a catalog", p.Binding)
		}
		t, err := c.catalog.GetTable(c.ctx, p.Binding.Schema, p.Binding.Table)
		if err != nil {
			return err
		}
		col, ok := t.Column(p.Binding.Column)
		if !ok {
			return vellum.NewNotFoundError("column", t.QualifiedName()+"."+p.Binding.Column)
		}
		col.Describe(p)
	}
	return nil
}

func (c *compiler) scope(b *Builder) (*scope, error) {
	if len(b.joins) == 0 {
		return nil, vellum.NewInvalidArgumentError("from", "%s statement has no main node", b.kind)
	}
	s := &scope{b: b, nodes: make([]*resolved, len(b.joins))}
	for i, j := range b.joins {
		n := &resolved{join: j, meta: j.src.meta}
		if j.src.view == nil {
			if n.meta == nil && c.catalog != nil {
				meta, err := c.catalog.GetTable(c.ctx, j.src.schema, j.src.name)
				if err != nil {
					return nil, err
				}
				n.meta = meta
			}
			n.table = j.src.qualifiedName()
			if n.meta != nil {
				n.table = n.meta.QualifiedName()
			}
		}
		n.qualifier = j.alias
		if b.kind != SelectKind {
			n.qualifier = n.table
		}
		s.nodes[i] = n
	}
	s.current = s.nodes[0]
	return s, nil
}

func (c *compiler) statement(b *Builder) (string, error) {
	s, err := c.scope(b)
	if err != nil {
		return "", err
	}
	if b.limit != nil && b.kind != SelectKind {
		return "", vellum.NewInvalidArgumentError("limit", "%s statements take no row limit", b.kind)
	}
	switch b.kind {
	case SelectKind:
		return c.selectStatement(s)
	case InsertKind:
		return c.insertStatement(s)
	case UpdateKind:
		return c.updateStatement(s)
	case DeleteKind:
		return c.deleteStatement(s)
	}
	return "", vellum.NewInvalidArgumentError("kind", "unknown statement kind %s", b.kind)
}

func (c *compiler) selectStatement(s *scope) (string, error) {
	b := s.b
	for _, n := range s.nodes {
		if n.src.view == nil {
			continue
		}
		text, err := c.view(n)
		if err != nil {
			return "", err
		}
		n.view = text
	}
	var cols []string
	for _, n := range s.nodes {
		s.current = n
		for _, col := range n.columns {
			text, err := c.expr(s, col)
			if err != nil {
				return "", err
			}
			cols = append(cols, text)
		}
	}
	main := s.nodes[0]
	s.current = main
	for _, p := range b.selects {
		text, err := c.expr(s, p.node)
		if err != nil {
			return "", err
		}
		cols = append(cols, withAlias(text, p.alias))
	}
	for _, cc := range b.cases {
		text, err := c.caseColumn(s, cc)
		if err != nil {
			return "", err
		}
		cols = append(cols, withAlias(text, cc.alias))
	}
	if len(cols) == 0 {
		cols = append(cols, "*")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if b.distinct {
		sb.WriteString("DISTINCT ")
	}
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(" FROM ")
	for i, n := range s.nodes {
		src, err := c.source(n)
		if err != nil {
			return "", err
		}
		if i == 0 {
			sb.WriteString(src)
			continue
		}
		sb.WriteString(" " + n.typ.String() + " " + src)
		if n.typ == CrossJoin {
			continue
		}
		s.current = n
		on, err := c.expr(s, n.on)
		if err != nil {
			return "", err
		}
		sb.WriteString(" ON " + on)
	}
	s.current = main
	if err := c.whereClause(&sb, s); err != nil {
		return "", err
	}
	if terms := b.groupTerms(); len(terms) > 0 {
		list := make([]string, len(terms))
		for i, t := range terms {
			text, err := c.expr(s, t)
			if err != nil {
				return "", err
			}
			list[i] = text
		}
		sb.WriteString(" GROUP BY " + strings.Join(list, ", "))
	}
	if terms := b.orderTerms(); len(terms) > 0 {
		list := make([]string, len(terms))
		for i, t := range terms {
			text, err := c.expr(s, t.node)
			if err != nil {
				return "", err
			}
			if t.desc {
				list[i] = text + " DESC"
			} else {
				list[i] = text + " ASC"
			}
		}
		sb.WriteString(" ORDER BY " + strings.Join(list, ", "))
	}
	text := sb.String()
	if b.limit == nil {
		return text, nil
	}
	if b.limit.IsParam() && !c.params.Contains(b.limit.Param) {
		return "", vellum.NewNotFoundError("parameter", b.limit.Param)
	}
	return c.provider.FormatSelectWithMaxRows(text, *b.limit)
}

func (c *compiler) source(n *resolved) (string, error) {
	if n.src.view == nil {
		return n.table + " " + n.alias, nil
	}
	if n.view != "" {
		return n.view, nil
	}
	return c.view(n)
}

// view compiles an inline view, merging its parameters into the working set
// first so outer generated names avoid them.
func (c *compiler) view(n *resolved) (string, error) {
	view := n.src.view
	if err := c.params.Merge(view.params, c.provider.ParametersEqual); err != nil {
		return "", err
	}
	if err := c.resolveParams(); err != nil {
		return "", err
	}
	vs, err := c.scope(view)
	if err != nil {
		return "", err
	}
	text, err := c.selectStatement(vs)
	if err != nil {
		return "", err
	}
	return "(" + text + ") " + n.alias, nil
}

func (c *compiler) caseColumn(s *scope, cc caseColumn) (string, error) {
	if len(cc.whens) == 0 {
		return "", vellum.NewInvalidArgumentError(cc.alias, "CASE column needs at least one WHEN branch")
	}
	var sb strings.Builder
	sb.WriteString("CASE")
	for _, w := range cc.whens {
		cond, err := c.expr(s, w.Cond)
		if err != nil {
			return "", err
		}
		then, err := c.expr(s, w.Then)
		if err != nil {
			return "", err
		}
		sb.WriteString(" WHEN " + cond + " THEN " + then)
	}
	if cc.els != nil {
		els, err := c.expr(s, cc.els)
		if err != nil {
			return "", err
		}
		sb.WriteString(" ELSE " + els)
	}
	sb.WriteString(" END")
	return sb.String(), nil
}

func (c *compiler) whereClause(sb *strings.Builder, s *scope) error {
	if s.b.where == nil {
		return nil
	}
	text, err := c.expr(s, s.b.where)
	if err != nil {
		return err
	}
	sb.WriteString(" WHERE " + text)
	return nil
}

func (c *compiler) insertStatement(s *scope) (string, error) {
	main := s.nodes[0]
	var cols, vals []string
	for _, a := range s.b.columns {
		if !a.scope.includes(InsertKind) {
			continue
		}
		name, val, err := c.assign(s, a)
		if err != nil {
			return "", err
		}
		cols = append(cols, name)
		vals = append(vals, val)
	}
	if len(cols) == 0 {
		return "", vellum.NewInvalidArgumentError("columns", "INSERT into %s has no columns", main.table)
	}
	return "INSERT INTO " + main.table + " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(vals, ", ") + ")", nil
}

func (c *compiler) updateStatement(s *scope) (string, error) {
	main := s.nodes[0]
	var sets []string
	for _, a := range s.b.columns {
		if !a.scope.includes(UpdateKind) {
			continue
		}
		name, val, err := c.assign(s, a)
		if err != nil {
			return "", err
		}
		sets = append(sets, name+" = "+val)
	}
	if len(sets) == 0 {
		return "", vellum.NewInvalidArgumentError("columns", "UPDATE of %s has no columns", main.table)
	}
	var sb strings.Builder
	sb.WriteString("UPDATE " + main.table + " SET " + strings.Join(sets, ", "))
	if err := c.whereClause(&sb, s); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (c *compiler) deleteStatement(s *scope) (string, error) {
	var sb strings.Builder
	sb.WriteString("DELETE FROM " + s.nodes[0].table)
	if err := c.whereClause(&sb, s); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// assign renders the column name and value of an INSERT or UPDATE column.
func (c *compiler) assign(s *scope, a assignment) (string, string, error) {
	main := s.nodes[0]
	name := a.column
	if main.meta != nil {
		col, ok := main.meta.Column(a.column)
		if !ok {
			return "", "", vellum.NewNotFoundError("column", main.meta.QualifiedName()+"."+a.column)
		}
		name = col.Name
	}
	switch a.binding.kind {
	case bindLiteral:
		lit, err := c.provider.Literal(a.binding.value)
		return name, lit, err
	case bindRaw:
		return name, a.binding.text, nil
	case bindParam:
		p, ok := c.params.Get(a.binding.text)
		if !ok {
			return "", "", vellum.NewNotFoundError("parameter", a.binding.text)
		}
		return name, c.provider.BuildBindVariableName(p.Name), nil
	}
	tok, err := c.param(s, &ParamRef{Column: C(main.alias, name), Value: a.binding.value}, nil)
	return name, tok, err
}

func withAlias(text, alias string) string {
	if alias == "" {
		return text
	}
	return text + " AS " + alias
}

func (c *compiler) expr(s *scope, n Node) (string, error) {
	switch n := n.(type) {
	case *AndExpr:
		return c.logical(s, "AND", n.Left, n.Right, isOr)
	case *OrExpr:
		return c.logical(s, "OR", n.Left, n.Right, isAnd)
	case *NotExpr:
		inner, err := c.expr(s, n.Expr)
		if err != nil {
			return "", err
		}
		switch n.Expr.(type) {
		case *ColumnRef, *ParamRef, *ConstRef, *FunctionCall:
			return "NOT " + inner, nil
		}
		return "NOT (" + inner + ")", nil
	case *Comparison:
		return c.comparison(s, n)
	case *ColumnRef:
		text, _, err := c.column(s, n)
		return text, err
	case *ParamRef:
		return c.param(s, n, nil)
	case *ConstRef:
		return c.constant(n)
	case *FunctionCall:
		return c.call(s, n)
	case *InClause:
		return c.in(s, n)
	case *BetweenClause:
		return c.between(s, n)
	case *badNode:
		return "", n.err
	case nil:
		return "", vellum.NewUnsupportedExpressionError(n, "nil node")
	}
	return "", vellum.NewUnsupportedExpressionError(n, "unknown node type")
}

func isAnd(n Node) bool {
	_, ok := n.(*AndExpr)
	return ok
}

func isOr(n Node) bool {
	_, ok := n.(*OrExpr)
	return ok
}

func isLogical(n Node) bool { return isAnd(n) || isOr(n) }

// logical renders a binary AND or OR. A child is parenthesized only when it
// is the other logical operator; chains of one operator render flat.
func (c *compiler) logical(s *scope, op string, l, r Node, other func(Node) bool) (string, error) {
	left, err := c.child(s, l, other)
	if err != nil {
		return "", err
	}
	right, err := c.child(s, r, other)
	if err != nil {
		return "", err
	}
	return left + " " + op + " " + right, nil
}

func (c *compiler) child(s *scope, n Node, paren func(Node) bool) (string, error) {
	text, err := c.expr(s, n)
	if err != nil {
		return "", err
	}
	if paren(n) {
		return "(" + text + ")", nil
	}
	return text, nil
}

func isNullConst(n Node) bool {
	cr, ok := n.(*ConstRef)
	return ok && cr.Value.IsNull()
}

// isNullParam reports whether n is a value parameter holding NULL at build
// time. Explicit parameters keep their bind token.
func isNullParam(n Node) bool {
	pr, ok := n.(*ParamRef)
	return ok && pr.Param == nil && pr.Value.IsNull()
}

func (c *compiler) comparison(s *scope, n *Comparison) (string, error) {
	l, r := n.Left, n.Right
	if isNullConst(l) && !isNullConst(r) {
		l, r = r, l
	}
	left, err := c.child(s, l, isLogical)
	if err != nil {
		return "", err
	}
	if isNullConst(r) {
		switch n.Op {
		case OpEQ:
			return left + " is NULL", nil
		case OpNEQ:
			return left + " is not NULL", nil
		}
		return "", vellum.NewUnsupportedExpressionError(n, "NULL cannot be compared with "+n.Op.String())
	}
	if isNullParam(r) {
		switch n.Op {
		case OpEQ:
			return left + " is NULL", nil
		case OpNEQ:
			return left + " is not NULL", nil
		}
	}
	if int(n.Op) >= len(ops) {
		return "", vellum.NewUnsupportedExpressionError(n, "unknown operator "+n.Op.String())
	}
	var right string
	if p, ok := r.(*ParamRef); ok {
		hint, _ := l.(*ColumnRef)
		right, err = c.param(s, p, hint)
	} else {
		right, err = c.child(s, r, isLogical)
	}
	if err != nil {
		return "", err
	}
	return left + " " + n.Op.String() + " " + right, nil
}

// column renders a qualified column and returns its catalog metadata when
// the node it belongs to has any.
func (c *compiler) column(s *scope, ref *ColumnRef) (string, *sqlcatalog.ColumnMetadata, error) {
	if ref == nil || strings.TrimSpace(ref.Column) == "" {
		return "", nil, vellum.NewInvalidArgumentError("column", "column name must not be empty")
	}
	n := s.current
	if ref.Table != "" {
		var ok bool
		if n, ok = s.lookup(ref.Table); !ok {
			return "", nil, vellum.NewNotFoundError("alias", ref.Table)
		}
	}
	name := ref.Column
	if name == "*" {
		return n.qualifier + ".*", nil, nil
	}
	var col *sqlcatalog.ColumnMetadata
	if n.meta != nil {
		var ok bool
		if col, ok = n.meta.Column(name); !ok {
			return "", nil, vellum.NewNotFoundError("column", n.meta.QualifiedName()+"."+name)
		}
		name = col.Name
	}
	return n.qualifier + "." + name, col, nil
}

// param registers the parameter of p and returns its bind token. hint is
// the column p is compared with, used for typing when p names no column.
func (c *compiler) param(s *scope, p *ParamRef, hint *ColumnRef) (string, error) {
	if p.Param != nil {
		return c.register(c.provider.CloneParameter(p.Param))
	}
	ref := p.Column
	if ref == nil {
		ref = hint
	}
	var col *sqlcatalog.ColumnMetadata
	if ref != nil {
		var err error
		if _, col, err = c.column(s, ref); err != nil {
			return "", err
		}
	}
	name := p.Name
	if name == "" {
		base := "p"
		if ref != nil {
			base = ref.Column
		}
		var err error
		if name, err = c.generate(base, false); err != nil {
			return "", err
		}
	}
	param := sql.NewParameter(name, p.Value)
	if col != nil {
		col.Describe(param)
	}
	return c.register(param)
}

// register adds p to the working parameters. A parameter of the same name
// is shared when the provider considers both equal.
func (c *compiler) register(p *sql.Parameter) (string, error) {
	if !validName(p.Name) {
		return "", vellum.NewInvalidArgumentError(p.Name, "invalid parameter name")
	}
	if cur, ok := c.params.Get(p.Name); ok {
		if !c.provider.ParametersEqual(cur, p) {
			return "", vellum.NewInvalidArgumentError(p.Name, "parameter is bound to different values (%s, %s)", cur.Value, p.Value)
		}
		return c.provider.BuildBindVariableName(cur.Name), nil
	}
	if err := c.params.Add(p); err != nil {
		return "", err
	}
	return c.provider.BuildBindVariableName(p.Name), nil
}

// generate returns a free parameter name derived from base: base itself,
// then base_1, base_2 and so on. With numbered set the bare base is skipped.
func (c *compiler) generate(base string, numbered bool) (string, error) {
	base = sql.SanitizeName(base)
	if !numbered {
		if name := sql.FitName(c.provider, base, ""); !c.params.Contains(name) {
			return name, nil
		}
	}
	for i := 1; i <= maxNameAttempts; i++ {
		name := sql.FitName(c.provider, base, "_"+strconv.Itoa(i))
		if !c.params.Contains(name) {
			return name, nil
		}
	}
	return "", vellum.NewInvalidArgumentError(base, "no free parameter name after %d attempts", maxNameAttempts)
}

func (c *compiler) constant(n *ConstRef) (string, error) {
	if name, ok := n.Value.ParamName(); ok {
		p, ok := c.params.Get(name)
		if !ok {
			return "", vellum.NewNotFoundError("parameter", name)
		}
		return c.provider.BuildBindVariableName(p.Name), nil
	}
	return c.provider.Literal(n.Value)
}

func (c *compiler) call(s *scope, n *FunctionCall) (string, error) {
	if !validName(n.Name) {
		return "", vellum.NewInvalidArgumentError(n.Name, "invalid function name")
	}
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		text, err := c.expr(s, a)
		if err != nil {
			return "", err
		}
		args[i] = text
	}
	return n.Name + "(" + strings.Join(args, ", ") + ")", nil
}

// typed registers a generated parameter named after col and typed from its
// metadata.
func (c *compiler) typed(ref *ColumnRef, col *sqlcatalog.ColumnMetadata, v sql.Value) (string, error) {
	name, err := c.generate(ref.Column, true)
	if err != nil {
		return "", err
	}
	p := sql.NewParameter(name, v)
	if col != nil {
		col.Describe(p)
	}
	return c.register(p)
}

func (c *compiler) in(s *scope, n *InClause) (string, error) {
	left, col, err := c.column(s, n.Column)
	if err != nil {
		return "", err
	}
	if len(n.Values) == 0 {
		return "", vellum.NewInvalidArgumentError(n.Column.Column, "IN requires at least one value")
	}
	toks := make([]string, len(n.Values))
	for i, v := range n.Values {
		if toks[i], err = c.typed(n.Column, col, v); err != nil {
			return "", err
		}
	}
	op := " IN ("
	if n.Not {
		op = " NOT IN ("
	}
	return left + op + strings.Join(toks, ", ") + ")", nil
}

func (c *compiler) between(s *scope, n *BetweenClause) (string, error) {
	left, col, err := c.column(s, n.Column)
	if err != nil {
		return "", err
	}
	lo, err := c.typed(n.Column, col, n.Low)
	if err != nil {
		return "", err
	}
	hi, err := c.typed(n.Column, col, n.High)
	if err != nil {
		return "", err
	}
	op := " BETWEEN "
	if n.Not {
		op = " NOT BETWEEN "
	}
	return fmt.Sprintf("%s%s%s AND %s", left, op, lo, hi), nil
}
