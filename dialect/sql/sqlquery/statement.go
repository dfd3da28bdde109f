package sqlquery

import (
	"context"

	"github.com/syssam/vellum"
	"github.com/syssam/vellum/dialect/sql"
)

// Statement is the text of a built statement and the parameters it
// references. Text uses the provider's bind tokens (":name" or "@name").
type Statement struct {
	Text   string
	Params *sql.ParameterSet
}

// String returns the statement text.
func (s *Statement) String() string { return s.Text }

// Bind converts the statement to the placeholder style of the driver behind
// p and returns the arguments in binding order.
func (s *Statement) Bind(p sql.Provider) (string, []any, error) {
	return p.BindArgs(s.Text, s.Params)
}

// BuildStatement renders the statement of b together with its parameter
// set: the explicit parameters of b and of its inline views followed by the
// parameters generated for predicates and assigned columns.
//
//	b := sqlquery.Select(provider, catalog)
//	people, _ := b.From(sqlquery.Table("", "people"), sqlquery.Col("*"))
//	b.SetWhereCondition(sqlquery.EQ(sqlquery.C(people, "LastName"), sqlquery.P("Name", "Smith")))
//	stmt, err := sqlquery.BuildStatement(ctx, b)
func BuildStatement(ctx context.Context, b *Builder) (*Statement, error) {
	c, err := newCompiler(ctx, b)
	if err != nil {
		return nil, err
	}
	text, err := c.statement(b)
	if err != nil {
		return nil, err
	}
	return &Statement{Text: text, Params: c.params}, nil
}

// CompilePredicate renders a single predicate against the join graph of b.
// Unqualified columns belong to the main node.
func CompilePredicate(ctx context.Context, b *Builder, n Node) (*Statement, error) {
	c, err := newCompiler(ctx, b)
	if err != nil {
		return nil, err
	}
	s, err := c.scope(b)
	if err != nil {
		return nil, err
	}
	text, err := c.expr(s, n)
	if err != nil {
		return nil, err
	}
	return &Statement{Text: text, Params: c.params}, nil
}

func newCompiler(ctx context.Context, b *Builder) (*compiler, error) {
	if b == nil {
		return nil, vellum.NewInvalidArgumentError("builder", "builder must not be nil")
	}
	if b.provider == nil {
		return nil, vellum.NewInvalidArgumentError("provider", "builder has no provider")
	}
	c := &compiler{
		ctx:      ctx,
		provider: b.provider,
		catalog:  b.catalog,
		params:   b.params.Clone(),
	}
	if err := c.resolveParams(); err != nil {
		return nil, err
	}
	return c, nil
}
