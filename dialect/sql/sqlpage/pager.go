package sqlpage

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/syssam/vellum"
	"github.com/syssam/vellum/dialect"
	"github.com/syssam/vellum/dialect/sql"
	"github.com/syssam/vellum/dialect/sql/sqlcatalog"
	"github.com/syssam/vellum/dialect/sql/sqlquery"
)

// DefaultPageSize is used when neither the pager nor the call sets a size.
const DefaultPageSize = 50

// keyPrefix prefixes the names of keyset parameters.
const keyPrefix = "Page"

// Direction selects the page fetched relative to the cursor.
type Direction uint8

// Page directions.
const (
	First Direction = iota
	Next
	Previous
	Last
)

var directions = [...]string{
	First:    "first",
	Next:     "next",
	Previous: "previous",
	Last:     "last",
}

func (d Direction) String() string {
	if int(d) < len(directions) {
		return directions[d]
	}
	return "Direction(" + strconv.Itoa(int(d)) + ")"
}

// ParseDirection parses a direction name, case-insensitively.
func ParseDirection(s string) (Direction, error) {
	for i, name := range directions {
		if strings.EqualFold(s, name) {
			return Direction(i), nil
		}
	}
	return First, vellum.NewInvalidArgumentError("direction", "unknown page direction %q", s)
}

// descending reports whether the page is fetched in reverse key order.
func (d Direction) descending() bool {
	return d == Previous || d == Last
}

// key holds the values of the key columns of one row, in key order.
type key []sql.Value

// Pager fetches pages of a SELECT builder by keyset: the key column values
// of the first and last row of the current page bound the next fetch, so
// pages stay stable under concurrent inserts and cost the same at any depth.
//
// A Pager is not safe for concurrent use.
type Pager struct {
	base     *sqlquery.Builder
	provider sql.Provider
	querier  dialect.ExecQuerier
	table    *sqlcatalog.TableMetadata
	index    *sqlcatalog.IndexMetadata
	columns  []string
	size     int
	log      *slog.Logger
	first    key
	last     key
}

// Option configures a Pager.
type Option func(*Pager)

// WithPageSize sets the page size used when a call passes a size below 1.
func WithPageSize(n int) Option {
	return func(p *Pager) {
		if n > 0 {
			p.size = n
		}
	}
}

// WithLogger sets the logger used for page fetches.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pager) {
		if l != nil {
			p.log = l
		}
	}
}

// New returns a pager over base ordered by columns. The columns must be an
// ordered prefix of the primary key or of a unique index of the main table;
// the remaining key columns of that index are appended so the order is
// total. base must be a SELECT over a table and must not be modified while
// the pager is in use.
func New(ctx context.Context, base *sqlquery.Builder, columns []string, q dialect.ExecQuerier, opts ...Option) (*Pager, error) {
	if base == nil || base.Kind() != sqlquery.SelectKind {
		return nil, vellum.NewInvalidArgumentError("builder", "pager needs a SELECT builder")
	}
	if len(columns) == 0 {
		return nil, vellum.NewInvalidArgumentError("columns", "pager needs at least one key column")
	}
	table, err := base.MainTable(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range columns {
		if _, ok := table.Column(c); !ok {
			return nil, vellum.NewNotFoundError("column", table.QualifiedName()+"."+c)
		}
	}
	index, ok := table.CoveringIndex(columns)
	if !ok {
		return nil, &vellum.UncoveredIndexError{Table: table.QualifiedName(), Columns: slices.Clone(columns)}
	}
	p := &Pager{
		base:     base.Clone(),
		provider: base.Provider(),
		querier:  q,
		table:    table,
		index:    index,
		columns:  index.KeyColumns(),
		size:     DefaultPageSize,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Columns returns the key columns in order, including those appended from
// the covering index.
func (p *Pager) Columns() []string { return slices.Clone(p.columns) }

// Index returns the index covering the key columns.
func (p *Pager) Index() *sqlcatalog.IndexMetadata { return p.index }

// Reset forgets the cursor; the next Next or Previous call fetches the
// first or last page.
func (p *Pager) Reset() {
	p.first, p.last = nil, nil
}

// resolve redirects Next and Previous to First and Last when there is no
// cursor to continue from.
func (p *Pager) resolve(d Direction) Direction {
	switch {
	case d == Next && p.last == nil:
		return First
	case d == Previous && p.first == nil:
		return Last
	}
	return d
}

func (p *Pager) pageSize(size int) int {
	if size < 1 {
		return p.size
	}
	return size
}

// Statement returns the statement fetching the page in direction d. Rows
// of Previous and Last pages come back in descending key order. Key columns
// missing from the SELECT list are appended to it.
func (p *Pager) Statement(ctx context.Context, d Direction, size int) (*sqlquery.Statement, error) {
	if int(d) >= len(directions) {
		return nil, vellum.NewInvalidArgumentError("direction", "unknown page direction %s", d)
	}
	d = p.resolve(d)
	b := p.base.Clone()
	b.ClearOrderBy()
	alias := b.MainAlias()
	for _, c := range p.columns {
		if !b.Projects(c) {
			b.AddSelectColumn(sqlquery.C(alias, c), "")
		}
	}
	for _, c := range p.columns {
		if d.descending() {
			b.AddOrderByColumnDesc(sqlquery.C(alias, c))
		} else {
			b.AddOrderByColumnAsc(sqlquery.C(alias, c))
		}
	}
	switch d {
	case Next:
		b.SetWhereCondition(sqlquery.And(b.Where(), p.keyset(alias, p.last, sqlquery.OpGT)))
	case Previous:
		b.SetWhereCondition(sqlquery.And(b.Where(), p.keyset(alias, p.first, sqlquery.OpLT)))
	}
	b.SetMaxRows(p.pageSize(size))
	return sqlquery.BuildStatement(ctx, b)
}

// keyset returns the predicate selecting rows after (op >) or before
// (op <) k: for each key column i, the first i columns equal and column i
// compared with op, OR'ed over i.
func (p *Pager) keyset(alias string, k key, op sqlquery.Op) sqlquery.Node {
	terms := make([]sqlquery.Node, len(p.columns))
	for i := range p.columns {
		conds := make([]sqlquery.Node, 0, i+1)
		for j := 0; j < i; j++ {
			conds = append(conds, sqlquery.EQ(p.keyRef(alias, j), p.keyParam(alias, j, k)))
		}
		conds = append(conds, &sqlquery.Comparison{Op: op, Left: p.keyRef(alias, i), Right: p.keyParam(alias, i, k)})
		terms[i] = sqlquery.And(conds...)
	}
	return sqlquery.Or(terms...)
}

func (p *Pager) keyRef(alias string, i int) *sqlquery.ColumnRef {
	return sqlquery.C(alias, p.columns[i])
}

func (p *Pager) keyParam(alias string, i int, k key) sqlquery.Node {
	name := sql.FitName(p.provider, keyPrefix+sql.SanitizeName(p.columns[i]), "")
	return sqlquery.Bind(name, p.keyRef(alias, i), k[i])
}

// GetPage fetches the page in direction d and moves the cursor to it.
// Rows are always returned in ascending key order. An empty page leaves the
// cursor unchanged. A size below 1 selects the pager's page size.
func (p *Pager) GetPage(ctx context.Context, d Direction, size int) ([]Row, error) {
	if p.querier == nil {
		return nil, vellum.NewInvalidArgumentError("querier", "pager has no querier")
	}
	d = p.resolve(d)
	stmt, err := p.Statement(ctx, d, size)
	if err != nil {
		return nil, err
	}
	text, args, err := stmt.Bind(p.provider)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	var rows []Row
	err = sql.QueryRows(ctx, p.querier, text, args, func(s sql.ColumnScanner) error {
		row, err := scanRows(s)
		if err != nil {
			return err
		}
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sqlpage: fetch %s page of %s: %w", d, p.table.QualifiedName(), err)
	}
	if d.descending() {
		reverse(rows)
	}
	if len(rows) > 0 {
		first, err := p.rowKey(rows[0])
		if err != nil {
			return nil, err
		}
		last, err := p.rowKey(rows[len(rows)-1])
		if err != nil {
			return nil, err
		}
		p.first, p.last = first, last
	}
	p.log.Debug("page fetched",
		"table", p.table.QualifiedName(),
		"direction", d.String(),
		"rows", len(rows),
		"duration", time.Since(start),
	)
	return rows, nil
}

// rowKey reads the key column values of r, converted to the catalog types.
func (p *Pager) rowKey(r Row) (key, error) {
	k := make(key, len(p.columns))
	for i, c := range p.columns {
		raw, ok := r.Get(c)
		if !ok {
			return nil, vellum.NewInvalidArgumentError(c, "key column is not part of the projection")
		}
		col, _ := p.table.Column(c)
		v, err := sql.ConvertValue(raw, col.Type)
		if err != nil {
			return nil, err
		}
		k[i] = v
	}
	return k, nil
}

func (p *Pager) position(column string) int {
	return slices.IndexFunc(p.columns, func(c string) bool { return sql.EqualFold(c, column) })
}

// GetFirstPage fetches the first page.
func (p *Pager) GetFirstPage(ctx context.Context) ([]Row, error) {
	return p.GetPage(ctx, First, 0)
}

// GetNextPage fetches the page after the current one.
func (p *Pager) GetNextPage(ctx context.Context) ([]Row, error) {
	return p.GetPage(ctx, Next, 0)
}

// GetPreviousPage fetches the page before the current one.
func (p *Pager) GetPreviousPage(ctx context.Context) ([]Row, error) {
	return p.GetPage(ctx, Previous, 0)
}

// GetLastPage fetches the last page.
func (p *Pager) GetLastPage(ctx context.Context) ([]Row, error) {
	return p.GetPage(ctx, Last, 0)
}
