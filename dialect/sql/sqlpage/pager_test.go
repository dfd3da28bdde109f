package sqlpage

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/vellum"
	"github.com/syssam/vellum/dialect"
	"github.com/syssam/vellum/dialect/sql"
	"github.com/syssam/vellum/dialect/sql/sqlcatalog"
	"github.com/syssam/vellum/dialect/sql/sqlquery"
)

func peopleTable(t *testing.T) *sqlcatalog.TableMetadata {
	t.Helper()
	tbl, err := sqlcatalog.NewTableMetadata("", "people",
		[]*sqlcatalog.ColumnMetadata{
			{Name: "Id", Ordinal: 1, Type: sql.TypeInt64},
			{Name: "LastName", Ordinal: 2, Type: sql.TypeString},
			{Name: "FirstName", Ordinal: 3, Type: sql.TypeString, Nullable: true},
		},
		[]string{"Id"},
		[]*sqlcatalog.IndexMetadata{
			{Name: "ux_name", Unique: true, Keys: []sqlcatalog.IndexKey{{Column: "LastName", Ordinal: 1}, {Column: "Id", Ordinal: 2}}},
		},
		nil,
	)
	require.NoError(t, err)
	return tbl
}

func newPager(t *testing.T, q dialect.ExecQuerier, opts ...Option) *Pager {
	t.Helper()
	base := sqlquery.Select(sql.NewPostgres(), nil)
	_, err := base.From(sqlquery.Metadata(peopleTable(t)))
	require.NoError(t, err)
	base.SetWhereCondition(sqlquery.StringField("FirstName").NotNull())
	p, err := New(context.Background(), base, []string{"lastname"}, q, opts...)
	require.NoError(t, err)
	return p
}

const (
	firstQuery = "SELECT * FROM people T1 WHERE T1.FirstName is not NULL ORDER BY T1.LastName ASC, T1.Id ASC LIMIT 2"
	nextQuery  = "SELECT * FROM people T1 WHERE T1.FirstName is not NULL AND " +
		"(T1.LastName > $1 OR (T1.LastName = $1 AND T1.Id > $2)) ORDER BY T1.LastName ASC, T1.Id ASC LIMIT 2"
)

func TestNew(t *testing.T) {
	ctx := context.Background()
	p := newPager(t, nil)
	assert.Equal(t, []string{"LastName", "Id"}, p.Columns(), "key is extended to the whole index")
	assert.Equal(t, "ux_name", p.Index().Name)

	tbl, err := sqlcatalog.NewTableMetadata("", "teams",
		[]*sqlcatalog.ColumnMetadata{{Name: "Id", Ordinal: 1}, {Name: "Name", Ordinal: 2}},
		[]string{"Id"}, nil, nil)
	require.NoError(t, err)
	base := sqlquery.Select(sql.NewPostgres(), nil)
	_, err = base.From(sqlquery.Metadata(tbl))
	require.NoError(t, err)

	_, err = New(ctx, base, []string{"Name"}, nil)
	require.Error(t, err)
	assert.True(t, vellum.IsUncoveredIndex(err))
	var uie *vellum.UncoveredIndexError
	require.True(t, errors.As(err, &uie))
	assert.Equal(t, "teams", uie.Table)
	assert.Equal(t, []string{"Name"}, uie.Columns)

	p, err = New(ctx, base, []string{"id"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Id"}, p.Columns())

	_, err = New(ctx, base, []string{"Nope"}, nil)
	assert.True(t, vellum.IsNotFound(err))
	_, err = New(ctx, base, nil, nil)
	assert.True(t, vellum.IsInvalidArgument(err))
	_, err = New(ctx, sqlquery.Delete(sql.NewPostgres(), nil), []string{"Id"}, nil)
	assert.True(t, vellum.IsInvalidArgument(err))

	view := sqlquery.Select(sql.NewPostgres(), nil)
	_, err = view.From(sqlquery.View(base))
	require.NoError(t, err)
	_, err = New(ctx, view, []string{"Id"}, nil)
	assert.True(t, vellum.IsInvalidArgument(err))
}

func TestStatement(t *testing.T) {
	ctx := context.Background()
	p := newPager(t, nil, WithPageSize(2))

	tests := []struct {
		name  string
		setup func()
		dir   Direction
		size  int
		want  string
	}{
		{
			name: "first",
			dir:  First,
			want: firstQuery,
		},
		{
			name: "next without cursor",
			dir:  Next,
			want: firstQuery,
		},
		{
			name: "previous without cursor",
			dir:  Previous,
			size: -1,
			want: "SELECT * FROM people T1 WHERE T1.FirstName is not NULL ORDER BY T1.LastName DESC, T1.Id DESC LIMIT 2",
		},
		{
			name: "next",
			setup: func() {
				p.first = key{sql.TextValue("Adams"), sql.IntValue(1)}
				p.last = key{sql.TextValue("Baker"), sql.IntValue(2)}
			},
			dir:  Next,
			size: 10,
			want: "SELECT * FROM people T1 WHERE T1.FirstName is not NULL AND " +
				"(T1.LastName > :PageLastName OR (T1.LastName = :PageLastName AND T1.Id > :PageId)) " +
				"ORDER BY T1.LastName ASC, T1.Id ASC LIMIT 10",
		},
		{
			name: "previous",
			dir:  Previous,
			want: "SELECT * FROM people T1 WHERE T1.FirstName is not NULL AND " +
				"(T1.LastName < :PageLastName OR (T1.LastName = :PageLastName AND T1.Id < :PageId)) " +
				"ORDER BY T1.LastName DESC, T1.Id DESC LIMIT 2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			stmt, err := p.Statement(ctx, tt.dir, tt.size)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stmt.Text)
		})
	}

	stmt, err := p.Statement(ctx, Previous, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"PageLastName", "PageId"}, stmt.Params.Names())
	last, _ := stmt.Params.Get("PageLastName")
	assert.Equal(t, sql.TextValue("Adams"), last.Value)
	assert.Equal(t, sql.TypeString, last.Type)

	_, err = p.Statement(ctx, Direction(9), 0)
	assert.True(t, vellum.IsInvalidArgument(err))
}

func TestGetPage(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()
	p := newPager(t, sql.OpenDB(dialect.Postgres, db), WithPageSize(2))
	header := []string{"Id", "LastName", "FirstName"}

	mock.ExpectQuery(firstQuery).WillReturnRows(sqlmock.NewRows(header).
		AddRow(int64(1), "Adams", "Ann").
		AddRow(int64(2), "Baker", "Bob"))
	rows, err := p.GetNextPage(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	name, ok := rows[1].Get("lastname")
	require.True(t, ok)
	assert.Equal(t, "Baker", name)
	assert.Equal(t, map[string]any{"Id": int64(1), "LastName": "Adams", "FirstName": "Ann"}, rows[0].Map())

	state, err := p.GetPagingState()
	require.NoError(t, err)

	mock.ExpectQuery(nextQuery).WithArgs("Baker", int64(2)).WillReturnRows(sqlmock.NewRows(header))
	rows, err = p.GetNextPage(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
	after, err := p.GetPagingState()
	require.NoError(t, err)
	assert.Equal(t, state, after, "an empty page keeps the cursor")

	mock.ExpectQuery(nextQuery).WithArgs("Baker", int64(2)).WillReturnError(errors.New("connection reset"))
	_, err = p.GetNextPage(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlpage: fetch next page of people")

	mock.ExpectQuery(nextQuery).WithArgs("Baker", int64(2)).WillReturnRows(sqlmock.NewRows([]string{"FirstName"}).AddRow("Cid"))
	_, err = p.GetNextPage(ctx)
	assert.True(t, vellum.IsInvalidArgument(err), "key columns must be projected")

	require.NoError(t, mock.ExpectationsWereMet())

	_, err = newPager(t, nil).GetFirstPage(ctx)
	assert.True(t, vellum.IsInvalidArgument(err))
}

func TestGetPageAddsKeyColumns(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	base := sqlquery.Select(sql.NewPostgres(), nil)
	_, err = base.From(sqlquery.Metadata(peopleTable(t)), sqlquery.Col("FirstName"), sqlquery.Col("lastname"))
	require.NoError(t, err)
	p, err := New(ctx, base, []string{"LastName"}, sql.OpenDB(dialect.Postgres, db), WithPageSize(2))
	require.NoError(t, err)

	const query = "SELECT T1.FirstName, T1.LastName, T1.Id FROM people T1 ORDER BY T1.LastName ASC, T1.Id ASC LIMIT 2"
	stmt, err := p.Statement(ctx, First, 0)
	require.NoError(t, err)
	assert.Equal(t, query, stmt.Text)

	mock.ExpectQuery(query).WillReturnRows(sqlmock.NewRows([]string{"FirstName", "LastName", "Id"}).
		AddRow("Ann", "Adams", int64(1)).
		AddRow("Bob", "Baker", int64(2)))
	rows, err := p.GetFirstPage(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, key{sql.TextValue("Baker"), sql.IntValue(2)}, p.last)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.True(t, base.Clone().Projects("FirstName"))
	assert.False(t, base.Projects("Id"), "the base builder is left untouched")
}

func TestParseDirection(t *testing.T) {
	for _, d := range []Direction{First, Next, Previous, Last} {
		got, err := ParseDirection(d.String())
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}
	got, err := ParseDirection("PREVIOUS")
	require.NoError(t, err)
	assert.Equal(t, Previous, got)
	_, err = ParseDirection("sideways")
	assert.True(t, vellum.IsInvalidArgument(err))
}
