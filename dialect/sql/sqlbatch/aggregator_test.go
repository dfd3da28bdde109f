package sqlbatch

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/vellum"
	"github.com/syssam/vellum/dialect/sql"
	"github.com/syssam/vellum/dialect/sql/sqlquery"
)

func stmt(text string, params ...*sql.Parameter) *sqlquery.Statement {
	return &sqlquery.Statement{Text: text, Params: sql.NewParameterSet(params...)}
}

func status(v string) *sql.Parameter {
	return sql.NewParameter("Status", sql.TextValue(v))
}

func TestAggregatorMergesEqualParameters(t *testing.T) {
	a := New(sql.NewPostgres())
	require.NoError(t, a.Add(stmt("UPDATE a SET x = 1 WHERE Status = :Status", status("open"))))
	require.NoError(t, a.Add(stmt("UPDATE b SET y = 2 WHERE Status = :Status;", status("open"))))

	s := a.Statement()
	assert.Equal(t, "UPDATE a SET x = 1 WHERE Status = :Status;\nUPDATE b SET y = 2 WHERE Status = :Status", s.Text)
	assert.Equal(t, []string{"Status"}, s.Params.Names())
	assert.Equal(t, 2, a.Len())
}

func TestAggregatorAliasesDifferingParameters(t *testing.T) {
	var buf bytes.Buffer
	a := New(sql.NewPostgres(), WithLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))))
	require.NoError(t, a.Add(stmt("DELETE FROM a WHERE Status = :Status", status("open"))))
	require.NoError(t, a.Add(stmt("DELETE FROM b WHERE Status = :Status OR Prev = :status", status("closed"))))
	require.NoError(t, a.Add(stmt("DELETE FROM c WHERE Status = :STATUS", status("closed"))))
	require.NoError(t, a.Add(stmt("DELETE FROM d WHERE Status = :Status", status("open"))))

	s := a.Statement()
	assert.Equal(t, "DELETE FROM a WHERE Status = :Status;\n"+
		"DELETE FROM b WHERE Status = :Status1 OR Prev = :Status1;\n"+
		"DELETE FROM c WHERE Status = :Status1;\n"+
		"DELETE FROM d WHERE Status = :Status", s.Text)
	assert.Equal(t, []string{"Status", "Status1"}, s.Params.Names())
	p, ok := s.Params.Get("Status1")
	require.True(t, ok)
	assert.Equal(t, sql.TextValue("closed"), p.Value)
	assert.Contains(t, buf.String(), "parameter aliased")

	text, args, err := s.Bind(sql.NewPostgres())
	require.NoError(t, err)
	assert.Contains(t, text, "DELETE FROM c WHERE Status = $2")
	assert.Equal(t, []any{"open", "closed"}, args)
}

func TestAggregatorIntegerWidening(t *testing.T) {
	a := New(sql.NewSQLServer())
	id64 := &sql.Parameter{Name: "Id", Type: sql.TypeInt64, Value: sql.IntValue(7)}
	id32 := &sql.Parameter{Name: "Id", Type: sql.TypeInt32, Value: sql.IntValue(7)}
	require.NoError(t, a.Add(stmt("DELETE FROM a WHERE Id = @Id", id64)))
	require.NoError(t, a.Add(stmt("DELETE FROM b WHERE Id = @Id", id32)))
	assert.Equal(t, 1, a.Parameters().Len())

	text := &sql.Parameter{Name: "Id", Type: sql.TypeString, Value: sql.IntValue(7)}
	require.NoError(t, a.Add(stmt("DELETE FROM c WHERE Id = @Id", text)))
	assert.Equal(t, []string{"Id", "Id1"}, a.Parameters().Names())
}

func TestAggregatorRewriteSkipsLiterals(t *testing.T) {
	a := New(sql.NewPostgres())
	require.NoError(t, a.Add(stmt("SELECT :Status", status("open"))))
	require.NoError(t, a.Add(stmt("SELECT ':Status' AS label, s FROM t WHERE s = :Status -- :Status", status("closed"))))
	assert.Equal(t, "SELECT :Status;\nSELECT ':Status' AS label, s FROM t WHERE s = :Status1 -- :Status", a.Statement().Text)

	require.NoError(t, a.Add(stmt("SELECT s FROM t WHERE s = /* :Status */ :Status", status("closed"))))
	assert.Contains(t, a.Statement().Text, "s = /* :Status */ :Status1")

	err := a.Add(stmt("DELETE FROM t WHERE s = 1 /* :Status */", status("pending")))
	assert.True(t, vellum.IsTokenReplaceFailure(err), "a token inside a block comment is not a use")
	assert.Equal(t, 3, a.Len())
}

func TestAggregatorTokenReplaceFailure(t *testing.T) {
	a := New(sql.NewPostgres())
	require.NoError(t, a.Add(stmt("DELETE FROM a WHERE Status = :Status", status("open"))))
	before := a.Statement()

	err := a.Add(stmt("DELETE FROM b WHERE Status = ':Status'", status("closed"), sql.NewParameter("Other", sql.IntValue(1))))
	require.Error(t, err)
	assert.True(t, vellum.IsTokenReplaceFailure(err))
	var tre *vellum.TokenReplaceError
	require.ErrorAs(t, err, &tre)
	assert.Equal(t, ":Status", tre.Token)
	assert.Equal(t, ":Status1", tre.Replacement)

	assert.Equal(t, 1, a.Len())
	assert.Equal(t, before.Text, a.Statement().Text)
	assert.Equal(t, []string{"Status"}, a.Parameters().Names(), "failed add leaves no parameters behind")

	require.NoError(t, a.Add(stmt("DELETE FROM c WHERE Status = :Status", status("closed"))))
	assert.Contains(t, a.Statement().Text, ":Status1", "alias is still free after the failed add")
}

func TestAggregatorSkipsIncomingNames(t *testing.T) {
	a := New(sql.NewPostgres())
	require.NoError(t, a.Add(stmt("DELETE FROM a WHERE Status = :Status", status("open"))))
	require.NoError(t, a.Add(stmt("DELETE FROM b WHERE Status = :Status AND Alt = :Status1",
		status("closed"), sql.NewParameter("Status1", sql.TextValue("x")))))
	assert.Equal(t, "DELETE FROM a WHERE Status = :Status;\nDELETE FROM b WHERE Status = :Status2 AND Alt = :Status1", a.Statement().Text)
	assert.Equal(t, []string{"Status", "Status2", "Status1"}, a.Parameters().Names())
}

func TestAggregatorTruncatesAliases(t *testing.T) {
	p := sql.NewOracle()
	long := "ABCDEFGHIJKLMNOPQRSTUVWXYZabc"
	a := New(p)
	require.NoError(t, a.Add(stmt("DELETE FROM a WHERE c = :"+long, sql.NewParameter(long, sql.IntValue(1)))))
	require.NoError(t, a.Add(stmt("DELETE FROM b WHERE c = :"+long, sql.NewParameter(long, sql.IntValue(2)))))
	names := a.Parameters().Names()
	require.Len(t, names, 2)
	assert.Equal(t, "ABCDEFGHIJKLMNOPQRSTUVWXYZab1", names[1])
	assert.LessOrEqual(t, len(p.BindPrefix())+len(names[1]), p.MaxIdentifierLength())
}

func TestAggregatorAttemptCap(t *testing.T) {
	defer func(n int) { maxAliasAttempts = n }(maxAliasAttempts)
	maxAliasAttempts = 2

	a := New(sql.NewPostgres())
	for _, v := range []string{"a", "b", "c"} {
		require.NoError(t, a.Add(stmt("DELETE FROM t WHERE s = :Status", status(v))))
	}
	err := a.Add(stmt("DELETE FROM t WHERE s = :Status", status("d")))
	assert.True(t, vellum.IsInvalidArgument(err))
	assert.Equal(t, 3, a.Len())
}

func TestAggregatorCompoundBlock(t *testing.T) {
	a := New(sql.NewOracle())
	require.NoError(t, a.Add(stmt("UPDATE a SET x = 1")))
	require.NoError(t, a.Add(stmt("DELETE FROM b;\n")))
	assert.Equal(t, "BEGIN\nUPDATE a SET x = 1;\nDELETE FROM b;\nEND;", a.Statement().Text)

	assert.True(t, vellum.IsInvalidArgument(a.Add(stmt("  "))))
	assert.True(t, vellum.IsInvalidArgument(a.Add(nil)))

	a.Reset()
	assert.Zero(t, a.Len())
	assert.Equal(t, "BEGIN\nEND;", a.Statement().Text)
}

func TestAggregatorBuiltStatements(t *testing.T) {
	ctx := context.Background()
	p := sql.NewPostgres()
	build := func(table, state string, id int) *sqlquery.Statement {
		b := sqlquery.Update(p, nil)
		_, err := b.From(sqlquery.Table("", table))
		require.NoError(t, err)
		require.NoError(t, b.AddColumn("Status", sqlquery.Generated(state), sqlquery.InsertUpdate))
		b.SetWhereCondition(sqlquery.Int64Field("Id").EQ(int64(id)))
		s, err := sqlquery.BuildStatement(ctx, b)
		require.NoError(t, err)
		return s
	}
	a := New(p)
	require.NoError(t, a.Add(build("orders", "shipped", 1)))
	require.NoError(t, a.Add(build("invoices", "shipped", 2)))
	s := a.Statement()
	assert.Equal(t, "UPDATE orders SET Status = :Status WHERE orders.Id = :Id;\n"+
		"UPDATE invoices SET Status = :Status WHERE invoices.Id = :Id1", s.Text)
	assert.Equal(t, []string{"Status", "Id", "Id1"}, s.Params.Names())
}
