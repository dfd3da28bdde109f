package sqlquery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/vellum"
	"github.com/syssam/vellum/dialect/sql"
)

type rawNode struct{}

func (rawNode) node() {}

func compile(t *testing.T, p sql.Provider, n Node) (*Statement, error) {
	t.Helper()
	b := Select(p, nil)
	_, err := b.From(Table("", "t"))
	require.NoError(t, err)
	return CompilePredicate(context.Background(), b, n)
}

func TestCompileParentheses(t *testing.T) {
	a := EQ(Col("a"), V(1))
	b := EQ(Col("b"), V(2))
	c := EQ(Col("c"), V(3))
	d := EQ(Col("d"), V(4))
	tests := []struct {
		name string
		node Node
		want string
	}{
		{"and chain", And(a, b, c), "T1.a = 1 AND T1.b = 2 AND T1.c = 3"},
		{"or chain", Or(a, b, c), "T1.a = 1 OR T1.b = 2 OR T1.c = 3"},
		{"right nested and", &AndExpr{Left: a, Right: &AndExpr{Left: b, Right: c}}, "T1.a = 1 AND T1.b = 2 AND T1.c = 3"},
		{"and inside or", Or(And(a, b), c), "(T1.a = 1 AND T1.b = 2) OR T1.c = 3"},
		{"or inside and", And(Or(a, b), Or(c, d)), "(T1.a = 1 OR T1.b = 2) AND (T1.c = 3 OR T1.d = 4)"},
		{"not group", Not(And(a, b)), "NOT (T1.a = 1 AND T1.b = 2)"},
		{"not comparison", Not(a), "NOT (T1.a = 1)"},
		{"not column", Not(Col("flag")), "NOT T1.flag"},
		{"nil skipped", And(nil, a, nil), "T1.a = 1"},
		{"function", EQ(Func("lower", Col("name")), V("x")), "lower(T1.name) = 'x'"},
		{"like", HasPrefix(Col("name"), "Sm"), "T1.name LIKE :name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := compile(t, sql.NewPostgres(), tt.node)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stmt.Text)
		})
	}
}

func TestCompileNull(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want string
	}{
		{"eq", EQ(Col("a"), Null()), "T1.a is NULL"},
		{"neq", NEQ(Col("a"), Null()), "T1.a is not NULL"},
		{"null on the left", EQ(Null(), Col("a")), "T1.a is NULL"},
		{"nil value", EQ(Col("a"), V(nil)), "T1.a is NULL"},
		{"helpers", And(IsNull(Col("a")), NotNull(Col("b"))), "T1.a is NULL AND T1.b is not NULL"},
		{"null parameter", EQ(Col("TeamId"), P("Team", (*string)(nil))), "T1.TeamId is NULL"},
		{"null parameter neq", NEQ(Col("TeamId"), P("Team", (*int64)(nil))), "T1.TeamId is not NULL"},
		{"null bound column", EQ(Col("TeamId"), Bind("", Col("TeamId"), nil)), "T1.TeamId is NULL"},
		{"null field", Field[*string]("Name").EQ(nil), "T1.Name is NULL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := compile(t, sql.NewPostgres(), tt.node)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stmt.Text)
			assert.Zero(t, stmt.Params.Len())
		})
	}

	_, err := compile(t, sql.NewPostgres(), LT(Col("a"), Null()))
	assert.True(t, vellum.IsUnsupportedExpression(err))
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name  string
		node  Node
		check func(error) bool
	}{
		{"unknown node", rawNode{}, vellum.IsUnsupportedExpression},
		{"unknown node nested", And(EQ(Col("a"), V(1)), rawNode{}), vellum.IsUnsupportedExpression},
		{"nil node", nil, vellum.IsUnsupportedExpression},
		{"unknown operator", &Comparison{Op: Op(99), Left: Col("a"), Right: V(1)}, vellum.IsUnsupportedExpression},
		{"unknown alias", EQ(C("T9", "a"), V(1)), vellum.IsNotFound},
		{"unregistered ref", EQ(Col("a"), Ref("Missing")), vellum.IsNotFound},
		{"bad value", V(struct{}{}), vellum.IsInvalidArgument},
		{"bad name", EQ(Col("a"), P("no space", 1)), vellum.IsInvalidArgument},
		{"empty in", StringField("a").In(), vellum.IsInvalidArgument},
		{"conflicting values", And(EQ(Col("a"), P("x", 1)), EQ(Col("b"), P("x", 2))), vellum.IsInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compile(t, sql.NewPostgres(), tt.node)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}
}

func TestCompileParameters(t *testing.T) {
	t.Run("shared name", func(t *testing.T) {
		stmt, err := compile(t, sql.NewPostgres(), Or(EQ(Col("a"), P("x", 1)), EQ(Col("b"), P("x", int64(1)))))
		require.NoError(t, err)
		assert.Equal(t, "T1.a = :x OR T1.b = :x", stmt.Text)
		assert.Equal(t, 1, stmt.Params.Len())
	})
	t.Run("generated names", func(t *testing.T) {
		stmt, err := compile(t, sql.NewPostgres(), And(
			Int64Field("Id").In(1, 2, 3),
			Int64Field("Id").NEQ(9),
			Between(Col("Age"), 18, 65),
		))
		require.NoError(t, err)
		assert.Equal(t, "T1.Id IN (:Id_1, :Id_2, :Id_3) AND T1.Id <> :Id AND T1.Age BETWEEN :Age_1 AND :Age_2", stmt.Text)
		assert.Equal(t, []string{"Id_1", "Id_2", "Id_3", "Id", "Age_1", "Age_2"}, stmt.Params.Names())
	})
	t.Run("sqlserver tokens", func(t *testing.T) {
		stmt, err := compile(t, sql.NewSQLServer(), StringField("Status").EQ("open"))
		require.NoError(t, err)
		assert.Equal(t, "T1.Status = @Status", stmt.Text)
	})
	t.Run("truncated", func(t *testing.T) {
		p := sql.NewOracle()
		stmt, err := compile(t, p, IntField("AnExtremelyLongColumnNameForOracle").EQ(1))
		require.NoError(t, err)
		names := stmt.Params.Names()
		require.Len(t, names, 1)
		assert.LessOrEqual(t, len(p.BindPrefix())+len(names[0]), p.MaxIdentifierLength())
		assert.Equal(t, "T1.AnExtremelyLongColumnNameForOracle = :"+names[0], stmt.Text)
	})
	t.Run("explicit parameter", func(t *testing.T) {
		p := sql.NewParameter("Since", sql.IntValue(2020))
		stmt, err := compile(t, sql.NewPostgres(), GTE(Col("Year"), Param(p)))
		require.NoError(t, err)
		assert.Equal(t, "T1.Year >= :Since", stmt.Text)
		got, ok := stmt.Params.Get("since")
		require.True(t, ok)
		assert.NotSame(t, p, got)
	})
}

func TestField(t *testing.T) {
	name := StringField("Name")
	tests := []struct {
		name string
		node Node
		want string
	}{
		{"eq", name.EQ("a"), "T1.Name = :Name"},
		{"gt", IntField("Age").GT(3), "T1.Age > :Age"},
		{"not in", name.NotIn("a", "b"), "T1.Name NOT IN (:Name_1, :Name_2)"},
		{"between", IntField("Age").Between(1, 2), "T1.Age BETWEEN :Age_1 AND :Age_2"},
		{"is null", name.IsNull(), "T1.Name is NULL"},
		{"qualified", name.Of("T1").NotNull(), "T1.Name is not NULL"},
		{"bool", BoolField("Active").EQ(true), "T1.Active = :Active"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := compile(t, sql.NewPostgres(), tt.node)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stmt.Text)
		})
	}
	assert.Equal(t, "Name", StringField("T2.Name").Name())
	assert.Equal(t, StringField("T3.Name"), StringField("T2.Name").Of("T3"))
}
