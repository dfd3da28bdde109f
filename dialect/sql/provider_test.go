package sql

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/vellum"
	"github.com/syssam/vellum/dialect"
)

func TestProviderFor(t *testing.T) {
	for _, name := range []string{"postgresql", "pgx", "mariadb", "sqlite3", "mssql", "godror"} {
		p, err := ProviderFor(name)
		require.NoError(t, err, name)
		require.NotNil(t, p)
	}
	p, err := ProviderFor(dialect.SQLServer, WithDefaultSchema("sales"), WithMaxIdentifierLength(20))
	require.NoError(t, err)
	assert.Equal(t, "sales", p.DefaultSchema())
	assert.Equal(t, 20, p.MaxIdentifierLength())

	_, err = ProviderFor("db2")
	require.Error(t, err)
	assert.True(t, vellum.IsInvalidArgument(err))
}

func TestBindArgs(t *testing.T) {
	params := NewParameterSet(
		NewParameter("A", IntValue(1)),
		NewParameter("B", TextValue("x")),
	)
	t.Run("postgres", func(t *testing.T) {
		text, args, err := NewPostgres().BindArgs("SELECT 1 WHERE a = :A OR b = :B OR c = :a", params)
		require.NoError(t, err)
		assert.Equal(t, "SELECT 1 WHERE a = $1 OR b = $2 OR c = $1", text)
		assert.Equal(t, []any{int64(1), "x"}, args)
	})
	t.Run("mysql", func(t *testing.T) {
		text, args, err := NewMySQL().BindArgs("SELECT 1 WHERE a = :A OR b = :B OR c = :a", params)
		require.NoError(t, err)
		assert.Equal(t, "SELECT 1 WHERE a = ? OR b = ? OR c = ?", text)
		assert.Equal(t, []any{int64(1), "x", int64(1)}, args)
	})
	t.Run("sqlserver", func(t *testing.T) {
		text, args, err := NewSQLServer().BindArgs("SELECT 1 WHERE a = @A OR c = @A", params)
		require.NoError(t, err)
		assert.Equal(t, "SELECT 1 WHERE a = @A OR c = @A", text)
		assert.Equal(t, []any{sql.Named("A", int64(1))}, args)
	})
	t.Run("no tokens", func(t *testing.T) {
		text, args, err := NewSQLite().BindArgs("SELECT 1", nil)
		require.NoError(t, err)
		assert.Equal(t, "SELECT 1", text)
		assert.Empty(t, args)
	})
	t.Run("missing", func(t *testing.T) {
		_, _, err := NewPostgres().BindArgs("SELECT :C", params)
		assert.True(t, vellum.IsNotFound(err))
	})
	t.Run("unresolved reference", func(t *testing.T) {
		ps := NewParameterSet(NewParameter("R", ParamValue("A")))
		_, _, err := NewPostgres().BindArgs("SELECT :R", ps)
		assert.True(t, vellum.IsInvalidArgument(err))
	})
}

func TestFormatSelectWithMaxRows(t *testing.T) {
	const q = "SELECT T1.Id FROM people T1 ORDER BY T1.Id"
	tests := []struct {
		name  string
		p     Provider
		query string
		limit Limit
		want  string
	}{
		{"postgres", NewPostgres(), q, LimitRows(10), q + " LIMIT 10"},
		{"mysql param", NewMySQL(), q, LimitParam("PageSize"), q + " LIMIT :PageSize"},
		{"sqlite", NewSQLite(), q + ";", LimitRows(0), q + " LIMIT 0"},
		{"sqlserver", NewSQLServer(), q, LimitRows(5), "SELECT TOP (5) T1.Id FROM people T1 ORDER BY T1.Id"},
		{"sqlserver distinct", NewSQLServer(), "SELECT DISTINCT T1.Id FROM people T1", LimitParam("N"), "SELECT DISTINCT TOP (@N) T1.Id FROM people T1"},
		{"oracle", NewOracle(), q, LimitRows(3), q + " FETCH FIRST 3 ROWS ONLY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.p.FormatSelectWithMaxRows(tt.query, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := NewSQLServer().FormatSelectWithMaxRows("DELETE FROM people", LimitRows(1))
	assert.True(t, vellum.IsInvalidArgument(err))
	_, err = NewPostgres().FormatSelectWithMaxRows(q, LimitRows(-1))
	assert.True(t, vellum.IsInvalidArgument(err))
}

func TestLiteral(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	tests := []struct {
		name string
		p    Provider
		v    Value
		want string
	}{
		{"null", NewPostgres(), Null, "NULL"},
		{"pg bool", NewPostgres(), BoolValue(true), "TRUE"},
		{"sqlite bool", NewSQLite(), BoolValue(false), "0"},
		{"int", NewMySQL(), IntValue(-4), "-4"},
		{"decimal", NewOracle(), MustDecimal("1.50"), "1.50"},
		{"pg text", NewPostgres(), TextValue("O'Brien"), "'O''Brien'"},
		{"mysql backslash", NewMySQL(), TextValue(`a\b`), `'a\\b'`},
		{"mssql time", NewSQLServer(), TimeValue(ts), "'2024-03-01 10:30:00'"},
		{"oracle time", NewOracle(), TimeValue(ts), "TIMESTAMP '2024-03-01 10:30:00'"},
		{"sqlite bytes", NewSQLite(), BytesValue([]byte{0xab}), "X'AB'"},
		{"mssql bytes", NewSQLServer(), BytesValue([]byte{0xab}), "0xAB"},
		{"oracle bytes", NewOracle(), BytesValue([]byte{0xab}), "HEXTORAW('AB')"},
		{"pg bytes", NewPostgres(), BytesValue([]byte{0xab}), "decode('ab', 'hex')"},
		{"param", NewSQLServer(), ParamValue("Status"), "@Status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.p.Literal(tt.v)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenericType(t *testing.T) {
	tests := []struct {
		name      string
		p         Provider
		native    string
		precision int
		scale     int
		want      DbType
	}{
		{"pg varchar", NewPostgres(), "character varying(50)", 0, 0, TypeString},
		{"pg timestamptz", NewPostgres(), "timestamp with time zone", 0, 0, TypeDateTime},
		{"pg uuid", NewPostgres(), "uuid", 0, 0, TypeGUID},
		{"mysql tinyint bool", NewMySQL(), "tinyint(1)", 3, 0, TypeBool},
		{"mysql tinyint", NewMySQL(), "tinyint(4)", 3, 0, TypeInt16},
		{"mysql unsigned", NewMySQL(), "int(10) unsigned", 10, 0, TypeInt32},
		{"mysql uuid", NewMySQL(), "char(36)", 0, 0, TypeGUID},
		{"sqlite integer", NewSQLite(), "INTEGER", 0, 0, TypeInt64},
		{"sqlite text", NewSQLite(), "VARCHAR(20)", 0, 0, TypeString},
		{"sqlite numeric", NewSQLite(), "NUMERIC", 0, 0, TypeDecimal},
		{"mssql bit", NewSQLServer(), "bit", 0, 0, TypeBool},
		{"oracle number int", NewOracle(), "NUMBER", 9, 0, TypeInt32},
		{"oracle number decimal", NewOracle(), "NUMBER", 10, 2, TypeDecimal},
		{"unknown", NewPostgres(), "tsvector", 0, 0, TypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.GenericType(tt.native, tt.precision, tt.scale))
		})
	}
}

func TestNewMySQLFromDSN(t *testing.T) {
	p, err := NewMySQLFromDSN("user:pass@tcp(localhost:3306)/shop?parseTime=true")
	require.NoError(t, err)
	assert.Equal(t, "shop", p.DefaultSchema())

	_, err = NewMySQLFromDSN("not a dsn")
	require.Error(t, err)
}

func TestCompoundBlock(t *testing.T) {
	begin, end := NewOracle().CompoundBlock()
	assert.Equal(t, "BEGIN", begin)
	assert.Equal(t, "END;", end)
	begin, end = NewPostgres().CompoundBlock()
	assert.Empty(t, begin)
	assert.Empty(t, end)
}

func TestCatalogQueries(t *testing.T) {
	for _, name := range dialect.Names() {
		p, err := ProviderFor(name)
		require.NoError(t, err)
		t.Run(name, func(t *testing.T) {
			for _, q := range []CatalogQuery{
				p.ColumnsQuery("s", "t"),
				p.PrimaryKeyQuery("s", "t"),
				p.IndexesQuery("s", "t"),
				p.ForeignKeysQuery("s", "t"),
				p.TableExistsQuery("s", "t"),
			} {
				assert.NotEmpty(t, q.Text)
				assert.Len(t, q.Args, 2)
			}
		})
	}
}
