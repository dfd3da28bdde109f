package sql

import (
	"strings"

	"github.com/syssam/vellum/dialect"
)

// SQLite is the SQLite provider. Catalog queries read the table-valued
// pragma functions, so SQLite 3.37 or later is required.
type SQLite struct {
	provider
}

// NewSQLite returns the SQLite provider.
func NewSQLite(opts ...ProviderOption) *SQLite {
	return &SQLite{provider: newProvider(provider{
		name:          dialect.SQLite,
		defaultSchema: "main",
		maxIdent:      128,
		prefix:        ":",
		bind:          bindQuestion,
		trueLit:       "1",
		falseLit:      "0",
		quote:         quoteString,
		hexBytes:      hexX,
		limit:         limitSuffix("LIMIT"),
	}, opts)}
}

// GenericType implements Provider following SQLite's type affinity rules,
// with date, boolean and uuid declarations recognised first.
func (*SQLite) GenericType(native string, precision, scale int) DbType {
	s := strings.ToUpper(native)
	switch {
	case strings.Contains(s, "BOOL"):
		return TypeBool
	case strings.Contains(s, "UUID"), strings.Contains(s, "GUID"):
		return TypeGUID
	case strings.HasPrefix(s, "DATE") && !strings.Contains(s, "TIME"):
		return TypeDate
	case strings.Contains(s, "DATE"), strings.Contains(s, "TIME"):
		return TypeDateTime
	case strings.Contains(s, "INT"):
		return TypeInt64
	case strings.Contains(s, "CHAR"), strings.Contains(s, "CLOB"), strings.Contains(s, "TEXT"):
		return TypeString
	case s == "", strings.Contains(s, "BLOB"):
		return TypeBinary
	case strings.Contains(s, "REAL"), strings.Contains(s, "FLOA"), strings.Contains(s, "DOUB"):
		return TypeDouble
	}
	return TypeDecimal
}

// NativeType implements Provider.
func (*SQLite) NativeType(t DbType, size, precision, scale int) string {
	switch t {
	case TypeBool:
		return "boolean"
	case TypeInt16, TypeInt32, TypeInt64:
		return "integer"
	case TypeDecimal:
		return decimalSuffix("numeric", precision, scale)
	case TypeDouble:
		return "real"
	case TypeString, TypeFixedString:
		return sizeSuffix("varchar", size)
	case TypeDate:
		return "date"
	case TypeDateTime:
		return "datetime"
	case TypeBinary:
		return "blob"
	case TypeGUID:
		return "uuid"
	}
	return "text"
}

// ColumnsQuery implements Provider. An INTEGER primary key column is the
// rowid alias and is reported as an identity column.
func (*SQLite) ColumnsQuery(schema, table string) CatalogQuery {
	return CatalogQuery{
		Text: `SELECT name, cid + 1, type, "notnull" = 0,
	pk = 1 AND upper(type) = 'INTEGER' AND (SELECT count(*) FROM pragma_table_info(?1, ?2) WHERE pk > 0) = 1,
	dflt_value IS NOT NULL, NULL, NULL, NULL
FROM pragma_table_info(?1, ?2)
ORDER BY cid`,
		Args: []any{table, schema},
	}
}

// PrimaryKeyQuery implements Provider.
func (*SQLite) PrimaryKeyQuery(schema, table string) CatalogQuery {
	return CatalogQuery{
		Text: `SELECT name, pk FROM pragma_table_info(?1, ?2) WHERE pk > 0 ORDER BY pk`,
		Args: []any{table, schema},
	}
}

// IndexesQuery implements Provider. Auxiliary rowid columns of an index are
// skipped; expression columns have no name.
func (*SQLite) IndexesQuery(schema, table string) CatalogQuery {
	return CatalogQuery{
		Text: `SELECT il.name, il."unique", 0, il.origin = 'pk', ix.name, ix.seqno + 1, ix."desc",
	CASE WHEN ix.cid = -2 THEN 'expression' END
FROM pragma_index_list(?1, ?2) AS il, pragma_index_xinfo(il.name, ?2) AS ix
WHERE ix."key" = 1
ORDER BY il.name, ix.seqno`,
		Args: []any{table, schema},
	}
}

// ForeignKeysQuery implements Provider. SQLite does not name foreign keys,
// so the constraint name is derived from the pragma id.
func (*SQLite) ForeignKeysQuery(schema, table string) CatalogQuery {
	return CatalogQuery{
		Text: `SELECT 'fk_' || id, "from", ?2, "table", COALESCE("to", ''), seq + 1
FROM pragma_foreign_key_list(?1, ?2)
ORDER BY id, seq`,
		Args: []any{table, schema},
	}
}

// TableExistsQuery implements Provider.
func (*SQLite) TableExistsQuery(schema, table string) CatalogQuery {
	return CatalogQuery{
		Text: `SELECT 1 FROM pragma_table_list WHERE schema = ?1 AND name = ?2`,
		Args: []any{schema, table},
	}
}

var _ Provider = (*SQLite)(nil)
