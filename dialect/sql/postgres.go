package sql

import (
	"encoding/hex"

	"github.com/lib/pq"

	"github.com/syssam/vellum/dialect"
)

// Postgres is the PostgreSQL provider. Statements use ":name" tokens which
// BindArgs turns into "$n" placeholders.
type Postgres struct {
	provider
}

// NewPostgres returns the PostgreSQL provider.
func NewPostgres(opts ...ProviderOption) *Postgres {
	return &Postgres{provider: newProvider(provider{
		name:          dialect.Postgres,
		defaultSchema: "public",
		maxIdent:      63,
		prefix:        ":",
		bind:          bindDollar,
		trueLit:       "TRUE",
		falseLit:      "FALSE",
		quote:         pq.QuoteLiteral,
		hexBytes: func(b []byte) string {
			return "decode('" + hex.EncodeToString(b) + "', 'hex')"
		},
		limit: limitSuffix("LIMIT"),
	}, opts)}
}

// GenericType implements Provider.
func (*Postgres) GenericType(native string, precision, scale int) DbType {
	switch nativeBase(native) {
	case "boolean", "bool":
		return TypeBool
	case "smallint", "int2", "smallserial":
		return TypeInt16
	case "integer", "int", "int4", "serial":
		return TypeInt32
	case "bigint", "int8", "bigserial":
		return TypeInt64
	case "numeric", "decimal", "money":
		return TypeDecimal
	case "real", "float4", "double precision", "float8":
		return TypeDouble
	case "character varying", "varchar", "text", "citext", "name", "json", "jsonb", "xml":
		return TypeString
	case "character", "char", "bpchar":
		return TypeFixedString
	case "date":
		return TypeDate
	case "timestamp", "timestamp without time zone", "timestamp with time zone", "timestamptz":
		return TypeDateTime
	case "bytea":
		return TypeBinary
	case "uuid":
		return TypeGUID
	}
	return TypeUnknown
}

// NativeType implements Provider.
func (*Postgres) NativeType(t DbType, size, precision, scale int) string {
	switch t {
	case TypeBool:
		return "boolean"
	case TypeInt16:
		return "smallint"
	case TypeInt32:
		return "integer"
	case TypeInt64:
		return "bigint"
	case TypeDecimal:
		return decimalSuffix("numeric", precision, scale)
	case TypeDouble:
		return "double precision"
	case TypeString:
		if size <= 0 {
			return "text"
		}
		return sizeSuffix("varchar", size)
	case TypeFixedString:
		return sizeSuffix("char", size)
	case TypeDate:
		return "date"
	case TypeDateTime:
		return "timestamp"
	case TypeBinary:
		return "bytea"
	case TypeGUID:
		return "uuid"
	}
	return "text"
}

// ColumnsQuery implements Provider.
func (*Postgres) ColumnsQuery(schema, table string) CatalogQuery {
	return CatalogQuery{
		Text: `SELECT c.column_name, c.ordinal_position,
	CASE WHEN c.data_type IN ('USER-DEFINED', 'ARRAY') THEN c.udt_name ELSE c.data_type END,
	c.is_nullable = 'YES',
	c.is_identity = 'YES' OR COALESCE(c.column_default, '') LIKE 'nextval(%',
	c.column_default IS NOT NULL,
	c.character_maximum_length, c.numeric_precision, c.numeric_scale
FROM information_schema.columns c
WHERE c.table_schema = $1 AND c.table_name = $2
ORDER BY c.ordinal_position`,
		Args: []any{schema, table},
	}
}

// PrimaryKeyQuery implements Provider.
func (*Postgres) PrimaryKeyQuery(schema, table string) CatalogQuery {
	return CatalogQuery{
		Text: `SELECT a.attname, k.ord
FROM pg_index i
JOIN pg_class t ON t.oid = i.indrelid
JOIN pg_namespace n ON n.oid = t.relnamespace
CROSS JOIN LATERAL unnest(i.indkey) WITH ORDINALITY AS k(attnum, ord)
JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
WHERE i.indisprimary AND n.nspname = $1 AND t.relname = $2
ORDER BY k.ord`,
		Args: []any{schema, table},
	}
}

// IndexesQuery implements Provider. Columns past indnkeyatts are INCLUDE
// columns and are reported with ordinal 0.
func (*Postgres) IndexesQuery(schema, table string) CatalogQuery {
	return CatalogQuery{
		Text: `SELECT ic.relname, i.indisunique, i.indisclustered, i.indisprimary, a.attname,
	CASE WHEN k.ord > i.indnkeyatts THEN 0 ELSE k.ord END AS key_ordinal,
	k.ord <= i.indnkeyatts AND (i.indoption[k.ord - 1] & 1) = 1,
	CASE WHEN k.attnum = 0 THEN pg_get_indexdef(i.indexrelid, k.ord::int, true) END
FROM pg_index i
JOIN pg_class t ON t.oid = i.indrelid
JOIN pg_class ic ON ic.oid = i.indexrelid
JOIN pg_namespace n ON n.oid = t.relnamespace
CROSS JOIN LATERAL unnest(i.indkey) WITH ORDINALITY AS k(attnum, ord)
LEFT JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
WHERE n.nspname = $1 AND t.relname = $2
ORDER BY ic.relname, key_ordinal`,
		Args: []any{schema, table},
	}
}

// ForeignKeysQuery implements Provider.
func (*Postgres) ForeignKeysQuery(schema, table string) CatalogQuery {
	return CatalogQuery{
		Text: `SELECT con.conname, a.attname, rn.nspname, rt.relname, ra.attname, k.ord
FROM pg_constraint con
JOIN pg_class t ON t.oid = con.conrelid
JOIN pg_namespace n ON n.oid = t.relnamespace
JOIN pg_class rt ON rt.oid = con.confrelid
JOIN pg_namespace rn ON rn.oid = rt.relnamespace
CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(attnum, refattnum, ord)
JOIN pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
JOIN pg_attribute ra ON ra.attrelid = con.confrelid AND ra.attnum = k.refattnum
WHERE con.contype = 'f' AND n.nspname = $1 AND t.relname = $2
ORDER BY con.conname, k.ord`,
		Args: []any{schema, table},
	}
}

// TableExistsQuery implements Provider.
func (*Postgres) TableExistsQuery(schema, table string) CatalogQuery {
	return CatalogQuery{
		Text: `SELECT 1 FROM information_schema.tables WHERE table_schema = $1 AND table_name = $2`,
		Args: []any{schema, table},
	}
}

var _ Provider = (*Postgres)(nil)
