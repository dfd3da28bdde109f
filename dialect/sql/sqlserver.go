package sql

import (
	"strings"

	"github.com/syssam/vellum"
	"github.com/syssam/vellum/dialect"
)

// SQLServer is the Microsoft SQL Server provider. Row limits are rendered
// with TOP and parameters are bound by name.
type SQLServer struct {
	provider
}

// NewSQLServer returns the SQL Server provider.
func NewSQLServer(opts ...ProviderOption) *SQLServer {
	return &SQLServer{provider: newProvider(provider{
		name:          dialect.SQLServer,
		defaultSchema: "dbo",
		maxIdent:      128,
		prefix:        "@",
		paramPrefix:   "@",
		bind:          bindNamed,
		trueLit:       "1",
		falseLit:      "0",
		quote:         quoteString,
		hexBytes:      hex0x,
		limit:         limitTop,
	}, opts)}
}

// limitTop inserts TOP (n) after the leading SELECT [DISTINCT].
func limitTop(query, n string) (string, error) {
	q := strings.TrimLeft(query, " \t\n")
	if len(q) < 6 || !strings.EqualFold(q[:6], "SELECT") {
		return "", vellum.NewInvalidArgumentError("query", "row limit requires a SELECT statement")
	}
	head, rest := "SELECT", q[6:]
	if r := strings.TrimLeft(rest, " \t\n"); len(r) > 8 && strings.EqualFold(r[:8], "DISTINCT") && strings.ContainsRune(" \t\n", rune(r[8])) {
		head, rest = "SELECT DISTINCT", r[8:]
	}
	return head + " TOP (" + n + ")" + rest, nil
}

// GenericType implements Provider.
func (*SQLServer) GenericType(native string, precision, scale int) DbType {
	switch nativeBase(native) {
	case "bit":
		return TypeBool
	case "tinyint", "smallint":
		return TypeInt16
	case "int":
		return TypeInt32
	case "bigint":
		return TypeInt64
	case "decimal", "numeric", "money", "smallmoney":
		return TypeDecimal
	case "float", "real":
		return TypeDouble
	case "varchar", "nvarchar", "text", "ntext", "xml", "sysname":
		return TypeString
	case "char", "nchar":
		return TypeFixedString
	case "date":
		return TypeDate
	case "datetime", "datetime2", "smalldatetime", "datetimeoffset":
		return TypeDateTime
	case "binary", "varbinary", "image", "timestamp", "rowversion":
		return TypeBinary
	case "uniqueidentifier":
		return TypeGUID
	}
	return TypeUnknown
}

// NativeType implements Provider.
func (*SQLServer) NativeType(t DbType, size, precision, scale int) string {
	switch t {
	case TypeBool:
		return "bit"
	case TypeInt16:
		return "smallint"
	case TypeInt32:
		return "int"
	case TypeInt64:
		return "bigint"
	case TypeDecimal:
		return decimalSuffix("decimal", precision, scale)
	case TypeDouble:
		return "float"
	case TypeString:
		if size <= 0 {
			return "nvarchar(max)"
		}
		return sizeSuffix("nvarchar", size)
	case TypeFixedString:
		return sizeSuffix("nchar", size)
	case TypeDate:
		return "date"
	case TypeDateTime:
		return "datetime2"
	case TypeBinary:
		if size <= 0 {
			return "varbinary(max)"
		}
		return sizeSuffix("varbinary", size)
	case TypeGUID:
		return "uniqueidentifier"
	}
	return "sql_variant"
}

// ColumnsQuery implements Provider. Lengths of national character columns
// are reported in characters.
func (*SQLServer) ColumnsQuery(schema, table string) CatalogQuery {
	return CatalogQuery{
		Text: `SELECT c.name, c.column_id, ty.name, c.is_nullable, c.is_identity,
	CASE WHEN c.default_object_id <> 0 THEN 1 ELSE 0 END,
	CASE WHEN ty.name IN ('nchar', 'nvarchar') AND c.max_length > 0 THEN c.max_length / 2 ELSE c.max_length END,
	c.precision, c.scale
FROM sys.columns c
JOIN sys.tables t ON t.object_id = c.object_id
JOIN sys.schemas s ON s.schema_id = t.schema_id
JOIN sys.types ty ON ty.user_type_id = c.user_type_id
WHERE s.name = @p1 AND t.name = @p2
ORDER BY c.column_id`,
		Args: []any{schema, table},
	}
}

// PrimaryKeyQuery implements Provider.
func (*SQLServer) PrimaryKeyQuery(schema, table string) CatalogQuery {
	return CatalogQuery{
		Text: `SELECT c.name, ic.key_ordinal
FROM sys.indexes i
JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
JOIN sys.tables t ON t.object_id = i.object_id
JOIN sys.schemas s ON s.schema_id = t.schema_id
WHERE i.is_primary_key = 1 AND s.name = @p1 AND t.name = @p2
ORDER BY ic.key_ordinal`,
		Args: []any{schema, table},
	}
}

// IndexesQuery implements Provider. Included columns have key_ordinal 0.
func (*SQLServer) IndexesQuery(schema, table string) CatalogQuery {
	return CatalogQuery{
		Text: `SELECT i.name, i.is_unique, CASE WHEN i.type = 1 THEN 1 ELSE 0 END, i.is_primary_key,
	c.name, ic.key_ordinal, ic.is_descending_key, NULL
FROM sys.indexes i
JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
JOIN sys.tables t ON t.object_id = i.object_id
JOIN sys.schemas s ON s.schema_id = t.schema_id
WHERE i.type > 0 AND s.name = @p1 AND t.name = @p2
ORDER BY i.name, ic.key_ordinal`,
		Args: []any{schema, table},
	}
}

// ForeignKeysQuery implements Provider.
func (*SQLServer) ForeignKeysQuery(schema, table string) CatalogQuery {
	return CatalogQuery{
		Text: `SELECT fk.name, pc.name, rs.name, rt.name, rc.name, fkc.constraint_column_id
FROM sys.foreign_keys fk
JOIN sys.foreign_key_columns fkc ON fkc.constraint_object_id = fk.object_id
JOIN sys.columns pc ON pc.object_id = fkc.parent_object_id AND pc.column_id = fkc.parent_column_id
JOIN sys.columns rc ON rc.object_id = fkc.referenced_object_id AND rc.column_id = fkc.referenced_column_id
JOIN sys.tables t ON t.object_id = fk.parent_object_id
JOIN sys.schemas s ON s.schema_id = t.schema_id
JOIN sys.tables rt ON rt.object_id = fk.referenced_object_id
JOIN sys.schemas rs ON rs.schema_id = rt.schema_id
WHERE s.name = @p1 AND t.name = @p2
ORDER BY fk.name, fkc.constraint_column_id`,
		Args: []any{schema, table},
	}
}

// TableExistsQuery implements Provider.
func (*SQLServer) TableExistsQuery(schema, table string) CatalogQuery {
	return CatalogQuery{
		Text: `SELECT 1 FROM sys.tables t
JOIN sys.schemas s ON s.schema_id = t.schema_id
WHERE s.name = @p1 AND t.name = @p2`,
		Args: []any{schema, table},
	}
}

var _ Provider = (*SQLServer)(nil)
