package sql

import (
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/syssam/vellum/dialect"
)

// MySQL is the MySQL/MariaDB provider. An empty schema resolves to the
// connection's current database.
type MySQL struct {
	provider
}

// NewMySQL returns the MySQL provider.
func NewMySQL(opts ...ProviderOption) *MySQL {
	return &MySQL{provider: newProvider(provider{
		name:     dialect.MySQL,
		maxIdent: 64,
		prefix:   ":",
		bind:     bindQuestion,
		trueLit:  "TRUE",
		falseLit: "FALSE",
		quote:    quoteEscaped,
		hexBytes: hexX,
		limit:    limitSuffix("LIMIT"),
	}, opts)}
}

// NewMySQLFromDSN returns a MySQL provider whose default schema is the
// database named in a go-sql-driver DSN.
func NewMySQLFromDSN(dsn string, opts ...ProviderOption) (*MySQL, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: parse mysql dsn: %w", err)
	}
	return NewMySQL(append([]ProviderOption{WithDefaultSchema(cfg.DBName)}, opts...)...), nil
}

// GenericType implements Provider.
func (*MySQL) GenericType(native string, precision, scale int) DbType {
	switch strings.ToLower(strings.TrimSpace(native)) {
	case "tinyint(1)":
		return TypeBool
	case "char(36)", "binary(16)":
		return TypeGUID
	}
	switch nativeBase(native) {
	case "bool", "boolean", "bit":
		return TypeBool
	case "tinyint", "smallint", "year":
		return TypeInt16
	case "mediumint", "int", "integer":
		return TypeInt32
	case "bigint":
		return TypeInt64
	case "decimal", "numeric":
		return TypeDecimal
	case "float", "double", "real":
		return TypeDouble
	case "varchar", "text", "tinytext", "mediumtext", "longtext", "enum", "set", "json":
		return TypeString
	case "char":
		return TypeFixedString
	case "date":
		return TypeDate
	case "datetime", "timestamp":
		return TypeDateTime
	case "binary", "varbinary", "blob", "tinyblob", "mediumblob", "longblob":
		return TypeBinary
	}
	return TypeUnknown
}

// NativeType implements Provider.
func (*MySQL) NativeType(t DbType, size, precision, scale int) string {
	switch t {
	case TypeBool:
		return "tinyint(1)"
	case TypeInt16:
		return "smallint"
	case TypeInt32:
		return "int"
	case TypeInt64:
		return "bigint"
	case TypeDecimal:
		return decimalSuffix("decimal", precision, scale)
	case TypeDouble:
		return "double"
	case TypeString:
		if size <= 0 {
			return "longtext"
		}
		return sizeSuffix("varchar", size)
	case TypeFixedString:
		return sizeSuffix("char", size)
	case TypeDate:
		return "date"
	case TypeDateTime:
		return "datetime(6)"
	case TypeBinary:
		if size <= 0 {
			return "longblob"
		}
		return sizeSuffix("varbinary", size)
	case TypeGUID:
		return "char(36)"
	}
	return "longtext"
}

const mysqlSchema = "COALESCE(NULLIF(?, ''), DATABASE())"

// ColumnsQuery implements Provider.
func (*MySQL) ColumnsQuery(schema, table string) CatalogQuery {
	return CatalogQuery{
		Text: `SELECT COLUMN_NAME, ORDINAL_POSITION, COLUMN_TYPE, IS_NULLABLE = 'YES',
	EXTRA LIKE '%auto_increment%', COLUMN_DEFAULT IS NOT NULL,
	CHARACTER_MAXIMUM_LENGTH, NUMERIC_PRECISION, NUMERIC_SCALE
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = ` + mysqlSchema + ` AND TABLE_NAME = ?
ORDER BY ORDINAL_POSITION`,
		Args: []any{schema, table},
	}
}

// PrimaryKeyQuery implements Provider.
func (*MySQL) PrimaryKeyQuery(schema, table string) CatalogQuery {
	return CatalogQuery{
		Text: `SELECT COLUMN_NAME, ORDINAL_POSITION
FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE
WHERE TABLE_SCHEMA = ` + mysqlSchema + ` AND TABLE_NAME = ? AND CONSTRAINT_NAME = 'PRIMARY'
ORDER BY ORDINAL_POSITION`,
		Args: []any{schema, table},
	}
}

// IndexesQuery implements Provider. InnoDB clusters rows on the primary key.
func (*MySQL) IndexesQuery(schema, table string) CatalogQuery {
	return CatalogQuery{
		Text: `SELECT INDEX_NAME, NON_UNIQUE = 0, INDEX_NAME = 'PRIMARY', INDEX_NAME = 'PRIMARY',
	COLUMN_NAME, SEQ_IN_INDEX, COLLATION = 'D', EXPRESSION
FROM INFORMATION_SCHEMA.STATISTICS
WHERE TABLE_SCHEMA = ` + mysqlSchema + ` AND TABLE_NAME = ?
ORDER BY INDEX_NAME, SEQ_IN_INDEX`,
		Args: []any{schema, table},
	}
}

// ForeignKeysQuery implements Provider.
func (*MySQL) ForeignKeysQuery(schema, table string) CatalogQuery {
	return CatalogQuery{
		Text: `SELECT CONSTRAINT_NAME, COLUMN_NAME, REFERENCED_TABLE_SCHEMA, REFERENCED_TABLE_NAME,
	REFERENCED_COLUMN_NAME, ORDINAL_POSITION
FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE
WHERE TABLE_SCHEMA = ` + mysqlSchema + ` AND TABLE_NAME = ? AND REFERENCED_TABLE_NAME IS NOT NULL
ORDER BY CONSTRAINT_NAME, ORDINAL_POSITION`,
		Args: []any{schema, table},
	}
}

// TableExistsQuery implements Provider.
func (*MySQL) TableExistsQuery(schema, table string) CatalogQuery {
	return CatalogQuery{
		Text: `SELECT 1 FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = ` + mysqlSchema + ` AND TABLE_NAME = ?`,
		Args: []any{schema, table},
	}
}

var _ Provider = (*MySQL)(nil)
