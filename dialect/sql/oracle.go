package sql

import (
	"encoding/hex"
	"strings"

	"github.com/syssam/vellum/dialect"
)

// Oracle is the Oracle Database provider. Compound commands are wrapped in
// an anonymous PL/SQL block and an empty schema resolves to the session's
// current schema.
type Oracle struct {
	provider
}

// NewOracle returns the Oracle provider.
func NewOracle(opts ...ProviderOption) *Oracle {
	return &Oracle{provider: newProvider(provider{
		name:       dialect.Oracle,
		maxIdent:   30,
		prefix:     ":",
		bind:       bindNamed,
		trueLit:    "1",
		falseLit:   "0",
		timePrefix: "TIMESTAMP ",
		quote:      quoteString,
		hexBytes: func(b []byte) string {
			return "HEXTORAW('" + strings.ToUpper(hex.EncodeToString(b)) + "')"
		},
		limit: func(query, n string) (string, error) {
			return strings.TrimRight(query, " \n\t;") + " FETCH FIRST " + n + " ROWS ONLY", nil
		},
	}, opts)}
}

// CompoundBlock implements Provider.
func (*Oracle) CompoundBlock() (string, string) {
	return "BEGIN", "END;"
}

// GenericType implements Provider. NUMBER columns map by precision and
// scale: integral numbers pick the narrowest integer type.
func (*Oracle) GenericType(native string, precision, scale int) DbType {
	switch nativeBase(native) {
	case "number", "integer", "int", "smallint":
		if nativeBase(native) != "number" {
			return TypeInt64
		}
		return integerByPrecision(precision, scale)
	case "float", "binary_float", "binary_double":
		return TypeDouble
	case "varchar2", "nvarchar2", "varchar", "clob", "nclob", "long":
		return TypeString
	case "char", "nchar":
		return TypeFixedString
	case "date", "timestamp", "timestamp with time zone", "timestamp with local time zone":
		return TypeDateTime
	case "raw":
		if precision == 16 {
			return TypeGUID
		}
		return TypeBinary
	case "blob", "long raw":
		return TypeBinary
	}
	return TypeUnknown
}

// NativeType implements Provider.
func (*Oracle) NativeType(t DbType, size, precision, scale int) string {
	switch t {
	case TypeBool:
		return "NUMBER(1)"
	case TypeInt16:
		return "NUMBER(5)"
	case TypeInt32:
		return "NUMBER(10)"
	case TypeInt64:
		return "NUMBER(19)"
	case TypeDecimal:
		return decimalSuffix("NUMBER", precision, scale)
	case TypeDouble:
		return "BINARY_DOUBLE"
	case TypeString:
		if size <= 0 || size > 4000 {
			return "CLOB"
		}
		return sizeSuffix("VARCHAR2", size)
	case TypeFixedString:
		return sizeSuffix("CHAR", size)
	case TypeDate:
		return "DATE"
	case TypeDateTime:
		return "TIMESTAMP"
	case TypeBinary:
		return "BLOB"
	case TypeGUID:
		return "RAW(16)"
	}
	return "VARCHAR2(4000)"
}

const oracleOwner = "COALESCE(:1, SYS_CONTEXT('USERENV', 'CURRENT_SCHEMA'))"

// ColumnsQuery implements Provider. DATA_DEFAULT is a LONG column, so the
// presence of a default is read from DEFAULT_LENGTH.
func (*Oracle) ColumnsQuery(schema, table string) CatalogQuery {
	return CatalogQuery{
		Text: `SELECT column_name, column_id, data_type,
	CASE nullable WHEN 'Y' THEN 1 ELSE 0 END,
	CASE identity_column WHEN 'YES' THEN 1 ELSE 0 END,
	CASE WHEN default_length IS NULL THEN 0 ELSE 1 END,
	char_length, data_precision, data_scale
FROM all_tab_columns
WHERE owner = ` + oracleOwner + ` AND table_name = :2
ORDER BY column_id`,
		Args: []any{schema, table},
	}
}

// PrimaryKeyQuery implements Provider.
func (*Oracle) PrimaryKeyQuery(schema, table string) CatalogQuery {
	return CatalogQuery{
		Text: `SELECT cc.column_name, cc.position
FROM all_constraints c
JOIN all_cons_columns cc ON cc.owner = c.owner AND cc.constraint_name = c.constraint_name
WHERE c.constraint_type = 'P' AND c.owner = ` + oracleOwner + ` AND c.table_name = :2
ORDER BY cc.position`,
		Args: []any{schema, table},
	}
}

// IndexesQuery implements Provider.
func (*Oracle) IndexesQuery(schema, table string) CatalogQuery {
	return CatalogQuery{
		Text: `SELECT i.index_name, CASE i.uniqueness WHEN 'UNIQUE' THEN 1 ELSE 0 END,
	CASE i.index_type WHEN 'IOT - TOP' THEN 1 ELSE 0 END,
	CASE WHEN c.constraint_name IS NULL THEN 0 ELSE 1 END,
	ic.column_name, ic.column_position, CASE ic.descend WHEN 'DESC' THEN 1 ELSE 0 END, NULL
FROM all_indexes i
JOIN all_ind_columns ic ON ic.index_owner = i.owner AND ic.index_name = i.index_name
LEFT JOIN all_constraints c ON c.owner = i.table_owner AND c.index_name = i.index_name AND c.constraint_type = 'P'
WHERE i.table_owner = ` + oracleOwner + ` AND i.table_name = :2
ORDER BY i.index_name, ic.column_position`,
		Args: []any{schema, table},
	}
}

// ForeignKeysQuery implements Provider.
func (*Oracle) ForeignKeysQuery(schema, table string) CatalogQuery {
	return CatalogQuery{
		Text: `SELECT c.constraint_name, cc.column_name, rc.owner, rc.table_name, rcc.column_name, cc.position
FROM all_constraints c
JOIN all_cons_columns cc ON cc.owner = c.owner AND cc.constraint_name = c.constraint_name
JOIN all_constraints rc ON rc.owner = c.r_owner AND rc.constraint_name = c.r_constraint_name
JOIN all_cons_columns rcc ON rcc.owner = rc.owner AND rcc.constraint_name = rc.constraint_name AND rcc.position = cc.position
WHERE c.constraint_type = 'R' AND c.owner = ` + oracleOwner + ` AND c.table_name = :2
ORDER BY c.constraint_name, cc.position`,
		Args: []any{schema, table},
	}
}

// TableExistsQuery implements Provider.
func (*Oracle) TableExistsQuery(schema, table string) CatalogQuery {
	return CatalogQuery{
		Text: `SELECT 1 FROM all_tables WHERE owner = ` + oracleOwner + ` AND table_name = :2`,
		Args: []any{schema, table},
	}
}

var _ Provider = (*Oracle)(nil)
