package sqlcatalog

import (
	"reflect"
	"strings"

	"github.com/syssam/vellum"
	"github.com/syssam/vellum/dialect/sql"
)

// ColumnMetadata describes one table column.
type ColumnMetadata struct {
	Name       string
	Ordinal    int
	NativeType string
	Type       sql.DbType
	HostType   reflect.Type
	Nullable   bool
	Identity   bool
	HasDefault bool
	MaxLength  int
	Precision  int
	Scale      int
}

// Binding returns the deferred parameter binding of the column.
func (c *ColumnMetadata) Binding(t *TableMetadata) sql.ColumnBinding {
	return sql.ColumnBinding{Schema: t.Schema, Table: t.Name, Column: c.Name}
}

// Describe copies the column type into p.
func (c *ColumnMetadata) Describe(p *sql.Parameter) {
	p.Type = c.Type
	p.NativeType = c.NativeType
	p.Size = c.MaxLength
	p.Precision = c.Precision
	p.Scale = c.Scale
}

// IndexKey is one ordered key column of an index. Expression is set, and
// Column empty, for a functional key.
type IndexKey struct {
	Column     string
	Ordinal    int
	Descending bool
	Expression string
}

// IndexMetadata describes an index. Keys are ordered by Ordinal; Include
// lists non-key columns carried by the index.
type IndexMetadata struct {
	Name       string
	Unique     bool
	Clustered  bool
	PrimaryKey bool
	Keys       []IndexKey
	Include    []string
}

// KeyColumns returns the names of the ordered key columns.
func (ix *IndexMetadata) KeyColumns() []string {
	names := make([]string, len(ix.Keys))
	for i, k := range ix.Keys {
		names[i] = k.Column
	}
	return names
}

// covers reports whether columns is an ordered, case-insensitive prefix of
// the index keys. Indexes with functional keys cover nothing.
func (ix *IndexMetadata) covers(columns []string) bool {
	if len(columns) == 0 || len(columns) > len(ix.Keys) {
		return false
	}
	for _, k := range ix.Keys {
		if k.Expression != "" || k.Column == "" {
			return false
		}
	}
	for i, c := range columns {
		if !sql.EqualFold(ix.Keys[i].Column, c) {
			return false
		}
	}
	return true
}

// ColumnPair maps a referencing column to the referenced one.
type ColumnPair struct {
	Column     string
	Referenced string
}

// ForeignKeyMetadata describes a foreign key constraint.
type ForeignKeyMetadata struct {
	Name      string
	RefSchema string
	RefTable  string
	Columns   []ColumnPair
}

// TableMetadata is the catalog description of a table. It is immutable once
// returned by NewTableMetadata; accessors return copies.
type TableMetadata struct {
	Schema string
	Name   string

	columns     []*ColumnMetadata
	byName      map[string]*ColumnMetadata
	primaryKey  []string
	indexes     []*IndexMetadata
	foreignKeys []*ForeignKeyMetadata
}

// NewTableMetadata assembles table metadata. Column names must be unique
// case-insensitively and columns are kept in ordinal order.
func NewTableMetadata(schema, name string, columns []*ColumnMetadata, primaryKey []string, indexes []*IndexMetadata, foreignKeys []*ForeignKeyMetadata) (*TableMetadata, error) {
	if strings.TrimSpace(name) == "" {
		return nil, vellum.NewInvalidArgumentError("table", "table name must not be empty")
	}
	t := &TableMetadata{
		Schema:      schema,
		Name:        name,
		byName:      make(map[string]*ColumnMetadata, len(columns)),
		primaryKey:  append([]string(nil), primaryKey...),
		indexes:     indexes,
		foreignKeys: foreignKeys,
	}
	for _, c := range columns {
		key := sql.Fold(c.Name)
		if _, ok := t.byName[key]; ok {
			return nil, vellum.NewInvalidArgumentError(c.Name, "duplicate column in %s", t.QualifiedName())
		}
		if c.HostType == nil {
			c.HostType = sql.HostType(c.Type)
		}
		t.byName[key] = c
		t.columns = append(t.columns, c)
	}
	return t, nil
}

// QualifiedName returns "schema.name", or the bare name when the schema is
// empty.
func (t *TableMetadata) QualifiedName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// Column returns the column with the given name, matched case-insensitively.
func (t *TableMetadata) Column(name string) (*ColumnMetadata, bool) {
	c, ok := t.byName[sql.Fold(name)]
	return c, ok
}

// Columns returns the columns in ordinal order.
func (t *TableMetadata) Columns() []*ColumnMetadata {
	return append([]*ColumnMetadata(nil), t.columns...)
}

// ColumnNames returns the column names in ordinal order.
func (t *TableMetadata) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// PrimaryKey returns the primary key columns in key order.
func (t *TableMetadata) PrimaryKey() []string {
	return append([]string(nil), t.primaryKey...)
}

// Index returns the named index.
func (t *TableMetadata) Index(name string) (*IndexMetadata, bool) {
	for _, ix := range t.indexes {
		if sql.EqualFold(ix.Name, name) {
			return ix, true
		}
	}
	return nil, false
}

// Indexes returns the indexes in catalog order.
func (t *TableMetadata) Indexes() []*IndexMetadata {
	return append([]*IndexMetadata(nil), t.indexes...)
}

// ForeignKeys returns the foreign keys in catalog order.
func (t *TableMetadata) ForeignKeys() []*ForeignKeyMetadata {
	return append([]*ForeignKeyMetadata(nil), t.foreignKeys...)
}

// PrimaryKeyIndex returns the primary key as an index. ok is false when the
// table has no primary key.
func (t *TableMetadata) PrimaryKeyIndex() (*IndexMetadata, bool) {
	for _, ix := range t.indexes {
		if ix.PrimaryKey {
			return ix, true
		}
	}
	if len(t.primaryKey) == 0 {
		return nil, false
	}
	ix := &IndexMetadata{Name: "PRIMARY KEY", Unique: true, PrimaryKey: true}
	for i, c := range t.primaryKey {
		ix.Keys = append(ix.Keys, IndexKey{Column: c, Ordinal: i + 1})
	}
	return ix, true
}

// CoveringIndex returns the primary key or the first unique index whose
// ordered key columns start with columns. The primary key is preferred.
func (t *TableMetadata) CoveringIndex(columns []string) (*IndexMetadata, bool) {
	if pk, ok := t.PrimaryKeyIndex(); ok && pk.covers(columns) {
		return pk, true
	}
	for _, ix := range t.indexes {
		if ix.Unique && ix.covers(columns) {
			return ix, true
		}
	}
	return nil, false
}
