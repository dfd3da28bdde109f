package sqlcatalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/syssam/vellum"
	"github.com/syssam/vellum/dialect/sql"
)

// load reads the metadata of one table with the provider's four catalog
// queries. It does not touch the cache.
func (m *Manager) load(ctx context.Context, schema, name string) (*TableMetadata, error) {
	columns, err := m.loadColumns(ctx, schema, name)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, vellum.NewNotFoundError("table", qualify(schema, name))
	}
	pk, err := m.loadPrimaryKey(ctx, schema, name)
	if err != nil {
		return nil, err
	}
	indexes, err := m.loadIndexes(ctx, schema, name)
	if err != nil {
		return nil, err
	}
	fks, err := m.loadForeignKeys(ctx, schema, name)
	if err != nil {
		return nil, err
	}
	t, err := NewTableMetadata(schema, name, columns, pk, indexes, fks)
	if err != nil {
		return nil, err
	}
	if m.validate {
		result := ValidateTable(t)
		if err := result.Err(); err != nil {
			return nil, err
		}
		for _, w := range result.Warnings {
			m.log.DebugContext(ctx, "catalog metadata warning", "schema", schema, "table", name, "warning", w.Message)
		}
	}
	return t, nil
}

func (m *Manager) loadColumns(ctx context.Context, schema, name string) ([]*ColumnMetadata, error) {
	q := m.provider.ColumnsQuery(schema, name)
	var columns []*ColumnMetadata
	err := sql.QueryRows(ctx, m.querier, q.Text, q.Args, func(rows sql.ColumnScanner) error {
		var (
			c                           ColumnMetadata
			ordinal                     int64
			nullable, identity, hasDflt sql.Flag
			maxLen, precision, scale    sql.NullInt64
		)
		if err := rows.Scan(&c.Name, &ordinal, &c.NativeType, &nullable, &identity, &hasDflt, &maxLen, &precision, &scale); err != nil {
			return err
		}
		c.Ordinal = int(ordinal)
		c.Nullable, c.Identity, c.HasDefault = bool(nullable), bool(identity), bool(hasDflt)
		c.MaxLength, c.Precision, c.Scale = int(maxLen.Int64), int(precision.Int64), int(scale.Int64)
		c.Type = m.provider.GenericType(c.NativeType, c.Precision, c.Scale)
		c.HostType = sql.HostType(c.Type)
		columns = append(columns, &c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sqlcatalog: load columns of %s: %w", qualify(schema, name), err)
	}
	sort.SliceStable(columns, func(i, j int) bool { return columns[i].Ordinal < columns[j].Ordinal })
	return columns, nil
}

func (m *Manager) loadPrimaryKey(ctx context.Context, schema, name string) ([]string, error) {
	q := m.provider.PrimaryKeyQuery(schema, name)
	type keyRow struct {
		column  string
		ordinal int64
	}
	var keys []keyRow
	err := sql.QueryRows(ctx, m.querier, q.Text, q.Args, func(rows sql.ColumnScanner) error {
		var k keyRow
		if err := rows.Scan(&k.column, &k.ordinal); err != nil {
			return err
		}
		keys = append(keys, k)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sqlcatalog: load primary key of %s: %w", qualify(schema, name), err)
	}
	sort.SliceStable(keys, func(i, j int) bool { return keys[i].ordinal < keys[j].ordinal })
	pk := make([]string, len(keys))
	for i, k := range keys {
		pk[i] = k.column
	}
	return pk, nil
}

// loadIndexes groups index rows by index name. Rows with ordinal 0 are
// include columns; the others are key columns ordered by ordinal.
func (m *Manager) loadIndexes(ctx context.Context, schema, name string) ([]*IndexMetadata, error) {
	q := m.provider.IndexesQuery(schema, name)
	var (
		indexes []*IndexMetadata
		byName  = make(map[string]*IndexMetadata)
	)
	err := sql.QueryRows(ctx, m.querier, q.Text, q.Args, func(rows sql.ColumnScanner) error {
		var (
			index                 string
			unique, clustered, pk sql.Flag
			column, expression    sql.NullString
			ordinal               int64
			descending            sql.Flag
		)
		if err := rows.Scan(&index, &unique, &clustered, &pk, &column, &ordinal, &descending, &expression); err != nil {
			return err
		}
		key := sql.Fold(index)
		ix, ok := byName[key]
		if !ok {
			ix = &IndexMetadata{Name: index, Unique: bool(unique), Clustered: bool(clustered), PrimaryKey: bool(pk)}
			byName[key] = ix
			indexes = append(indexes, ix)
		}
		if ordinal == 0 {
			ix.Include = append(ix.Include, column.String)
			return nil
		}
		ix.Keys = append(ix.Keys, IndexKey{
			Column:     column.String,
			Ordinal:    int(ordinal),
			Descending: bool(descending),
			Expression: expression.String,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sqlcatalog: load indexes of %s: %w", qualify(schema, name), err)
	}
	for _, ix := range indexes {
		sort.SliceStable(ix.Keys, func(i, j int) bool { return ix.Keys[i].Ordinal < ix.Keys[j].Ordinal })
	}
	return indexes, nil
}

func (m *Manager) loadForeignKeys(ctx context.Context, schema, name string) ([]*ForeignKeyMetadata, error) {
	q := m.provider.ForeignKeysQuery(schema, name)
	type fkRow struct {
		pair    ColumnPair
		ordinal int64
	}
	var (
		fks    []*ForeignKeyMetadata
		byName = make(map[string]*ForeignKeyMetadata)
		pairs  = make(map[*ForeignKeyMetadata][]fkRow)
	)
	err := sql.QueryRows(ctx, m.querier, q.Text, q.Args, func(rows sql.ColumnScanner) error {
		var (
			constraint, refTable string
			refSchema            sql.NullString
			r                    fkRow
		)
		if err := rows.Scan(&constraint, &r.pair.Column, &refSchema, &refTable, &r.pair.Referenced, &r.ordinal); err != nil {
			return err
		}
		key := sql.Fold(constraint)
		fk, ok := byName[key]
		if !ok {
			fk = &ForeignKeyMetadata{Name: constraint, RefSchema: refSchema.String, RefTable: refTable}
			byName[key] = fk
			fks = append(fks, fk)
		}
		pairs[fk] = append(pairs[fk], r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sqlcatalog: load foreign keys of %s: %w", qualify(schema, name), err)
	}
	for _, fk := range fks {
		rs := pairs[fk]
		sort.SliceStable(rs, func(i, j int) bool { return rs[i].ordinal < rs[j].ordinal })
		for _, r := range rs {
			fk.Columns = append(fk.Columns, r.pair)
		}
	}
	return fks, nil
}

func qualify(schema, name string) string {
	if schema == "" {
		return name
	}
	return schema + "." + name
}
