package sqlcatalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/vellum"
)

func TestValidateTable(t *testing.T) {
	cols := func() []*ColumnMetadata {
		return []*ColumnMetadata{{Name: "id", Ordinal: 1}, {Name: "name", Ordinal: 2}}
	}
	tests := []struct {
		name     string
		pk       []string
		indexes  []*IndexMetadata
		fks      []*ForeignKeyMetadata
		errors   []string
		warnings int
	}{
		{
			name: "valid",
			pk:   []string{"id"},
			indexes: []*IndexMetadata{
				{Name: "ix", Keys: []IndexKey{{Column: "name", Ordinal: 1}, {Expression: "lower(name)", Ordinal: 2}}, Include: []string{"id"}},
			},
		},
		{
			name:     "no unique key",
			warnings: 1,
		},
		{
			name:   "missing pk column",
			pk:     []string{"id", "code"},
			errors: []string{"t.code: primary key column does not exist"},
		},
		{
			name:   "repeated pk column",
			pk:     []string{"id", "ID"},
			errors: []string{"t.ID: primary key column is repeated"},
		},
		{
			name: "ordinal gap",
			pk:   []string{"id"},
			indexes: []*IndexMetadata{
				{Name: "ix", Keys: []IndexKey{{Column: "id", Ordinal: 1}, {Column: "name", Ordinal: 3}}},
			},
			errors: []string{"t.ix: key ordinal 3 found at position 2"},
		},
		{
			name: "unknown index columns",
			pk:   []string{"id"},
			indexes: []*IndexMetadata{
				{Name: "ix", Keys: []IndexKey{{Column: "nope", Ordinal: 1}}, Include: []string{"gone"}},
			},
			errors: []string{`t.ix: key column "nope" does not exist`, `t.ix: include column "gone" does not exist`},
		},
		{
			name: "foreign key",
			pk:   []string{"id"},
			fks: []*ForeignKeyMetadata{
				{Name: "fk", RefTable: "teams", Columns: []ColumnPair{{Column: "team_id", Referenced: "id"}}},
			},
			errors: []string{`t.fk: column "team_id" does not exist`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := NewTableMetadata("", "t", cols(), tt.pk, tt.indexes, tt.fks)
			require.NoError(t, err)
			result := ValidateTable(tbl)
			var got []string
			for _, e := range result.Errors {
				got = append(got, e.Error())
			}
			assert.Equal(t, tt.errors, got)
			assert.Len(t, result.Warnings, tt.warnings)
			if len(tt.errors) == 0 {
				assert.NoError(t, result.Err())
				return
			}
			assert.True(t, vellum.IsInvalidArgument(result.Err()))
			assert.Contains(t, result.String(), "Errors:")
		})
	}
}

func TestValidationResultString(t *testing.T) {
	r := &ValidationResult{}
	assert.Equal(t, "No issues found", r.String())
	r.Warnings = append(r.Warnings, &ValidationError{Table: "t", Message: "table has no primary key or unique index"})
	assert.Equal(t, "Warnings:\n  - t: table has no primary key or unique index\n", r.String())
}
