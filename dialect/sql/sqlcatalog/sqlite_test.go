package sqlcatalog

import (
	"context"
	stdsql "database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/vellum"
	"github.com/syssam/vellum/dialect"
	"github.com/syssam/vellum/dialect/sql"
)

func TestSQLiteCatalog(t *testing.T) {
	db, err := stdsql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	for _, stmt := range []string{
		`CREATE TABLE teams (Id INTEGER PRIMARY KEY, Name TEXT NOT NULL)`,
		`CREATE TABLE people (
			Id INTEGER PRIMARY KEY,
			LastName VARCHAR(50) NOT NULL,
			FirstName TEXT,
			Active BOOLEAN DEFAULT 1,
			TeamId INTEGER REFERENCES teams (Id)
		)`,
		`CREATE UNIQUE INDEX ux_people_name ON people (LastName, Id DESC)`,
		`CREATE INDEX ix_people_lower ON people (lower(FirstName))`,
	} {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}

	m := NewManager(sql.NewSQLite(), sql.OpenDB(dialect.SQLite, db))
	people, err := m.GetTable(ctx, "", "people")
	require.NoError(t, err)

	assert.Equal(t, []string{"Id", "LastName", "FirstName", "Active", "TeamId"}, people.ColumnNames())
	assert.Equal(t, []string{"Id"}, people.PrimaryKey())

	id, _ := people.Column("id")
	assert.True(t, id.Identity)
	assert.Equal(t, sql.TypeInt64, id.Type)
	last, _ := people.Column("lastname")
	assert.False(t, last.Nullable)
	assert.Equal(t, sql.TypeString, last.Type)
	active, _ := people.Column("Active")
	assert.True(t, active.HasDefault)
	assert.Equal(t, sql.TypeBool, active.Type)

	ux, ok := people.Index("ux_people_name")
	require.True(t, ok)
	assert.True(t, ux.Unique)
	assert.Equal(t, []string{"LastName", "Id"}, ux.KeyColumns())
	assert.True(t, ux.Keys[1].Descending)

	lower, ok := people.Index("ix_people_lower")
	require.True(t, ok)
	require.Len(t, lower.Keys, 1)
	assert.NotEmpty(t, lower.Keys[0].Expression)

	fks := people.ForeignKeys()
	require.Len(t, fks, 1)
	assert.Equal(t, "teams", fks[0].RefTable)
	assert.Equal(t, []ColumnPair{{Column: "TeamId", Referenced: "Id"}}, fks[0].Columns)

	ix, ok := people.CoveringIndex([]string{"LastName", "Id"})
	require.True(t, ok)
	assert.Equal(t, "ux_people_name", ix.Name)
	_, ok = people.CoveringIndex([]string{"FirstName"})
	assert.False(t, ok)

	exists, err := m.TableExists(ctx, "", "teams")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = m.TableExists(ctx, "", "ghosts")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = m.GetTable(ctx, "", "ghosts")
	assert.True(t, vellum.IsNotFound(err))
}
