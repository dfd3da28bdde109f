package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgres", Postgres},
		{"PostgreSQL", Postgres},
		{"pgx", Postgres},
		{" mysql ", MySQL},
		{"mariadb", MySQL},
		{"sqlite3", SQLite},
		{"mssql", SQLServer},
		{"oracle", Oracle},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Normalize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	_, err := Normalize("db2")
	require.Error(t, err)
}

func TestNames(t *testing.T) {
	for _, n := range Names() {
		got, err := Normalize(n)
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}
}
