package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanTokens(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		prefix string
		want   []string
	}{
		{"simple", "a = :A AND b = :B", ":", []string{"A", "B"}},
		{"adjacent paren", "IN (:p1,:p2)", ":", []string{"p1", "p2"}},
		{"cast skipped", "x::int = :X", ":", []string{"X"}},
		{"literal skipped", "a = ':A' AND b = :B", ":", []string{"B"}},
		{"escaped quote", "a = 'it''s :A' AND b = :B", ":", []string{"B"}},
		{"quoted identifier", `"x:y" = :Y`, ":", []string{"Y"}},
		{"comment skipped", "a = :A -- :B\n AND c = :C", ":", []string{"A", "C"}},
		{"block comment skipped", "a = :A /* :B\n :D */ AND c = :C", ":", []string{"A", "C"}},
		{"unterminated block comment", "a = :A /* :B", ":", []string{"A"}},
		{"token after block comment", "a = /*x*/:A", ":", []string{"A"}},
		{"word bounded", "a:B = :C", ":", []string{"C"}},
		{"sqlserver globals", "SELECT @@ROWCOUNT, @Id", "@", []string{"Id"}},
		{"digits", "LIMIT :10", ":", nil},
		{"underscore", "x = :_a1", ":", []string{"_a1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, tok := range ScanTokens(tt.text, tt.prefix) {
				got = append(got, tok.Name)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRewriteTokens(t *testing.T) {
	text := "UPDATE t SET s = :Status WHERE s <> :status AND x = :Status1 AND y = ':Status'"
	got, counts := RewriteTokens(text, ":", map[string]string{"status": "Status2"})
	assert.Equal(t, "UPDATE t SET s = :Status2 WHERE s <> :Status2 AND x = :Status1 AND y = ':Status'", got)
	assert.Equal(t, 2, counts["status"])

	got, counts = RewriteTokens("a = :A AND b = :B", ":", map[string]string{"a": "B", "b": "A"})
	assert.Equal(t, "a = :B AND b = :A", got, "renames are applied in one pass")
	assert.Equal(t, 1, counts["a"])
	assert.Equal(t, 1, counts["b"])

	got, counts = RewriteTokens("a = :A", ":", map[string]string{"missing": "X"})
	assert.Equal(t, "a = :A", got)
	assert.Zero(t, counts["missing"])
}
