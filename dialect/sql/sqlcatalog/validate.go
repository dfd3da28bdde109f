package sqlcatalog

import (
	"fmt"
	"strings"

	"github.com/syssam/vellum"
	"github.com/syssam/vellum/dialect/sql"
)

// ValidationError represents a metadata consistency problem.
type ValidationError struct {
	Table   string
	Object  string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Object != "" {
		return fmt.Sprintf("%s.%s: %s", e.Table, e.Object, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Table, e.Message)
}

// ValidationResult holds the results of metadata validation.
type ValidationResult struct {
	Errors   []*ValidationError
	Warnings []*ValidationError
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// String returns a human-readable summary of the validation result.
func (r *ValidationResult) String() string {
	var sb strings.Builder
	if len(r.Errors) > 0 {
		sb.WriteString("Errors:\n")
		for _, e := range r.Errors {
			sb.WriteString("  - ")
			sb.WriteString(e.Error())
			sb.WriteString("\n")
		}
	}
	if len(r.Warnings) > 0 {
		sb.WriteString("Warnings:\n")
		for _, w := range r.Warnings {
			sb.WriteString("  - ")
			sb.WriteString(w.Error())
			sb.WriteString("\n")
		}
	}
	if !r.HasErrors() && !r.HasWarnings() {
		sb.WriteString("No issues found")
	}
	return sb.String()
}

// Err returns an InvalidArgument error summarizing the validation errors,
// or nil when there are none.
func (r *ValidationResult) Err() error {
	if !r.HasErrors() {
		return nil
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return &vellum.InvalidArgumentError{
		Name:    r.Errors[0].Table,
		Message: "inconsistent catalog metadata: " + strings.Join(msgs, "; "),
	}
}

// ValidateTable checks the structural invariants of loaded metadata:
// primary key columns exist and are not repeated, index key ordinals run
// 1..n without gaps, and index and foreign key columns exist. Tables
// without any unique key produce a warning.
//
// Example:
//
//	result := sqlcatalog.ValidateTable(t)
//	if result.HasErrors() {
//	    return result.Err()
//	}
func ValidateTable(t *TableMetadata) *ValidationResult {
	result := &ValidationResult{}
	name := t.QualifiedName()
	errorf := func(object, format string, args ...any) {
		result.Errors = append(result.Errors, &ValidationError{Table: name, Object: object, Message: fmt.Sprintf(format, args...)})
	}

	if len(t.columns) == 0 {
		errorf("", "table has no columns")
	}

	seen := make(map[string]bool, len(t.primaryKey))
	for _, c := range t.primaryKey {
		if _, ok := t.Column(c); !ok {
			errorf(c, "primary key column does not exist")
		}
		if seen[sql.Fold(c)] {
			errorf(c, "primary key column is repeated")
		}
		seen[sql.Fold(c)] = true
	}

	hasUnique := len(t.primaryKey) > 0
	for _, ix := range t.indexes {
		if ix.Unique {
			hasUnique = true
		}
		if len(ix.Keys) == 0 {
			errorf(ix.Name, "index has no key columns")
		}
		for i, k := range ix.Keys {
			if k.Ordinal != i+1 {
				errorf(ix.Name, "key ordinal %d found at position %d", k.Ordinal, i+1)
			}
			if k.Expression == "" {
				if _, ok := t.Column(k.Column); !ok {
					errorf(ix.Name, "key column %q does not exist", k.Column)
				}
			}
		}
		for _, c := range ix.Include {
			if _, ok := t.Column(c); !ok {
				errorf(ix.Name, "include column %q does not exist", c)
			}
		}
	}

	for _, fk := range t.foreignKeys {
		if len(fk.Columns) == 0 {
			errorf(fk.Name, "foreign key has no columns")
		}
		for _, p := range fk.Columns {
			if _, ok := t.Column(p.Column); !ok {
				errorf(fk.Name, "column %q does not exist", p.Column)
			}
		}
	}

	if !hasUnique && len(t.columns) > 0 {
		result.Warnings = append(result.Warnings, &ValidationError{Table: name, Message: "table has no primary key or unique index"})
	}
	return result
}
