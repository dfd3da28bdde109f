// Package dialect provides the database dialect abstraction for vellum.
//
// This package defines the interfaces used for database-specific operations,
// allowing statements to be built for multiple database backends.
//
// # Supported Dialects
//
// Each dialect is identified by a constant string:
//
//	dialect.Postgres  = "postgres"
//	dialect.MySQL     = "mysql"
//	dialect.SQLite    = "sqlite"
//	dialect.SQLServer = "sqlserver"
//	dialect.Oracle    = "oracle"
//
// # ExecQuerier Interface
//
// Catalog loads and page fetches only need the ExecQuerier half of a driver:
//
//	type ExecQuerier interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	}
//
// The Driver and Tx interfaces extend it with connection and transaction
// lifecycle methods. dialect/sql provides an implementation on top of
// database/sql.
//
// # Sub-packages
//
//   - dialect/sql: bind values, parameters, dialect providers and driver adapter
//   - dialect/sql/sqlcatalog: catalog metadata cache
//   - dialect/sql/sqlquery: predicate compiler and query builder
//   - dialect/sql/sqlbatch: compound statement aggregation
//   - dialect/sql/sqlpage: keyset pagination
package dialect
