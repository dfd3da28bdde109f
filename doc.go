// Package vellum builds parameterized SQL statements for multiple dialects
// from a structured object model and caches the catalog metadata needed to
// type and validate them.
//
// The root package only holds the error taxonomy shared by the sub-packages:
//
//   - dialect: dialect names and the driver interfaces
//   - dialect/sql: bind values, parameters, dialect providers and the database/sql adapter
//   - dialect/sql/sqlcatalog: catalog metadata loading and caching
//   - dialect/sql/sqlquery: predicate nodes, the predicate compiler and the query builder
//   - dialect/sql/sqlbatch: merging statements into one compound command
//   - dialect/sql/sqlpage: keyset pagination
//
// All errors raised while building a statement are returned before any SQL
// text reaches the database, and can be classified with the IsXxx helpers:
//
//	st, err := sqlquery.BuildStatement(ctx, b)
//	if vellum.IsNotFound(err) {
//	    // unknown table, column or alias
//	}
package vellum
