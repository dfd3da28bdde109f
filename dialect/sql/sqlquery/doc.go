// Package sqlquery builds SELECT, INSERT, UPDATE and DELETE statements over
// a graph of aliased join nodes and compiles predicate trees to SQL text.
//
// Nodes are plain values built with the constructors of this package:
//
//	where := sqlquery.And(
//	    sqlquery.EQ(sqlquery.Col("Status"), sqlquery.P("Status", "open")),
//	    sqlquery.Or(
//	        sqlquery.IsNull(sqlquery.C("T2", "ClosedAt")),
//	        sqlquery.GT(sqlquery.Col("Priority"), sqlquery.V(3)),
//	    ),
//	)
//
// compiles to
//
//	T1.Status = :Status AND (T2.ClosedAt is NULL OR T1.Priority > 3)
//
// Logical operators are parenthesized only where the operator changes.
// Bind parameters are collected into a sql.ParameterSet; parameters compared
// with a catalog column take the column's type.
package sqlquery
