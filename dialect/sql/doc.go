// Package sql holds the dialect-facing primitives shared by the catalog,
// the query builder, the statement aggregator and the pager.
//
// # Bind Values
//
// Value is a closed sum type: NULL, bool, integer, exact decimal, text,
// date/time, bytes, GUID, or a reference to another named parameter.
//
//	sql.IntValue(42)
//	sql.TextValue("active")
//	sql.MustDecimal("19.90")
//	sql.ParamValue("PageSize")
//
// # Parameters
//
// Parameter describes one bind parameter (name, generic type, native type,
// size, precision, scale, direction, value). A ParameterSet keeps them in
// insertion order and looks them up case-insensitively.
//
// # Providers
//
// Provider isolates dialect differences: bind token syntax, row limiting,
// literal rendering, type mapping, parameter equality and the catalog
// queries. Providers ship for PostgreSQL, MySQL, SQLite, SQL Server and
// Oracle:
//
//	p, err := sql.ProviderFor(dialect.Postgres)
//	text, _ := p.FormatSelectWithMaxRows("SELECT T1.Id FROM public.users T1", sql.LimitRows(10))
//	// SELECT T1.Id FROM public.users T1 LIMIT 10
//
// Statement text always references parameters through
// BuildBindVariableName (":Status", "@Status"). BindArgs converts that text
// to what the driver accepts:
//
//	text, args, err := p.BindArgs("SELECT 1 WHERE a = :A OR b = :A", params)
//	// postgres: SELECT 1 WHERE a = $1 OR b = $1
//
// # Driver
//
// Driver adapts a database/sql handle to the dialect.Driver interface and
// StatsDriver adds counters and slow statement logging on top of any driver.
package sql
