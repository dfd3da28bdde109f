// Package sqlcatalog loads and caches table metadata (columns, primary key,
// indexes and foreign keys) from the system catalog of a database.
//
// A Manager issues the four catalog queries of its sql.Provider on the first
// lookup of a table and serves later lookups from its Cache:
//
//	catalog := sqlcatalog.NewManager(sql.NewPostgres(), drv)
//	users, err := catalog.GetTable(ctx, "public", "users")
//	if vellum.IsNotFound(err) {
//	    // no such table
//	}
//	email, _ := users.Column("Email")
//
// Metadata values are immutable; RefreshCache drops a table so that the next
// lookup reloads it.
package sqlcatalog
