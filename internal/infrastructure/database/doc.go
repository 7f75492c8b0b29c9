// Package database provides SQLite database connectivity for authd.
//
// This package manages:
//   - Opening the SQLite database with safe pragmas (WAL, busy timeout,
//     foreign keys)
//   - Embedded SQL schema migrations with per-migration transactions
//   - Health checks and connection pool statistics
//
// The server holds a single DB for its whole lifetime:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path})
//	if err != nil { ... }
//	defer db.Close()
//	if err := db.Migrate(ctx); err != nil { ... }
//
// SQLite is configured with a single writer connection; concurrent request
// handlers share it through database/sql's pool semantics.
package database
