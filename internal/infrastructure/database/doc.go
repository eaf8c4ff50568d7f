// Package database provides SQLite connectivity and the versioned migration
// runner for the smart home backend.
//
// This package manages:
//   - Database connection with WAL mode, busy timeout and a single-connection pool
//   - Versioned migrations recorded in schema_migrations
//   - Embedded SQL steps merged with Go steps that inspect existing data
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.StoragePath(), WALMode: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, steps...); err != nil {
//	    log.Printf("migration failed: %v", err)
//	}
//
// Migration Strategy:
//
// Steps are additive and safe to re-run: tables use IF NOT EXISTS, new
// columns are added only after a presence check and seeding only happens
// into empty tables.
package database
