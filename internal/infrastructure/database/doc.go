// Package database provides SQLite connectivity for the vibrant profile store.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Schema migrations loaded from any fs.FS (normally the embedded
//     migrations package)
//
// All queries use parameterised statements. The database file is created
// with 0600 permissions.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	all, err := database.Migrations(migrations.FS, migrations.Dir)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := db.Migrate(ctx, all); err != nil {
//	    log.Fatal(err)
//	}
package database
