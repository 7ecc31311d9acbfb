// Package database provides the SQLite connection behind the run journal.
//
// It opens the database with WAL mode and a busy timeout, and applies the
// embedded schema migrations on startup.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql and are
// additive: new columns must be nullable or have defaults.
package database
