// Package database provides SQLite connectivity for Homesynth.
//
// One database file holds everything the pipeline persists: the document
// store (live and staged revisions), the state-event history, proposed
// suggestions, and the deployment audit trail.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Embedded schema migrations, applied at startup
//   - Connection pooling and lifecycle management
//
// WAL mode matters here: the statestream ingestor appends events
// continuously while the API serves document reads, and the busy timeout
// absorbs contention from the single-writer deploy cycle.
//
// Security considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migrations are additive-only: new columns must be NULLABLE or carry a
// DEFAULT, and columns are never dropped or renamed. Each migration ships
// as an .up.sql/.down.sql pair embedded via the migrations package.
package database
