// Package database provides SQLite connectivity for the daceq profile store.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Connection pooling and lifecycle management
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.Open(cfg.Store)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
// Schema management lives with the consumer; see the profilestore
// package.
package database
