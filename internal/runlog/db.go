// Package runlog persists augmentation runs and their per-sample parameter
// ledgers in sqlite, so any recorded forward pass can be replayed bit for
// bit later. Schema changes are versioned golang-migrate migrations
// embedded in the binary.
package runlog

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the runlog database handle.
type DB struct {
	*sql.DB
}

// Open opens (creating if necessary) the runlog database at path and
// applies the session pragmas. It does not create or migrate the schema;
// call MigrateUp for that.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open runlog database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	return &DB{db}, nil
}
