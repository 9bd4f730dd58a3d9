package store

import "database/sql"

// NewForTest wraps an already-open *sql.DB (typically a go-sqlmock
// connection) as a Store, bypassing Open's dial/ping — for tests in
// other packages that need a real Store wired to a mock driver.
func NewForTest(db *sql.DB) *Store {
	return &Store{db: db}
}
