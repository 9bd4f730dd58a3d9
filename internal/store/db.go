// Package store persists every orchestrator entity to PostgreSQL. It
// mirrors the teacher's bbolt Store in shape — one connection wrapper, one
// file per entity — but backs onto database/sql and lib/pq since the
// control plane's relational constraints (unique customer/address pairs,
// compare-and-set status transitions) need a real RDBMS.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Store wraps a pooled Postgres connection shared by every repository.
type Store struct {
	db *sql.DB
}

// Open connects to dsn and verifies the connection with a bounded ping,
// matching the teacher's NewStore constructor idiom.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the raw *sql.DB for the migration runner.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Customers() *CustomerRepo {
	return &CustomerRepo{db: s.db}
}

func (s *Store) Targets() *TargetRepo {
	return &TargetRepo{db: s.db}
}

func (s *Store) PortLists() *PortListRepo {
	return &PortListRepo{db: s.db}
}

func (s *Store) ScanTypes() *ScanTypeRepo {
	return &ScanTypeRepo{db: s.db}
}

func (s *Store) Scans() *ScanRepo {
	return &ScanRepo{db: s.db}
}

func (s *Store) ScanDetails() *ScanDetailRepo {
	return &ScanDetailRepo{db: s.db}
}

func (s *Store) FingerprintDetails() *FingerprintDetailRepo {
	return &FingerprintDetailRepo{db: s.db}
}

func (s *Store) VulnEngineResults() *VulnEngineResultRepo {
	return &VulnEngineResultRepo{db: s.db}
}
