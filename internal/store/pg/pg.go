// Package pg implements the domain store interfaces over PostgreSQL.
package pg

import (
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Store owns the connection pool and hands out per-domain stores.
type Store struct {
	db *sql.DB
}

// Open connects to PostgreSQL and tunes the pool.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing pool. Used by tests with sqlmock.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the pool for readiness pings and migrations.
func (s *Store) DB() *sql.DB { return s.db }

// Matches returns the match store view of the pool.
func (s *Store) Matches() *MatchStore { return &MatchStore{db: s.db} }

// Notifications returns the notification store view of the pool.
func (s *Store) Notifications() *NotificationStore { return &NotificationStore{db: s.db} }

// Trust returns the trust standing store view of the pool.
func (s *Store) Trust() *TrustStore { return &TrustStore{db: s.db} }

// Materials returns the catalog store view of the pool.
func (s *Store) Materials() *MaterialStore { return &MaterialStore{db: s.db} }

type rowScanner interface {
	Scan(dest ...any) error
}
