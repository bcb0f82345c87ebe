// Package store persists filter presets and application settings. SQLite
// (modernc.org/sqlite) is the default backend; PostgreSQL (pgx) is used when
// the database URL names it.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Backend is a preset and settings store.
type Backend interface {
	Presets() PresetStore
	Settings() SettingStore
	Close() error
}

// Open picks a backend from url: postgres:// and postgresql:// URLs connect
// to PostgreSQL, anything else is a SQLite file path.
func Open(ctx context.Context, url string) (Backend, error) {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return NewPostgres(ctx, url)
	}
	return New(strings.TrimPrefix(url, "sqlite://"))
}

var (
	_ Backend = (*Store)(nil)
	_ Backend = (*PGStore)(nil)
)

// Store is the SQLite backend.
type Store struct {
	db   *sql.DB
	path string
}

// New creates a new Store with the given database path.
// It opens the database connection, enables foreign keys, and runs migrations.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps PRAGMAs and :memory: databases consistent.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Presets returns the preset repository for this store.
func (s *Store) Presets() PresetStore {
	return &PresetRepository{db: s.db}
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() SettingStore {
	return &SettingRepository{db: s.db}
}
