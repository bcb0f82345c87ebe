package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation is the SQLSTATE for unique constraint failures.
const pgUniqueViolation = "23505"

// PGStore is the PostgreSQL backend. A pgx.Conn is not safe for concurrent
// use, so every query holds mu.
type PGStore struct {
	mu   sync.Mutex
	conn *pgx.Conn
}

// NewPostgres connects to connString and ensures the schema exists.
func NewPostgres(ctx context.Context, connString string) (*PGStore, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &PGStore{conn: conn}, nil
}

func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS presets (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			hue_min DOUBLE PRECISION NOT NULL CHECK (hue_min BETWEEN 0 AND 360),
			hue_max DOUBLE PRECISION NOT NULL CHECK (hue_max BETWEEN 0 AND 360),
			sat_min DOUBLE PRECISION NOT NULL CHECK (sat_min BETWEEN 0 AND 100),
			sat_max DOUBLE PRECISION NOT NULL CHECK (sat_max BETWEEN 0 AND 100),
			desaturate DOUBLE PRECISION NOT NULL DEFAULT 0,
			highlight DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS presets_created_at_idx ON presets (created_at);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *PGStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.conn.Close(ctx)
}

func (s *PGStore) Presets() PresetStore {
	return &pgPresets{s: s}
}

func (s *PGStore) Settings() SettingStore {
	return &pgSettings{s: s}
}

type pgPresets struct {
	s *PGStore
}

func (r *pgPresets) Create(ctx context.Context, p *Preset) error {
	if err := p.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, err := r.s.conn.Exec(ctx, `
		INSERT INTO presets (`+presetColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, p.ID, p.Name, p.HueMin, p.HueMax, p.SatMin, p.SatMax,
		p.Desaturate, p.Highlight, p.CreatedAt, p.UpdatedAt)
	return pgError(err)
}

func (r *pgPresets) Get(ctx context.Context, id string) (*Preset, error) {
	return r.queryOne(ctx, `SELECT `+presetColumns+` FROM presets WHERE id = $1`, id)
}

func (r *pgPresets) GetByName(ctx context.Context, name string) (*Preset, error) {
	return r.queryOne(ctx, `SELECT `+presetColumns+` FROM presets WHERE name = $1`, name)
}

func (r *pgPresets) queryOne(ctx context.Context, query string, arg any) (*Preset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, err := scanPreset(r.s.conn.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (r *pgPresets) List(ctx context.Context) ([]*Preset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rows, err := r.s.conn.Query(ctx, `SELECT `+presetColumns+` FROM presets ORDER BY created_at, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var presets []*Preset
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, err
		}
		presets = append(presets, p)
	}
	return presets, rows.Err()
}

func (r *pgPresets) Update(ctx context.Context, p *Preset) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tag, err := r.s.conn.Exec(ctx, `
		UPDATE presets SET name = $1, hue_min = $2, hue_max = $3, sat_min = $4, sat_max = $5,
			desaturate = $6, highlight = $7, updated_at = $8
		WHERE id = $9
	`, p.Name, p.HueMin, p.HueMax, p.SatMin, p.SatMax, p.Desaturate, p.Highlight, p.UpdatedAt, p.ID)
	if err != nil {
		return pgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgPresets) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tag, err := r.s.conn.Exec(ctx, `DELETE FROM presets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type pgSettings struct {
	s *PGStore
}

func (r *pgSettings) Get(ctx context.Context, key string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var value string
	err := r.s.conn.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return value, err
}

func (r *pgSettings) Set(ctx context.Context, key, value string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	_, err := r.s.conn.Exec(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, key, value)
	return err
}

func (r *pgSettings) Delete(ctx context.Context, key string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tag, err := r.s.conn.Exec(ctx, `DELETE FROM settings WHERE key = $1`, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// pgError maps unique violations to ErrDuplicateName.
func pgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicateName
	}
	return err
}
