package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/ayusman/colorhunt/internal/filter"
)

var (
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateName is returned when a preset name is already taken.
	ErrDuplicateName = errors.New("preset name already exists")
	// ErrInvalidPreset is returned for presets with an empty name or out of
	// range values.
	ErrInvalidPreset = errors.New("invalid preset")
)

// Preset is a saved filter setting. Desaturate and Highlight are slider
// percentages in [0,100].
type Preset struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	HueMin     float64   `json:"hue_min"`
	HueMax     float64   `json:"hue_max"`
	SatMin     float64   `json:"sat_min"`
	SatMax     float64   `json:"sat_max"`
	Desaturate float64   `json:"desaturate"`
	Highlight  float64   `json:"highlight"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewPreset builds a preset from live filter parameters.
func NewPreset(id, name string, band filter.Band, blend filter.Blend) *Preset {
	d, h := blend.Percent()
	return &Preset{
		ID:         id,
		Name:       name,
		HueMin:     float64(band.HueMin),
		HueMax:     float64(band.HueMax),
		SatMin:     float64(band.SatMin),
		SatMax:     float64(band.SatMax),
		Desaturate: float64(d),
		Highlight:  float64(h),
	}
}

// Band returns the preset's hue/saturation band.
func (p *Preset) Band() filter.Band {
	return filter.Band{
		HueMin: float32(p.HueMin),
		HueMax: float32(p.HueMax),
		SatMin: float32(p.SatMin),
		SatMax: float32(p.SatMax),
	}
}

// Blend returns the preset's blend weights.
func (p *Preset) Blend() filter.Blend {
	return filter.BlendFromPercent(float32(p.Desaturate), float32(p.Highlight))
}

// Validate checks the name and value ranges.
func (p *Preset) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.Join(ErrInvalidPreset, errors.New("name is required"))
	}
	if err := p.Band().Validate(); err != nil {
		return errors.Join(ErrInvalidPreset, err)
	}
	if err := p.Blend().Validate(); err != nil {
		return errors.Join(ErrInvalidPreset, err)
	}
	return nil
}

// PresetStore provides CRUD operations for presets.
type PresetStore interface {
	Create(ctx context.Context, p *Preset) error
	Get(ctx context.Context, id string) (*Preset, error)
	GetByName(ctx context.Context, name string) (*Preset, error)
	List(ctx context.Context) ([]*Preset, error)
	Update(ctx context.Context, p *Preset) error
	Delete(ctx context.Context, id string) error
}

// PresetRepository is the SQLite PresetStore.
type PresetRepository struct {
	db *sql.DB
}

const presetColumns = `id, name, hue_min, hue_max, sat_min, sat_max, desaturate, highlight, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanPreset(row scanner) (*Preset, error) {
	p := &Preset{}
	err := row.Scan(&p.ID, &p.Name, &p.HueMin, &p.HueMax, &p.SatMin, &p.SatMax,
		&p.Desaturate, &p.Highlight, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a new preset and sets its timestamps.
func (r *PresetRepository) Create(ctx context.Context, p *Preset) error {
	if err := p.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO presets (`+presetColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.HueMin, p.HueMax, p.SatMin, p.SatMax,
		p.Desaturate, p.Highlight, p.CreatedAt, p.UpdatedAt,
	)
	return sqliteError(err)
}

// Get retrieves a preset by its ID.
func (r *PresetRepository) Get(ctx context.Context, id string) (*Preset, error) {
	p, err := scanPreset(r.db.QueryRowContext(ctx,
		`SELECT `+presetColumns+` FROM presets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// GetByName retrieves a preset by its name.
func (r *PresetRepository) GetByName(ctx context.Context, name string) (*Preset, error) {
	p, err := scanPreset(r.db.QueryRowContext(ctx,
		`SELECT `+presetColumns+` FROM presets WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// List returns all presets, oldest first.
func (r *PresetRepository) List(ctx context.Context) ([]*Preset, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+presetColumns+` FROM presets ORDER BY created_at, name`)
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

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return presets, nil
}

// Update replaces an existing preset's name and values.
func (r *PresetRepository) Update(ctx context.Context, p *Preset) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx,
		`UPDATE presets SET name = ?, hue_min = ?, hue_max = ?, sat_min = ?, sat_max = ?,
		 desaturate = ?, highlight = ?, updated_at = ?
		 WHERE id = ?`,
		p.Name, p.HueMin, p.HueMax, p.SatMin, p.SatMax,
		p.Desaturate, p.Highlight, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return sqliteError(err)
	}

	return requireRow(result)
}

// Delete removes a preset by its ID.
func (r *PresetRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM presets WHERE id = ?`, id)
	if err != nil {
		return err
	}

	return requireRow(result)
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// sqliteError maps unique constraint failures to ErrDuplicateName.
func sqliteError(err error) error {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return err
	}
	code := se.Code()
	if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
		(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE")) {
		return ErrDuplicateName
	}
	return err
}
