package store

import (
	"context"
	"os"
	"testing"
)

// newTestPostgres connects to COLORHUNT_TEST_POSTGRES and starts from empty
// tables. Tests skip when the variable is unset.
func newTestPostgres(t *testing.T) *PGStore {
	t.Helper()

	url := os.Getenv("COLORHUNT_TEST_POSTGRES")
	if url == "" {
		t.Skip("COLORHUNT_TEST_POSTGRES not set")
	}

	ctx := context.Background()
	s, err := NewPostgres(ctx, url)
	if err != nil {
		t.Fatalf("NewPostgres() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if _, err := s.conn.Exec(ctx, `TRUNCATE presets, settings`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return s
}

func TestPGPresets(t *testing.T) {
	presetStoreTests(t, newTestPostgres(t).Presets())
}

func TestPGSettings(t *testing.T) {
	settingStoreTests(t, newTestPostgres(t).Settings())
}

func TestOpen_Postgres(t *testing.T) {
	url := os.Getenv("COLORHUNT_TEST_POSTGRES")
	if url == "" {
		t.Skip("COLORHUNT_TEST_POSTGRES not set")
	}

	b, err := Open(context.Background(), url)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer b.Close()
	if _, ok := b.(*PGStore); !ok {
		t.Errorf("Open() = %T, want *PGStore", b)
	}
}
