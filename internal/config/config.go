// Package config resolves runtime settings: built-in defaults, then
// COLORHUNT_* environment variables, then command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/ayusman/colorhunt/internal/capture"
	"github.com/ayusman/colorhunt/internal/control"
	"github.com/ayusman/colorhunt/internal/filter"
	"github.com/ayusman/colorhunt/internal/render"
)

// Environment variables read by Load.
const (
	EnvAddr   = "COLORHUNT_ADDR"
	EnvDB     = "COLORHUNT_DB"
	EnvCamera = "COLORHUNT_CAMERA"
	EnvWeb    = "COLORHUNT_WEB"
	EnvDebug  = "COLORHUNT_DEBUG"
)

const (
	// DefaultAddr is the HTTP listen address.
	DefaultAddr = ":8080"
	dataDirName = ".colorhunt"
	dbFileName  = "colorhunt.db"
)

// Config holds the resolved settings.
type Config struct {
	Addr string
	// DB is a PostgreSQL URL or an SQLite path. Empty selects the SQLite
	// file in the data directory.
	DB string
	// CameraDevice is the capture device; negative means the saved one.
	CameraDevice int
	WebDir       string
	Debug        bool

	Width     int
	Height    int
	ActiveFPS int
	IdleFPS   int
	Quality   int
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Addr:         DefaultAddr,
		CameraDevice: -1,
		Width:        capture.DefaultWidth,
		Height:       capture.DefaultHeight,
		IdleFPS:      capture.IdleFPS,
		Quality:      render.DefaultQuality,
	}
}

// Load returns the defaults overridden by the environment. getenv is
// usually os.Getenv.
func Load(getenv func(string) string) (Config, error) {
	cfg := Default()

	if v := getenv(EnvAddr); v != "" {
		cfg.Addr = v
	}
	if v := getenv(EnvDB); v != "" {
		cfg.DB = v
	}
	if v := getenv(EnvWeb); v != "" {
		cfg.WebDir = v
	}
	if v := getenv(EnvCamera); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return cfg, fmt.Errorf("%s: invalid camera device %q", EnvCamera, v)
		}
		cfg.CameraDevice = n
	}
	if v := getenv(EnvDebug); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvDebug, err)
		}
		cfg.Debug = b
	}

	return cfg, nil
}

// BindFlags registers the shared flags on fs. Flag defaults are the values
// already in c, so flags override the environment.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.DB, "db", c.DB, "PostgreSQL URL or SQLite path (default: ~/.colorhunt/colorhunt.db)")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "Enable debug logging")
}

// BindServeFlags registers the flags used by the server.
func (c *Config) BindServeFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.Addr, "addr", "a", c.Addr, "HTTP listen address")
	fs.IntVarP(&c.CameraDevice, "camera", "c", c.CameraDevice, "Camera device index (default: last used)")
	fs.StringVar(&c.WebDir, "web", c.WebDir, "Directory with the browser page")
	fs.IntVar(&c.Width, "width", c.Width, "Output width before the browser reports its viewport")
	fs.IntVar(&c.Height, "height", c.Height, "Output height before the browser reports its viewport")
	fs.IntVar(&c.ActiveFPS, "fps", c.ActiveFPS, "Render rate (default: camera rate)")
	fs.IntVar(&c.IdleFPS, "idle-fps", c.IdleFPS, "Render rate while the scene is still, 0 disables")
	fs.IntVarP(&c.Quality, "quality", "q", c.Quality, "JPEG quality of streamed frames")
}

// Validate checks values flags could have set out of range.
func (c Config) Validate() error {
	if err := control.CheckViewport(filter.Size{W: c.Width, H: c.Height}); err != nil {
		return fmt.Errorf("output size: %w", err)
	}
	switch {
	case c.ActiveFPS < 0 || c.IdleFPS < 0:
		return fmt.Errorf("frame rates must not be negative")
	case c.Quality < 1 || c.Quality > 100:
		return fmt.Errorf("quality %d outside 1..100", c.Quality)
	}
	return nil
}

// DataDir returns ~/.colorhunt, creating it if needed.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	dir := filepath.Join(home, dataDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dir, nil
}

// DatabaseURL returns the configured database, defaulting to the SQLite file
// in the data directory.
func (c Config) DatabaseURL() (string, error) {
	if c.DB != "" {
		return c.DB, nil
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, dbFileName), nil
}

// FindWebDir returns the configured web directory if set, otherwise it
// searches "web", "../web", "../../web" and ~/.colorhunt/web. It returns ""
// when none exists.
func (c Config) FindWebDir() string {
	if c.WebDir != "" {
		return c.WebDir
	}

	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, dataDirName, "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
