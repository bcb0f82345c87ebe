// Package cli implements the colorhunt command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ayusman/colorhunt/internal/config"
	"github.com/ayusman/colorhunt/internal/store"
)

// Version is the application version.
const Version = "0.1.0"

// root holds state shared by the subcommands.
type root struct {
	cmd     *cobra.Command
	cfg     config.Config
	log     *logrus.Logger
	backend store.Backend
}

func newRoot(getenv func(string) string) (*root, error) {
	cfg, err := config.Load(getenv)
	if err != nil {
		return nil, err
	}

	r := &root{cfg: cfg, log: logrus.New()}
	r.cmd = &cobra.Command{
		Use:           "colorhunt",
		Short:         "Real-time color isolation filter",
		Version:       Version,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			r.log.SetOutput(cmd.ErrOrStderr())
			initLogger(r.log, r.cfg.Debug)
		},
	}
	r.cmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	r.cfg.BindFlags(r.cmd.PersistentFlags())

	r.cmd.AddCommand(r.newServeCmd(), r.newApplyCmd(), r.newPresetsCmd())
	return r, nil
}

// initLogger configures text output in debug mode and JSON otherwise.
func initLogger(logger *logrus.Logger, debug bool) {
	if debug {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
		logger.Debug("Debug logging enabled")
		return
	}
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
	})
}

// openBackend connects to the configured database on first use.
func (r *root) openBackend(ctx context.Context) (store.Backend, error) {
	if r.backend != nil {
		return r.backend, nil
	}
	url, err := r.cfg.DatabaseURL()
	if err != nil {
		return nil, err
	}
	b, err := store.Open(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	r.backend = b
	return b, nil
}

func (r *root) close() {
	if r.backend != nil {
		if err := r.backend.Close(); err != nil {
			r.log.WithError(err).Warn("closing database")
		}
		r.backend = nil
	}
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := newRoot(os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	err = r.cmd.ExecuteContext(ctx)
	r.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
