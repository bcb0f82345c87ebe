package cli

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ayusman/colorhunt/internal/app"
	"github.com/ayusman/colorhunt/internal/filter"
	"github.com/ayusman/colorhunt/internal/server"
	"github.com/ayusman/colorhunt/internal/tray"
)

const (
	shutdownTimeout = 5 * time.Second
	trayRefresh     = 2 * time.Second
)

func (r *root) newServeCmd() *cobra.Command {
	var withTray bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Capture from the camera and serve the filtered stream and control page",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return r.runServe(cmd.Context(), withTray)
		},
	}
	r.cfg.BindServeFlags(cmd.Flags())
	cmd.Flags().BoolVar(&withTray, "tray", false, "Show a system tray menu")
	return cmd
}

func (r *root) runServe(ctx context.Context, withTray bool) error {
	if err := r.cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	backend, err := r.openBackend(ctx)
	if err != nil {
		return err
	}

	a := app.New(ctx, app.Config{
		Backend:      backend,
		CameraDevice: r.cfg.CameraDevice,
		Viewport:     filter.Size{W: r.cfg.Width, H: r.cfg.Height},
		ActiveFPS:    r.cfg.ActiveFPS,
		IdleFPS:      r.cfg.IdleFPS,
		Quality:      r.cfg.Quality,
		Logger:       r.log,
	})
	defer a.Close()

	if err := a.Start(); err != nil {
		// The page can start rendering later through /api/render.
		r.log.WithError(err).Warn("camera unavailable, rendering not started")
	}

	webDir := r.cfg.FindWebDir()
	if webDir != "" {
		r.log.WithField("dir", webDir).Info("serving static files")
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Presets:   a.Presets(),
		State:     a.State(),
		Frames:    a.Frames(),
		Render:    a,
		Camera:    a,
		Program:   a.Program(),
		Logger:    r.log,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(r.cfg.Addr)
	}()

	if withTray {
		go func() {
			runTray(ctx, a, pageURL(r.cfg.Addr), r.log)
			cancel()
		}()
	}

	select {
	case <-ctx.Done():
		r.log.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		r.log.WithError(err).Warn("server shutdown")
	}
	return nil
}

// runTray shows the tray menu until the user quits or ctx ends.
func runTray(ctx context.Context, a *app.App, url string, log logrus.FieldLogger) {
	t := tray.New(a.IsEnabled())
	t.OnToggle(func(enabled bool) {
		if enabled && !a.Status().Running {
			if err := a.Start(); err != nil {
				log.WithError(err).Warn("starting render loop")
				t.SetEnabled(false)
				return
			}
		}
		a.SetEnabled(enabled)
	})
	t.OnOpen(func() {
		if err := tray.OpenBrowser(url); err != nil {
			log.WithError(err).Warn("opening browser")
		}
	})

	go func() {
		ticker := time.NewTicker(trayRefresh)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				t.Quit()
				return
			case <-ticker.C:
				t.SetEnabled(a.IsEnabled())
				t.SetStatus(statusLine(a))
			}
		}
	}()

	t.Run()
}

func statusLine(a *app.App) string {
	st := a.Status()
	switch {
	case !st.Running:
		return "Stopped"
	case st.Paused:
		return "Paused"
	default:
		return fmt.Sprintf("Rendering at %d fps (camera %d)", st.FPS, a.CameraDevice())
	}
}

// pageURL turns a listen address into a browsable URL.
func pageURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return "http://" + host + ":" + port + "/"
}
