package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/colorhunt/internal/app"
	"github.com/ayusman/colorhunt/internal/capture"
	"github.com/ayusman/colorhunt/internal/filter"
	"github.com/ayusman/colorhunt/internal/server"
	"github.com/ayusman/colorhunt/internal/store"
	"github.com/ayusman/colorhunt/testdata"
)

const frameW, frameH = 96, 32

// Bar centers of the red, green and blue thirds.
var (
	redAt   = image.Pt(16, 16)
	greenAt = image.Pt(48, 16)
	blueAt  = image.Pt(80, 16)
)

type harness struct {
	t      *testing.T
	ts     *httptest.Server
	client *http.Client
	store  *store.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	mats, err := testdata.Mats(testdata.HueBars(frameW, frameH, 0, 120, 240))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { testdata.CloseAll(mats) })

	log := logrus.New()
	log.SetOutput(io.Discard)

	a := app.New(context.Background(), app.Config{
		Backend:   s,
		Camera:    capture.NewMockCamera(mats, true),
		Viewport:  filter.Size{W: frameW, H: frameH},
		ActiveFPS: 60,
		Logger:    log,
	})
	t.Cleanup(a.Close)

	srv := server.New(server.Config{
		Presets: a.Presets(),
		State:   a.State(),
		Frames:  a.Frames(),
		Render:  a,
		Camera:  a,
		Program: a.Program(),
		Logger:  log,
	})
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		srv.Shutdown(context.Background())
		ts.Close()
	})

	return &harness{t: t, ts: ts, client: ts.Client(), store: s}
}

func (h *harness) do(method, path, body string) *http.Response {
	h.t.Helper()
	req, err := http.NewRequest(method, h.ts.URL+path, strings.NewReader(body))
	if err != nil {
		h.t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.client.Do(req)
	if err != nil {
		h.t.Fatalf("%s %s error = %v", method, path, err)
	}
	return resp
}

func (h *harness) expect(method, path, body string, status int) []byte {
	h.t.Helper()
	resp := h.do(method, path, body)
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != status {
		h.t.Fatalf("%s %s status = %d, want %d: %s", method, path, resp.StatusCode, status, data)
	}
	return data
}

// waitForFrame polls the snapshot until check accepts it.
func (h *harness) waitForFrame(what string, check func(img image.Image) bool) {
	h.t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		resp := h.do(http.MethodGet, "/api/snapshot", "")
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			if img, err := jpeg.Decode(bytes.NewReader(data)); err == nil && check(img) {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	h.t.Fatalf("timed out waiting for %s", what)
}

func rgb(img image.Image, p image.Point) (r, g, b int) {
	R, G, B, _ := img.At(p.X, p.Y).RGBA()
	return int(R >> 8), int(G >> 8), int(B >> 8)
}

func isGray(img image.Image, p image.Point) bool {
	r, g, b := rgb(img, p)
	return abs(r-g) < 16 && abs(g-b) < 16
}

func isGreen(img image.Image, p image.Point) bool {
	r, g, b := rgb(img, p)
	return g > 200 && r < 60 && b < 60
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	h := newHarness(t)

	t.Run("SnapshotUnavailableBeforeStart", func(t *testing.T) {
		h.expect(http.MethodGet, "/api/snapshot", "", http.StatusServiceUnavailable)
	})

	t.Run("IsolateGreen", func(t *testing.T) {
		h.expect(http.MethodPut, "/api/filter",
			`{"hue_min": 90, "hue_max": 150, "sat_min": 50, "sat_max": 100, "desaturate": 100, "highlight": 0}`,
			http.StatusOK)
		h.expect(http.MethodPost, "/api/render", `{"action": "start"}`, http.StatusOK)

		h.waitForFrame("green isolated", func(img image.Image) bool {
			return isGray(img, redAt) && isGreen(img, greenAt) && isGray(img, blueAt)
		})
	})

	t.Run("SaveAndApplyPreset", func(t *testing.T) {
		data := h.expect(http.MethodPost, "/api/presets", `{"name": "greens"}`, http.StatusCreated)
		var created struct {
			ID     string  `json:"id"`
			HueMin float64 `json:"hue_min"`
		}
		json.Unmarshal(data, &created)
		if created.HueMin != 90 {
			t.Errorf("preset hue_min = %v, want the live value 90", created.HueMin)
		}

		// Move away, then restore from the preset.
		h.expect(http.MethodPut, "/api/filter", `{"hue_min": 200, "hue_max": 260}`, http.StatusOK)
		h.waitForFrame("blue isolated", func(img image.Image) bool {
			return isGray(img, greenAt) && !isGray(img, blueAt)
		})

		h.expect(http.MethodPost, "/api/presets/"+created.ID+"/apply", "", http.StatusOK)
		h.waitForFrame("preset applied", func(img image.Image) bool {
			return isGreen(img, greenAt) && isGray(img, blueAt)
		})
	})

	t.Run("ZoomIntoGreenBar", func(t *testing.T) {
		h.expect(http.MethodPost, "/api/view/pinch", `{"scale": 3, "x": 0.5, "y": 0.5}`, http.StatusOK)
		h.waitForFrame("zoomed", func(img image.Image) bool {
			return isGreen(img, redAt) && isGreen(img, blueAt)
		})

		h.expect(http.MethodPost, "/api/view/reset", "", http.StatusOK)
		h.waitForFrame("zoom reset", func(img image.Image) bool {
			return isGray(img, redAt)
		})
	})

	t.Run("PauseAndStop", func(t *testing.T) {
		h.expect(http.MethodPost, "/api/render", `{"action": "pause"}`, http.StatusOK)
		var st struct {
			Running bool `json:"running"`
			Paused  bool `json:"paused"`
		}
		json.Unmarshal(h.expect(http.MethodGet, "/api/render", "", http.StatusOK), &st)
		if !st.Running || !st.Paused {
			t.Errorf("status = %+v, want running and paused", st)
		}

		json.Unmarshal(h.expect(http.MethodPost, "/api/render", `{"action": "stop"}`, http.StatusOK), &st)
		if st.Running {
			t.Errorf("status = %+v, want stopped", st)
		}
	})

	t.Run("APIStillWorks", func(t *testing.T) {
		h.expect(http.MethodGet, "/api/health", "", http.StatusOK)
	})
}

func TestE2E_FilterPersistsAcrossRestart(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	dbPath := filepath.Join(t.TempDir(), "data.db")
	log := logrus.New()
	log.SetOutput(io.Discard)

	open := func() (*store.Store, *app.App) {
		s, err := store.New(dbPath)
		if err != nil {
			t.Fatal(err)
		}
		a := app.New(context.Background(), app.Config{
			Backend: s,
			Camera:  capture.NewMockCamera(nil, true),
			Logger:  log,
		})
		return s, a
	}

	s, a := open()
	band := filter.Band{HueMin: 330, HueMax: 15, SatMin: 35, SatMax: 100}
	if err := a.State().SetFilter(band, filter.Blend{Desaturate: 0.6, Highlight: 0.2}); err != nil {
		t.Fatal(err)
	}
	a.Close()
	s.Close()

	s, a = open()
	defer s.Close()
	defer a.Close()

	if got := a.State().Params().Band; got != band {
		t.Errorf("band after restart = %+v, want %+v", got, band)
	}
}

func TestE2E_MotionLowersFrameRate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	still, err := testdata.Mats(testdata.Solid(64, 48, testdata.HSV(30, 1, 1)))
	if err != nil {
		t.Fatal(err)
	}
	defer testdata.CloseAll(still)

	log := logrus.New()
	log.SetOutput(io.Discard)

	a := app.New(context.Background(), app.Config{
		Camera:    capture.NewMockCamera(still, true),
		ActiveFPS: 50,
		IdleFPS:   10,
		Logger:    log,
	})
	defer a.Close()

	if err := a.Start(); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for a.Status().FPS != 10 {
		if time.Now().After(deadline) {
			t.Fatalf("fps = %d, want idle rate 10 for a still scene", a.Status().FPS)
		}
		time.Sleep(50 * time.Millisecond)
	}
}
