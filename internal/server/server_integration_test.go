package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/colorhunt/internal/control"
	"github.com/ayusman/colorhunt/internal/filter"
	"github.com/ayusman/colorhunt/internal/render"
	"github.com/ayusman/colorhunt/internal/store"
)

func newIntegrationServer(t *testing.T) (*httptest.Server, *control.State, *render.Hub) {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	state := control.NewState(filter.Size{W: 640, H: 480})
	hub := render.NewHub()
	srv := New(Config{Presets: s.Presets(), State: state, Frames: hub, Logger: quietLogger()})

	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		srv.Shutdown(context.Background())
		ts.Close()
	})
	return ts, state, hub
}

func TestAPI_PresetWorkflow(t *testing.T) {
	ts, state, _ := newIntegrationServer(t)
	client := ts.Client()

	// 1. Create a preset
	createBody := `{"name": "leaves", "hue_min": 80, "hue_max": 160, "sat_min": 25, "sat_max": 100, "desaturate": 100}`
	resp, err := client.Post(ts.URL+"/api/presets", "application/json", bytes.NewBufferString(createBody))
	if err != nil {
		t.Fatalf("POST /api/presets error = %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var created struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	if created.ID == "" {
		t.Fatal("created preset has no ID")
	}

	// 2. List presets
	resp, err = client.Get(ts.URL + "/api/presets")
	if err != nil {
		t.Fatalf("GET /api/presets error = %v", err)
	}
	var list struct {
		Presets []struct {
			ID string `json:"id"`
		} `json:"presets"`
	}
	json.NewDecoder(resp.Body).Decode(&list)
	resp.Body.Close()

	if len(list.Presets) != 1 || list.Presets[0].ID != created.ID {
		t.Fatalf("list = %+v, want the created preset", list.Presets)
	}

	// 3. Apply it
	resp, err = client.Post(ts.URL+"/api/presets/"+created.ID+"/apply", "application/json", nil)
	if err != nil {
		t.Fatalf("POST apply error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("apply status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	// 4. The live filter now matches
	resp, err = client.Get(ts.URL + "/api/filter")
	if err != nil {
		t.Fatalf("GET /api/filter error = %v", err)
	}
	var live struct {
		HueMin float32 `json:"hue_min"`
		HueMax float32 `json:"hue_max"`
	}
	json.NewDecoder(resp.Body).Decode(&live)
	resp.Body.Close()

	if live.HueMin != 80 || live.HueMax != 160 {
		t.Errorf("live filter = %+v, want 80..160", live)
	}
	if got := state.Params().Blend.Desaturate; got != 1 {
		t.Errorf("desaturate = %f, want 1", got)
	}

	// 5. Delete it
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/presets/"+created.ID, nil)
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("DELETE error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("DELETE status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	// 6. Verify gone
	resp, _ = client.Get(ts.URL + "/api/presets/" + created.ID)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET deleted preset status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestAPI_Stream(t *testing.T) {
	ts, _, hub := newIntegrationServer(t)

	first := []byte{0xff, 0xd8, 0x01, 0xff, 0xd9}
	hub.Publish(first)

	resp, err := ts.Client().Get(ts.URL + "/api/stream")
	if err != nil {
		t.Fatalf("GET /api/stream error = %v", err)
	}
	defer resp.Body.Close()

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/x-mixed-replace" {
		t.Fatalf("Content-Type = %q, %v", resp.Header.Get("Content-Type"), err)
	}

	mr := multipart.NewReader(resp.Body, params["boundary"])

	part, err := mr.NextPart()
	if err != nil {
		t.Fatalf("first part: %v", err)
	}
	if ct := part.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("part Content-Type = %q", ct)
	}
	got, _ := io.ReadAll(part)
	if !bytes.Equal(got, first) {
		t.Errorf("first part = %x, want %x", got, first)
	}

	second := []byte{0xff, 0xd8, 0x02, 0xff, 0xd9}
	hub.Publish(second)

	part, err = mr.NextPart()
	if err != nil {
		t.Fatalf("second part: %v", err)
	}
	got, _ = io.ReadAll(part)
	if !bytes.Equal(got, second) {
		t.Errorf("second part = %x, want %x", got, second)
	}
}

type wsState struct {
	Type   string `json:"type"`
	Error  string `json:"error"`
	Filter struct {
		HueMin float32 `json:"hue_min"`
		HueMax float32 `json:"hue_max"`
	} `json:"filter"`
	View struct {
		Zoom float32 `json:"zoom"`
	} `json:"view"`
}

func readState(t *testing.T, conn *websocket.Conn) wsState {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg wsState
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read message: %v", err)
	}
	return msg
}

func TestAPI_ControlChannel(t *testing.T) {
	ts, state, _ := newIntegrationServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/control"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if msg := readState(t, conn); msg.Type != "state" || msg.View.Zoom != 1 {
		t.Fatalf("initial message = %+v", msg)
	}

	conn.WriteJSON(map[string]any{"type": "pinch", "scale": 2, "x": 0.5, "y": 0.5})
	if msg := readState(t, conn); msg.View.Zoom != 2 {
		t.Errorf("zoom after pinch = %f, want 2", msg.View.Zoom)
	}

	conn.WriteJSON(map[string]any{"type": "filter", "hue_min": 10, "hue_max": 40})
	if msg := readState(t, conn); msg.Filter.HueMin != 10 || msg.Filter.HueMax != 40 {
		t.Errorf("filter after update = %+v", msg.Filter)
	}

	conn.WriteJSON(map[string]any{"type": "filter", "sat_min": 150})
	if msg := readState(t, conn); msg.Type != "error" || msg.Error == "" {
		t.Errorf("invalid filter: message = %+v, want an error", msg)
	}

	conn.WriteJSON(map[string]any{"type": "spin"})
	if msg := readState(t, conn); msg.Type != "error" {
		t.Errorf("unknown type: message = %+v, want an error", msg)
	}

	conn.WriteJSON(map[string]any{"type": "viewport", "width": 1 << 20, "height": 1 << 20, "dpr": 8})
	if msg := readState(t, conn); msg.Type != "error" || !strings.Contains(msg.Error, "invalid viewport") {
		t.Errorf("oversized viewport: message = %+v, want an error", msg)
	}
	if got := state.Snapshot().Viewport; got.W > 8192 || got.H > 8192 {
		t.Errorf("viewport = %+v after oversized request", got)
	}

	// Changes made over HTTP reach websocket clients too.
	state.ResetZoom()
	if msg := readState(t, conn); msg.View.Zoom != 1 {
		t.Errorf("zoom after reset = %f, want 1", msg.View.Zoom)
	}
}
