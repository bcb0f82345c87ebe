package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/colorhunt/internal/control"
	"github.com/ayusman/colorhunt/internal/filter"
	"github.com/ayusman/colorhunt/internal/server/api"
)

const (
	// maxMessageSize bounds one control message from a client.
	maxMessageSize = 4096
	writeWait      = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

var errUnknownMessage = errors.New("unknown message type")

// controlMessage is a gesture or filter change sent by a client. Fields not
// used by the message type are ignored.
type controlMessage struct {
	Type string `json:"type"`

	Scale float32 `json:"scale"`
	X     float32 `json:"x"`
	Y     float32 `json:"y"`
	DX    float32 `json:"dx"`
	DY    float32 `json:"dy"`

	Width  int     `json:"width"`
	Height int     `json:"height"`
	DPR    float64 `json:"dpr"`

	api.FilterRequest
}

// stateMessage is broadcast to every client after each change.
type stateMessage struct {
	Type   string             `json:"type"`
	Filter api.FilterResponse `json:"filter"`
	View   api.ViewResponse   `json:"view"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func newStateMessage(snap control.Snapshot) stateMessage {
	return stateMessage{
		Type:   "state",
		Filter: api.NewFilterResponse(snap.Params.Band, snap.Params.Blend),
		View:   api.NewViewResponse(snap),
	}
}

// ControlHandler runs the websocket control channel: clients send gesture
// and filter messages and receive the resulting state.
type ControlHandler struct {
	state *control.State
	log   logrus.FieldLogger

	clients map[*wsClient]bool
	mu      sync.RWMutex
}

// wsClient serializes writes to one connection; gorilla allows only one
// concurrent writer.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (c *wsClient) close(reason string) {
	c.mu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, reason)
	c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	c.mu.Unlock()
	c.conn.Close()
}

// NewControlHandler creates a new ControlHandler driving state.
func NewControlHandler(state *control.State, log logrus.FieldLogger) *ControlHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ControlHandler{
		state:   state,
		log:     log.WithField("component", "control"),
		clients: make(map[*wsClient]bool),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *ControlHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	c := &wsClient{conn: conn}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
	}()

	updates, cancel := h.state.Subscribe()
	defer cancel()

	go func() {
		for snap := range updates {
			if err := c.send(newStateMessage(snap)); err != nil {
				conn.Close()
				return
			}
		}
	}()

	if err := c.send(newStateMessage(h.state.Snapshot())); err != nil {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var msg controlMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.send(errorMessage{Type: "error", Error: "invalid JSON"})
			continue
		}
		if err := h.apply(msg); err != nil {
			c.send(errorMessage{Type: "error", Error: err.Error()})
		}
	}
}

// apply performs one control message against the state.
func (h *ControlHandler) apply(msg controlMessage) error {
	switch msg.Type {
	case "pinch":
		if msg.Scale <= 0 {
			return errors.New("scale must be positive")
		}
		h.state.Pinch(msg.Scale, filter.Point{X: msg.X, Y: msg.Y})
	case "pan":
		h.state.Pan(msg.DX, msg.DY)
	case "reset":
		h.state.ResetZoom()
	case "filter":
		p := h.state.Params()
		band, blend := msg.FilterRequest.Apply(p.Band, p.Blend)
		return h.state.SetFilter(band, blend)
	case "viewport":
		return h.state.SetViewport(control.ViewportFromCSS(msg.Width, msg.Height, msg.DPR))
	default:
		return errUnknownMessage
	}
	return nil
}

// Clients returns the number of connected control clients.
func (h *ControlHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *ControlHandler) Close() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.close("server shutting down")
	}
}
