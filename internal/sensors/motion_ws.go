package sensors

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/step_counter/internal/accel"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// motionMessage is one JSON message from the browser page. The page
// asks for DeviceMotion permission (an explicit user gesture on iOS
// Safari), reports the outcome, then forwards motion events.
type motionMessage struct {
	Type    string `json:"type"` // "permission" or "reading"
	Granted bool   `json:"granted,omitempty"`

	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Z           float64 `json:"z"`
	TimestampMs int64   `json:"timestamp_ms,omitempty"`
}

// MotionSource ingests browser DeviceMotion events over a WebSocket.
// It is an accel.Source and an http.Handler: mount it on the motion
// endpoint and point the browser page at it.
type MotionSource struct {
	permissionWait time.Duration
	permission     chan bool

	mu   sync.Mutex
	push accel.PushFunc
}

// NewMotionSource creates a browser motion source. permissionWait bounds
// how long RequestPermission waits for a client to report the grant.
func NewMotionSource(permissionWait time.Duration) *MotionSource {
	if permissionWait <= 0 {
		permissionWait = time.Minute
	}
	return &MotionSource{
		permissionWait: permissionWait,
		permission:     make(chan bool, 1),
	}
}

// Name identifies the browser platform class.
func (m *MotionSource) Name() string { return "browser" }

// RequestPermission blocks until a browser client reports the
// DeviceMotion permission outcome. The asynchronous mechanics of the
// browser prompt stay hidden behind this call: a denial maps to
// accel.ErrPermissionDenied, and no client appearing within the wait
// maps to accel.ErrDeviceUnsupported.
func (m *MotionSource) RequestPermission() error {
	select {
	case granted := <-m.permission:
		if !granted {
			return accel.ErrPermissionDenied
		}
		return nil
	case <-time.After(m.permissionWait):
		return accel.ErrDeviceUnsupported
	}
}

// Start registers the push callback. Readings from connected clients
// flow to it until Stop.
func (m *MotionSource) Start(push accel.PushFunc) error {
	m.mu.Lock()
	m.push = push
	m.mu.Unlock()
	return nil
}

// Stop deregisters the push callback. Connections stay open, but their
// readings are discarded.
func (m *MotionSource) Stop() error {
	m.mu.Lock()
	m.push = nil
	m.mu.Unlock()
	return nil
}

// ServeHTTP upgrades the connection to a WebSocket and runs the message
// loop for one browser client.
func (m *MotionSource) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("motion: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()
	log.Printf("motion: client connected from %s", r.RemoteAddr)

	for {
		var msg motionMessage
		if err := conn.ReadJSON(&msg); err != nil {
			log.Printf("motion: websocket read error: %v", err)
			return
		}

		switch msg.Type {
		case "permission":
			// First report wins; later clients don't re-gate the engine.
			select {
			case m.permission <- msg.Granted:
			default:
			}
		case "reading":
			m.mu.Lock()
			push := m.push
			m.mu.Unlock()
			if push == nil {
				continue
			}
			ts := time.Now()
			if msg.TimestampMs != 0 {
				ts = time.UnixMilli(msg.TimestampMs)
			}
			push(accel.Reading{X: msg.X, Y: msg.Y, Z: msg.Z, Timestamp: ts})
		default:
			log.Printf("motion: dropping message of unknown type %q", msg.Type)
		}
	}
}
