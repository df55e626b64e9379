package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"hail/internal/geo"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	sendQueueDepth = 32
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// envelope is the wire shape of every outbound event.
type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// inboundMessage is the wire shape of client-to-server messages.
type inboundMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// locationReport is the payload of an inbound driver location message.
type locationReport struct {
	RideID   string    `json:"ride_id,omitempty"`
	Location geo.Point `json:"location"`
}

// LocationReporter consumes driver position reports arriving over the
// socket. The websocket layer is one of two equivalent delivery mechanisms
// for the same contract; the HTTP handler is the other.
type LocationReporter interface {
	ReportLocation(ctx context.Context, driverID, rideID string, pos geo.Point) error
}

// wsChannel adapts a gorilla websocket connection to the Channel interface.
// gorilla permits only one concurrent writer, so all sends funnel through a
// single writer goroutine fed by a bounded queue; queue order is send order.
type wsChannel struct {
	conn *websocket.Conn
	send chan envelope

	closeOnce sync.Once
	closed    chan struct{}
}

func newWSChannel(conn *websocket.Conn) *wsChannel {
	return &wsChannel{
		conn:   conn,
		send:   make(chan envelope, sendQueueDepth),
		closed: make(chan struct{}),
	}
}

// Send queues an event for the writer goroutine. A full queue means the
// client has stopped draining; the connection is torn down rather than
// blocking or reordering.
func (c *wsChannel) Send(event string, payload any) error {
	select {
	case <-c.closed:
		return ErrChannelClosed
	default:
	}

	select {
	case c.send <- envelope{Event: event, Data: payload}:
		return nil
	case <-c.closed:
		return ErrChannelClosed
	default:
		_ = c.Close()
		return ErrChannelClosed
	}
}

// Close shuts the channel down. Idempotent.
func (c *wsChannel) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.conn.Close()
	})
	return nil
}

// writeLoop is the single writer for the connection.
func (c *wsChannel) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case env := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}

// WSHandler upgrades client connections and binds them into the registry.
type WSHandler struct {
	registry *Registry
	reporter LocationReporter
	log      *zap.Logger
}

// NewWSHandler creates a WSHandler.
func NewWSHandler(registry *Registry, reporter LocationReporter, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{registry: registry, reporter: reporter, log: log}
}

// Connect handles GET /ws/:actor_id. The verified actor identity is supplied
// by the surrounding auth layer; this core trusts it as given.
func (h *WSHandler) Connect(c *gin.Context) {
	actorID := c.Param("actor_id")
	if actorID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing actor id"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	ch := newWSChannel(conn)
	h.registry.Register(actorID, ch)
	h.log.Info("actor connected", zap.String("actor_id", actorID))

	go ch.writeLoop()
	h.readLoop(actorID, ch)
}

// readLoop consumes inbound messages until the connection dies, then
// unregisters the channel. Unregister is conditional on the binding still
// pointing here, so a reconnect is never torn down by the old socket.
func (h *WSHandler) readLoop(actorID string, ch *wsChannel) {
	defer func() {
		_ = ch.Close()
		h.registry.Unregister(actorID, ch)
		h.log.Info("actor disconnected", zap.String("actor_id", actorID))
	}()

	_ = ch.conn.SetReadDeadline(time.Now().Add(pongWait))
	ch.conn.SetPongHandler(func(string) error {
		return ch.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := ch.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}

		switch msg.Event {
		case "update-location-captain":
			var report locationReport
			if err := json.Unmarshal(msg.Data, &report); err != nil {
				continue
			}
			if h.reporter == nil {
				continue
			}
			if err := h.reporter.ReportLocation(context.Background(), actorID, report.RideID, report.Location); err != nil {
				_ = ch.Send("error", gin.H{"message": err.Error()})
			}
		default:
			// Unknown inbound events are ignored.
		}
	}
}
