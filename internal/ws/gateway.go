// Package ws streams change events to dashboard connections over
// websockets. Domain events are server-authoritative: a client message
// reusing a server event name is dropped, never relayed. Messages in
// the client: namespace are relayed to the other connections only.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"classtrack/internal/bus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	// clientPrefix namespaces events clients may relay to each other.
	clientPrefix = "client:"
)

var connectedClients = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "classtrack_ws_clients",
	Help: "Currently connected live-update clients.",
})

var serverEvents = map[string]bool{
	bus.EventStudentAdded:      true,
	bus.EventStudentDeleted:    true,
	bus.EventAttendanceUpdated: true,
	bus.EventRefresh:           true,
}

// Gateway upgrades HTTP connections and bridges them onto the bus.
type Gateway struct {
	bus      bus.Bus
	upgrader websocket.Upgrader
}

// NewGateway creates a gateway publishing to and subscribing from b.
func NewGateway(b bus.Bus) *Gateway {
	return &Gateway{
		bus: b,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser origins are already filtered by the CORS layer.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handle is the gin handler for GET /ws.
func (g *Gateway) Handle(c *gin.Context) {
	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws: upgrade failed: %v", err)
		return
	}
	sub := g.bus.Subscribe()
	connectedClients.Inc()
	go g.writePump(conn, sub)
	g.readPump(conn, sub)
}

// writePump streams bus events to the peer and keeps the connection
// alive with pings.
func (g *Gateway) writePump(conn *websocket.Conn, sub *bus.Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()
	for {
		select {
		case evt, ok := <-sub.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump consumes inbound frames until the peer goes away, then
// deregisters the subscription.
func (g *Gateway) readPump(conn *websocket.Conn, sub *bus.Subscription) {
	defer func() {
		sub.Close()
		connectedClients.Dec()
		_ = conn.Close()
	}()
	conn.SetReadLimit(32 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		g.handleInbound(sub.ID, data)
	}
}

// handleInbound applies the relay policy to one client frame.
func (g *Gateway) handleInbound(origin string, data []byte) {
	var evt bus.Event
	if err := json.Unmarshal(data, &evt); err != nil {
		log.Printf("ws: drop malformed frame from %s: %v", origin, err)
		return
	}
	if serverEvents[evt.Name] {
		// Only the server, after a confirmed store mutation, may emit
		// domain events. A forged frame is logged and dropped.
		log.Printf("ws: drop forged %s from %s", evt.Name, origin)
		return
	}
	if !strings.HasPrefix(evt.Name, clientPrefix) {
		return
	}
	evt.Origin = origin
	if err := g.bus.Publish(context.Background(), evt); err != nil {
		log.Printf("ws: relay %s failed: %v", evt.Name, err)
	}
}
