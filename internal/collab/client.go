package collab

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking is handled by the CORS middleware upstream.
		return true
	},
}

// Client is the transport side of one collaboration session: a
// websocket connection plus the pumps that move frames in and out.
// Identity and room state live in the coordinator, keyed by session ID.
type Client struct {
	sessionID string
	gateway   *Gateway
	conn      *websocket.Conn
	send      chan []byte

	closed     int32
	sendClosed int32
}

func newClient(gateway *Gateway, conn *websocket.Conn) *Client {
	return &Client{
		sessionID: uuid.New().String(),
		gateway:   gateway,
		conn:      conn,
		send:      make(chan []byte, 256),
	}
}

func (c *Client) isClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

func (c *Client) close() {
	atomic.CompareAndSwapInt32(&c.closed, 0, 1)
}

func (c *Client) closeSendChannel() {
	if atomic.CompareAndSwapInt32(&c.sendClosed, 0, 1) {
		close(c.send)
	}
}

// deliver queues an outbound event for the write pump. A full buffer
// drops the connection rather than blocking the coordinator loop.
func (c *Client) deliver(evt *Outbound) {
	if c.isClosed() {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		slog.Error("failed to marshal outbound event", "sessionID", c.sessionID, "error", err)
		return
	}
	select {
	case c.send <- data:
	default:
		slog.Warn("send buffer full, closing client", "sessionID", c.sessionID)
		c.close()
		c.closeSendChannel()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.close()
		c.gateway.remove(c)
		if err := c.conn.Close(); err != nil {
			slog.Debug("error closing connection", "sessionID", c.sessionID, "error", err)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("websocket error", "sessionID", c.sessionID, "error", err)
			} else {
				slog.Debug("websocket connection closed", "sessionID", c.sessionID, "error", err)
			}
			break
		}

		// Liveness probes are answered inline; they never touch room
		// state.
		var frame Frame
		if err := json.Unmarshal(raw, &frame); err == nil && frame.Event == EventPing {
			c.deliver(NewPong())
			continue
		}

		event, err := ParseFrame(c.sessionID, raw)
		if err != nil {
			slog.Debug("rejected inbound frame", "sessionID", c.sessionID, "error", err)
			c.deliver(newError("invalid message format"))
			continue
		}

		c.gateway.coordinator.Dispatch(event)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				slog.Debug("error writing message", "sessionID", c.sessionID, "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.Debug("error sending ping", "sessionID", c.sessionID, "error", err)
				return
			}
		}
	}
}

// Gateway owns the live websocket clients and bridges them to the
// coordinator: inbound frames become typed events, outbound events are
// routed to the right session's connection.
type Gateway struct {
	coordinator *Coordinator
	mu          sync.RWMutex
	clients     map[string]*Client
}

func NewGateway() *Gateway {
	return &Gateway{clients: make(map[string]*Client)}
}

// Bind wires the gateway to its coordinator. Split from NewGateway
// because the coordinator needs the gateway as its Sender.
func (g *Gateway) Bind(coordinator *Coordinator) {
	g.coordinator = coordinator
}

// Send implements Sender.
func (g *Gateway) Send(sessionID string, evt *Outbound) {
	g.mu.RLock()
	client, ok := g.clients[sessionID]
	g.mu.RUnlock()
	if !ok {
		return
	}
	client.deliver(evt)
}

func (g *Gateway) remove(c *Client) {
	g.mu.Lock()
	_, present := g.clients[c.sessionID]
	delete(g.clients, c.sessionID)
	g.mu.Unlock()

	// remove can race between read pump teardown and shutdown; the
	// coordinator only hears about the first one.
	if present {
		g.coordinator.Dispatch(DisconnectEvent{SessionID: c.sessionID})
	}
}

// ServeWS upgrades an HTTP request and starts a collaboration session.
// The session starts unauthenticated; identity arrives over the socket
// via the authenticate event.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade websocket connection", "error", err)
		return
	}

	client := newClient(g, conn)

	g.mu.Lock()
	g.clients[client.sessionID] = client
	g.mu.Unlock()

	g.coordinator.Dispatch(ConnectEvent{SessionID: client.sessionID})
	slog.Info("collaboration session opened", "sessionID", client.sessionID)

	go client.writePump()
	go client.readPump()
}
