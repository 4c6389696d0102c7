package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"roamly/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// Connection is one live channel from one device. It is created after a
// successful handshake and destroyed at transport closure; everything
// it joined is released with it.
type Connection struct {
	ID     string
	UserID string

	manager *Manager
	events  *EventHandler
	ws      *websocket.Conn
	send    chan []byte
	done    chan struct{}

	closeOnce sync.Once
}

func NewConnection(manager *Manager, events *EventHandler, ws *websocket.Conn, userID string) *Connection {
	return &Connection{
		ID:      uuid.New().String(),
		UserID:  userID,
		manager: manager,
		events:  events,
		ws:      ws,
		send:    make(chan []byte, sendBufferSize),
		done:    make(chan struct{}),
	}
}

// Start launches the read and write pumps.
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// enqueue hands a frame to the write pump without blocking. False means
// the buffer is full or the connection is closing.
func (c *Connection) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.ws != nil {
			c.ws.Close()
		}
	})
}

// readPump handles inbound frames one at a time, so a single producer's
// events are processed in order. Missed pongs beyond pongWait time the
// connection out.
func (c *Connection) readPump() {
	defer c.manager.Unregister(c)

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("Connection %s read error: %v", c.ID, err)
			}
			return
		}
		c.events.Handle(c, raw)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
