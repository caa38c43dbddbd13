package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	ErrConnClosed   = errors.New("connection closed")
	ErrSlowConsumer = errors.New("send buffer full")
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 25 * time.Second
	maxFrameSize = 1 << 16
	sendBuffer   = 256
)

// Conn is the room's view of a participant connection.
type Conn interface {
	Send(data []byte) error
	Close() error
}

// socketConn queues frames for a single writer goroutine so the room never
// blocks on a slow client.
type socketConn struct {
	socket    *websocket.Conn
	outbox    chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newSocketConn(socket *websocket.Conn) *socketConn {
	socket.SetReadLimit(maxFrameSize)
	_ = socket.SetReadDeadline(time.Now().Add(pongWait))
	socket.SetPongHandler(func(string) error {
		return socket.SetReadDeadline(time.Now().Add(pongWait))
	})
	return &socketConn{
		socket: socket,
		outbox: make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

func (c *socketConn) Send(data []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.outbox <- data:
		return nil
	default:
		return ErrSlowConsumer
	}
}

// Close stops the writer after it flushes what is already queued.
func (c *socketConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *socketConn) read() ([]byte, error) {
	_, data, err := c.socket.ReadMessage()
	return data, err
}

func (c *socketConn) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.socket.Close()
	}()

	for {
		select {
		case data := <-c.outbox:
			if err := c.write(websocket.BinaryMessage, data); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			c.flush()
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *socketConn) flush() {
	for {
		select {
		case data := <-c.outbox:
			if err := c.write(websocket.BinaryMessage, data); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *socketConn) write(messageType int, data []byte) error {
	_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
	return c.socket.WriteMessage(messageType, data)
}
