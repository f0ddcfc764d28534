// Package transport carries sync messages over a websocket connection.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	sendBuffer = 256
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var (
	ErrClosed       = errors.New("connection closed")
	ErrSlowConsumer = errors.New("send buffer full")
)

// Conn owns a websocket. All writes go through one writer goroutine started by Run, so Send and
// Enqueue may be called from anywhere.
type Conn struct {
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}

	closeOnce sync.Once
	mu        sync.Mutex
	running   bool
}

func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws, send: make(chan []byte, sendBuffer), done: make(chan struct{})}
}

// Dial opens a websocket to rawURL.
func Dial(ctx context.Context, rawURL string) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial: %w", err)
	}
	return NewConn(ws), nil
}

func encode(msg interface{}) ([]byte, error) {
	if raw, ok := msg.([]byte); ok {
		return raw, nil
	}
	buf, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return buf, nil
}

// Send queues msg for writing, waiting for buffer space until ctx is done.
func (c *Conn) Send(ctx context.Context, msg interface{}) error {
	buf, err := encode(msg)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- buf:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Enqueue queues msg without blocking. A peer that cannot keep up is disconnected.
func (c *Conn) Enqueue(msg interface{}) error {
	buf, err := encode(msg)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- buf:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		c.Close()
		return ErrSlowConsumer
	}
}

// Close stops the connection. When Run is active, queued messages are flushed and a close frame
// is sent before the socket is closed. It is safe to call more than once.
func (c *Conn) Close() {
	c.markClosed()
	c.mu.Lock()
	running := c.running
	c.mu.Unlock()
	if !running {
		_ = c.ws.Close()
	}
}

func (c *Conn) markClosed() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Done is closed when the connection is closed.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Run reads messages and passes them to onMessage until the connection ends or ctx is done. An
// error from onMessage is logged and reading continues. The returned error is nil for a normal
// close.
func (c *Conn) Run(ctx context.Context, onMessage func(raw []byte) error) error {
	c.mu.Lock()
	c.running = true
	c.mu.Unlock()

	var readErr error
	wg := new(sync.WaitGroup)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer c.markClosed()
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		c.ws.SetPongHandler(func(string) error {
			return c.ws.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			mt, p, err := c.ws.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !isClosing(c) {
					readErr = fmt.Errorf("failed to read message: %w", err)
				}
				return
			}
			if mt != websocket.TextMessage {
				continue
			}
			if err := onMessage(p); err != nil {
				slog.Warn("failed to handle message", "err", err)
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			c.markClosed()
			_ = c.ws.Close()
		}()
		t := time.NewTicker(pingPeriod)
		defer t.Stop()
		for {
			select {
			case buf := <-c.send:
				_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.ws.WriteMessage(websocket.TextMessage, buf); err != nil {
					slog.Error("failed to write message", "err", err)
					return
				}
			case <-t.C:
				_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
					slog.Error("failed to write ping", "err", err)
					return
				}
			case <-ctx.Done():
				c.markClosed()
				c.writeClose()
				return
			case <-c.done:
				c.flush()
				c.writeClose()
				return
			}
		}
	}()

	wg.Wait()
	return readErr
}

// flush writes whatever is still queued once Close was requested, so a final error message can
// reach the peer.
func (c *Conn) flush() {
	for {
		select {
		case buf := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, buf); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Conn) writeClose() {
	_ = c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
}

func isClosing(c *Conn) bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
