/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package realtime

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/Seednode/countrygrid/game"
	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	eventsBuffer = 64
)

// WebSocketConn is a room membership held open against a relay.
type WebSocketConn struct {
	conn     *websocket.Conn
	clientID string

	events chan Frame
	done   chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Dial joins a room through the relay websocket at endpoint, e.g.
// ws://host/room/abcd1234/ws.
func Dial(ctx context.Context, endpoint, clientID, nickname string) (*WebSocketConn, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse relay url: %w", err)
	}

	q := u.Query()
	q.Set("client", clientID)
	q.Set("nickname", nickname)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}

	c := &WebSocketConn{
		conn:     conn,
		clientID: clientID,
		events:   make(chan Frame, eventsBuffer),
		done:     make(chan struct{}),
	}

	go c.readPump()

	return c, nil
}

func (c *WebSocketConn) readPump() {
	defer close(c.events)

	for {
		var f Frame
		if err := c.conn.ReadJSON(&f); err != nil {
			return
		}

		select {
		case c.events <- f:
		case <-c.done:
			return
		}
	}
}

// Events is closed once the relay connection is lost.
func (c *WebSocketConn) Events() <-chan Frame {
	return c.events
}

func (c *WebSocketConn) SendClient(ctx context.Context, action game.Action) error {
	return c.write(ctx, Frame{
		Type:   FrameClient,
		Client: &ClientEnvelope{ClientID: c.clientID, Message: action},
	})
}

func (c *WebSocketConn) SendServer(ctx context.Context, msg game.ServerMessage) error {
	return c.write(ctx, Frame{
		Type:   FrameServer,
		Server: &ServerEnvelope{SenderID: c.clientID, Message: msg},
	})
}

func (c *WebSocketConn) write(ctx context.Context, f Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetWriteDeadline(deadline)

	return c.conn.WriteJSON(f)
}

func (c *WebSocketConn) Leave() error {
	var err error

	c.closeOnce.Do(func() {
		close(c.done)

		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()

		err = c.conn.Close()
	})

	return err
}
