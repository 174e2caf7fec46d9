/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/Seednode/countrygrid/game"
)

// Loopback is an in-process room. It behaves like the relay: presence is
// pushed to every member on join and leave, frames are fanned out to all
// other members, and the last snapshot is replayed to newcomers.
type Loopback struct {
	mu       sync.Mutex
	members  map[*LoopbackConn]PresenceMeta
	last     *Frame
	lastJoin int64
}

func NewLoopback() *Loopback {
	return &Loopback{
		members: make(map[*LoopbackConn]PresenceMeta),
	}
}

// Join adds a member. Join times are strictly increasing so that election
// order follows call order.
func (l *Loopback) Join(clientID, nickname string) *LoopbackConn {
	c := &LoopbackConn{
		room:     l,
		clientID: clientID,
		box:      newMailbox(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	joined := max(time.Now().UnixMilli(), l.lastJoin+1)
	l.lastJoin = joined

	l.members[c] = PresenceMeta{Nickname: nickname, ClientID: clientID, JoinedAt: joined}

	if l.last != nil {
		c.box.push(*l.last)
	}

	l.announceLocked()

	return c
}

// Members returns the current presence.
func (l *Loopback) Members() Presence {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.presenceLocked()
}

func (l *Loopback) presenceLocked() Presence {
	p := make(Presence, len(l.members))
	for _, meta := range l.members {
		p[meta.ClientID] = append(p[meta.ClientID], meta)
	}
	return p
}

func (l *Loopback) announceLocked() {
	p := l.presenceLocked()
	for m := range l.members {
		m.box.push(Frame{Type: FramePresence, Presence: p})
	}
}

func (l *Loopback) broadcast(from *LoopbackConn, f Frame) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.members[from]; !ok {
		return ErrClosed
	}

	if f.IsState() {
		l.last = &f
	}

	for m := range l.members {
		if m != from {
			m.box.push(f)
		}
	}

	return nil
}

func (l *Loopback) leave(c *LoopbackConn) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.members[c]; !ok {
		return
	}

	delete(l.members, c)
	c.box.close()

	l.announceLocked()
}

type LoopbackConn struct {
	room     *Loopback
	clientID string
	box      *mailbox
}

func (c *LoopbackConn) Events() <-chan Frame {
	return c.box.out
}

func (c *LoopbackConn) SendClient(ctx context.Context, action game.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return c.room.broadcast(c, Frame{
		Type:   FrameClient,
		Client: &ClientEnvelope{ClientID: c.clientID, Message: action},
	})
}

func (c *LoopbackConn) SendServer(ctx context.Context, msg game.ServerMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return c.room.broadcast(c, Frame{
		Type:   FrameServer,
		Server: &ServerEnvelope{SenderID: c.clientID, Message: msg},
	})
}

func (c *LoopbackConn) Leave() error {
	c.room.leave(c)
	return nil
}

// mailbox is an unbounded FIFO drained into out by its own goroutine, so a
// slow reader never stalls the sender.
type mailbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Frame
	closed bool

	out  chan Frame
	done chan struct{}
}

func newMailbox() *mailbox {
	m := &mailbox{
		out:  make(chan Frame),
		done: make(chan struct{}),
	}
	m.cond = sync.NewCond(&m.mu)

	go m.run()

	return m
}

func (m *mailbox) push(f Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	m.queue = append(m.queue, f)
	m.cond.Signal()
}

func (m *mailbox) close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	m.closed = true
	close(m.done)
	m.cond.Signal()
}

func (m *mailbox) run() {
	defer close(m.out)

	for {
		m.mu.Lock()
		for len(m.queue) == 0 && !m.closed {
			m.cond.Wait()
		}

		if m.closed {
			m.mu.Unlock()
			return
		}

		f := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()

		select {
		case m.out <- f:
		case <-m.done:
			return
		}
	}
}
