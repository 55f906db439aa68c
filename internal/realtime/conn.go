package realtime

import "sync"

// Conn is one live socket of a user as seen by the Registry.
// Frames queued on it are written by a single writer goroutine.
type Conn struct {
	UserID uint64

	send chan []byte
	done chan struct{}
	once sync.Once
}

// NewConn creates a connection with a send buffer of size buf.
func NewConn(userID uint64, buf int) *Conn {
	if buf <= 0 {
		buf = 1
	}
	return &Conn{
		UserID: userID,
		send:   make(chan []byte, buf),
		done:   make(chan struct{}),
	}
}

// Frames returns the queue drained by the writer.
func (c *Conn) Frames() <-chan []byte { return c.send }

// Done is closed once the connection is shut down.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Close marks the connection as finished. Safe to call more than once.
func (c *Conn) Close() {
	c.once.Do(func() { close(c.done) })
}

// offer queues msg without blocking. It reports false when the buffer is
// full or the connection is closed.
func (c *Conn) offer(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// push queues msg, waiting for buffer space until the connection closes.
func (c *Conn) push(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	case <-c.done:
		return false
	}
}
