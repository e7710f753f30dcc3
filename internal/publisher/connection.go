package publisher

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultSendBuffer = 256
	drainDeadline     = time.Second
)

var (
	ErrQueueFull        = errors.New("subscriber send queue is full")
	ErrSubscriberClosed = errors.New("subscriber is closed")
)

// connSubscriber is a TCP subscriber. Frames are queued by Send and written,
// newline-terminated, by a dedicated writer goroutine.
type connSubscriber struct {
	id     string
	conn   net.Conn
	writer *bufio.Writer
	queue  chan []byte
	done   chan struct{}
	logger *slog.Logger

	closeOnce sync.Once
	wg        sync.WaitGroup
}

func newConnSubscriber(conn net.Conn, buffer int, logger *slog.Logger) *connSubscriber {
	if buffer < 1 {
		buffer = DefaultSendBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &connSubscriber{
		id:     uuid.NewString(),
		conn:   conn,
		writer: bufio.NewWriter(conn),
		queue:  make(chan []byte, buffer),
		done:   make(chan struct{}),
		logger: logger,
	}
	c.wg.Add(1)
	go c.writeLoop()
	return c
}

func (c *connSubscriber) ID() string { return c.id }

func (c *connSubscriber) Send(frame []byte) error {
	select {
	case <-c.done:
		return ErrSubscriberClosed
	default:
	}
	select {
	case c.queue <- frame:
		return nil
	default:
		return ErrQueueFull
	}
}

// discardInput reads and drops everything the subscriber sends until the
// connection ends. Subscribers are passive; this only detects disconnects.
func (c *connSubscriber) discardInput() {
	_, err := io.Copy(io.Discard, c.conn)
	if err != nil && !errors.Is(err, net.ErrClosed) {
		c.logger.Debug("subscriber_read_error",
			"subscriber_id", c.id,
			"error", err.Error(),
		)
	}
}

func (c *connSubscriber) writeLoop() {
	defer c.wg.Done()
	for {
		select {
		case frame := <-c.queue:
			if err := c.write(frame); err != nil {
				c.logger.Warn("subscriber_write_failed",
					"subscriber_id", c.id,
					"error", err.Error(),
				)
				c.conn.Close()
				return
			}
		case <-c.done:
			c.drain()
			return
		}
	}
}

// drain flushes frames still queued at close time. Close has already set a
// write deadline, so this is bounded by drainDeadline.
func (c *connSubscriber) drain() {
	for {
		select {
		case frame := <-c.queue:
			if err := c.write(frame); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *connSubscriber) write(frame []byte) error {
	if _, err := c.writer.Write(frame); err != nil {
		return err
	}
	if err := c.writer.WriteByte('\n'); err != nil {
		return err
	}
	return c.writer.Flush()
}

func (c *connSubscriber) Close() error {
	var err error
	c.closeOnce.Do(func() {
		// unblocks a writer stuck on a peer that stopped reading
		c.conn.SetWriteDeadline(time.Now().Add(drainDeadline))
		close(c.done)
		c.wg.Wait()
		err = c.conn.Close()
		if errors.Is(err, net.ErrClosed) {
			err = nil
		}
	})
	return err
}
