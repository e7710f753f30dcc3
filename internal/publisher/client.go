package publisher

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
)

// Client is a passive subscriber. Filtering by topic prefix happens here,
// the server sends everything.
type Client struct {
	conn     net.Conn
	prefixes []string
	frames   chan Frame
	done     chan struct{}
	logger   *slog.Logger

	closeOnce sync.Once
	errMu     sync.Mutex
	err       error
}

// Dial connects to addr (tcp://host:port or host:port). With no prefixes
// every frame is delivered.
func Dial(ctx context.Context, addr string, prefixes ...string) (*Client, error) {
	hostport := strings.TrimPrefix(addr, Scheme+"://")
	var d net.Dialer
	conn, err := d.DialContext(ctx, Scheme, hostport)
	if err != nil {
		return nil, fmt.Errorf("connection failed: %w", err)
	}
	c := &Client{
		conn:     conn,
		prefixes: prefixes,
		frames:   make(chan Frame, 64),
		done:     make(chan struct{}),
		logger:   slog.Default(),
	}
	go c.readLoop()
	return c, nil
}

// Receive yields matching frames; the channel is closed when the connection ends.
func (c *Client) Receive() <-chan Frame { return c.frames }

// Err reports why the connection ended, nil after Close or a clean EOF.
func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

func (c *Client) matches(topic string) bool {
	if len(c.prefixes) == 0 {
		return true
	}
	for _, p := range c.prefixes {
		if strings.HasPrefix(topic, p) {
			return true
		}
	}
	return false
}

func (c *Client) readLoop() {
	defer close(c.frames)
	reader := bufio.NewReader(c.conn)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			select {
			case <-c.done:
			default:
				if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
					c.errMu.Lock()
					c.err = err
					c.errMu.Unlock()
				}
			}
			return
		}

		frame, err := ParseFrame(line)
		if err != nil {
			c.logger.Warn("malformed_frame_received", "error", err.Error())
			continue
		}
		if !c.matches(frame.Topic) {
			continue
		}
		select {
		case c.frames <- frame:
		case <-c.done:
			return
		}
	}
}
