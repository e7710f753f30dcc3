// Package publisher implements the bound broadcast endpoint of bolt and the
// matching subscriber client.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"bolt/internal/messages"
)

// Scheme is the only transport the endpoint speaks.
const Scheme = "tcp"

const defaultMirrorTimeout = 2 * time.Second

var (
	ErrBind         = errors.New("unable to bind publish socket")
	ErrNotConnected = errors.New("unable to find an active publish socket")
)

// Mirror receives a copy of every frame after local fan-out (see internal/relay).
type Mirror interface {
	Mirror(ctx context.Context, topic string, frame []byte) error
}

// Server owns one listening socket for its whole lifetime. Every frame passed
// to Publish goes to the subscribers connected at that moment; nothing is kept
// for later subscribers.
type Server struct {
	addr     string
	listener net.Listener
	manager  *ConnectionManager
	logger   *slog.Logger

	mirror        Mirror
	mirrorTimeout time.Duration
	sendBuffer    int

	mu     sync.Mutex // serializes publishes against Close
	closed bool
	wg     sync.WaitGroup
}

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMirror(m Mirror) Option {
	return func(s *Server) { s.mirror = m }
}

func WithMirrorTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.mirrorTimeout = d
		}
	}
}

// WithSendBuffer sets how many frames may wait for a slow subscriber before
// new frames are dropped for it.
func WithSendBuffer(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.sendBuffer = n
		}
	}
}

// Endpoint formats host and port as a scheme://host:port address.
func Endpoint(host string, port int) string {
	return Scheme + "://" + net.JoinHostPort(host, strconv.Itoa(port))
}

// Open binds tcp://host:port and starts accepting subscribers. Port 0 picks a
// free port; Addr reports the bound address.
func Open(host string, port int, opts ...Option) (*Server, error) {
	s := &Server{
		logger:        slog.Default(),
		mirrorTimeout: defaultMirrorTimeout,
		sendBuffer:    DefaultSendBuffer,
	}
	for _, opt := range opts {
		opt(s)
	}

	listener, err := net.Listen(Scheme, net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrBind, Endpoint(host, port), err)
	}
	s.listener = listener
	s.addr = Scheme + "://" + listener.Addr().String()
	s.manager = NewConnectionManager(s.logger)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop()
	}()

	s.logger.Info("publisher_bound", "addr", s.addr)
	return s, nil
}

// Addr is the bound address, e.g. tcp://127.0.0.1:5556.
func (s *Server) Addr() string { return s.addr }

func (s *Server) SubscriberCount() int { return s.manager.Count() }

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("accept_failed", "error", err.Error())
			continue
		}
		s.wg.Add(1)
		go func(conn net.Conn) {
			defer s.wg.Done()
			s.handleConnection(conn)
		}(conn)
	}
}

// handle the lifecycle of a single subscriber connection
func (s *Server) handleConnection(conn net.Conn) {
	sub := newConnSubscriber(conn, s.sendBuffer, s.logger)
	if err := s.manager.Add(sub); err != nil {
		sub.Close()
		return
	}
	s.logger.Debug("subscriber_connected",
		"subscriber_id", sub.ID(),
		"remote_addr", conn.RemoteAddr().String(),
	)
	sub.discardInput()
	s.manager.Remove(sub.ID())
	sub.Close()
}

// Attach registers an external subscriber, such as a websocket bridge. The
// returned func detaches it again; Close of the server closes it.
func (s *Server) Attach(sub Subscriber) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrNotConnected
	}
	if err := s.manager.Add(sub); err != nil {
		return nil, ErrNotConnected
	}
	return func() { s.manager.Remove(sub.ID()) }, nil
}

// Publish writes "<topic>: <body>" to every connected subscriber. A nil error
// means the frame was handed to the transport, not that anyone received it.
func (s *Server) Publish(topic string, body []byte) error {
	frame, err := EncodeFrame(topic, body)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrNotConnected
	}
	delivered := s.manager.Broadcast(frame)
	s.mu.Unlock()

	s.logger.Debug("frame_published",
		"topic", topic,
		"bytes", len(frame),
		"delivered", delivered,
	)

	if s.mirror != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.mirrorTimeout)
		defer cancel()
		if err := s.mirror.Mirror(ctx, topic, frame); err != nil {
			s.logger.Warn("mirror_failed",
				"topic", topic,
				"error", err.Error(),
			)
		}
	}
	return nil
}

// PublishMessage serializes msg and publishes it under topic.
func (s *Server) PublishMessage(topic string, msg messages.Message) error {
	body, err := msg.Serialize()
	if err != nil {
		return err
	}
	return s.Publish(topic, body)
}

// Close releases the socket and disconnects every subscriber. Closing an
// already closed server returns ErrNotConnected.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrNotConnected
	}
	s.closed = true
	s.mu.Unlock()

	err := s.listener.Close()
	s.manager.CloseAll()
	s.wg.Wait()

	s.logger.Info("publisher_closed", "addr", s.addr)
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("failed to close listener: %w", err)
	}
	return nil
}
