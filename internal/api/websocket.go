package api

import (
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"bolt/internal/publisher"
)

const (
	wsWriteWait = 5 * time.Second
	wsQueueSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsSubscriber forwards frames to a websocket client, one text message per frame.
type wsSubscriber struct {
	id    string
	conn  *websocket.Conn
	queue chan []byte
	done  chan struct{}
	once  sync.Once
}

func newWSSubscriber(conn *websocket.Conn) *wsSubscriber {
	s := &wsSubscriber{
		id:    "ws-" + uuid.NewString(),
		conn:  conn,
		queue: make(chan []byte, wsQueueSize),
		done:  make(chan struct{}),
	}
	go s.writeLoop()
	return s
}

func (s *wsSubscriber) ID() string { return s.id }

func (s *wsSubscriber) Send(frame []byte) error {
	select {
	case <-s.done:
		return publisher.ErrSubscriberClosed
	case s.queue <- frame:
		return nil
	default:
		return publisher.ErrQueueFull
	}
}

func (s *wsSubscriber) writeLoop() {
	for {
		select {
		case frame := <-s.queue:
			s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *wsSubscriber) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "publisher closed"),
			time.Now().Add(wsWriteWait))
		err = s.conn.Close()
		if errors.Is(err, net.ErrClosed) {
			err = nil
		}
	})
	return err
}

// Subscribe upgrades the request and attaches the websocket as a subscriber
// until the client goes away. Anything the client sends is ignored.
func (h *Handler) Subscribe(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket_upgrade_failed", "error", err.Error())
		return
	}
	sub := newWSSubscriber(conn)
	detach, err := h.endpoint.Attach(sub)
	if err != nil {
		sub.Close()
		return
	}
	defer func() {
		detach()
		sub.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
