package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"bolt/internal/messages"
	"bolt/internal/publisher"
)

// MockEndpoint mocks the Endpoint interface
type MockEndpoint struct {
	mock.Mock
}

func (m *MockEndpoint) PublishMessage(topic string, msg messages.Message) error {
	args := m.Called(topic, msg)
	return args.Error(0)
}

func (m *MockEndpoint) Attach(sub publisher.Subscriber) (func(), error) {
	args := m.Called(sub)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func()), args.Error(1)
}

func (m *MockEndpoint) SubscriberCount() int {
	return m.Called().Int(0)
}

func (m *MockEndpoint) Addr() string {
	return m.Called().String(0)
}

func setupRouter(endpoint Endpoint, limiter *rate.Limiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(endpoint, "heartbeat", nil)
	h.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return NewRouter(h, limiter)
}

func postJSON(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewBuffer(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	endpoint := new(MockEndpoint)
	endpoint.On("Addr").Return("tcp://127.0.0.1:5556")
	endpoint.On("SubscriberCount").Return(3)
	router := setupRouter(endpoint, nil)

	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["status"])
	assert.Equal(t, "tcp://127.0.0.1:5556", response["addr"])
	assert.EqualValues(t, 3, response["subscribers"])
}

func TestPoolAttach_Success(t *testing.T) {
	endpoint := new(MockEndpoint)
	endpoint.On("PublishMessage", "commands", mock.MatchedBy(func(m messages.Message) bool {
		p, ok := m.(*messages.PoolAttach)
		return ok && p.PoolID() == "8a85f98"
	})).Return(nil)
	router := setupRouter(endpoint, nil)

	w := postJSON(router, "/publish/pool-attach", map[string]string{"topic": "commands", "pool_id": "8a85f98"})

	assert.Equal(t, http.StatusAccepted, w.Code)
	var response PublishResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "commands", response.Topic)
	assert.Equal(t, "<PoolAttach 8a85f98>", response.Message)
	endpoint.AssertExpectations(t)
}

func TestPoolAttach_MissingPoolID(t *testing.T) {
	endpoint := new(MockEndpoint)
	router := setupRouter(endpoint, nil)

	w := postJSON(router, "/publish/pool-attach", map[string]string{"topic": "commands"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "pool_id")
	endpoint.AssertNotCalled(t, "PublishMessage", mock.Anything, mock.Anything)
}

func TestPoolAttach_EmptyPoolIDIsAllowed(t *testing.T) {
	endpoint := new(MockEndpoint)
	endpoint.On("PublishMessage", "commands", mock.Anything).Return(nil)
	router := setupRouter(endpoint, nil)

	w := postJSON(router, "/publish/pool-attach", map[string]string{"topic": "commands", "pool_id": ""})

	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestPublish_MissingTopic(t *testing.T) {
	endpoint := new(MockEndpoint)
	router := setupRouter(endpoint, nil)

	w := postJSON(router, "/publish/subscription-register", map[string]string{"username": "admin"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	endpoint.AssertNotCalled(t, "PublishMessage", mock.Anything, mock.Anything)
}

func TestSubscriptionRegister_OnlyPresentOptions(t *testing.T) {
	endpoint := new(MockEndpoint)
	var published messages.Message
	endpoint.On("PublishMessage", "commands", mock.Anything).
		Run(func(args mock.Arguments) { published = args.Get(1).(messages.Message) }).
		Return(nil)
	router := setupRouter(endpoint, nil)

	w := postJSON(router, "/publish/subscription-register", map[string]string{
		"topic":    "commands",
		"username": "admin",
		"password": "",
	})

	require.Equal(t, http.StatusAccepted, w.Code)
	require.NotNil(t, published)
	body := published.Body()
	assert.Equal(t, []messages.Pair{{Name: "username", Value: "admin"}, {Name: "password", Value: ""}}, body.Options)
	assert.Equal(t, []string{"register"}, body.Subcommand)
}

func TestHeartbeat_UsesConfiguredTopic(t *testing.T) {
	endpoint := new(MockEndpoint)
	endpoint.On("PublishMessage", "heartbeat", mock.AnythingOfType("*messages.Heartbeat")).Return(nil)
	router := setupRouter(endpoint, nil)

	w := postJSON(router, "/publish/heartbeat", map[string]string{})

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), "2024-05-01T12:00:00Z")
	endpoint.AssertExpectations(t)
}

func TestPublish_EndpointClosed(t *testing.T) {
	endpoint := new(MockEndpoint)
	endpoint.On("PublishMessage", "heartbeat", mock.Anything).Return(publisher.ErrNotConnected)
	router := setupRouter(endpoint, nil)

	w := postJSON(router, "/publish/heartbeat", map[string]string{})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPublish_InvalidTopic(t *testing.T) {
	endpoint := new(MockEndpoint)
	endpoint.On("PublishMessage", "a\nb", mock.Anything).Return(publisher.ErrInvalidFrame)
	router := setupRouter(endpoint, nil)

	w := postJSON(router, "/publish/pool-attach", map[string]string{"topic": "a\nb", "pool_id": "x"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateLimit(t *testing.T) {
	endpoint := new(MockEndpoint)
	endpoint.On("Addr").Return("tcp://127.0.0.1:5556")
	endpoint.On("SubscriberCount").Return(0)
	router := setupRouter(endpoint, rate.NewLimiter(0, 1))

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/health", nil))
	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestSubscribe_ReceivesFrames(t *testing.T) {
	server, err := publisher.Open("127.0.0.1", 0)
	require.NoError(t, err)
	defer server.Close()

	router := setupRouter(server, nil)
	ts := httptest.NewServer(router)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return server.SubscriberCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	msg, err := messages.NewPoolAttach(messages.PoolAttachOptions{PoolID: messages.Opt("p1")})
	require.NoError(t, err)
	require.NoError(t, server.PublishMessage("commands", msg))

	body, err := msg.Serialize()
	require.NoError(t, err)
	want, err := publisher.EncodeFrame("commands", body)
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, got, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))
}

func TestSubscribe_DetachesOnDisconnect(t *testing.T) {
	server, err := publisher.Open("127.0.0.1", 0)
	require.NoError(t, err)
	defer server.Close()

	ts := httptest.NewServer(setupRouter(server, nil))
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return server.SubscriberCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return server.SubscriberCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
