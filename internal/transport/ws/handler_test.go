package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/battlerelay/internal/abuse"
	"github.com/mcoot/battlerelay/internal/combat"
	"github.com/mcoot/battlerelay/internal/dependencies/clock"
	"github.com/mcoot/battlerelay/internal/dependencies/mocks"
	"github.com/mcoot/battlerelay/internal/metrics"
	"github.com/mcoot/battlerelay/internal/protocol"
	"github.com/mcoot/battlerelay/internal/registry"
	"github.com/mcoot/battlerelay/internal/relay"
	"github.com/mcoot/battlerelay/internal/session"
	"github.com/mcoot/battlerelay/internal/storage/memory"
	"github.com/mcoot/battlerelay/internal/testutil"
	"github.com/mcoot/battlerelay/internal/weapons"
)

type testServer struct {
	*httptest.Server
	router   *relay.Router
	registry *registry.Registry
	store    *session.Store
}

func newTestServer(t *testing.T, cfg Config) *testServer {
	t.Helper()
	logger := testutil.NopLogger()
	table := weapons.Default()
	rnd := mocks.NewMockRandom()
	clk := clock.New()

	store := session.New(table, clk, rnd, logger)
	reg := registry.New(logger)
	router := relay.NewRouter(relay.Deps{
		Registry: reg,
		Store:    store,
		Engine:   combat.NewEngine(store, table, combat.FixedRandomDamagePolicy{}, rnd, logger),
		Monitor:  abuse.NewMonitor(abuse.DefaultConfig(), memory.New(), table, clk, logger),
		Metrics:  metrics.New(),
		Clock:    clk,
		Logger:   logger,
	})

	srv := httptest.NewServer(NewHandler(router, cfg, logger))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, router: router, registry: reg, store: store}
}

func (s *testServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func dial(t *testing.T, url string, subprotocols ...string) *websocket.Conn {
	t.Helper()
	dialer := websocket.Dialer{Subprotocols: subprotocols, HandshakeTimeout: time.Second}
	conn, _, err := dialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type wireMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func readJSON(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	mt, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, mt)
	var msg wireMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

// readUntil skips messages until one with the given event arrives
func readUntil(t *testing.T, conn *websocket.Conn, event string) wireMessage {
	t.Helper()
	for {
		msg := readJSON(t, conn)
		if msg.Event == event {
			return msg
		}
	}
}

func writeJSON(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"event": event, "data": data}))
}

func TestHandler_JSONSession(t *testing.T) {
	srv := newTestServer(t, Config{})
	alice := dial(t, srv.wsURL())

	status := readJSON(t, alice)
	assert.Equal(t, protocol.EventServerStatus, status.Event)

	writeJSON(t, alice, protocol.EventJoinGame, map[string]any{"name": "Alice", "team": "red"})

	joined := readJSON(t, alice)
	require.Equal(t, protocol.EventPlayerJoined, joined.Event)
	var player protocol.Player
	require.NoError(t, json.Unmarshal(joined.Data, &player))
	assert.Equal(t, "Alice", player.Name)
	assert.Equal(t, 100, player.HP)

	count := readJSON(t, alice)
	assert.Equal(t, protocol.EventPlayerCount, count.Event)
	assert.JSONEq(t, `{"count":1}`, string(count.Data))
}

func TestHandler_MsgpackSubprotocol(t *testing.T) {
	srv := newTestServer(t, Config{})
	conn := dial(t, srv.wsURL(), protocol.SubprotocolMsgpack)
	assert.Equal(t, protocol.SubprotocolMsgpack, conn.Subprotocol())

	codec := protocol.MsgpackCodec{}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	mt, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, mt)
	env, err := codec.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, protocol.EventServerStatus, env.Event)

	frame, err := codec.Encode(protocol.Message{Event: protocol.EventJoinGame, Data: protocol.JoinGame{Name: "Mia", Team: "blue"}})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, frame))

	_, data, err = conn.ReadMessage()
	require.NoError(t, err)
	env, err = codec.Decode(data)
	require.NoError(t, err)
	require.Equal(t, protocol.EventPlayerJoined, env.Event)

	player, err := protocol.DecodePayload[protocol.Player](codec, env)
	require.NoError(t, err)
	assert.Equal(t, "Mia", player.Name)
	assert.Equal(t, "blue", player.Team)
}

func TestHandler_DisconnectReachesOthers(t *testing.T) {
	srv := newTestServer(t, Config{})

	alice := dial(t, srv.wsURL())
	readJSON(t, alice)
	writeJSON(t, alice, protocol.EventJoinGame, map[string]any{"name": "Alice"})
	readUntil(t, alice, protocol.EventPlayerCount)

	bob := dial(t, srv.wsURL())
	readJSON(t, bob)
	writeJSON(t, bob, protocol.EventJoinGame, map[string]any{"name": "Bob", "team": "blue"})
	readUntil(t, bob, protocol.EventPlayerCount)
	readUntil(t, alice, protocol.EventPlayerCount)

	require.NoError(t, bob.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
	_ = bob.Close()

	left := readUntil(t, alice, protocol.EventPlayerLeft)
	var payload protocol.PlayerLeft
	require.NoError(t, json.Unmarshal(left.Data, &payload))
	assert.Equal(t, "Bob", payload.Name)

	assert.Eventually(t, func() bool { return srv.registry.Count() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, srv.store.Count())
}

func TestHandler_MalformedFrameKeepsConnection(t *testing.T) {
	srv := newTestServer(t, Config{})
	conn := dial(t, srv.wsURL())
	readJSON(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("garbage")))
	writeJSON(t, conn, protocol.EventJoinGame, map[string]any{"name": "Alice"})

	assert.Equal(t, protocol.EventPlayerJoined, readJSON(t, conn).Event)
}

func TestHandler_ShutdownClosesConnections(t *testing.T) {
	srv := newTestServer(t, Config{})
	conn := dial(t, srv.wsURL())
	readJSON(t, conn)
	require.Eventually(t, func() bool { return srv.registry.Count() == 1 }, time.Second, 10*time.Millisecond)

	srv.router.Shutdown()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	assert.Eventually(t, func() bool { return srv.registry.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_OriginCheck(t *testing.T) {
	srv := newTestServer(t, Config{AllowedOrigins: []string{"https://battle.example.com"}})

	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(srv.wsURL(), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header = http.Header{"Origin": []string{"https://battle.example.com"}}
	conn, _, err := websocket.DefaultDialer.Dial(srv.wsURL(), header)
	require.NoError(t, err)
	_ = conn.Close()
}

func TestConn_DeliverNeverBlocks(t *testing.T) {
	c := newConn("c1", nil, protocol.JSONCodec{}, 1, testutil.NopLogger())

	assert.True(t, c.Deliver(protocol.Message{Event: "a"}))
	assert.False(t, c.Deliver(protocol.Message{Event: "b"}), "buffer full")

	c.Close()
	c.Close()
	<-c.send
	assert.False(t, c.Deliver(protocol.Message{Event: "c"}), "closed")
}
