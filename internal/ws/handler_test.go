package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoyleJ11/duel-rooms/internal/hub"
	"github.com/DoyleJ11/duel-rooms/internal/session"
	"github.com/DoyleJ11/duel-rooms/internal/types"
)

const within = 2 * time.Second

func newServer(t *testing.T) (*httptest.Server, *hub.Hub) {
	return newServerWith(t, Config{Logger: zap.NewNop()})
}

func newServerWith(t *testing.T, cfg Config) (*httptest.Server, *hub.Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := hub.NewHub(ctx, zap.NewNop(), nil)
	srv := httptest.NewServer(Handler(ctx, h, cfg))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return srv, h
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), within)
	defer cancel()
	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.CloseNow() })
	return c
}

func send(t *testing.T, c *websocket.Conn, m types.ClientMessage) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), within)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, c, m))
}

// recvType reads frames until one of type typ arrives.
func recvType(t *testing.T, c *websocket.Conn, typ types.MessageType) types.ServerMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), within)
	defer cancel()
	for {
		var m types.ServerMessage
		require.NoError(t, wsjson.Read(ctx, c, &m), "waiting for %s", typ)
		if m.Type == typ {
			return m
		}
	}
}

// pump keeps reading c in the background, which also answers pings.
func pump(c *websocket.Conn) <-chan types.ServerMessage {
	out := make(chan types.ServerMessage, 64)
	go func() {
		defer close(out)
		for {
			var m types.ServerMessage
			if err := wsjson.Read(context.Background(), c, &m); err != nil {
				return
			}
			out <- m
		}
	}()
	return out
}

func createGame(t *testing.T, srv *httptest.Server, pass string) *websocket.Conn {
	t.Helper()
	c := dial(t, srv)
	send(t, c, types.ClientMessage{
		Type:    "CreateGame",
		Name:    "alice",
		Pass:    pass,
		Options: &types.HostInfo{T1Count: 1, T2Count: 1, StartingLP: 8000},
	})
	join := recvType(t, c, types.MsgJoinGame)
	require.NotNil(t, join.Info)
	assert.Equal(t, uint32(8000), join.Info.StartingLP)
	return c
}

func onlyRoomID(t *testing.T, h *hub.Hub) uint32 {
	t.Helper()
	props := h.GetAllRoomsProperties()
	require.Len(t, props, 1)
	return props[0].ID
}

func TestHandler_CreateAndJoin(t *testing.T) {
	srv, h := newServer(t)
	host := createGame(t, srv, "")
	tc := recvType(t, host, types.MsgTypeChange)
	assert.True(t, tc.Host)

	guest := dial(t, srv)
	send(t, guest, types.ClientMessage{Type: "JoinGame", Name: "bob", RoomID: onlyRoomID(t, h)})
	recvType(t, guest, types.MsgJoinGame)

	enter := recvType(t, host, types.MsgPlayerEnter)
	assert.Equal(t, "bob", enter.Name)
	assert.Equal(t, uint8(1), *enter.Pos)

	send(t, guest, types.ClientMessage{Type: "Chat", Text: "hello"})
	chat := recvType(t, host, types.MsgChat)
	assert.Equal(t, "hello", chat.Text)
}

func TestHandler_RejectsBadHandshakes(t *testing.T) {
	srv, h := newServer(t)
	createGame(t, srv, "secret")
	id := onlyRoomID(t, h)

	tests := []struct {
		name string
		msg  types.ClientMessage
		want string
	}{
		{name: "not a handshake", msg: types.ClientMessage{Type: "Chat", Name: "x", Text: "hi"}, want: errHandshake.Error()},
		{name: "missing name", msg: types.ClientMessage{Type: "JoinGame", RoomID: id}, want: "missing name"},
		{name: "unknown room", msg: types.ClientMessage{Type: "JoinGame", Name: "x", RoomID: id + 1}, want: hub.ErrRoomNotFound.Error()},
		{name: "wrong password", msg: types.ClientMessage{Type: "JoinGame", Name: "x", RoomID: id, Pass: "guess"}, want: "wrong room password"},
		{name: "no options", msg: types.ClientMessage{Type: "CreateGame", Name: "x"}, want: "missing options"},
		{name: "bad team size", msg: types.ClientMessage{Type: "CreateGame", Name: "x", Options: &types.HostInfo{T1Count: 9, T2Count: 1}}, want: "team sizes must be between 1 and 3"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := dial(t, srv)
			send(t, c, tc.msg)
			m := recvType(t, c, types.MsgError)
			assert.Equal(t, tc.want, m.Error)
		})
	}
}

func TestHandler_UnknownFrameKeepsConnection(t *testing.T) {
	srv, _ := newServer(t)
	host := createGame(t, srv, "")

	send(t, host, types.ClientMessage{Type: "Dance"})
	m := recvType(t, host, types.MsgError)
	assert.Equal(t, "unknown type", m.Error)

	send(t, host, types.ClientMessage{Type: "Chat", Text: "still here"})
	chat := recvType(t, host, types.MsgChat)
	assert.Equal(t, "still here", chat.Text)
}

func TestToRoomMsg(t *testing.T) {
	id := session.ClientID("c1")
	for _, typ := range []string{
		"UpdateDeck", "Ready", "ToDuelist", "ToObserver", "Kick", "TryStart",
		"Chat", "RPSChoice", "TurnChoice", "Rematch", "Response",
	} {
		_, ok := toRoomMsg(id, types.ClientMessage{Type: typ})
		assert.True(t, ok, typ)
	}
	_, ok := toRoomMsg(id, types.ClientMessage{Type: "CreateGame"})
	assert.False(t, ok, "handshakes are not room messages")
}

func TestCleanName(t *testing.T) {
	assert.Equal(t, "alice", cleanName("  alice "))
	assert.Equal(t, strings.Repeat("é", maxNameLength), cleanName(strings.Repeat("é", 30)))
}

func TestHandler_QuietClientOutlivesHandshakeTimeout(t *testing.T) {
	const handshake = 200 * time.Millisecond
	srv, h := newServerWith(t, Config{
		Logger:           zap.NewNop(),
		HandshakeTimeout: handshake,
		PingInterval:     50 * time.Millisecond,
	})
	host := createGame(t, srv, "")
	pump(host)

	watcher := dial(t, srv)
	send(t, watcher, types.ClientMessage{Type: "JoinGame", Name: "bob", RoomID: onlyRoomID(t, h)})
	frames := pump(watcher)

	time.Sleep(4 * handshake)
	send(t, host, types.ClientMessage{Type: "Chat", Text: "still there?"})

	deadline := time.After(within)
	for {
		select {
		case m, ok := <-frames:
			require.True(t, ok, "quiet client was disconnected")
			if m.Type == types.MsgChat {
				assert.Equal(t, "still there?", m.Text)
				return
			}
		case <-deadline:
			t.Fatal("no chat reached the quiet client")
		}
	}
}
