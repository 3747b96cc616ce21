package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/DoyleJ11/duel-rooms/internal/room"
	"github.com/DoyleJ11/duel-rooms/internal/session"
	"github.com/DoyleJ11/duel-rooms/internal/types"
)

const outboxSize = 64

// client is one websocket connection seen from a room. Sends are queued
// for the writer goroutine; a client that falls behind is cut off rather
// than allowed to stall its room.
type client struct {
	id     session.ClientID
	name   string
	conn   *websocket.Conn
	cfg    Config
	logger *zap.Logger

	out  chan types.ServerMessage
	done chan struct{}
	once sync.Once
}

func newClient(id session.ClientID, name string, conn *websocket.Conn, cfg Config) *client {
	return &client{
		id:     id,
		name:   name,
		conn:   conn,
		cfg:    cfg,
		logger: cfg.Logger.With(zap.String("client", string(id))),
		out:    make(chan types.ServerMessage, outboxSize),
		done:   make(chan struct{}),
	}
}

func (c *client) ID() session.ClientID { return c.id }

func (c *client) Name() string { return c.name }

func (c *client) Send(msg types.ServerMessage) {
	select {
	case <-c.done:
	case c.out <- msg:
	default:
		c.logger.Warn("outbox full, dropping client")
		c.Disconnect()
	}
}

func (c *client) Disconnect() {
	c.once.Do(func() { close(c.done) })
}

func (c *client) writeLoop(ctx context.Context) {
	ping := time.NewTicker(c.cfg.PingInterval)
	defer ping.Stop()
	for {
		select {
		case <-c.done:
			c.flush(ctx)
			_ = c.conn.Close(websocket.StatusNormalClosure, "bye")
			return
		case <-ctx.Done():
			return
		case msg := <-c.out:
			if err := c.write(ctx, msg); err != nil {
				c.logger.Debug("websocket write", zap.Error(err))
				c.Disconnect()
			}
		case <-ping.C:
			if err := c.ping(ctx); err != nil {
				c.logger.Debug("websocket ping", zap.Error(err))
				c.Disconnect()
			}
		}
	}
}

// flush sends whatever was queued before the disconnect, so a kicked or
// closed client still sees the final messages.
func (c *client) flush(ctx context.Context) {
	for {
		select {
		case msg := <-c.out:
			if c.write(ctx, msg) != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *client) write(ctx context.Context, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.WriteTimeout)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, payload)
}

// ping waits for the pong, which readLoop consumes, so it only works
// while readLoop runs.
func (c *client) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.WriteTimeout)
	defer cancel()
	return c.conn.Ping(ctx)
}

// readLoop has no read deadline: quiet clients are normal, dead ones are
// caught by ping.
func (c *client) readLoop(ctx context.Context, rm *room.Room) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				c.logger.Debug("websocket read", zap.Error(err))
			}
			c.Disconnect()
			return
		}
		var m types.ClientMessage
		if err := json.Unmarshal(data, &m); err != nil {
			c.Send(types.ProtocolError("bad json"))
			continue
		}
		msg, ok := toRoomMsg(c.id, m)
		if !ok {
			c.Send(types.ProtocolError("unknown type"))
			continue
		}
		if !rm.Post(msg) {
			c.Disconnect()
			return
		}
	}
}
