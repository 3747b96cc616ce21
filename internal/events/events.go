package events

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	SubjectRoomCreated = "rooms.created"
	SubjectRoomRemoved = "rooms.removed"
	SubjectRoomState   = "rooms.state"
)

type RoomEvent struct {
	ID    uint32 `json:"id"`
	State string `json:"state,omitempty"`
}

// Publisher announces room lifecycle changes to other services.
type Publisher interface {
	Publish(subject string, ev RoomEvent) error
	Close()
}

type Nop struct{}

func (Nop) Publish(string, RoomEvent) error { return nil }
func (Nop) Close()                          {}

type NATS struct {
	conn   *nats.Conn
	logger *zap.Logger
}

func ConnectNATS(url string, logger *zap.Logger) (*NATS, error) {
	conn, err := nats.Connect(url,
		nats.Name("duel-rooms"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return &NATS{conn: conn, logger: logger}, nil
}

func (n *NATS) Publish(subject string, ev RoomEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return n.conn.Publish(subject, data)
}

// Close flushes pending publishes before disconnecting.
func (n *NATS) Close() {
	if err := n.conn.Drain(); err != nil {
		n.logger.Warn("nats drain", zap.Error(err))
	}
}
