package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/duel-rooms/internal/card"
	"github.com/DoyleJ11/duel-rooms/internal/deck"
	"github.com/DoyleJ11/duel-rooms/internal/hub"
	"github.com/DoyleJ11/duel-rooms/internal/room"
	"github.com/DoyleJ11/duel-rooms/internal/session"
	"github.com/DoyleJ11/duel-rooms/internal/types"
)

const maxNameLength = 20

var errHandshake = errors.New("first message must be CreateGame or JoinGame")

type Config struct {
	Rooms        room.Deps
	Banlists     []*card.Banlist
	Limits       deck.Limits
	WriteTimeout time.Duration
	// HandshakeTimeout bounds the wait for the first frame only.
	HandshakeTimeout time.Duration
	// PingInterval is how often an attached client is pinged. A client
	// that fails a ping is dropped.
	PingInterval time.Duration
	// OriginPatterns loosens the same-origin check, e.g. for local dev.
	OriginPatterns []string
	Logger         *zap.Logger
}

// Handler upgrades to a websocket and attaches the connection to a room.
// Rooms created here live as long as ctx, not the request.
func Handler(ctx context.Context, h *hub.Hub, cfg Config) http.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 3 * time.Second
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 60 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: cfg.OriginPatterns,
		})
		if err != nil {
			cfg.Logger.Debug("websocket accept", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		first, err := readMessage(r.Context(), conn, cfg.HandshakeTimeout)
		if err != nil {
			writeError(r.Context(), conn, cfg.WriteTimeout, errHandshake.Error())
			return
		}
		name := cleanName(first.Name)
		if name == "" {
			writeError(r.Context(), conn, cfg.WriteTimeout, "missing name")
			return
		}

		rm, err := attach(ctx, h, cfg, first)
		if err != nil {
			writeError(r.Context(), conn, cfg.WriteTimeout, err.Error())
			return
		}

		c := newClient(session.ClientID(uuid.NewString()), name, conn, cfg)
		if !rm.Post(room.Join{Client: c}) {
			writeError(r.Context(), conn, cfg.WriteTimeout, room.ErrRoomClosed.Error())
			return
		}
		defer rm.Post(room.Leave{ID: c.id})

		go c.writeLoop(r.Context())
		c.readLoop(r.Context(), rm)
	}
}

// attach creates or finds the room the handshake asks for.
func attach(ctx context.Context, h *hub.Hub, cfg Config, m types.ClientMessage) (*room.Room, error) {
	switch m.Type {
	case "CreateGame":
		if m.Options == nil {
			return nil, errors.New("missing options")
		}
		info := *m.Options
		bl := card.FindBanlist(cfg.Banlists, "", info.BanlistHash)
		if bl == nil {
			info.BanlistHash = 0
		}
		return room.New(ctx, h, room.Options{
			Info:     info,
			Limits:   cfg.Limits,
			Banlist:  bl,
			Password: m.Pass,
			Notes:    m.Notes,
		}, cfg.Rooms)
	case "JoinGame":
		rm, err := h.Get(m.RoomID)
		if err != nil {
			return nil, err
		}
		if err := rm.CheckPassword(m.Pass); err != nil {
			return nil, err
		}
		return rm, nil
	}
	return nil, errHandshake
}

// toRoomMsg maps a client frame to the room message it stands for.
func toRoomMsg(id session.ClientID, m types.ClientMessage) (room.Msg, bool) {
	switch m.Type {
	case "UpdateDeck":
		return room.UpdateDeck{ID: id, Main: m.Main, Side: m.Side}, true
	case "Ready":
		return room.Ready{ID: id, Value: m.Ready}, true
	case "ToDuelist":
		return room.ToDuelist{ID: id}, true
	case "ToObserver":
		return room.ToObserver{ID: id}, true
	case "Kick":
		return room.Kick{ID: id, Pos: m.Pos}, true
	case "TryStart":
		return room.TryStart{ID: id}, true
	case "Chat":
		return room.Chat{ID: id, Text: m.Text}, true
	case "RPSChoice":
		return room.ChooseRPS{ID: id, Value: m.Value}, true
	case "TurnChoice":
		return room.TurnChoice{ID: id, GoingFirst: m.GoingFirst}, true
	case "Rematch":
		return room.Rematch{ID: id, Answer: m.Answer}, true
	case "Response":
		return room.Response{ID: id, Data: m.Data}, true
	default:
		return nil, false
	}
}

func cleanName(name string) string {
	name = strings.TrimSpace(name)
	if r := []rune(name); len(r) > maxNameLength {
		name = string(r[:maxNameLength])
	}
	return name
}

func readMessage(ctx context.Context, conn *websocket.Conn, timeout time.Duration) (types.ClientMessage, error) {
	var m types.ClientMessage
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(data, &m)
	return m, err
}

func writeError(ctx context.Context, conn *websocket.Conn, timeout time.Duration, msg string) {
	payload, _ := json.Marshal(types.ProtocolError(msg))
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_ = conn.Write(ctx, websocket.MessageText, payload)
}
