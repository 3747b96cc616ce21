package types

import "github.com/DoyleJ11/duel-rooms/internal/deck"

// HostInfo is the room configuration chosen by the creator and echoed to
// every client in JoinGame.
type HostInfo struct {
	T1Count            uint8        `json:"team1"`
	T2Count            uint8        `json:"team2"`
	BestOf             uint8        `json:"best_of"`
	DuelFlags          uint64       `json:"duel_flag"`
	ForbiddenTypes     uint32       `json:"forbidden_types"`
	ExtraRules         uint32       `json:"extra_rules"`
	StartingLP         uint32       `json:"start_lp"`
	StartingDrawCount  uint32       `json:"start_hand"`
	DrawCountPerTurn   uint32       `json:"draw_count"`
	TimeLimitInSeconds uint16       `json:"time_limit"`
	Allowed            deck.Allowed `json:"rule"`
	DontCheckDeck      bool         `json:"no_check"`
	DontShuffleDeck    bool         `json:"no_shuffle"`
	BanlistHash        uint32       `json:"banlist_hash"`
}

type ClientMessage struct {
	Type string `json:"type"`

	// CreateGame / JoinGame
	Name    string    `json:"name,omitempty"`
	RoomID  uint32    `json:"room_id,omitempty"`
	Pass    string    `json:"pass,omitempty"`
	Notes   string    `json:"notes,omitempty"`
	Options *HostInfo `json:"options,omitempty"`

	Main       []uint32 `json:"main,omitempty"`
	Side       []uint32 `json:"side,omitempty"`
	Ready      bool     `json:"ready,omitempty"`
	Pos        uint8    `json:"pos,omitempty"`
	Text       string   `json:"text,omitempty"`
	Value      uint8    `json:"value,omitempty"`
	GoingFirst bool     `json:"going_first,omitempty"`
	Answer     bool     `json:"answer,omitempty"`
	Data       []byte   `json:"data,omitempty"`
}

type MessageType string

const (
	MsgJoinGame     MessageType = "JoinGame"
	MsgTypeChange   MessageType = "TypeChange"
	MsgPlayerEnter  MessageType = "PlayerEnter"
	MsgPlayerChange MessageType = "PlayerChange"
	MsgWatchChange  MessageType = "WatchChange"
	MsgChat         MessageType = "Chat"
	MsgAskRPS       MessageType = "AskRPS"
	MsgRPSResult    MessageType = "RPSResult"
	MsgAskTurn      MessageType = "AskTurn"
	MsgDuelStart    MessageType = "DuelStart"
	MsgDuelEnd      MessageType = "DuelEnd"
	MsgRematchWait  MessageType = "RematchWait"
	MsgAskRematch   MessageType = "AskRematch"
	MsgDuelMessage  MessageType = "DuelMessage"
	MsgError        MessageType = "Error"
)

// Change is the PlayerChange payload.
type Change string

const (
	ChangeReady    Change = "ready"
	ChangeNotReady Change = "not_ready"
	ChangeLeave    Change = "leave"
	ChangeSpectate Change = "spectate"
	ChangeMoved    Change = "moved"
)

// ServerMessage is one outbound intent. Only the fields relevant to Type are set.
type ServerMessage struct {
	Type      MessageType `json:"type"`
	Pos       *uint8      `json:"pos,omitempty"`
	NewPos    *uint8      `json:"new_pos,omitempty"`
	Change    Change      `json:"change,omitempty"`
	Name      string      `json:"name,omitempty"`
	Host      bool        `json:"host,omitempty"`
	Spectator bool        `json:"spectator,omitempty"`
	Count     *int        `json:"count,omitempty"`
	Text      string      `json:"text,omitempty"`
	Choices   []int       `json:"choices,omitempty"`
	Kind      uint8       `json:"kind,omitempty"`
	Value     uint32      `json:"value,omitempty"`
	Info      *HostInfo   `json:"info,omitempty"`
	Data      []byte      `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
}

func ptr[T any](v T) *T { return &v }

func JoinGame(info HostInfo) ServerMessage {
	return ServerMessage{Type: MsgJoinGame, Info: &info}
}

func TypeChange(pos uint8, host bool) ServerMessage {
	return ServerMessage{Type: MsgTypeChange, Pos: ptr(pos), Host: host}
}

func SpectatorType(host bool) ServerMessage {
	return ServerMessage{Type: MsgTypeChange, Spectator: true, Host: host}
}

func PlayerEnter(name string, pos uint8) ServerMessage {
	return ServerMessage{Type: MsgPlayerEnter, Name: name, Pos: ptr(pos)}
}

func PlayerChange(pos uint8, c Change) ServerMessage {
	return ServerMessage{Type: MsgPlayerChange, Pos: ptr(pos), Change: c}
}

func PlayerMoved(from, to uint8) ServerMessage {
	return ServerMessage{Type: MsgPlayerChange, Pos: ptr(from), NewPos: ptr(to), Change: ChangeMoved}
}

func WatchChange(count int) ServerMessage {
	return ServerMessage{Type: MsgWatchChange, Count: ptr(count)}
}

func DuelistChat(pos uint8, text string) ServerMessage {
	return ServerMessage{Type: MsgChat, Pos: ptr(pos), Text: text}
}

func SpectatorChat(name, text string) ServerMessage {
	return ServerMessage{Type: MsgChat, Spectator: true, Text: name + ": " + text}
}

func AskRPS() ServerMessage { return ServerMessage{Type: MsgAskRPS} }

// RPSResult carries the receiver's own choice first.
func RPSResult(own, opponent uint8) ServerMessage {
	return ServerMessage{Type: MsgRPSResult, Choices: []int{int(own), int(opponent)}}
}

func AskTurn() ServerMessage     { return ServerMessage{Type: MsgAskTurn} }
func DuelStart() ServerMessage   { return ServerMessage{Type: MsgDuelStart} }
func DuelEnd() ServerMessage     { return ServerMessage{Type: MsgDuelEnd} }
func RematchWait() ServerMessage { return ServerMessage{Type: MsgRematchWait} }
func AskRematch() ServerMessage  { return ServerMessage{Type: MsgAskRematch} }

func DuelMessage(data []byte) ServerMessage {
	return ServerMessage{Type: MsgDuelMessage, Data: data}
}

func DeckError(kind deck.ErrorKind, value uint32) ServerMessage {
	return ServerMessage{Type: MsgError, Kind: uint8(kind), Value: value, Error: kind.String()}
}

// ProtocolError reports transport level problems (bad JSON, unknown room).
func ProtocolError(msg string) ServerMessage {
	return ServerMessage{Type: MsgError, Error: msg}
}
