package duel

import (
	"context"
	"errors"
)

var (
	ErrSandboxClosed = errors.New("duel sandbox closed")
	ErrEngineFailure = errors.New("duel engine failure")
)

// Handle identifies one duel inside an engine.
type Handle uint64

type Status uint8

const (
	StatusEnd      Status = 0
	StatusAwaiting Status = 1
	StatusContinue Status = 2
)

// Card locations used when placing decks.
const (
	LocationDeck  uint32 = 0x01
	LocationExtra uint32 = 0x40
)

// PositionFaceDownDefense is how deck cards are placed.
const PositionFaceDownDefense uint32 = 0x8

type PlayerOptions struct {
	StartingLP        uint32 `json:"starting_lp"`
	StartingDrawCount uint32 `json:"starting_draw_count"`
	DrawCountPerTurn  uint32 `json:"draw_count_per_turn"`
}

type Options struct {
	Seed  [4]uint64     `json:"seed"`
	Flags uint64        `json:"flags"`
	Team1 PlayerOptions `json:"team1"`
	Team2 PlayerOptions `json:"team2"`
}

type CardInfo struct {
	Team     uint8  `json:"team"`
	Duelist  uint8  `json:"duelist"`
	Code     uint32 `json:"code"`
	Con      uint8  `json:"con"`
	Location uint32 `json:"loc"`
	Sequence uint32 `json:"seq"`
	Position uint32 `json:"pos"`
}

type QueryInfo struct {
	Flags      uint32 `json:"flags"`
	Con        uint8  `json:"con"`
	Location   uint32 `json:"loc"`
	Sequence   uint32 `json:"seq"`
	OverlaySeq uint32 `json:"overlay_seq"`
}

// Engine runs duels. Implementations may live in another process, so every
// call can be slow or fail.
type Engine interface {
	Create(ctx context.Context, opts Options) (Handle, error)
	AddCard(ctx context.Context, h Handle, info CardInfo) error
	Start(ctx context.Context, h Handle) error
	Process(ctx context.Context, h Handle) (Status, error)
	GetMessages(ctx context.Context, h Handle) ([]byte, error)
	SetResponse(ctx context.Context, h Handle, data []byte) error
	QueryCount(ctx context.Context, h Handle, team uint8, loc uint32) (int, error)
	Query(ctx context.Context, h Handle, info QueryInfo) ([]byte, error)
	QueryLocation(ctx context.Context, h Handle, info QueryInfo) ([]byte, error)
	QueryField(ctx context.Context, h Handle) ([]byte, error)
	Destroy(ctx context.Context, h Handle) error
	Close() error
}

// Provider hands out one Engine per duel.
type Provider interface {
	Open(ctx context.Context) (Engine, error)
}

type ProviderFunc func(ctx context.Context) (Engine, error)

func (f ProviderFunc) Open(ctx context.Context) (Engine, error) { return f(ctx) }
