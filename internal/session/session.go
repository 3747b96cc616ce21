package session

import "github.com/DoyleJ11/duel-rooms/internal/types"

type ClientID string

// Position is a (team, slot) seat or Spectator.
type Position struct {
	Team uint8
	Slot uint8
}

var Spectator = Position{Team: 0xFF, Slot: 0xFF}

func (p Position) IsSpectator() bool { return p == Spectator }

// Roster is the read-only view of room membership the machine decides on.
type Roster interface {
	Position(id ClientID) Position
	Duelist(p Position) (ClientID, bool)
	DuelistCount() int
	Capacity() int
	IsHost(id ClientID) bool
	AllReady() bool
}

// State is one of the six room states. States are used as pointers so
// per-state data (RPS choices, rematch answers) can be recorded in place.
type State interface {
	isState()
	Name() string
}

type Waiting struct{}

type RockPaperScissor struct {
	Choices [2]uint8
}

type ChoosingTurn struct {
	Chooser ClientID
}

type Dueling struct {
	Chooser    ClientID
	Team0First bool
}

type Rematching struct {
	Chooser  ClientID
	answered map[ClientID]struct{}
}

type Closing struct{}

func (*Waiting) isState()          {}
func (*RockPaperScissor) isState() {}
func (*ChoosingTurn) isState()     {}
func (*Dueling) isState()          {}
func (*Rematching) isState()       {}
func (*Closing) isState()          {}

func (*Waiting) Name() string          { return "waiting" }
func (*RockPaperScissor) Name() string { return "rock_paper_scissor" }
func (*ChoosingTurn) Name() string     { return "choosing_turn" }
func (*Dueling) Name() string          { return "dueling" }
func (*Rematching) Name() string       { return "rematching" }
func (*Closing) Name() string          { return "closing" }

type Event interface{ isEvent() }

type Join struct{ Client ClientID }

type ConnectionLost struct{ Client ClientID }

type TryStart struct{ Client ClientID }

type ChooseRPS struct {
	Client ClientID
	Value  uint8
}

type TurnChoice struct {
	Client     ClientID
	GoingFirst bool
}

type Rematch struct {
	Client ClientID
	Answer bool
}

// DuelEnded and DuelFailed are raised by the room, never by clients.
type DuelEnded struct{}

type DuelFailed struct{}

// Shutdown asks a room that has not started to close.
type Shutdown struct{}

func (Join) isEvent()           {}
func (ConnectionLost) isEvent() {}
func (TryStart) isEvent()       {}
func (ChooseRPS) isEvent()      {}
func (TurnChoice) isEvent()     {}
func (Rematch) isEvent()        {}
func (DuelEnded) isEvent()      {}
func (DuelFailed) isEvent()     {}
func (Shutdown) isEvent()       {}

type targetKind uint8

const (
	targetAll targetKind = iota
	targetTeam
	targetSpectators
	targetClient
)

// Target selects the recipients of a Send.
type Target struct {
	kind   targetKind
	Team   uint8
	Client ClientID
}

var (
	ToAll        = Target{kind: targetAll}
	ToSpectators = Target{kind: targetSpectators}
)

func ToTeam(team uint8) Target { return Target{kind: targetTeam, Team: team} }

func ToClient(id ClientID) Target { return Target{kind: targetClient, Client: id} }

func (t Target) IsAll() bool { return t.kind == targetAll }

func (t Target) IsSpectators() bool { return t.kind == targetSpectators }

func (t Target) IsTeam() bool { return t.kind == targetTeam }

func (t Target) IsClient() bool { return t.kind == targetClient }

// Effect is a side effect the room performs after a transition step.
type Effect interface{ isEffect() }

type Send struct {
	To  Target
	Msg types.ServerMessage
}

// Disconnect drops one client from the room and closes its connection.
type Disconnect struct{ Client ClientID }

type DisconnectAll struct{}

// AddSpectator seats a late joiner in the spectator set.
type AddSpectator struct{ Client ClientID }

type BeginDuel struct{ Team0First bool }

// AbortDuel tears down a running duel engine. A no-op when none is running.
type AbortDuel struct{}

// ReplayField sends the running duel's field to a late spectator.
type ReplayField struct{ Client ClientID }

// AnnounceWatchers broadcasts the spectator count as it stands when applied.
type AnnounceWatchers struct{}

func (Send) isEffect()             {}
func (Disconnect) isEffect()       {}
func (DisconnectAll) isEffect()    {}
func (AddSpectator) isEffect()     {}
func (BeginDuel) isEffect()        {}
func (AbortDuel) isEffect()        {}
func (AnnounceWatchers) isEffect() {}
func (ReplayField) isEffect()      {}
