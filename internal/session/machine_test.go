package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/duel-rooms/internal/types"
)

type fakeRoster struct {
	seats    map[Position]ClientID
	host     ClientID
	capacity int
	ready    bool
}

func newRoster() *fakeRoster {
	return &fakeRoster{
		seats: map[Position]ClientID{
			{Team: 0, Slot: 0}: "a",
			{Team: 1, Slot: 0}: "b",
		},
		host:     "a",
		capacity: 2,
		ready:    true,
	}
}

func (f *fakeRoster) Position(id ClientID) Position {
	for p, c := range f.seats {
		if c == id {
			return p
		}
	}
	return Spectator
}

func (f *fakeRoster) Duelist(p Position) (ClientID, bool) {
	id, ok := f.seats[p]
	return id, ok
}

func (f *fakeRoster) DuelistCount() int       { return len(f.seats) }
func (f *fakeRoster) Capacity() int           { return f.capacity }
func (f *fakeRoster) IsHost(id ClientID) bool { return id == f.host }
func (f *fakeRoster) AllReady() bool          { return f.ready }

func sends(effects []Effect) []Send {
	var out []Send
	for _, e := range effects {
		if s, ok := e.(Send); ok {
			out = append(out, s)
		}
	}
	return out
}

func TestRPSWinner_AllPairs(t *testing.T) {
	hands := []uint8{Scissor, Rock, Paper}
	beats := map[uint8]uint8{Rock: Scissor, Scissor: Paper, Paper: Rock}
	for _, c0 := range hands {
		for _, c1 := range hands {
			team, tie := RPSWinner(c0, c1)
			if c0 == c1 {
				assert.True(t, tie, "c0=%d c1=%d", c0, c1)
				continue
			}
			assert.False(t, tie)
			want := uint8(1)
			if beats[c0] == c1 {
				want = 0
			}
			assert.Equal(t, want, team, "c0=%d c1=%d", c0, c1)
		}
	}
}

func TestTeamGoingFirst(t *testing.T) {
	assert.True(t, TeamGoingFirst(0, true))
	assert.False(t, TeamGoingFirst(0, false))
	assert.False(t, TeamGoingFirst(1, true))
	assert.True(t, TeamGoingFirst(1, false))
}

func TestWaiting_TryStart(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*fakeRoster)
		sender ClientID
		start  bool
	}{
		{"host with full ready room", func(*fakeRoster) {}, "a", true},
		{"not host", func(*fakeRoster) {}, "b", false},
		{"not full", func(f *fakeRoster) { delete(f.seats, Position{Team: 1}) }, "a", false},
		{"not ready", func(f *fakeRoster) { f.ready = false }, "a", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRoster()
			tc.mutate(r)
			next, effects := Apply(&Waiting{}, r, TryStart{Client: tc.sender})
			if !tc.start {
				assert.Nil(t, next)
				assert.Empty(t, effects)
				return
			}
			require.IsType(t, &RockPaperScissor{}, next)
			require.Len(t, sends(effects), 1)
			assert.Equal(t, types.MsgDuelStart, sends(effects)[0].Msg.Type)
			assert.True(t, sends(effects)[0].To.IsAll())
		})
	}
}

func TestWaiting_Shutdown(t *testing.T) {
	next, _ := Apply(&Waiting{}, newRoster(), Shutdown{})
	assert.IsType(t, &Closing{}, next)

	next, _ = Apply(&Dueling{}, newRoster(), Shutdown{})
	assert.Nil(t, next)
}

func TestEnter_RPSPromptsSlotZero(t *testing.T) {
	r := newRoster()
	r.seats[Position{Team: 0, Slot: 1}] = "c"
	effects := Enter(&RockPaperScissor{}, r)
	got := sends(effects)
	require.Len(t, got, 2)
	assert.Equal(t, ToClient("a"), got[0].To)
	assert.Equal(t, ToClient("b"), got[1].To)
	for _, s := range got {
		assert.Equal(t, types.MsgAskRPS, s.Msg.Type)
	}
}

func TestRPS_IgnoresInvalidChoices(t *testing.T) {
	r := newRoster()
	r.seats[Position{Team: 0, Slot: 1}] = "c"
	st := &RockPaperScissor{}

	for _, ev := range []ChooseRPS{
		// not slot 0
		{Client: "c", Value: Rock},
		{Client: "spectator", Value: Rock},
		{Client: "a", Value: 0},
		{Client: "a", Value: 4},
	} {
		next, effects := Apply(st, r, ev)
		assert.Nil(t, next)
		assert.Empty(t, effects)
	}
	assert.Equal(t, [2]uint8{}, st.Choices)
}

func TestRPS_DecisiveResult(t *testing.T) {
	r := newRoster()
	st := &RockPaperScissor{}

	next, effects := Apply(st, r, ChooseRPS{Client: "a", Value: Rock})
	assert.Nil(t, next)
	assert.Empty(t, effects)

	next, effects = Apply(st, r, ChooseRPS{Client: "b", Value: Scissor})
	require.IsType(t, &ChoosingTurn{}, next)
	assert.Equal(t, ClientID("a"), next.(*ChoosingTurn).Chooser)

	got := sends(effects)
	require.Len(t, got, 3)
	assert.Equal(t, ToTeam(0), got[0].To)
	assert.Equal(t, []int{int(Rock), int(Scissor)}, got[0].Msg.Choices)
	assert.Equal(t, ToTeam(1), got[1].To)
	assert.Equal(t, []int{int(Scissor), int(Rock)}, got[1].Msg.Choices)
	assert.Equal(t, ToSpectators, got[2].To)
	assert.Equal(t, []int{int(Rock), int(Scissor)}, got[2].Msg.Choices)

	turn := Enter(next, r)
	require.Len(t, sends(turn), 1)
	assert.Equal(t, ToClient("a"), sends(turn)[0].To)
	assert.Equal(t, types.MsgAskTurn, sends(turn)[0].Msg.Type)
}

func TestRPS_TeamOneWins(t *testing.T) {
	r := newRoster()
	st := &RockPaperScissor{}
	Apply(st, r, ChooseRPS{Client: "a", Value: Rock})
	next, _ := Apply(st, r, ChooseRPS{Client: "b", Value: Paper})
	require.IsType(t, &ChoosingTurn{}, next)
	assert.Equal(t, ClientID("b"), next.(*ChoosingTurn).Chooser)
}

func TestRPS_TieRestarts(t *testing.T) {
	for _, hand := range []uint8{Scissor, Rock, Paper} {
		r := newRoster()
		st := &RockPaperScissor{}
		Apply(st, r, ChooseRPS{Client: "a", Value: hand})
		next, effects := Apply(st, r, ChooseRPS{Client: "b", Value: hand})
		require.IsType(t, &RockPaperScissor{}, next)
		assert.Equal(t, [2]uint8{}, next.(*RockPaperScissor).Choices)
		assert.Len(t, sends(effects), 3)
		// re-entry prompts both slot-0 duelists again
		assert.Len(t, sends(Enter(next, r)), 2)
	}
}

func TestChoosingTurn(t *testing.T) {
	r := newRoster()
	st := &ChoosingTurn{Chooser: "a"}

	next, _ := Apply(st, r, TurnChoice{Client: "b", GoingFirst: true})
	assert.Nil(t, next)

	next, _ = Apply(st, r, TurnChoice{Client: "a", GoingFirst: false})
	require.IsType(t, &Dueling{}, next)
	d := next.(*Dueling)
	assert.False(t, d.Team0First)
	assert.Equal(t, ClientID("a"), d.Chooser)

	effects := Enter(d, r)
	require.Len(t, effects, 1)
	assert.Equal(t, BeginDuel{Team0First: false}, effects[0])
}

func TestDueling_EndAndFailure(t *testing.T) {
	r := newRoster()
	next, effects := Apply(&Dueling{Chooser: "b"}, r, DuelEnded{})
	require.IsType(t, &Rematching{}, next)
	assert.Equal(t, ClientID("b"), next.(*Rematching).Chooser)
	assert.Empty(t, effects)

	next, effects = Apply(&Dueling{}, r, DuelFailed{})
	assert.IsType(t, &Closing{}, next)
	require.Len(t, effects, 2)
	assert.Equal(t, AbortDuel{}, effects[0])
}

func TestMidDuel_JoinAndLeave(t *testing.T) {
	states := []State{&RockPaperScissor{}, &ChoosingTurn{Chooser: "a"}, &Dueling{}}
	for _, s := range states {
		t.Run(s.Name(), func(t *testing.T) {
			r := newRoster()
			_, effects := Apply(s, r, Join{Client: "late"})
			require.GreaterOrEqual(t, len(effects), 2)
			assert.Equal(t, AddSpectator{Client: "late"}, effects[0])
			assert.Equal(t, types.MsgDuelStart, effects[1].(Send).Msg.Type)
			if _, dueling := s.(*Dueling); dueling {
				assert.Equal(t, []Effect{ReplayField{Client: "late"}}, effects[2:])
			} else {
				assert.Len(t, effects, 2)
			}

			next, effects := Apply(s, r, ConnectionLost{Client: "late"})
			assert.Nil(t, next)
			assert.Equal(t, []Effect{Disconnect{Client: "late"}, AnnounceWatchers{}}, effects)

			next, effects = Apply(s, r, ConnectionLost{Client: "b"})
			assert.IsType(t, &Closing{}, next)
			last := effects[len(effects)-1].(Send)
			assert.Equal(t, types.MsgDuelEnd, last.Msg.Type)
		})
	}
}

func TestDueling_DuelistLossAbortsEngine(t *testing.T) {
	_, effects := Apply(&Dueling{}, newRoster(), ConnectionLost{Client: "a"})
	assert.Contains(t, effects, Effect(AbortDuel{}))
}

func TestRematching_SpectatorLeavesQuietly(t *testing.T) {
	next, effects := Apply(&Rematching{Chooser: "a"}, newRoster(), ConnectionLost{Client: "watcher"})
	assert.Nil(t, next)
	assert.Equal(t, []Effect{Disconnect{Client: "watcher"}}, effects)
}

func TestRematching_Entry(t *testing.T) {
	got := sends(Enter(&Rematching{}, newRoster()))
	require.Len(t, got, 3)
	assert.Equal(t, types.MsgRematchWait, got[0].Msg.Type)
	assert.True(t, got[0].To.IsAll())
	assert.Equal(t, ToTeam(0), got[1].To)
	assert.Equal(t, ToTeam(1), got[2].To)
	assert.Equal(t, types.MsgAskRematch, got[1].Msg.Type)
}

func TestRematching_AllAcceptKeepsChooser(t *testing.T) {
	r := newRoster()
	st := &Rematching{Chooser: "b"}

	next, _ := Apply(st, r, Rematch{Client: "spectator", Answer: true})
	assert.Nil(t, next)

	next, _ = Apply(st, r, Rematch{Client: "a", Answer: true})
	assert.Nil(t, next)

	// an answered duelist cannot change their mind
	next, _ = Apply(st, r, Rematch{Client: "a", Answer: false})
	assert.Nil(t, next)

	next, effects := Apply(st, r, Rematch{Client: "b", Answer: true})
	require.IsType(t, &ChoosingTurn{}, next)
	assert.Equal(t, ClientID("b"), next.(*ChoosingTurn).Chooser)
	assert.Equal(t, types.MsgDuelStart, sends(effects)[0].Msg.Type)
}

func TestRematching_DeclineCloses(t *testing.T) {
	r := newRoster()
	next, effects := Apply(&Rematching{}, r, Rematch{Client: "b", Answer: false})
	require.IsType(t, &Closing{}, next)
	assert.Equal(t, types.MsgDuelEnd, sends(effects)[0].Msg.Type)
	assert.Equal(t, []Effect{DisconnectAll{}}, Enter(next, r))
}

func TestRematching_JoinReplaysContext(t *testing.T) {
	_, effects := Apply(&Rematching{}, newRoster(), Join{Client: "late"})
	got := sends(effects)
	require.Len(t, got, 2)
	assert.Equal(t, types.MsgDuelStart, got[0].Msg.Type)
	assert.Equal(t, types.MsgRematchWait, got[1].Msg.Type)
}

func TestClosing_DisconnectsEveryone(t *testing.T) {
	r := newRoster()
	next, effects := Apply(&Closing{}, r, Join{Client: "x"})
	assert.Nil(t, next)
	assert.Equal(t, []Effect{Disconnect{Client: "x"}}, effects)

	next, effects = Apply(&Closing{}, r, ConnectionLost{Client: "a"})
	assert.Nil(t, next)
	assert.Equal(t, []Effect{Disconnect{Client: "a"}}, effects)

	next, effects = Apply(&Closing{}, r, TryStart{Client: "a"})
	assert.Nil(t, next)
	assert.Empty(t, effects)
}

func TestUnacceptedEventsAreDropped(t *testing.T) {
	r := newRoster()
	cases := []struct {
		state State
		ev    Event
	}{
		{&Waiting{}, ChooseRPS{Client: "a", Value: Rock}},
		{&Waiting{}, DuelEnded{}},
		{&RockPaperScissor{}, TurnChoice{Client: "a"}},
		{&ChoosingTurn{Chooser: "a"}, Rematch{Client: "a"}},
		{&Dueling{}, TryStart{Client: "a"}},
		{&Rematching{}, DuelEnded{}},
	}
	for _, tc := range cases {
		next, effects := Apply(tc.state, r, tc.ev)
		assert.Nil(t, next, "%s %T", tc.state.Name(), tc.ev)
		assert.Empty(t, effects, "%s %T", tc.state.Name(), tc.ev)
	}
}
