package session

import "github.com/DoyleJ11/duel-rooms/internal/types"

// RPS hand values as sent by clients.
const (
	Scissor uint8 = 1
	Rock    uint8 = 2
	Paper   uint8 = 3
)

// RPSWinner returns the winning team for choices c0 (team 0) and c1 (team 1).
// tie is true when both chose the same hand.
func RPSWinner(c0, c1 uint8) (team uint8, tie bool) {
	if c0 == c1 {
		return 0, true
	}
	if (c1 == Rock && c0 == Scissor) ||
		(c1 == Paper && c0 == Rock) ||
		(c1 == Scissor && c0 == Paper) {
		return 1, false
	}
	return 0, false
}

// TeamGoingFirst resolves a turn choice made by a member of chooserTeam.
func TeamGoingFirst(chooserTeam uint8, goingFirst bool) (team0First bool) {
	return (chooserTeam == 0 && goingFirst) || (chooserTeam == 1 && !goingFirst)
}

func send(to Target, msg types.ServerMessage) Effect { return Send{To: to, Msg: msg} }

// Enter returns the entry actions of s.
func Enter(s State, r Roster) []Effect {
	switch st := s.(type) {
	case *RockPaperScissor:
		var out []Effect
		for team := uint8(0); team < 2; team++ {
			if id, ok := r.Duelist(Position{Team: team}); ok {
				out = append(out, send(ToClient(id), types.AskRPS()))
			}
		}
		return out
	case *ChoosingTurn:
		return []Effect{send(ToClient(st.Chooser), types.AskTurn())}
	case *Dueling:
		return []Effect{BeginDuel{Team0First: st.Team0First}}
	case *Rematching:
		return []Effect{
			send(ToAll, types.RematchWait()),
			send(ToTeam(0), types.AskRematch()),
			send(ToTeam(1), types.AskRematch()),
		}
	case *Closing:
		return []Effect{DisconnectAll{}}
	}
	return nil
}

// Apply feeds ev to s. A nil State means no transition; per-state data may
// still have been updated in place. Events a state does not accept are
// dropped without effects.
func Apply(s State, r Roster, ev Event) (State, []Effect) {
	switch st := s.(type) {
	case *Waiting:
		return applyWaiting(r, ev)
	case *RockPaperScissor:
		return applyRPS(st, r, ev)
	case *ChoosingTurn:
		return applyChoosingTurn(st, r, ev)
	case *Dueling:
		return applyDueling(st, r, ev)
	case *Rematching:
		return applyRematching(st, r, ev)
	case *Closing:
		return applyClosing(ev)
	}
	return nil, nil
}

// Join and ConnectionLost in Waiting are seat management and belong to the room.
func applyWaiting(r Roster, ev Event) (State, []Effect) {
	switch e := ev.(type) {
	case TryStart:
		if !r.IsHost(e.Client) || r.DuelistCount() != r.Capacity() || !r.AllReady() {
			return nil, nil
		}
		return &RockPaperScissor{}, []Effect{send(ToAll, types.DuelStart())}
	case Shutdown:
		return &Closing{}, nil
	}
	return nil, nil
}

// lateJoin admits a client after the duel setup started.
func lateJoin(id ClientID, extra ...types.ServerMessage) []Effect {
	out := []Effect{AddSpectator{Client: id}, send(ToClient(id), types.DuelStart())}
	for _, m := range extra {
		out = append(out, send(ToClient(id), m))
	}
	return out
}

// duelistLost ends the room when a duelist leaves once seats are frozen.
func duelistLost(r Roster, id ClientID, running bool) (State, []Effect) {
	if r.Position(id).IsSpectator() {
		return nil, []Effect{Disconnect{Client: id}, AnnounceWatchers{}}
	}
	var out []Effect
	if running {
		out = append(out, AbortDuel{})
	}
	return &Closing{}, append(out, send(ToAll, types.DuelEnd()))
}

func applyRPS(st *RockPaperScissor, r Roster, ev Event) (State, []Effect) {
	switch e := ev.(type) {
	case Join:
		return nil, lateJoin(e.Client)
	case ConnectionLost:
		return duelistLost(r, e.Client, false)
	case ChooseRPS:
		pos := r.Position(e.Client)
		if pos.IsSpectator() || pos.Slot != 0 || e.Value < Scissor || e.Value > Paper {
			return nil, nil
		}
		st.Choices[pos.Team] = e.Value
		c0, c1 := st.Choices[0], st.Choices[1]
		if c0 == 0 || c1 == 0 {
			return nil, nil
		}
		out := []Effect{
			send(ToTeam(0), types.RPSResult(c0, c1)),
			send(ToTeam(1), types.RPSResult(c1, c0)),
			send(ToSpectators, types.RPSResult(c0, c1)),
		}
		winner, tie := RPSWinner(c0, c1)
		if tie {
			return &RockPaperScissor{}, out
		}
		chooser, _ := r.Duelist(Position{Team: winner})
		return &ChoosingTurn{Chooser: chooser}, out
	}
	return nil, nil
}

func applyChoosingTurn(st *ChoosingTurn, r Roster, ev Event) (State, []Effect) {
	switch e := ev.(type) {
	case Join:
		return nil, lateJoin(e.Client)
	case ConnectionLost:
		return duelistLost(r, e.Client, false)
	case TurnChoice:
		if e.Client != st.Chooser {
			return nil, nil
		}
		team := r.Position(e.Client).Team
		return &Dueling{Chooser: st.Chooser, Team0First: TeamGoingFirst(team, e.GoingFirst)}, nil
	}
	return nil, nil
}

func applyDueling(st *Dueling, r Roster, ev Event) (State, []Effect) {
	switch e := ev.(type) {
	case Join:
		return nil, append(lateJoin(e.Client), ReplayField{Client: e.Client})
	case ConnectionLost:
		return duelistLost(r, e.Client, true)
	case DuelEnded:
		return &Rematching{Chooser: st.Chooser}, nil
	case DuelFailed:
		return &Closing{}, []Effect{AbortDuel{}, send(ToAll, types.DuelEnd())}
	}
	return nil, nil
}

func applyRematching(st *Rematching, r Roster, ev Event) (State, []Effect) {
	switch e := ev.(type) {
	case Join:
		return nil, lateJoin(e.Client, types.RematchWait())
	case ConnectionLost:
		if r.Position(e.Client).IsSpectator() {
			return nil, []Effect{Disconnect{Client: e.Client}}
		}
		return duelistLost(r, e.Client, false)
	case Rematch:
		if r.Position(e.Client).IsSpectator() {
			return nil, nil
		}
		if _, done := st.answered[e.Client]; done {
			return nil, nil
		}
		if !e.Answer {
			return &Closing{}, []Effect{send(ToAll, types.DuelEnd())}
		}
		if st.answered == nil {
			st.answered = make(map[ClientID]struct{})
		}
		st.answered[e.Client] = struct{}{}
		if len(st.answered) < r.DuelistCount() {
			return nil, nil
		}
		return &ChoosingTurn{Chooser: st.Chooser}, []Effect{send(ToAll, types.DuelStart())}
	}
	return nil, nil
}

func applyClosing(ev Event) (State, []Effect) {
	switch e := ev.(type) {
	case Join:
		return nil, []Effect{Disconnect{Client: e.Client}}
	case ConnectionLost:
		return nil, []Effect{Disconnect{Client: e.Client}}
	}
	return nil, nil
}
