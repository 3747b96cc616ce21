package room

import (
	"go.uber.org/zap"

	"github.com/DoyleJ11/duel-rooms/internal/session"
	"github.com/DoyleJ11/duel-rooms/internal/types"
)

// dispatch feeds ev to the session machine and carries out what it asks
// for. Duel driving may produce a follow-up event, which is fed in turn.
func (r *Room) dispatch(ev session.Event) {
	for ev != nil {
		next, effects := session.Apply(r.state, roster{r}, ev)
		ev = r.apply(effects)
		if next != nil {
			if follow := r.transition(next); follow != nil {
				ev = follow
			}
		}
	}
}

func (r *Room) transition(next session.State) session.Event {
	r.setState(next)
	return r.apply(session.Enter(next, roster{r}))
}

func (r *Room) apply(effects []session.Effect) session.Event {
	var follow session.Event
	for _, eff := range effects {
		switch e := eff.(type) {
		case session.Send:
			r.deliver(e.To, e.Msg)
		case session.Disconnect:
			r.drop(e.Client)
		case session.DisconnectAll:
			for id := range r.clients {
				r.drop(id)
			}
		case session.AddSpectator:
			r.addSpectator(e.Client)
		case session.BeginDuel:
			follow = r.beginDuel(e.Team0First)
		case session.AbortDuel:
			r.teardownDuel()
		case session.ReplayField:
			r.replayField(e.Client)
		case session.AnnounceWatchers:
			r.sendAll(types.WatchChange(r.spectatorCount()))
		}
	}
	return follow
}

func (r *Room) addSpectator(id session.ClientID) {
	m := r.clients[id]
	if m == nil {
		return
	}
	m.client.Send(types.JoinGame(r.opts.Info))
	m.client.Send(types.SpectatorType(false))
	r.sendAll(types.WatchChange(r.spectatorCount()))
}

func (r *Room) deliver(to session.Target, msg types.ServerMessage) {
	switch {
	case to.IsAll():
		r.sendAll(msg)
	case to.IsSpectators():
		for _, m := range r.clients {
			if m.pos.IsSpectator() {
				m.client.Send(msg)
			}
		}
	case to.IsTeam():
		for pos, id := range r.duelists {
			if pos.Team == to.Team {
				r.clients[id].client.Send(msg)
			}
		}
	case to.IsClient():
		if m := r.clients[to.Client]; m != nil {
			m.client.Send(msg)
		}
	}
}

func (r *Room) sendAll(msg types.ServerMessage) {
	for _, m := range r.clients {
		m.client.Send(msg)
	}
}

// drop disconnects a member and forgets it.
func (r *Room) drop(id session.ClientID) {
	m := r.clients[id]
	if m == nil {
		return
	}
	m.client.Disconnect()
	r.remove(id)
	r.logger.Debug("client dropped", zap.String("client", string(id)))
}

func (r *Room) remove(id session.ClientID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.clients[id]
	if m == nil {
		return
	}
	delete(r.clients, id)
	if !m.pos.IsSpectator() && r.duelists[m.pos] == id {
		delete(r.duelists, m.pos)
	}
	r.emptied = len(r.clients) == 0
}
