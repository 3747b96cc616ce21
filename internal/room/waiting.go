package room

import (
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/DoyleJ11/duel-rooms/internal/deck"
	"github.com/DoyleJ11/duel-rooms/internal/session"
	"github.com/DoyleJ11/duel-rooms/internal/types"
)

func (r *Room) onJoin(c Client) {
	id := c.ID()
	if _, dup := r.clients[id]; dup {
		r.logger.Warn("duplicate join ignored", zap.String("client", string(id)))
		return
	}
	m := &member{client: c, pos: session.Spectator}
	r.mu.Lock()
	r.clients[id] = m
	r.mu.Unlock()
	r.logger.Info("client joined", zap.String("client", string(id)), zap.String("name", c.Name()))

	if _, ok := r.state.(*session.Waiting); !ok {
		r.dispatch(session.Join{Client: id})
		return
	}
	r.joinWaiting(m)
}

func (r *Room) joinWaiting(m *member) {
	id := m.client.ID()
	if r.host == "" {
		r.host = id
	}
	isHost := r.host == id
	m.client.Send(types.JoinGame(r.opts.Info))

	if r.assign(m, session.Position{}) {
		pos := r.encode(m.pos)
		r.sendAll(types.PlayerEnter(m.client.Name(), pos))
		r.sendAll(r.readyChange(m))
		m.client.Send(types.TypeChange(pos, isHost))
		m.client.Send(types.WatchChange(r.spectatorCount()))
	} else {
		m.client.Send(types.SpectatorType(isHost))
		r.sendAll(types.WatchChange(r.spectatorCount()))
	}

	// Replay the seats already taken, in seat order.
	seats := make([]session.Position, 0, len(r.duelists))
	for pos, other := range r.duelists {
		if other != id {
			seats = append(seats, pos)
		}
	}
	sort.Slice(seats, func(i, j int) bool { return r.encode(seats[i]) < r.encode(seats[j]) })
	for _, pos := range seats {
		other := r.clients[r.duelists[pos]]
		m.client.Send(types.PlayerEnter(other.client.Name(), r.encode(pos)))
		m.client.Send(r.readyChange(other))
	}
}

func (r *Room) onLeave(id session.ClientID) {
	m := r.clients[id]
	if m == nil {
		return
	}
	r.logger.Info("client left", zap.String("client", string(id)))
	if _, ok := r.state.(*session.Waiting); ok {
		r.leaveWaiting(m)
	} else {
		r.dispatch(session.ConnectionLost{Client: id})
	}
	r.remove(id)
}

func (r *Room) leaveWaiting(m *member) {
	id := m.client.ID()
	if id == r.host {
		r.transition(&session.Closing{})
		return
	}
	pos := m.pos
	r.remove(id)
	if pos.IsSpectator() {
		r.sendAll(types.WatchChange(r.spectatorCount()))
		return
	}
	r.sendAll(types.PlayerChange(r.encode(pos), types.ChangeLeave))
}

func (r *Room) onChat(m *member, text string) {
	if _, closing := r.state.(*session.Closing); closing || text == "" {
		return
	}
	if m.pos.IsSpectator() {
		r.sendAll(types.SpectatorChat(m.client.Name(), text))
		return
	}
	r.sendAll(types.DuelistChat(r.encode(m.pos), text))
}

func (r *Room) onToDuelist(m *member) {
	isHost := m.client.ID() == r.host
	if m.pos.IsSpectator() {
		if !r.assign(m, session.Position{Team: m.lastTeam}) {
			return
		}
		pos := r.encode(m.pos)
		r.sendAll(types.PlayerEnter(m.client.Name(), pos))
		r.sendAll(r.readyChange(m))
		r.sendAll(types.WatchChange(r.spectatorCount()))
		m.client.Send(types.TypeChange(pos, isHost))
		return
	}

	old := m.pos
	r.vacate(m)
	if !r.assign(m, session.Position{Team: old.Team, Slot: old.Slot + 1}) {
		// The seat just freed is always available, so this is unreachable.
		r.assign(m, old)
		return
	}
	if m.pos == old {
		return
	}
	m.ready = false
	r.sendAll(types.PlayerMoved(r.encode(old), r.encode(m.pos)))
	r.sendAll(r.readyChange(m))
	m.client.Send(types.TypeChange(r.encode(m.pos), isHost))
}

func (r *Room) onToObserver(m *member) {
	if m.pos.IsSpectator() {
		return
	}
	old := m.pos
	r.vacate(m)
	m.ready = false
	r.sendAll(types.PlayerChange(r.encode(old), types.ChangeSpectate))
	m.client.Send(types.SpectatorType(m.client.ID() == r.host))
}

func (r *Room) onUpdateDeck(m *member, main, side []uint32) {
	if m.pos.IsSpectator() {
		return
	}
	m.deck = deck.Load(r.deps.Catalog, main, side)
}

func (r *Room) onReady(m *member, value bool) {
	if m.pos.IsSpectator() || m.ready == value {
		return
	}
	if m.deck == nil {
		value = false
	}
	if value && !r.opts.Info.DontCheckDeck {
		if err := deck.Validate(m.deck, r.deckRules(), r.deps.Catalog); err != nil {
			var rej *deck.Rejection
			if errors.As(err, &rej) {
				m.client.Send(types.DeckError(rej.Kind, rej.Value))
			}
			r.logger.Debug("deck rejected", zap.String("client", string(m.client.ID())), zap.Error(err))
			value = false
		}
	}
	m.ready = value
	r.sendAll(r.readyChange(m))
}

func (r *Room) onKick(m *member, pos uint8) {
	if m.client.ID() != r.host {
		return
	}
	target, ok := r.duelists[DecodePosition(pos, r.opts.Info.T1Count)]
	if !ok || target == r.host {
		return
	}
	r.logger.Info("client kicked", zap.String("client", string(target)))
	r.drop(target)
	r.sendAll(types.PlayerChange(pos, types.ChangeLeave))
}

func (r *Room) readyChange(m *member) types.ServerMessage {
	c := types.ChangeNotReady
	if m.ready {
		c = types.ChangeReady
	}
	return types.PlayerChange(r.encode(m.pos), c)
}
