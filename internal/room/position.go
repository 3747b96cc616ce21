package room

import "github.com/DoyleJ11/duel-rooms/internal/session"

// allocate finds a free seat, scanning team 0 from hint, then team 1,
// then starting over from the first seat when hint was not already it.
func allocate(taken map[session.Position]session.ClientID, t1, t2 uint8, hint session.Position) (session.Position, bool) {
	scan := func(p session.Position, count uint8) (session.Position, bool) {
		for ; p.Slot < count; p.Slot++ {
			if _, used := taken[p]; !used {
				return p, true
			}
		}
		return session.Position{}, false
	}

	if hint.Team == 0 {
		if p, ok := scan(hint, t1); ok {
			return p, true
		}
	}
	from := session.Position{Team: 1}
	if hint.Team == 1 {
		from.Slot = hint.Slot
	}
	if p, ok := scan(from, t2); ok {
		return p, true
	}
	if hint != (session.Position{}) {
		return allocate(taken, t1, t2, session.Position{})
	}
	return session.Position{}, false
}

// EncodePosition flattens a seat into the single byte clients see.
func EncodePosition(p session.Position, t1 uint8) uint8 {
	return p.Team*t1 + p.Slot
}

// DecodePosition reverses EncodePosition.
func DecodePosition(pos, t1 uint8) session.Position {
	if pos < t1 {
		return session.Position{Team: 0, Slot: pos}
	}
	return session.Position{Team: 1, Slot: pos - t1}
}

func (r *Room) encode(p session.Position) uint8 {
	return EncodePosition(p, r.opts.Info.T1Count)
}

// assign seats m using hint. Only the loop goroutine calls it.
func (r *Room) assign(m *member, hint session.Position) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	pos, ok := allocate(r.duelists, r.opts.Info.T1Count, r.opts.Info.T2Count, hint)
	if !ok {
		return false
	}
	r.duelists[pos] = m.client.ID()
	m.pos = pos
	m.lastTeam = pos.Team
	return true
}

func (r *Room) vacate(m *member) {
	if m.pos.IsSpectator() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.duelists[m.pos] == m.client.ID() {
		delete(r.duelists, m.pos)
	}
	m.pos = session.Spectator
}

func (r *Room) spectatorCount() int {
	return len(r.clients) - len(r.duelists)
}

// roster exposes the room to the session machine.
type roster struct{ r *Room }

func (ro roster) Position(id session.ClientID) session.Position {
	if m := ro.r.clients[id]; m != nil {
		return m.pos
	}
	return session.Spectator
}

func (ro roster) Duelist(p session.Position) (session.ClientID, bool) {
	id, ok := ro.r.duelists[p]
	return id, ok
}

func (ro roster) DuelistCount() int { return len(ro.r.duelists) }

func (ro roster) Capacity() int {
	return int(ro.r.opts.Info.T1Count) + int(ro.r.opts.Info.T2Count)
}

func (ro roster) IsHost(id session.ClientID) bool { return id != "" && id == ro.r.host }

func (ro roster) AllReady() bool {
	for _, id := range ro.r.duelists {
		if m := ro.r.clients[id]; m == nil || !m.ready {
			return false
		}
	}
	return true
}
